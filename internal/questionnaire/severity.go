package questionnaire

import "strings"

// Label is the frequency bucket an answer is classified into.
//
// Only the four canonical values are valid. Any other value may still appear in an [Answer] when the classifier
// returned something unexpected; such labels score 0.
type Label string

const (
	NotAtAll            Label = "Not at all"
	SeveralDays         Label = "Several days"
	MoreThanHalfTheDays Label = "More than half the days"
	NearlyEveryDay      Label = "Nearly every day"
)

// Labels returns the canonical labels in ascending severity.
func Labels() []Label {
	return []Label{NotAtAll, SeveralDays, MoreThanHalfTheDays, NearlyEveryDay}
}

// ParseLabel trims raw classifier output. The returned label is passed through verbatim when it is not canonical so
// that it can be logged and stored; ok reports whether it is one of the canonical labels.
func ParseLabel(raw string) (Label, bool) {
	label := Label(strings.TrimSpace(raw))
	return label, label.Valid()
}

// Valid reports whether l is one of the canonical labels.
func (l Label) Valid() bool {
	switch l {
	case NotAtAll, SeveralDays, MoreThanHalfTheDays, NearlyEveryDay:
		return true
	default:
		return false
	}
}

// Points maps a label to its PHQ-9 item score. Unrecognised labels score 0.
func Points(l Label) int {
	switch l {
	case NotAtAll:
		return 0
	case SeveralDays:
		return 1
	case MoreThanHalfTheDays:
		return 2 //nolint:mnd // PHQ-9 item score
	case NearlyEveryDay:
		return 3 //nolint:mnd // PHQ-9 item score
	default:
		return 0
	}
}

// MaxScore is the highest possible total score.
const MaxScore = 27

// Band is the depression severity category derived from a total score.
type Band string

const (
	BandMinimal          Band = "Minimal"
	BandMild             Band = "Mild"
	BandModerate         Band = "Moderate"
	BandModeratelySevere Band = "Moderately severe"
	BandSevere           Band = "Severe"
)

// BandFor returns the standard PHQ-9 severity band for a total score: 0-4 Minimal, 5-9 Mild, 10-14 Moderate,
// 15-19 Moderately severe, 20-27 Severe.
func BandFor(score int) Band {
	switch {
	case score <= 4: //nolint:mnd // band boundaries
		return BandMinimal
	case score <= 9: //nolint:mnd // band boundaries
		return BandMild
	case score <= 14: //nolint:mnd // band boundaries
		return BandModerate
	case score <= 19: //nolint:mnd // band boundaries
		return BandModeratelySevere
	default:
		return BandSevere
	}
}
