package questionnaire

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/myrjola/phq9bot/internal/random"
)

var (
	ErrNotStarted            = errors.NewSentinel("screening not started")
	ErrAlreadyStarted        = errors.NewSentinel("screening already started")
	ErrCapabilityUnavailable = errors.NewSentinel("external capability unavailable")
	ErrInvalidSnapshot       = errors.NewSentinel("invalid session snapshot")
)

// Phase is the lifecycle phase of a [Session]. Phases only move forward:
// NotStarted -> InProgress -> Interrupted | Completed.
type Phase string

const (
	PhaseNotStarted  Phase = "not_started"
	PhaseInProgress  Phase = "in_progress"
	PhaseInterrupted Phase = "interrupted"
	PhaseCompleted   Phase = "completed"
)

// Terminal reports whether no further answers can be recorded in phase p.
func (p Phase) Terminal() bool {
	return p == PhaseInterrupted || p == PhaseCompleted
}

// RetryMessage is returned when the answer could not be classified. The answer is not recorded and the same question
// stays open.
const RetryMessage = "I'm sorry, I couldn't process that just now. Could you please share your answer again?"

const (
	fallbackEmpathy = "Thank you for sharing that with me."
	fallbackSupport = "Thank you for taking the time to answer these questions. Whatever you are going through, " +
		"you don't have to face it alone. Talking with someone you trust or a mental health professional can help."
)

// Answer is one answered question. Label holds the classifier output verbatim, even when it is not canonical.
type Answer struct {
	Question string `json:"question"`
	Response string `json:"response"`
	Label    Label  `json:"label"`
}

// Points is the score contribution of a.
func (a Answer) Points() int {
	return Points(a.Label)
}

// Turn is the outcome of one user utterance.
type Turn struct {
	// Message is the outgoing bot message.
	Message string
	// Interrupted is true when the session ended because the safety filter triggered.
	Interrupted bool
	// Phase is the session phase after the turn.
	Phase Phase
	// Answer is the record appended during this turn, nil if nothing was recorded.
	Answer *Answer
}

// Snapshot is a copy of the session state that can be persisted and restored.
type Snapshot struct {
	Phase       Phase
	Index       int
	Answers     []Answer
	Score       int
	Interrupted bool
	// Closing is the terminal message replayed when a finished session receives more input.
	Closing string
}

// Band returns the severity band for the accumulated score.
func (s Snapshot) Band() Band {
	return BandFor(s.Score)
}

// Validate checks the invariants between the fields of s.
func (s Snapshot) Validate() error {
	switch s.Phase {
	case PhaseNotStarted, PhaseInProgress, PhaseInterrupted, PhaseCompleted:
	default:
		return errors.Wrap(ErrInvalidSnapshot, "unknown phase", slog.String("phase", string(s.Phase)))
	}
	if s.Index < 0 || s.Index > QuestionCount {
		return errors.Wrap(ErrInvalidSnapshot, "index out of range", slog.Int("index", s.Index))
	}
	if s.Interrupted != (s.Phase == PhaseInterrupted) {
		return errors.Wrap(ErrInvalidSnapshot, "interrupted flag does not match phase")
	}
	if s.Interrupted {
		if len(s.Answers) > s.Index {
			return errors.Wrap(ErrInvalidSnapshot, "more answers than questions asked")
		}
	} else if len(s.Answers) != s.Index {
		return errors.Wrap(ErrInvalidSnapshot, "answer count does not match index",
			slog.Int("answers", len(s.Answers)), slog.Int("index", s.Index))
	}
	if s.Phase == PhaseCompleted && s.Index != QuestionCount {
		return errors.Wrap(ErrInvalidSnapshot, "completed before last question")
	}
	if s.Phase == PhaseNotStarted && s.Index != 0 {
		return errors.Wrap(ErrInvalidSnapshot, "answers before start")
	}
	sum := 0
	for i, a := range s.Answers {
		if a.Question != Question(i) {
			return errors.Wrap(ErrInvalidSnapshot, "answer out of order", slog.Int("position", i))
		}
		sum += a.Points()
	}
	if sum != s.Score {
		return errors.Wrap(ErrInvalidSnapshot, "score does not match answers",
			slog.Int("score", s.Score), slog.Int("sum", sum))
	}
	return nil
}

// Dependencies are the collaborators of a [Session]. Classifier, Empathizer, and Summarizer are required.
type Dependencies struct {
	Classifier Classifier
	Empathizer Empathizer
	Summarizer Summarizer
	// Phraser defaults to a randomly seeded one.
	Phraser *Phraser
	// SafetyFilter defaults to [DefaultTriggerPhrases].
	SafetyFilter *SafetyFilter
	// CallTimeout bounds each external call. Zero means no additional bound.
	CallTimeout time.Duration
	// Logger defaults to discarding output.
	Logger *slog.Logger
}

// Session is the state machine for one screening conversation.
//
// A Session is not safe for concurrent use. Callers serve one turn at a time per session.
type Session struct {
	deps  Dependencies
	state Snapshot
}

// NewSession creates a session in [PhaseNotStarted].
func NewSession(deps Dependencies) *Session {
	if deps.Phraser == nil {
		deps.Phraser = NewPhraser(random.NewSource())
	}
	if deps.SafetyFilter == nil {
		deps.SafetyFilter = NewSafetyFilter()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		deps: deps,
		state: Snapshot{
			Phase:       PhaseNotStarted,
			Index:       0,
			Answers:     nil,
			Score:       0,
			Interrupted: false,
			Closing:     "",
		},
	}
}

// Restore recreates a session from a snapshot taken with [Session.Snapshot].
func Restore(deps Dependencies, snapshot Snapshot) (*Session, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate snapshot")
	}
	s := NewSession(deps)
	s.state = cloneSnapshot(snapshot)
	return s, nil
}

func cloneSnapshot(s Snapshot) Snapshot {
	if s.Answers != nil {
		answers := make([]Answer, len(s.Answers))
		copy(answers, s.Answers)
		s.Answers = answers
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	return cloneSnapshot(s.state)
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	return s.state.Phase
}

// Start moves the session into [PhaseInProgress] and returns the first question.
func (s *Session) Start() (string, error) {
	if s.state.Phase != PhaseNotStarted {
		return "", errors.Wrap(ErrAlreadyStarted, "start", slog.String("phase", string(s.state.Phase)))
	}
	s.state = Snapshot{
		Phase:       PhaseInProgress,
		Index:       0,
		Answers:     []Answer{},
		Score:       0,
		Interrupted: false,
		Closing:     "",
	}
	return Prompt(0), nil
}

// Respond processes one user utterance.
//
// The safety filter runs first and ends the session with [CrisisMessage] when it triggers. Otherwise the answer is
// classified, scored, recorded, and acknowledged, followed by the next question or, after the last one, the summary.
//
// Once the session is terminal, Respond replays the terminal message without changing any state. If the classifier
// fails, the returned error wraps [ErrCapabilityUnavailable], the Turn carries [RetryMessage], and the state is
// untouched so the answer can be resent.
func (s *Session) Respond(ctx context.Context, utterance string) (Turn, error) {
	switch s.state.Phase {
	case PhaseNotStarted:
		return Turn{Message: "", Interrupted: false, Phase: s.state.Phase, Answer: nil}, errors.Wrap(ErrNotStarted, "respond")
	case PhaseInterrupted, PhaseCompleted:
		return s.replay(), nil
	case PhaseInProgress:
	}

	logger := s.deps.Logger.With(slog.Int("question", s.state.Index+1))

	if s.deps.SafetyFilter.Check(utterance) {
		s.state.Phase = PhaseInterrupted
		s.state.Interrupted = true
		s.state.Closing = CrisisMessage
		logger.LogAttrs(ctx, slog.LevelWarn, "safety filter triggered, screening interrupted")
		return s.replay(), nil
	}

	question := Question(s.state.Index)
	label, err := s.classify(ctx, question, utterance)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "classification failed", errors.SlogError(err))
		return Turn{Message: RetryMessage, Interrupted: false, Phase: s.state.Phase, Answer: nil},
			errors.Wrap(errors.Join(ErrCapabilityUnavailable, err), "classify answer")
	}
	if !label.Valid() {
		logger.LogAttrs(ctx, slog.LevelWarn, "classifier returned unknown label, scoring 0",
			slog.String("label", string(label)))
	}

	answer := Answer{Question: question, Response: utterance, Label: label}
	s.state.Answers = append(s.state.Answers, answer)
	s.state.Score += answer.Points()
	s.state.Index++
	logger.LogAttrs(ctx, slog.LevelDebug, "answer recorded",
		slog.String("label", string(label)), slog.Int("points", answer.Points()), slog.Int("score", s.state.Score))

	message := s.deps.Phraser.Confirm(label) + "\n" + s.empathize(ctx, logger, question, utterance)

	if s.state.Index < QuestionCount {
		message += "\n\n" + Prompt(s.state.Index)
		return Turn{Message: message, Interrupted: false, Phase: s.state.Phase, Answer: &answer}, nil
	}

	summary := s.summarize(ctx, logger)
	s.state.Phase = PhaseCompleted
	s.state.Closing = summary
	logger.LogAttrs(ctx, slog.LevelInfo, "screening completed",
		slog.Int("score", s.state.Score), slog.String("band", string(s.state.Band())))
	return Turn{Message: message + "\n\n" + summary, Interrupted: false, Phase: s.state.Phase, Answer: &answer}, nil
}

func (s *Session) replay() Turn {
	return Turn{
		Message:     s.state.Closing,
		Interrupted: s.state.Interrupted,
		Phase:       s.state.Phase,
		Answer:      nil,
	}
}

func (s *Session) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.deps.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.deps.CallTimeout)
}

func (s *Session) classify(ctx context.Context, question, response string) (Label, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	label, err := s.deps.Classifier.Classify(ctx, question, response)
	if err != nil {
		return "", errors.Wrap(err, "classifier")
	}
	label, _ = ParseLabel(string(label))
	return label, nil
}

func (s *Session) empathize(ctx context.Context, logger *slog.Logger, question, response string) string {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	text, err := s.deps.Empathizer.Empathize(ctx, question, response)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "empathy generation failed, using fallback", errors.SlogError(err))
		return fallbackEmpathy
	}
	return text
}

func (s *Session) summarize(ctx context.Context, logger *slog.Logger) string {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	text, err := s.deps.Summarizer.Summarize(ctx, Transcript(s.state.Answers), s.state.Score)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "summary generation failed, using fallback", errors.SlogError(err))
		return FallbackSummary(s.state.Score)
	}
	return text
}

// FallbackSummary is the closing message used when the summary cannot be generated.
func FallbackSummary(score int) string {
	return "Depression severity: " + string(BandFor(score)) + "\n\n" + fallbackSupport
}
