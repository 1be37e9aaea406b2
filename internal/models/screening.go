package models

// Screening is the persisted state of the PHQ-9 screening of one conversation.
type Screening struct {
	ConversationID string `db:"conversation_id"`
	Phase          string `db:"phase"`
	QuestionIndex  int    `db:"question_index"`
	Score          int    `db:"score"`
	Interrupted    bool   `db:"interrupted"`
	// Closing is the terminal message of a finished screening.
	Closing string   `db:"closing"`
	Created string   `db:"created"`
	Updated string   `db:"updated"`
	Answers []Answer `db:"-"`
}

// Answer is one answered question of a screening.
type Answer struct {
	ConversationID string `db:"conversation_id"`
	Order          int    `db:"order"`
	Question       string `db:"question"`
	Response       string `db:"response"`
	Label          string `db:"label"`
	Points         int    `db:"points"`
}
