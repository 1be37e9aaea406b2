package repositories

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/myrjola/phq9bot/internal/models"
	"github.com/myrjola/phq9bot/internal/questionnaire"
	"github.com/myrjola/phq9bot/internal/sqlite"
)

var ErrNotFound = errors.NewSentinel("not found")

// TimestampLayout matches the STRFTIME('%Y-%m-%dT%H:%M:%fZ') defaults of the schema.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

type ScreeningRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewScreeningRepository(db *sqlite.Database, logger *slog.Logger) *ScreeningRepository {
	return &ScreeningRepository{
		db:     db,
		logger: logger.With(slog.String("source", "ScreeningRepository")),
	}
}

// Save replaces the stored screening of the conversation with snapshot.
func (r *ScreeningRepository) Save(ctx context.Context, conversationID string, snapshot questionnaire.Snapshot) error {
	screening := toModel(conversationID, snapshot)
	screening.Updated = time.Now().UTC().Format(TimestampLayout)

	tx, err := r.db.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction", errors.SlogError(rbErr))
		}
	}()

	stmt := `INSERT INTO screenings (conversation_id, phase, question_index, score, interrupted, closing, updated)
VALUES (:conversation_id, :phase, :question_index, :score, :interrupted, :closing, :updated)
ON CONFLICT (conversation_id) DO UPDATE SET phase          = excluded.phase,
                                            question_index = excluded.question_index,
                                            score          = excluded.score,
                                            interrupted    = excluded.interrupted,
                                            closing        = excluded.closing,
                                            updated        = excluded.updated`
	if _, err = tx.NamedExecContext(ctx, stmt, screening); err != nil {
		return errors.Wrap(err, "upsert screening")
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM answers WHERE conversation_id = ?`, conversationID); err != nil {
		return errors.Wrap(err, "delete answers")
	}
	if len(screening.Answers) > 0 {
		stmt = `INSERT INTO answers (conversation_id, "order", question, response, label, points)
VALUES (:conversation_id, :order, :question, :response, :label, :points)`
		if _, err = tx.NamedExecContext(ctx, stmt, screening.Answers); err != nil {
			return errors.Wrap(err, "insert answers", slog.Int("count", len(screening.Answers)))
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

// Get returns the stored screening of the conversation or ErrNotFound.
func (r *ScreeningRepository) Get(ctx context.Context, conversationID string) (*models.Screening, error) {
	var screening models.Screening
	stmt := `SELECT conversation_id, phase, question_index, score, interrupted, closing, created, updated
FROM screenings
WHERE conversation_id = ?`
	if err := r.db.ReadOnly.GetContext(ctx, &screening, stmt, conversationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "get screening")
		}
		return nil, errors.Wrap(err, "get screening")
	}
	stmt = `SELECT conversation_id, "order", question, response, label, points
FROM answers
WHERE conversation_id = ?
ORDER BY "order"`
	if err := r.db.ReadOnly.SelectContext(ctx, &screening.Answers, stmt, conversationID); err != nil {
		return nil, errors.Wrap(err, "select answers")
	}
	return &screening, nil
}

// Load returns the stored screening as a session snapshot.
func (r *ScreeningRepository) Load(ctx context.Context, conversationID string) (questionnaire.Snapshot, error) {
	screening, err := r.Get(ctx, conversationID)
	if err != nil {
		return questionnaire.Snapshot{}, err
	}
	return toSnapshot(screening), nil
}

// Delete removes the screening and its answers. Deleting a missing screening is not an error.
func (r *ScreeningRepository) Delete(ctx context.Context, conversationID string) error {
	if _, err := r.db.ReadWrite.ExecContext(ctx, `DELETE FROM screenings WHERE conversation_id = ?`,
		conversationID); err != nil {
		return errors.Wrap(err, "delete screening")
	}
	return nil
}

// DeleteStale removes screenings not updated since cutoff and returns how many were removed.
func (r *ScreeningRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ReadWrite.ExecContext(ctx, `DELETE FROM screenings WHERE updated < ?`,
		cutoff.UTC().Format(TimestampLayout))
	if err != nil {
		return 0, errors.Wrap(err, "delete stale screenings")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}

func toModel(conversationID string, s questionnaire.Snapshot) models.Screening {
	answers := make([]models.Answer, 0, len(s.Answers))
	for i, a := range s.Answers {
		answers = append(answers, models.Answer{
			ConversationID: conversationID,
			Order:          i,
			Question:       a.Question,
			Response:       a.Response,
			Label:          string(a.Label),
			Points:         a.Points(),
		})
	}
	return models.Screening{
		ConversationID: conversationID,
		Phase:          string(s.Phase),
		QuestionIndex:  s.Index,
		Score:          s.Score,
		Interrupted:    s.Interrupted,
		Closing:        s.Closing,
		Created:        "",
		Updated:        "",
		Answers:        answers,
	}
}

func toSnapshot(m *models.Screening) questionnaire.Snapshot {
	answers := make([]questionnaire.Answer, 0, len(m.Answers))
	for _, a := range m.Answers {
		answers = append(answers, questionnaire.Answer{
			Question: a.Question,
			Response: a.Response,
			Label:    questionnaire.Label(a.Label),
		})
	}
	return questionnaire.Snapshot{
		Phase:       questionnaire.Phase(m.Phase),
		Index:       m.QuestionIndex,
		Answers:     answers,
		Score:       m.Score,
		Interrupted: m.Interrupted,
		Closing:     m.Closing,
	}
}
