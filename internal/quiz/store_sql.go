package quiz

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/eventlog"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(d *sql.DB) *SQLStore {
	return &SQLStore{db: d}
}

var _ Store = (*SQLStore)(nil)

func (s *SQLStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(sqlTx{tx: tx})
	})
	return storageErr("transaction", err)
}

func (s *SQLStore) ListQuestionsByOwner(ctx context.Context, ownerID int64) ([]OwnedQuestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.question_text, o.id, o.option_text, o.is_correct
		FROM questions q
		LEFT JOIN options o ON o.question_id = q.id
		WHERE q.teacher_id = $1
		ORDER BY q.id, o.id`, ownerID)
	if err != nil {
		return nil, storageErr("list questions by owner", err)
	}
	joined, err := scanJoined(rows)
	if err != nil {
		return nil, storageErr("list questions by owner", err)
	}

	out := []OwnedQuestion{}
	for _, r := range joined {
		if n := len(out); n == 0 || out[n-1].ID != r.QuestionID {
			out = append(out, OwnedQuestion{ID: r.QuestionID, Text: r.QuestionText, Options: []Option{}})
		}
		if r.OptionID == nil {
			continue
		}
		last := &out[len(out)-1]
		last.Options = append(last.Options, Option{ID: *r.OptionID, Text: r.OptionText, IsCorrect: r.IsCorrect})
	}
	return out, nil
}

func (s *SQLStore) ListAllQuestionsWithOptions(ctx context.Context) ([]QuestionOptionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.question_text, o.id, o.option_text, o.is_correct
		FROM questions q
		LEFT JOIN options o ON o.question_id = q.id
		ORDER BY q.id, o.id`)
	if err != nil {
		return nil, storageErr("list questions with options", err)
	}
	out, err := scanJoined(rows)
	if err != nil {
		return nil, storageErr("list questions with options", err)
	}
	return out, nil
}

func (s *SQLStore) CorrectOptionID(ctx context.Context, questionID int64) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM options WHERE question_id=$1 AND is_correct = TRUE ORDER BY id LIMIT 1`,
		questionID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storageErr("correct option", err)
	}
	return id, true, nil
}

// DeleteQuestionCascade deletes a question and its options in its own
// transaction.
func (s *SQLStore) DeleteQuestionCascade(ctx context.Context, questionID int64) error {
	return s.InTx(ctx, func(tx Tx) error {
		return tx.DeleteQuestionCascade(ctx, questionID)
	})
}

func scanJoined(rows *sql.Rows) ([]QuestionOptionRow, error) {
	defer rows.Close()
	var out []QuestionOptionRow
	for rows.Next() {
		var (
			r       QuestionOptionRow
			optID   sql.NullInt64
			optText sql.NullString
			correct sql.NullBool
		)
		if err := rows.Scan(&r.QuestionID, &r.QuestionText, &optID, &optText, &correct); err != nil {
			return nil, err
		}
		if optID.Valid {
			id := optID.Int64
			r.OptionID = &id
			r.OptionText = optText.String
			r.IsCorrect = correct.Valid && correct.Bool
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---- transactional writer ----

type sqlTx struct{ tx *sql.Tx }

func (t sqlTx) CreateQuestion(ctx context.Context, text string, ownerID int64) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO questions (question_text, teacher_id, created_at) VALUES ($1,$2,$3) RETURNING id`,
		text, ownerID, time.Now().Unix()).Scan(&id)
	if err != nil {
		return 0, storageErr("create question", err)
	}
	return id, nil
}

func (t sqlTx) CreateOption(ctx context.Context, text string, questionID int64, isCorrect bool) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO options (option_text, question_id, is_correct) VALUES ($1,$2,$3) RETURNING id`,
		text, questionID, isCorrect).Scan(&id)
	if err != nil {
		return 0, storageErr("create option", err)
	}
	return id, nil
}

func (t sqlTx) QuestionOwner(ctx context.Context, questionID int64) (int64, error) {
	var owner int64
	err := t.tx.QueryRowContext(ctx, `SELECT teacher_id FROM questions WHERE id=$1`, questionID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, storageErr("question owner", err)
	}
	return owner, nil
}

func (t sqlTx) DeleteQuestionCascade(ctx context.Context, questionID int64) error {
	// options first so no option ever points at a missing question
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM options WHERE question_id=$1`, questionID); err != nil {
		return storageErr("delete options", err)
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, questionID)
	if err != nil {
		return storageErr("delete question", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (t sqlTx) AppendEvent(ctx context.Context, e eventlog.Event) error {
	return storageErr("append event", eventlog.Append(ctx, t.tx, e))
}
