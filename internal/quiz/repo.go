package quiz

import (
	"context"

	"github.com/mind-engage/mindengage-quiz/internal/eventlog"
)

// Store is the question bank.
type Store interface {
	// InTx runs fn in one transaction; any error rolls back every write fn made.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	ListQuestionsByOwner(ctx context.Context, ownerID int64) ([]OwnedQuestion, error)
	ListAllQuestionsWithOptions(ctx context.Context) ([]QuestionOptionRow, error)

	// CorrectOptionID returns the option flagged correct for questionID;
	// ok is false when there is none.
	CorrectOptionID(ctx context.Context, questionID int64) (id int64, ok bool, err error)
}

// Tx is the write side of the question bank, scoped to one transaction.
type Tx interface {
	CreateQuestion(ctx context.Context, text string, ownerID int64) (int64, error)
	CreateOption(ctx context.Context, text string, questionID int64, isCorrect bool) (int64, error)
	QuestionOwner(ctx context.Context, questionID int64) (int64, error)
	// DeleteQuestionCascade removes the question's options, then the question.
	DeleteQuestionCascade(ctx context.Context, questionID int64) error
	AppendEvent(ctx context.Context, e eventlog.Event) error
}
