package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-quiz/internal/eventlog"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// Service is the authoring and quiz assembly side of the question bank.
type Service struct {
	store    Store
	log      *slog.Logger
	validate *validator.Validate

	sharedModeration bool
}

type ServiceOption func(*Service)

// WithSharedModeration lets any teacher delete any question.
func WithSharedModeration(b bool) ServiceOption { return func(s *Service) { s.sharedModeration = b } }

func NewService(store Store, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, log: logger, validate: newValidator()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		q := sl.Current().Interface().(QuestionInput)
		if q.CorrectOption == nil {
			return
		}
		if i := int(*q.CorrectOption); i < 0 || i >= len(q.Options) {
			sl.ReportError(q.CorrectOption, "correct_option", "CorrectOption", "option_index", strconv.Itoa(len(q.Options)))
		}
	}, QuestionInput{})
	return v
}

// SubmitBatch validates the whole batch, then writes every question and its
// options in one transaction. It returns the new question ids in batch order.
func (s *Service) SubmitBatch(ctx context.Context, caller rbac.Principal, b Batch) ([]int64, error) {
	if !caller.Is(rbac.RoleTeacher) {
		return nil, ErrUnauthorized
	}
	b = normalizeBatch(b)
	if err := s.checkBatch(b); err != nil {
		return nil, err
	}

	keys := orderedKeys(b.Questions)
	ids := make([]int64, 0, len(keys))
	err := s.store.InTx(ctx, func(tx Tx) error {
		for _, k := range keys {
			in := b.Questions[k]
			qid, err := tx.CreateQuestion(ctx, in.Text, caller.UserID)
			if err != nil {
				return err
			}
			correct := int(*in.CorrectOption)
			for i, text := range in.Options {
				if _, err := tx.CreateOption(ctx, text, qid, i == correct); err != nil {
					return err
				}
			}
			ev := eventlog.QuestionEvent(eventlog.TypeQuestionCreated, qid, caller.UserID, map[string]any{
				"teacher_id": caller.UserID,
				"options":    len(in.Options),
			})
			if err := tx.AppendEvent(ctx, ev); err != nil {
				return err
			}
			ids = append(ids, qid)
		}
		return nil
	})
	if err != nil {
		s.log.ErrorContext(ctx, "submit questions failed", "teacher_id", caller.UserID, "error", err)
		return nil, err
	}
	s.log.InfoContext(ctx, "questions submitted", "teacher_id", caller.UserID, "count", len(ids))
	return ids, nil
}

func (s *Service) checkBatch(b Batch) error {
	err := s.validate.Struct(b)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Problems: []string{err.Error()}}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return &ValidationError{Problems: problems}
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Batch.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must not be empty"
	case "option_index":
		return fmt.Sprintf("%s must be between 0 and %s", field, lastIndex(fe.Param()))
	default:
		return field + " is invalid"
	}
}

func lastIndex(n string) string {
	v, err := strconv.Atoi(n)
	if err != nil || v == 0 {
		return "-1"
	}
	return strconv.Itoa(v - 1)
}

func normalizeBatch(b Batch) Batch {
	if b.Questions == nil {
		return b
	}
	out := Batch{Questions: make(map[string]QuestionInput, len(b.Questions))}
	for k, q := range b.Questions {
		q.Text = strings.TrimSpace(q.Text)
		opts := make([]string, len(q.Options))
		for i, o := range q.Options {
			opts[i] = strings.TrimSpace(o)
		}
		q.Options = opts
		out.Questions[k] = q
	}
	return out
}

// orderedKeys sorts numeric keys numerically, ahead of any other keys which
// sort lexically.
func orderedKeys(m map[string]QuestionInput) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.Atoi(keys[i])
		b, bErr := strconv.Atoi(keys[j])
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// ListOwn returns the caller's questions with every option and its flag.
func (s *Service) ListOwn(ctx context.Context, caller rbac.Principal) ([]OwnedQuestion, error) {
	if !caller.Is(rbac.RoleTeacher) {
		return nil, ErrUnauthorized
	}
	return s.store.ListQuestionsByOwner(ctx, caller.UserID)
}

// Delete removes a question and its options. Unless shared moderation is
// on, only the question's owner may delete it.
func (s *Service) Delete(ctx context.Context, caller rbac.Principal, questionID int64) error {
	if !caller.Is(rbac.RoleTeacher) {
		return ErrUnauthorized
	}
	err := s.store.InTx(ctx, func(tx Tx) error {
		owner, err := tx.QuestionOwner(ctx, questionID)
		if err != nil {
			return err
		}
		if owner != caller.UserID && !s.sharedModeration {
			return ErrUnauthorized
		}
		if err := tx.DeleteQuestionCascade(ctx, questionID); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, eventlog.QuestionEvent(eventlog.TypeQuestionDeleted, questionID, caller.UserID, map[string]any{
			"teacher_id": caller.UserID,
			"owner_id":   owner,
		}))
	})
	if err != nil {
		s.log.WarnContext(ctx, "delete question failed", "question_id", questionID, "teacher_id", caller.UserID, "error", err)
		return err
	}
	s.log.InfoContext(ctx, "question deleted", "question_id", questionID, "teacher_id", caller.UserID)
	return nil
}

// AssembleQuiz returns every answerable question in the bank, without
// correctness flags.
func (s *Service) AssembleQuiz(ctx context.Context, caller rbac.Principal) ([]QuizQuestion, error) {
	if !caller.Is(rbac.RoleStudent) {
		return nil, ErrUnauthorized
	}
	rows, err := s.store.ListAllQuestionsWithOptions(ctx)
	if err != nil {
		return nil, err
	}
	return Project(rows), nil
}

// Project groups joined rows by question, keeping first-seen question order
// and option order, and drops questions that have no options.
func Project(rows []QuestionOptionRow) []QuizQuestion {
	out := []QuizQuestion{}
	index := map[int64]int{}
	for _, r := range rows {
		i, seen := index[r.QuestionID]
		if !seen {
			i = len(out)
			index[r.QuestionID] = i
			out = append(out, QuizQuestion{ID: r.QuestionID, Text: r.QuestionText, Options: []QuizOption{}})
		}
		if r.OptionID != nil {
			out[i].Options = append(out[i].Options, QuizOption{ID: *r.OptionID, Text: r.OptionText})
		}
	}
	answerable := out[:0]
	for _, q := range out {
		if len(q.Options) > 0 {
			answerable = append(answerable, q)
		}
	}
	return answerable
}
