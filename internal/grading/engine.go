package grading

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// KeyLookup resolves the correct option of a question. ok is false when the
// question has no option flagged correct (or does not exist).
type KeyLookup interface {
	CorrectOptionID(ctx context.Context, questionID int64) (id int64, ok bool, err error)
}

// Answer is one parsed entry of a submission.
type Answer struct {
	QuestionID int64
	Selected   string // option id as submitted, not yet parsed
}

// Submission is the typed form of a student's answers.
type Submission []Answer

// ParseSubmission turns the transport mapping ({"q20": "72", ...}) into a
// Submission. Any non-digit prefix on a key is stripped; keys whose
// remainder is not a positive decimal id are left out, so they count
// neither for nor against the student. When two keys name the same
// question the first key in lexical order wins.
func ParseSubmission(raw map[string]string) Submission {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[int64]bool, len(keys))
	out := make(Submission, 0, len(keys))
	for _, k := range keys {
		qid, ok := questionID(k)
		if !ok || seen[qid] {
			continue
		}
		seen[qid] = true
		out = append(out, Answer{QuestionID: qid, Selected: raw[k]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}

func questionID(key string) (int64, bool) {
	rest := strings.TrimLeftFunc(strings.TrimSpace(key), func(r rune) bool { return !unicode.IsDigit(r) })
	if rest == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Engine options

type Option func(*config)

type config struct {
	Concurrency int
	Logger      *slog.Logger
}

func WithConcurrency(n int) Option     { return func(c *config) { c.Concurrency = n } }
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.Logger = l } }

// Engine grades submissions against the question bank. It only reads.
type Engine struct {
	keys KeyLookup
	cfg  config
}

func NewEngine(keys KeyLookup, opts ...Option) *Engine {
	cfg := config{Concurrency: 8}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{keys: keys, cfg: cfg}
}

// GradeFor grades raw answers for a student caller.
func (e *Engine) GradeFor(ctx context.Context, caller rbac.Principal, raw map[string]string) (quiz.Score, error) {
	if !caller.Is(rbac.RoleStudent) {
		return quiz.Score{}, quiz.ErrUnauthorized
	}
	return e.Grade(ctx, ParseSubmission(raw))
}

type outcome struct {
	looked  bool
	correct bool
	err     error
}

// Grade looks up every answered question concurrently and tallies once all
// lookups are done. Total is the number of answers. A failed lookup counts
// as wrong; only when every issued lookup fails is a StorageError returned.
// Answers with a non-numeric selection issue no lookup.
func (e *Engine) Grade(ctx context.Context, sub Submission) (quiz.Score, error) {
	total := len(sub)
	if total == 0 {
		return quiz.Score{}, nil
	}

	results := make([]outcome, total)
	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i, a := range sub {
		i, a := i, a
		g.Go(func() error {
			results[i] = e.check(ctx, a)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return quiz.Score{}, err
	}

	score, looked, failed := 0, 0, 0
	var firstErr error
	for i, r := range results {
		if r.looked {
			looked++
		}
		switch {
		case r.err != nil:
			failed++
			if firstErr == nil {
				firstErr = r.err
			}
			e.cfg.Logger.WarnContext(ctx, "correct option lookup failed",
				"question_id", sub[i].QuestionID, "error", r.err)
		case r.correct:
			score++
		}
	}
	if looked > 0 && failed == looked {
		return quiz.Score{}, &quiz.StorageError{Op: "grade submission", Err: firstErr}
	}
	return quiz.Score{Score: score, Total: total}, nil
}

func (e *Engine) check(ctx context.Context, a Answer) outcome {
	selected, err := strconv.ParseInt(strings.TrimSpace(a.Selected), 10, 64)
	if err != nil {
		return outcome{}
	}
	want, ok, err := e.keys.CorrectOptionID(ctx, a.QuestionID)
	if err != nil {
		return outcome{looked: true, err: err}
	}
	return outcome{looked: true, correct: ok && want == selected}
}
