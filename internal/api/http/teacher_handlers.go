package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/eventlog"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// Authoring is the teacher side of the question bank.
type Authoring interface {
	SubmitBatch(ctx context.Context, caller rbac.Principal, b quiz.Batch) ([]int64, error)
	ListOwn(ctx context.Context, caller rbac.Principal) ([]quiz.OwnedQuestion, error)
	Delete(ctx context.Context, caller rbac.Principal, questionID int64) error
}

// POST /teacher/questions accepts the batch as JSON or as the dashboard form
// (questions[0][question_text], questions[0][options][], questions[0][correct_option]).
func SubmitQuestionsHandler(svc Authoring, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			b   quiz.Batch
			err error
		)
		form := isForm(r)
		if form {
			if err = r.ParseForm(); err == nil {
				b, err = batchFromForm(r.PostForm)
			}
		} else {
			err = json.NewDecoder(r.Body).Decode(&b)
		}
		if err != nil {
			http.Error(w, "invalid input", http.StatusBadRequest)
			return
		}
		ids, err := svc.SubmitBatch(r.Context(), rbac.PrincipalFromContext(r.Context()), b)
		if err != nil {
			writeError(w, r, log, err, "could not save questions")
			return
		}
		if form {
			http.Redirect(w, r, "/teacher/questions", http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"status":       "ok",
			"question_ids": ids,
			"redirect":     "/teacher/questions",
		})
	}
}

var formField = regexp.MustCompile(`^questions\[([^\]]+)\]\[(question_text|correct_option|options)\](?:\[(\d*)\])?$`)

type formOption struct {
	pos  int // explicit [n], or -1 for [] and bare keys
	text string
}

// batchFromForm rebuilds a batch from bracketed form keys. Options keep their
// submitted order; explicitly indexed options sort by index ahead of
// unindexed ones. Unrelated keys are ignored.
func batchFromForm(form url.Values) (quiz.Batch, error) {
	b := quiz.Batch{Questions: map[string]quiz.QuestionInput{}}
	opts := map[string][]formOption{}
	for key, vals := range form {
		m := formField.FindStringSubmatch(key)
		if m == nil || len(vals) == 0 {
			continue
		}
		qk, field := m[1], m[2]
		in := b.Questions[qk]
		switch field {
		case "question_text":
			in.Text = vals[0]
		case "correct_option":
			if s := strings.TrimSpace(vals[0]); s != "" {
				n, err := strconv.Atoi(s)
				if err != nil {
					return quiz.Batch{}, fmt.Errorf("%s: %q is not an integer", key, s)
				}
				idx := quiz.Index(n)
				in.CorrectOption = &idx
			}
		case "options":
			pos := -1
			if m[3] != "" {
				pos, _ = strconv.Atoi(m[3])
			}
			for _, v := range vals {
				opts[qk] = append(opts[qk], formOption{pos: pos, text: v})
			}
		}
		b.Questions[qk] = in
	}
	for qk, list := range opts {
		sort.SliceStable(list, func(i, j int) bool {
			pi, pj := list[i].pos, list[j].pos
			if pi < 0 || pj < 0 {
				return pi >= 0 && pj < 0
			}
			return pi < pj
		})
		in := b.Questions[qk]
		for _, o := range list {
			in.Options = append(in.Options, o.text)
		}
		b.Questions[qk] = in
	}
	return b, nil
}

// GET /teacher/questions
func ListOwnQuestionsHandler(svc Authoring, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := svc.ListOwn(r.Context(), rbac.PrincipalFromContext(r.Context()))
		if err != nil {
			writeError(w, r, log, err, "could not fetch questions")
			return
		}
		writeJSON(w, http.StatusOK, qs)
	}
}

// DELETE /teacher/questions/{questionID}
func DeleteQuestionHandler(svc Authoring, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "questionID"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := svc.Delete(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
			writeError(w, r, log, err, "could not delete question")
			return
		}
		if r.Method == http.MethodPost {
			// form-driven delete: back to the listing
			http.Redirect(w, r, "/teacher/questions", http.StatusSeeOther)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// EventLister reads the authoring event log.
type EventLister interface {
	List(ctx context.Context, f eventlog.Filter) ([]eventlog.Event, error)
}

// GET /teacher/events?type=QuestionCreated
// Lists the events the calling teacher caused, oldest first.
func ListEventsHandler(events EventLister, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := eventlog.Filter{
			Type:    r.URL.Query().Get("type"),
			ActorID: rbac.PrincipalFromContext(r.Context()).UserID,
		}
		switch f.Type {
		case "", eventlog.TypeQuestionCreated, eventlog.TypeQuestionDeleted:
		default:
			http.Error(w, "unknown event type", http.StatusBadRequest)
			return
		}
		evs, err := events.List(r.Context(), f)
		if err != nil {
			log.ErrorContext(r.Context(), "list events", "error", err)
			http.Error(w, "could not fetch events", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": evs})
	}
}
