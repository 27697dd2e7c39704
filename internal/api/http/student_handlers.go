package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type QuizAssembler interface {
	AssembleQuiz(ctx context.Context, caller rbac.Principal) ([]quiz.QuizQuestion, error)
}

type Grader interface {
	GradeFor(ctx context.Context, caller rbac.Principal, raw map[string]string) (quiz.Score, error)
}

// GET /quiz
func QuizHandler(svc QuizAssembler, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := svc.AssembleQuiz(r.Context(), rbac.PrincipalFromContext(r.Context()))
		if err != nil {
			writeError(w, r, log, err, "could not load quiz")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
	}
}

// POST /quiz/submit accepts {"q20": "72", ...} as JSON or as a form.
func SubmitQuizHandler(g Grader, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := readAnswers(r)
		if err != nil {
			http.Error(w, "invalid input", http.StatusBadRequest)
			return
		}
		score, err := g.GradeFor(r.Context(), rbac.PrincipalFromContext(r.Context()), raw)
		if err != nil {
			writeError(w, r, log, err, "could not grade quiz")
			return
		}
		writeJSON(w, http.StatusOK, score)
	}
}

func readAnswers(r *http.Request) (map[string]string, error) {
	if isForm(r) {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		out := make(map[string]string, len(r.PostForm))
		for k, vs := range r.PostForm {
			if len(vs) > 0 {
				out[k] = vs[0]
			}
		}
		return out, nil
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(body))
	for k, v := range body {
		switch t := v.(type) {
		case string:
			out[k] = t
		case json.Number:
			out[k] = t.String()
		default:
			// answered, but not with an option id
			out[k] = ""
		}
	}
	return out, nil
}

func isForm(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
}
