package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy to responses. Storage and unexpected
// errors are logged and answered with the generic message only.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, generic string) {
	var verr *quiz.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": generic, "problems": verr.Problems})
	case errors.Is(err, quiz.ErrUnauthorized):
		rbac.Deny(w, r)
	case errors.Is(err, quiz.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		log.ErrorContext(r.Context(), generic, "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, generic, http.StatusInternalServerError)
	}
}
