package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// slogFormatter feeds chi's request logger into the process slog logger, so
// access lines and application logs share one stream.
type slogFormatter struct{ log *slog.Logger }

func (f slogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &slogEntry{log: f.log.With(
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"remote", r.RemoteAddr,
	)}
}

type slogEntry struct{ log *slog.Logger }

func (e *slogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	e.log.Info("request", "status", status, "bytes", bytes, "elapsed_ms", elapsed.Milliseconds())
}

func (e *slogEntry) Panic(v interface{}, stack []byte) {
	e.log.Error("panic", "panic", fmt.Sprint(v), "stack", string(stack))
}
