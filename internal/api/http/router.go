package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// UserStore is everything the HTTP layer needs from the credential store.
type UserStore interface {
	Credentials
	SessionEnder
	auth.SessionLookup
}

type Deps struct {
	Auth      *auth.AuthService
	Users     UserStore
	Authoring Authoring
	Quiz      QuizAssembler
	Grader    Grader
	Events    EventLister
	DB        Pinger
	Logger    *slog.Logger

	BcryptCost   int
	CookieSecure bool
	CORSOrigins  []string
}

func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(middleware.RequestLogger(slogFormatter{log: log}), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			if err := d.DB.PingContext(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/register", RegisterHandler(d.Users, d.BcryptCost, log))
	r.Post("/login", LoginHandler(d.Users, d.Auth, d.CookieSecure, log))

	// Session → role re-check against the credential store → RBAC
	r.Group(func(pr chi.Router) {
		pr.Use(auth.SessionMiddleware(d.Auth), auth.AttachRoleFromDB(d.Users))

		pr.Get("/", HomeHandler())
		pr.Post("/logout", LogoutHandler(d.Users, d.CookieSecure, log))

		pr.Route("/teacher/questions", func(tr chi.Router) {
			tr.With(rbac.Require("question:create")).
				Post("/", SubmitQuestionsHandler(d.Authoring, log))
			tr.With(rbac.Require("question:list_own")).
				Get("/", ListOwnQuestionsHandler(d.Authoring, log))
			tr.With(rbac.Require("question:delete_own")).
				Delete("/{questionID}", DeleteQuestionHandler(d.Authoring, log))
			tr.With(rbac.Require("question:delete_own")).
				Post("/{questionID}/delete", DeleteQuestionHandler(d.Authoring, log))
		})

		pr.With(rbac.Require("question:audit")).
			Get("/teacher/events", ListEventsHandler(d.Events, log))

		pr.With(rbac.Require("quiz:view")).
			Get("/quiz", QuizHandler(d.Quiz, log))
		pr.With(rbac.Require("quiz:submit")).
			Post("/quiz/submit", SubmitQuizHandler(d.Grader, log))
	})

	return r
}
