package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

// Credentials is the credential store as seen by registration and login.
type Credentials interface {
	FindByUsernameAndRole(ctx context.Context, username, role string) (users.User, error)
	Create(ctx context.Context, username, passwordHash, role string) (int64, error)
}

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func readCredentials(r *http.Request) (credentialsReq, error) {
	var req credentialsReq
	if isForm(r) {
		if err := r.ParseForm(); err != nil {
			return req, err
		}
		req = credentialsReq{
			Username: r.PostForm.Get("username"),
			Password: r.PostForm.Get("password"),
			Role:     r.PostForm.Get("role"),
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, err
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	return req, nil
}

func redirectFor(role string) string {
	if role == rbac.RoleTeacher {
		return "/teacher/questions"
	}
	return "/quiz"
}

// POST /register
func RegisterHandler(store Credentials, bcryptCost int, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := readCredentials(r)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.Username == "" || req.Password == "" || !rbac.ValidRole(req.Role) {
			http.Error(w, "username, password and role (teacher|student) required", http.StatusBadRequest)
			return
		}
		hash, err := users.HashPassword(req.Password, bcryptCost)
		if err != nil {
			log.ErrorContext(r.Context(), "hash password", "error", err)
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		id, err := store.Create(r.Context(), req.Username, hash, req.Role)
		if errors.Is(err, users.ErrUsernameTaken) {
			http.Error(w, "username already taken", http.StatusBadRequest)
			return
		}
		if err != nil {
			log.ErrorContext(r.Context(), "create user", "error", err)
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		log.InfoContext(r.Context(), "user registered", "user_id", id, "role", req.Role)
		writeJSON(w, http.StatusCreated, map[string]any{"id": id, "username": req.Username, "role": req.Role, "redirect": "/"})
	}
}

// POST /login
func LoginHandler(store Credentials, a *auth.AuthService, secureCookie bool, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := readCredentials(r)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		u, err := store.FindByUsernameAndRole(r.Context(), req.Username, req.Role)
		if err != nil {
			if !errors.Is(err, users.ErrNotFound) {
				log.ErrorContext(r.Context(), "fetch user", "error", err)
				http.Error(w, "server error", http.StatusInternalServerError)
				return
			}
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if !users.VerifyPassword(req.Password, u.PasswordHash) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueJWT(u.ID, u.Role, u.SessionVersion)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		auth.SetSessionCookie(w, tok, a.TTL(), secureCookie)
		writeJSON(w, http.StatusOK, map[string]string{
			"access_token": tok,
			"role":         u.Role,
			"redirect":     redirectFor(u.Role),
		})
	}
}

// SessionEnder invalidates every outstanding token of a user.
type SessionEnder interface {
	EndSessions(ctx context.Context, userID int64) error
}

// POST /logout ends the caller's sessions server side, so a copied bearer
// token stops working along with the cookie.
func LogoutHandler(sessions SessionEnder, secureCookie bool, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth.ClearSessionCookie(w, secureCookie)
		if p := rbac.PrincipalFromContext(r.Context()); !p.IsZero() {
			if err := sessions.EndSessions(r.Context(), p.UserID); err != nil && !errors.Is(err, users.ErrNotFound) {
				log.ErrorContext(r.Context(), "end sessions", "user_id", p.UserID, "error", err)
				http.Error(w, "server error", http.StatusInternalServerError)
				return
			}
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// GET / sends signed-in users to their landing page.
func HomeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		if !p.IsZero() {
			http.Redirect(w, r, redirectFor(p.Role), http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"login": "/login", "register": "/register"})
	}
}
