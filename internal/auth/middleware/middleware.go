package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// SessionCookie carries the signed session token for browser clients.
const SessionCookie = "quiz_session"

type AuthService struct {
	hmac []byte
	ttl  time.Duration
}

func NewAuthService(secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{hmac: []byte(secret), ttl: ttl}
}

func (a *AuthService) TTL() time.Duration { return a.ttl }

type Claims struct {
	Role    string `json:"role"` // "teacher" or "student"
	Version int64  `json:"sv"`   // users.session_version at issue time
	jwt.RegisteredClaims
}

// Session is a verified token: the caller and the session version it was
// issued under. A token is live only while Version matches the stored one.
type Session struct {
	rbac.Principal
	Version int64
}

func (a *AuthService) IssueJWT(userID int64, role string, version int64) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role:    role,
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    "mindengage-quiz",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

// Parse validates tokenStr and returns the session it names.
func (a *AuthService) Parse(tokenStr string) (Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Session{}, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Session{}, errors.New("invalid token")
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Session{}, errors.New("invalid subject")
	}
	if !rbac.ValidRole(c.Role) {
		return Session{}, errors.New("invalid role")
	}
	return Session{Principal: rbac.Principal{UserID: id, Role: c.Role}, Version: c.Version}, nil
}

// SessionMiddleware attaches the caller's principal when the request carries
// a valid session token (bearer header first, then cookie). It never rejects;
// rbac.Require does.
func SessionMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := tokenFromRequest(r)
			if tok == "" {
				next.ServeHTTP(w, r)
				return
			}
			s, err := a.Parse(tok)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := rbac.WithPrincipal(r.Context(), s.Principal)
			ctx = context.WithValue(ctx, ctxKeyVersion, s.Version)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type ctxKey struct{}

var ctxKeyVersion = ctxKey{}

// sessionVersion is the version carried by the request's token, zero when
// none was parsed.
func sessionVersion(ctx context.Context) int64 {
	v, _ := ctx.Value(ctxKeyVersion).(int64)
	return v
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
