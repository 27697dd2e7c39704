package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode   `validate:"oneof=offline online"`
	HTTPAddr string `validate:"required"`

	DBDriver string `validate:"oneof=sqlite postgres"`
	DBDSN    string

	AuthHMACSecret string        `validate:"required,min=8"`
	SessionTTL     time.Duration `validate:"gt=0"`
	CookieSecure   bool
	BcryptCost     int `validate:"min=4,max=31"`

	// SharedModeration lets any teacher delete any question. Off by default:
	// only the owning teacher may delete.
	SharedModeration bool

	GradingConcurrency int           `validate:"min=1"`
	ShutdownTimeout    time.Duration `validate:"gt=0"`

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

// FromEnv reads configuration from the environment, loading a .env file
// first when one exists.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	cfg := Config{
		Mode:               mode,
		HTTPAddr:           envOr("HTTP_ADDR", ":3000"),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		AuthHMACSecret:     envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		SessionTTL:         envDuration("SESSION_TTL", 24*time.Hour),
		CookieSecure:       envBool("COOKIE_SECURE", mode == ModeOnline),
		BcryptCost:         envInt("BCRYPT_COST", 10),
		SharedModeration:   envBool("SHARED_MODERATION", false),
		GradingConcurrency: envInt("GRADING_CONCURRENCY", 8),
		ShutdownTimeout:    envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://quiz.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and reports every failing field at once.
func Validate(cfg Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value: %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
