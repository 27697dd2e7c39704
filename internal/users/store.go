package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

type User struct {
	ID             int64
	Username       string
	PasswordHash   string
	Role           string
	SessionVersion int64
	CreatedAt      int64
}

// SQLStore is the credential store.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

const userCols = `id,username,password_hash,role,session_version,created_at`

func (s *SQLStore) FindByUsername(ctx context.Context, username string) (User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE username=$1`, username))
}

// FindByUsernameAndRole matches the login form, which names the role the
// user is signing in as.
func (s *SQLStore) FindByUsernameAndRole(ctx context.Context, username, role string) (User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE username=$1 AND role=$2`, username, role))
}

// SessionOf returns the stored role and current session version of a user.
func (s *SQLStore) SessionOf(ctx context.Context, userID int64) (string, int64, error) {
	var (
		role    string
		version int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT role,session_version FROM users WHERE id=$1`, userID).Scan(&role, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrNotFound
	}
	return role, version, err
}

// EndSessions invalidates every token issued to the user so far.
func (s *SQLStore) EndSessions(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET session_version = session_version + 1 WHERE id=$1`, userID)
	if err != nil {
		return fmt.Errorf("end sessions: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Create inserts a user with an already hashed password and returns its id.
func (s *SQLStore) Create(ctx context.Context, username, passwordHash, role string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username,password_hash,role,created_at) VALUES ($1,$2,$3,$4) RETURNING id`,
		username, passwordHash, role, time.Now().Unix()).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrUsernameTaken
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

func (s *SQLStore) scanOne(row *sql.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.SessionVersion, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
