package users_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

func newStore(t *testing.T) *users.SQLStore {
	t.Helper()
	d, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return users.NewSQLStore(d)
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	hash, err := users.HashPassword("s3cret", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	id, err := s.Create(ctx, "alice", hash, "teacher")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	u, err := s.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if u.ID != id || u.Role != "teacher" {
		t.Fatalf("user = %+v", u)
	}
	if !users.VerifyPassword("s3cret", u.PasswordHash) {
		t.Error("password should verify")
	}
	if users.VerifyPassword("wrong", u.PasswordHash) {
		t.Error("wrong password verified")
	}

	if _, err := s.FindByUsernameAndRole(ctx, "alice", "student"); !errors.Is(err, users.ErrNotFound) {
		t.Errorf("role mismatch err = %v, want ErrNotFound", err)
	}
	role, version, err := s.SessionOf(ctx, id)
	if err != nil || role != "teacher" || version != 0 {
		t.Errorf("SessionOf = %q, %d, %v", role, version, err)
	}
	if _, _, err := s.SessionOf(ctx, id+100); !errors.Is(err, users.ErrNotFound) {
		t.Errorf("SessionOf missing err = %v", err)
	}
}

func TestEndSessionsBumpsVersion(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id, err := s.Create(ctx, "carol", "x", "student")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for want := int64(1); want <= 2; want++ {
		if err := s.EndSessions(ctx, id); err != nil {
			t.Fatalf("end sessions: %v", err)
		}
		_, got, err := s.SessionOf(ctx, id)
		if err != nil || got != want {
			t.Fatalf("version = %d, %v; want %d", got, err, want)
		}
	}
	u, err := s.FindByUsername(ctx, "carol")
	if err != nil || u.SessionVersion != 2 {
		t.Fatalf("user = %+v, %v", u, err)
	}
	if err := s.EndSessions(ctx, id+100); !errors.Is(err, users.ErrNotFound) {
		t.Errorf("missing user err = %v", err)
	}
}

func TestCreateDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if _, err := s.Create(ctx, "bob", "x", "student"); err != nil {
		t.Fatalf("create: %v", err)
	}
	// the unique index is the only guard, so this exercises the driver error mapping
	if _, err := s.Create(ctx, "bob", "y", "teacher"); !errors.Is(err, users.ErrUsernameTaken) {
		t.Fatalf("err = %v, want ErrUsernameTaken", err)
	}
}
