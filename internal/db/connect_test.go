package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func openMem(t *testing.T) *sql.DB {
	t.Helper()
	d, err := Open(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestOpenCreatesSchema(t *testing.T) {
	d := openMem(t)
	for _, table := range []string{"users", "questions", "options", "event_log"} {
		var name string
		err := d.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=$1`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open(context.Background(), Driver("mysql"), ""); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	d := openMem(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := WithTx(ctx, d, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (username,password_hash,role,created_at) VALUES ('t','x','teacher',0)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	var n int
	if err := d.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("rows after rollback = %d, want 0", n)
	}
}

func TestWithTxCommits(t *testing.T) {
	d := openMem(t)
	ctx := context.Background()

	err := WithTx(ctx, d, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (username,password_hash,role,created_at) VALUES ('t','x','teacher',0)`)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	var n int
	if err := d.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestOptionsCascadeWithQuestion(t *testing.T) {
	d := openMem(t)
	mustExec := func(q string) {
		t.Helper()
		if _, err := d.Exec(q); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
	}
	mustExec(`INSERT INTO users (id,username,password_hash,role,created_at) VALUES (1,'t','x','teacher',0)`)
	mustExec(`INSERT INTO questions (id,question_text,teacher_id,created_at) VALUES (5,'q',1,0)`)
	mustExec(`INSERT INTO options (option_text,question_id,is_correct) VALUES ('a',5,1)`)
	mustExec(`DELETE FROM questions WHERE id=5`)

	var n int
	if err := d.QueryRow(`SELECT COUNT(*) FROM options WHERE question_id=5`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("dangling options = %d", n)
	}
}
