package quiz_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/eventlog"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

var (
	teacherA = rbac.Principal{UserID: 1, Role: rbac.RoleTeacher}
	teacherB = rbac.Principal{UserID: 2, Role: rbac.RoleTeacher}
	student  = rbac.Principal{UserID: 3, Role: rbac.RoleStudent}
)

// openBank creates an in-memory bank with two teachers and a student.
func openBank(t *testing.T) (*sql.DB, *quiz.SQLStore) {
	t.Helper()
	d, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if _, err := d.Exec(`
INSERT INTO users (id,username,password_hash,role,created_at) VALUES
  (1,'t1','x','teacher',0),
  (2,'t2','x','teacher',0),
  (3,'s1','x','student',0)`); err != nil {
		t.Fatalf("seed users: %v", err)
	}
	return d, quiz.NewSQLStore(d)
}

func idx(i int) *quiz.Index {
	v := quiz.Index(i)
	return &v
}

func sampleBatch() quiz.Batch {
	return quiz.Batch{Questions: map[string]quiz.QuestionInput{
		"0": {Text: "2+2?", Options: []string{"3", "4", "5"}, CorrectOption: idx(1)},
		"1": {Text: "Capital of France?", Options: []string{"Paris", "Rome"}, CorrectOption: idx(0)},
	}}
}

func countRows(t *testing.T, d *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := d.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestSubmitBatchThenListByOwner(t *testing.T) {
	ctx := context.Background()
	_, store := openBank(t)
	svc := quiz.NewService(store, nil)

	ids, err := svc.SubmitBatch(ctx, teacherA, sampleBatch())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(ids) != 2 || ids[0] >= ids[1] {
		t.Fatalf("ids = %v, want two ascending ids", ids)
	}

	own, err := svc.ListOwn(ctx, teacherA)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(own) != 2 {
		t.Fatalf("own questions = %d, want 2", len(own))
	}
	if own[0].Text != "2+2?" || own[1].Text != "Capital of France?" {
		t.Errorf("question order = %q, %q", own[0].Text, own[1].Text)
	}
	wantTexts := []string{"3", "4", "5"}
	for i, o := range own[0].Options {
		if o.Text != wantTexts[i] {
			t.Errorf("option %d = %q, want %q", i, o.Text, wantTexts[i])
		}
		if o.IsCorrect != (i == 1) {
			t.Errorf("option %d correct = %v", i, o.IsCorrect)
		}
	}

	other, err := svc.ListOwn(ctx, teacherB)
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("teacher B sees %d questions, want 0", len(other))
	}
}

func TestCorrectOptionIDFollowsCorrectIndex(t *testing.T) {
	ctx := context.Background()
	_, store := openBank(t)
	svc := quiz.NewService(store, nil)

	ids, err := svc.SubmitBatch(ctx, teacherA, sampleBatch())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	own, _ := svc.ListOwn(ctx, teacherA)
	correctIdx := []int{1, 0}

	for qi, q := range own {
		got, ok, err := store.CorrectOptionID(ctx, ids[qi])
		if err != nil || !ok {
			t.Fatalf("CorrectOptionID(%d) = %d, %v, %v", ids[qi], got, ok, err)
		}
		want := q.Options[correctIdx[qi]].ID
		if got != want {
			t.Errorf("question %d: correct id = %d, want %d", q.ID, got, want)
		}
	}

	if _, ok, err := store.CorrectOptionID(ctx, 9999); ok || err != nil {
		t.Errorf("missing question: ok=%v err=%v", ok, err)
	}
}

func TestSubmitBatchValidationWritesNothing(t *testing.T) {
	ctx := context.Background()
	d, store := openBank(t)
	svc := quiz.NewService(store, nil)

	b := sampleBatch()
	b.Questions["2"] = quiz.QuestionInput{Text: "bad", Options: []string{"a", "b"}, CorrectOption: idx(2)}
	b.Questions["3"] = quiz.QuestionInput{Text: "  ", Options: []string{}}

	_, err := svc.SubmitBatch(ctx, teacherA, b)
	var verr *quiz.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(verr.Problems) < 3 {
		t.Errorf("problems = %v, want at least 3", verr.Problems)
	}
	if n := countRows(t, d, "questions"); n != 0 {
		t.Errorf("questions written = %d, want 0", n)
	}
}

func TestSubmitBatchEmpty(t *testing.T) {
	_, store := openBank(t)
	svc := quiz.NewService(store, nil)
	for _, b := range []quiz.Batch{{}, {Questions: map[string]quiz.QuestionInput{}}} {
		var verr *quiz.ValidationError
		if _, err := svc.SubmitBatch(context.Background(), teacherA, b); !errors.As(err, &verr) {
			t.Errorf("empty batch err = %v, want ValidationError", err)
		}
	}
}

func TestSubmitBatchRollsBackOnStorageError(t *testing.T) {
	ctx := context.Background()
	d, store := openBank(t)
	svc := quiz.NewService(store, nil)

	// no such user: the foreign key rejects the insert
	ghost := rbac.Principal{UserID: 404, Role: rbac.RoleTeacher}
	_, err := svc.SubmitBatch(ctx, ghost, sampleBatch())
	var serr *quiz.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want StorageError", err)
	}
	for _, table := range []string{"questions", "options", "event_log"} {
		if n := countRows(t, d, table); n != 0 {
			t.Errorf("%s rows after rollback = %d", table, n)
		}
	}
}

func TestSubmitBatchRequiresTeacher(t *testing.T) {
	d, store := openBank(t)
	svc := quiz.NewService(store, nil)
	for _, p := range []rbac.Principal{{}, student} {
		if _, err := svc.SubmitBatch(context.Background(), p, sampleBatch()); !errors.Is(err, quiz.ErrUnauthorized) {
			t.Errorf("principal %+v: err = %v", p, err)
		}
	}
	if n := countRows(t, d, "questions"); n != 0 {
		t.Errorf("questions written = %d", n)
	}
}

func TestDeleteCascade(t *testing.T) {
	ctx := context.Background()
	d, store := openBank(t)
	svc := quiz.NewService(store, nil)

	ids, err := svc.SubmitBatch(ctx, teacherA, sampleBatch())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.Delete(ctx, teacherA, ids[0]); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rows, err := store.ListAllQuestionsWithOptions(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	for _, r := range rows {
		if r.QuestionID == ids[0] {
			t.Fatalf("row for deleted question remains: %+v", r)
		}
	}
	var dangling int
	if err := d.QueryRow(`SELECT COUNT(*) FROM options WHERE question_id=$1`, ids[0]).Scan(&dangling); err != nil {
		t.Fatal(err)
	}
	if dangling != 0 {
		t.Errorf("dangling options = %d", dangling)
	}

	events, err := eventlog.NewRepo(d).List(ctx, eventlog.Filter{Type: eventlog.TypeQuestionDeleted})
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("delete events = %d, want 1", len(events))
	}
}

func TestDeleteOwnership(t *testing.T) {
	ctx := context.Background()
	_, store := openBank(t)
	svc := quiz.NewService(store, nil)

	ids, err := svc.SubmitBatch(ctx, teacherA, sampleBatch())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.Delete(ctx, teacherB, ids[0]); !errors.Is(err, quiz.ErrUnauthorized) {
		t.Fatalf("non-owner delete err = %v", err)
	}
	if own, _ := svc.ListOwn(ctx, teacherA); len(own) != 2 {
		t.Fatalf("question removed by non-owner")
	}

	shared := quiz.NewService(store, nil, quiz.WithSharedModeration(true))
	if err := shared.Delete(ctx, teacherB, ids[0]); err != nil {
		t.Fatalf("shared moderation delete: %v", err)
	}
	if err := svc.Delete(ctx, student, ids[1]); !errors.Is(err, quiz.ErrUnauthorized) {
		t.Fatalf("student delete err = %v", err)
	}
}

func TestDeleteMissing(t *testing.T) {
	_, store := openBank(t)
	svc := quiz.NewService(store, nil)
	if err := svc.Delete(context.Background(), teacherA, 12345); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := store.DeleteQuestionCascade(context.Background(), 12345); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("store err = %v, want ErrNotFound", err)
	}
}

func TestQuestionWithoutOptions(t *testing.T) {
	ctx := context.Background()
	d, store := openBank(t)
	if _, err := d.Exec(`INSERT INTO questions (id,question_text,teacher_id,created_at) VALUES (50,'orphan',1,0)`); err != nil {
		t.Fatal(err)
	}

	rows, err := store.ListAllQuestionsWithOptions(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(rows) != 1 || rows[0].QuestionID != 50 || rows[0].OptionID != nil {
		t.Fatalf("rows = %+v, want one row with no option", rows)
	}

	own, err := store.ListQuestionsByOwner(ctx, 1)
	if err != nil {
		t.Fatalf("list own: %v", err)
	}
	if len(own) != 1 || own[0].Options == nil || len(own[0].Options) != 0 {
		t.Fatalf("own = %+v, want one question with empty options", own)
	}

	svc := quiz.NewService(store, nil)
	qs, err := svc.AssembleQuiz(ctx, student)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(qs) != 0 {
		t.Errorf("quiz contains unanswerable question: %+v", qs)
	}
}

func TestAssembleQuiz(t *testing.T) {
	ctx := context.Background()
	_, store := openBank(t)
	svc := quiz.NewService(store, nil)

	if _, err := svc.SubmitBatch(ctx, teacherA, sampleBatch()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	extra := quiz.Batch{Questions: map[string]quiz.QuestionInput{
		"0": {Text: "Blue?", Options: []string{"yes", "no"}, CorrectOption: idx(0)},
	}}
	if _, err := svc.SubmitBatch(ctx, teacherB, extra); err != nil {
		t.Fatalf("submit B: %v", err)
	}

	qs, err := svc.AssembleQuiz(ctx, student)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(qs) != 3 {
		t.Fatalf("quiz questions = %d, want 3 across all teachers", len(qs))
	}
	if len(qs[0].Options) != 3 || qs[0].Options[1].Text != "4" {
		t.Errorf("first question options = %+v", qs[0].Options)
	}

	if _, err := svc.AssembleQuiz(ctx, teacherA); !errors.Is(err, quiz.ErrUnauthorized) {
		t.Errorf("teacher assemble err = %v", err)
	}
}
