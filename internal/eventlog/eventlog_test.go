package eventlog_test

import (
	"context"
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/eventlog"
)

func TestAppendAndList(t *testing.T) {
	ctx := context.Background()
	d, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	events := []eventlog.Event{
		eventlog.QuestionEvent(eventlog.TypeQuestionCreated, 7, 1, map[string]any{"options": 3}),
		eventlog.QuestionEvent(eventlog.TypeQuestionCreated, 8, 2, map[string]any{"options": 2}),
		eventlog.QuestionEvent(eventlog.TypeQuestionDeleted, 7, 1, nil),
	}
	for _, e := range events {
		if err := eventlog.Append(ctx, d, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	repo := eventlog.NewRepo(d)
	all, err := repo.List(ctx, eventlog.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Type != eventlog.TypeQuestionCreated || all[2].Type != eventlog.TypeQuestionDeleted {
		t.Fatalf("unexpected events: %+v", all)
	}
	if all[0].Key != "7" || all[0].ActorID != 1 || string(all[0].Data) != `{"options":3}` {
		t.Errorf("event payload = %+v", all[0])
	}
	if string(all[2].Data) != `{}` {
		t.Errorf("nil payload stored as %s", all[2].Data)
	}

	cases := []struct {
		name string
		f    eventlog.Filter
		want int
	}{
		{"by type", eventlog.Filter{Type: eventlog.TypeQuestionDeleted}, 1},
		{"by actor", eventlog.Filter{ActorID: 1}, 2},
		{"by type and actor", eventlog.Filter{Type: eventlog.TypeQuestionCreated, ActorID: 2}, 1},
		{"no match", eventlog.Filter{ActorID: 99}, 0},
	}
	for _, c := range cases {
		got, err := repo.List(ctx, c.f)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if len(got) != c.want {
			t.Errorf("%s: %d events, want %d", c.name, len(got), c.want)
		}
	}
}
