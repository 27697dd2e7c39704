package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	TypeQuestionCreated = "QuestionCreated"
	TypeQuestionDeleted = "QuestionDeleted"
)

type Event struct {
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	ActorID   int64           `json:"actor_id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"created_at"`
}

// Execer is satisfied by *sql.DB and *sql.Tx, so events can be appended in
// the same transaction as the change they describe.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Repo struct{ db *sql.DB }

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

// Append writes e using ex (a transaction or the DB itself).
func Append(ctx context.Context, ex Execer, e Event) error {
	data := e.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, actor_id, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.Type, e.Key, e.ActorID, string(data), time.Now().Unix())
	return err
}

// QuestionEvent builds an event keyed by question id with a JSON payload.
func QuestionEvent(typ string, questionID, actorID int64, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil || string(data) == "null" {
		data = []byte("{}")
	}
	return Event{Type: typ, Key: strconv.FormatInt(questionID, 10), ActorID: actorID, Data: data}
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Type    string
	ActorID int64
}

// List returns matching events in append order.
func (r *Repo) List(ctx context.Context, f Filter) ([]Event, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		args = append(args, f.Type)
		where = append(where, "typ=$"+strconv.Itoa(len(args)))
	}
	if f.ActorID != 0 {
		args = append(args, f.ActorID)
		where = append(where, "actor_id=$"+strconv.Itoa(len(args)))
	}
	q := `SELECT seq,typ,key,actor_id,data,created_at FROM event_log`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.db.QueryContext(ctx, q+" ORDER BY seq", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var (
			e    Event
			data string
		)
		if err := rows.Scan(&e.Seq, &e.Type, &e.Key, &e.ActorID, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}
