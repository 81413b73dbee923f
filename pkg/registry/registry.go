// Package registry implements the per-project persistent thread registry:
// two tables (threads, thread_events) backed by SQLite in WAL mode, plus
// status transition enforcement, grounded on the teacher's
// core/pkg/store/receipt_store_sqlite.go migrate-on-construct pattern.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Status is a thread's lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrInvalidTransition is returned when a status change violates the
// running -> paused -> running -> completed|failed state machine.
type ErrInvalidTransition struct {
	ThreadID string
	From, To Status
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("registry: thread %s: invalid transition %s -> %s", e.ThreadID, e.From, e.To)
}

var validTransitions = map[Status]map[Status]bool{
	StatusRunning: {StatusPaused: true, StatusCompleted: true, StatusFailed: true},
	StatusPaused:  {StatusRunning: true, StatusFailed: true},
}

func checkTransition(threadID string, from, to Status) error {
	if allowed, ok := validTransitions[from]; ok && allowed[to] {
		return nil
	}
	return &ErrInvalidTransition{ThreadID: threadID, From: from, To: to}
}

// Thread is one row of the threads table.
type Thread struct {
	ThreadID          string
	DirectiveID       string
	Status            Status
	PermissionContext map[string]interface{}
	CostBudget        map[string]interface{}
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Event is one row of the thread_events table.
type Event struct {
	ThreadID string
	Type     string
	Detail   map[string]interface{}
	Ts       time.Time
}

// Registry wraps a *sql.DB with the threads/thread_events schema.
type Registry struct {
	db *sql.DB
}

// Open migrates the schema (idempotent, CREATE TABLE IF NOT EXISTS) and
// returns a ready Registry. Callers are expected to have opened db against
// a modernc.org/sqlite DSN with "_pragma=journal_mode(WAL)" for the
// write-ahead journal mode the spec requires.
func Open(db *sql.DB) (*Registry, error) {
	r := &Registry{db: db}
	if err := r.migrate(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			thread_id TEXT PRIMARY KEY,
			directive_id TEXT NOT NULL,
			status TEXT NOT NULL,
			permission_context JSON,
			cost_budget JSON,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_directive_id ON threads(directive_id)`,
		`CREATE TABLE IF NOT EXISTS thread_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id TEXT NOT NULL,
			type TEXT NOT NULL,
			detail JSON,
			ts DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_thread_events_thread_ts ON thread_events(thread_id, ts)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("registry: migrate: %w", err)
		}
	}
	return nil
}

// Register inserts a new thread row in the running state.
func (r *Registry) Register(ctx context.Context, t Thread) error {
	permJSON, err := json.Marshal(t.PermissionContext)
	if err != nil {
		return fmt.Errorf("registry: marshal permission_context: %w", err)
	}
	budgetJSON, err := json.Marshal(t.CostBudget)
	if err != nil {
		return fmt.Errorf("registry: marshal cost_budget: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO threads (thread_id, directive_id, status, permission_context, cost_budget, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ThreadID, t.DirectiveID, StatusRunning, string(permJSON), string(budgetJSON), t.CreatedAt.UTC(), t.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("registry: register thread: %w", err)
	}
	return nil
}

// currentStatus loads a thread's status for transition validation.
func (r *Registry) currentStatus(ctx context.Context, threadID string) (Status, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM threads WHERE thread_id = ?`, threadID).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("registry: load status for %s: %w", threadID, err)
	}
	return Status(status), nil
}

// SetStatus transitions a thread's status, enforcing the state machine.
func (r *Registry) SetStatus(ctx context.Context, threadID string, to Status, now time.Time) error {
	from, err := r.currentStatus(ctx, threadID)
	if err != nil {
		return err
	}
	if err := checkTransition(threadID, from, to); err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `UPDATE threads SET status = ?, updated_at = ? WHERE thread_id = ?`, to, now.UTC(), threadID)
	if err != nil {
		return fmt.Errorf("registry: update status: %w", err)
	}
	return nil
}

// AppendEvent inserts a thread_events row.
func (r *Registry) AppendEvent(ctx context.Context, e Event) error {
	detailJSON, err := json.Marshal(e.Detail)
	if err != nil {
		return fmt.Errorf("registry: marshal event detail: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO thread_events (thread_id, type, detail, ts) VALUES (?, ?, ?, ?)`,
		e.ThreadID, e.Type, string(detailJSON), e.Ts.UTC(),
	)
	if err != nil {
		return fmt.Errorf("registry: append event: %w", err)
	}
	return nil
}
