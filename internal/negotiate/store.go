package negotiate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Store persists tasks and their summaries.
type Store interface {
	CreateTask(ctx context.Context, brief TaskCreate) (string, error)
	GetTask(ctx context.Context, id string) (*Task, error)
	SetStatus(ctx context.Context, id, status string) error
	SaveSummary(ctx context.Context, id string, s Summary) error
	GetSummary(ctx context.Context, id string) (*Summary, bool, error)
}

const taskSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	brand           TEXT NOT NULL,
	department_hint TEXT NOT NULL DEFAULT '',
	goal            TEXT NOT NULL,
	reason          TEXT NOT NULL DEFAULT '',
	identifiers     TEXT NOT NULL DEFAULT '{}',
	constraints     TEXT NOT NULL DEFAULT '[]',
	auth            TEXT NOT NULL DEFAULT '{}',
	evidence        TEXT NOT NULL DEFAULT '[]',
	status          TEXT NOT NULL,
	created_at      TIMESTAMP NOT NULL,
	updated_at      TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS summaries (
	task_id    TEXT PRIMARY KEY,
	ticket_id  TEXT NOT NULL DEFAULT '',
	resolution TEXT NOT NULL DEFAULT '',
	amount     REAL NOT NULL DEFAULT 0,
	eta        TEXT NOT NULL DEFAULT '',
	citations  TEXT NOT NULL DEFAULT '[]',
	notes      TEXT NOT NULL DEFAULT '[]'
);
`

// SQLiteStore is the sqlite-backed task store.
type SQLiteStore struct {
	db *sqlx.DB
}

func OpenStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(taskSchema); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) CreateTask(ctx context.Context, brief TaskCreate) (string, error) {
	id := uuid.NewString()
	identifiers, _ := json.Marshal(brief.Identifiers)
	constraints, _ := json.Marshal(brief.Constraints)
	auth, _ := json.Marshal(brief.Auth)
	evidence, _ := json.Marshal(brief.Evidence)
	now := time.Now().UTC()

	query, args, err := sq.Insert("tasks").
		Columns("id", "user_id", "brand", "department_hint", "goal", "reason",
			"identifiers", "constraints", "auth", "evidence", "status", "created_at", "updated_at").
		Values(id, brief.UserID, brief.Brand, brief.DepartmentHint, brief.Goal, brief.Reason,
			string(identifiers), string(constraints), string(auth), string(evidence),
			StatusCreated, now, now).
		ToSql()
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", err
	}
	return id, nil
}

type taskRow struct {
	ID             string `db:"id"`
	UserID         string `db:"user_id"`
	Brand          string `db:"brand"`
	DepartmentHint string `db:"department_hint"`
	Goal           string `db:"goal"`
	Reason         string `db:"reason"`
	Identifiers    string `db:"identifiers"`
	Constraints    string `db:"constraints"`
	Auth           string `db:"auth"`
	Evidence       string `db:"evidence"`
	Status         string `db:"status"`
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*Task, error) {
	query, args, err := sq.Select("id", "user_id", "brand", "department_hint", "goal", "reason",
		"identifiers", "constraints", "auth", "evidence", "status").
		From("tasks").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var row taskRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	task := &Task{
		ID:     row.ID,
		Status: row.Status,
		Brief: TaskCreate{
			UserID:         row.UserID,
			Brand:          row.Brand,
			DepartmentHint: row.DepartmentHint,
			Goal:           row.Goal,
			Reason:         row.Reason,
		},
	}
	if err := json.Unmarshal([]byte(row.Identifiers), &task.Brief.Identifiers); err != nil {
		return nil, fmt.Errorf("decode identifiers: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Constraints), &task.Brief.Constraints); err != nil {
		return nil, fmt.Errorf("decode constraints: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Auth), &task.Brief.Auth); err != nil {
		return nil, fmt.Errorf("decode auth: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Evidence), &task.Brief.Evidence); err != nil {
		return nil, fmt.Errorf("decode evidence: %w", err)
	}
	return task, nil
}

func (s *SQLiteStore) SetStatus(ctx context.Context, id, status string) error {
	query, args, err := sq.Update("tasks").
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (s *SQLiteStore) SaveSummary(ctx context.Context, id string, sum Summary) error {
	citations, _ := json.Marshal(sum.Citations)
	notes, _ := json.Marshal(sum.Notes)
	query, args, err := sq.Replace("summaries").
		Columns("task_id", "ticket_id", "resolution", "amount", "eta", "citations", "notes").
		Values(id, sum.TicketID, sum.Resolution, sum.Amount, sum.ETA, string(citations), string(notes)).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

type summaryRow struct {
	TaskID     string  `db:"task_id"`
	TicketID   string  `db:"ticket_id"`
	Resolution string  `db:"resolution"`
	Amount     float64 `db:"amount"`
	ETA        string  `db:"eta"`
	Citations  string  `db:"citations"`
	Notes      string  `db:"notes"`
}

func (s *SQLiteStore) GetSummary(ctx context.Context, id string) (*Summary, bool, error) {
	query, args, err := sq.Select("task_id", "ticket_id", "resolution", "amount", "eta", "citations", "notes").
		From("summaries").
		Where(sq.Eq{"task_id": id}).
		ToSql()
	if err != nil {
		return nil, false, err
	}
	var row summaryRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	sum := &Summary{
		TicketID:   row.TicketID,
		Resolution: row.Resolution,
		Amount:     row.Amount,
		ETA:        row.ETA,
	}
	if err := json.Unmarshal([]byte(row.Citations), &sum.Citations); err != nil {
		return nil, false, fmt.Errorf("decode citations: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Notes), &sum.Notes); err != nil {
		return nil, false, fmt.Errorf("decode notes: %w", err)
	}
	return sum, true, nil
}
