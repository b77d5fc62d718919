package session

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
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	fields     TEXT NOT NULL DEFAULT '{}',
	ask_counts TEXT NOT NULL DEFAULT '{}',
	call_id    TEXT NOT NULL DEFAULT '',
	outbox     TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_call_id ON sessions(call_id);
`

// SQLiteStore persists sessions so a restart does not drop in-flight
// conversations.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite opens or creates the database at path and runs the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(sessionSchema); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

type sessionRow struct {
	ID        string    `db:"id"`
	Fields    string    `db:"fields"`
	AskCounts string    `db:"ask_counts"`
	CallID    string    `db:"call_id"`
	Outbox    string    `db:"outbox"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func encodeRow(sess *Session) (*sessionRow, error) {
	fields, err := json.Marshal(sess.Fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	counts, err := json.Marshal(sess.AskCounts)
	if err != nil {
		return nil, fmt.Errorf("encode ask counts: %w", err)
	}
	outbox, err := json.Marshal(sess.Outbox)
	if err != nil {
		return nil, fmt.Errorf("encode outbox: %w", err)
	}
	return &sessionRow{
		ID:        sess.ID,
		Fields:    string(fields),
		AskCounts: string(counts),
		CallID:    sess.CallID,
		Outbox:    string(outbox),
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}, nil
}

func decodeRow(row *sessionRow) (*Session, error) {
	sess := &Session{
		ID:        row.ID,
		CallID:    row.CallID,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(row.Fields), &sess.Fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if err := json.Unmarshal([]byte(row.AskCounts), &sess.AskCounts); err != nil {
		return nil, fmt.Errorf("decode ask counts: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Outbox), &sess.Outbox); err != nil {
		return nil, fmt.Errorf("decode outbox: %w", err)
	}
	if sess.Fields == nil {
		sess.Fields = map[string]any{}
	}
	if sess.AskCounts == nil {
		sess.AskCounts = map[string]int{}
	}
	return sess, nil
}

func (s *SQLiteStore) Create(ctx context.Context, sess *Session) error {
	row, err := encodeRow(sess)
	if err != nil {
		return err
	}
	query, args, err := sq.Insert("sessions").
		Columns("id", "fields", "ask_counts", "call_id", "outbox", "created_at", "updated_at").
		Values(row.ID, row.Fields, row.AskCounts, row.CallID, row.Outbox, row.CreatedAt, row.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	return s.getWhere(ctx, sq.Eq{"id": id})
}

func (s *SQLiteStore) FindByCallID(ctx context.Context, callID string) (*Session, error) {
	if callID == "" {
		return nil, ErrNotFound
	}
	return s.getWhere(ctx, sq.Eq{"call_id": callID})
}

func (s *SQLiteStore) getWhere(ctx context.Context, pred any) (*Session, error) {
	query, args, err := sq.Select("id", "fields", "ask_counts", "call_id", "outbox", "created_at", "updated_at").
		From("sessions").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	var row sessionRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeRow(&row)
}

func (s *SQLiteStore) Put(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now().UTC()
	row, err := encodeRow(sess)
	if err != nil {
		return err
	}
	query, args, err := sq.Update("sessions").
		Set("fields", row.Fields).
		Set("ask_counts", row.AskCounts).
		Set("call_id", row.CallID).
		Set("outbox", row.Outbox).
		Set("updated_at", row.UpdatedAt).
		Where(sq.Eq{"id": row.ID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	query, args, err := sq.Delete("sessions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}
