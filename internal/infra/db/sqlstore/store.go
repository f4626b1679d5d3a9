package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

// Store implements the findings, item-master, lookup, result and job-error
// repositories over one database handle. Every write is a single statement,
// so concurrent workers never share a transaction.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
}

// DB exposes the handle for migrations and shutdown.
func (s *Store) DB() *sql.DB { return s.db }

// Ping backs the database health and readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *Store) exec(ctx context.Context, q string, args ...any) error {
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(q), args...)
	return err
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.Rebind(q), args...)
}

func (s *Store) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.Rebind(q), args...)
}

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func (s *Store) timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

// jsonOrEmpty keeps valid JSON, wraps anything else as {"raw": ...}.
func jsonOrEmpty(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "{}"
	}
	var js any
	if json.Unmarshal([]byte(raw), &js) != nil {
		b, _ := json.Marshal(map[string]string{"raw": raw})
		return string(b)
	}
	return raw
}
