// Package history records sent requests in a SQLite database so they can
// be listed later.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/openit/packages/http"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

var ErrEntryNotFound = errors.New("history entry not found")

const schema = `
CREATE TABLE IF NOT EXISTS requests (
	id          TEXT PRIMARY KEY,
	method      TEXT NOT NULL,
	url         TEXT NOT NULL,
	status      INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	size        INTEGER NOT NULL DEFAULT 0,
	error_code  INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS requests_created_at ON requests (created_at);
`

// Entry is one sent request. Status is zero and ErrorCode set when the
// transport failed.
type Entry struct {
	ID         string
	Method     string
	URL        string
	Status     int
	DurationMs int64
	Size       int
	ErrorCode  int
	Error      string
	CreatedAt  time.Time
}

// Store is a SQLite backed request log
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
	now          func() time.Time
}

// Open opens (creating if needed) the history database at path. The path
// may carry a sqlite:// or sqlite: prefix.
func Open(path string) (*Store, error) {
	dsn := parseDSN(path)
	if dsn == "" {
		return nil, fmt.Errorf("empty history database path")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{
		db:           db,
		queryTimeout: 30 * time.Second,
		now:          time.Now,
	}, nil
}

func parseDSN(path string) string {
	path = strings.TrimSpace(path)
	if p, ok := strings.CutPrefix(path, "sqlite://"); ok {
		return p
	}
	if p, ok := strings.CutPrefix(path, "sqlite:"); ok {
		return p
	}
	return path
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores e, filling in its ID and CreatedAt when empty, and
// returns the stored entry.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requests (id, method, url, status, duration_ms, size, error_code, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Method, e.URL, e.Status, e.DurationMs, e.Size, e.ErrorCode, e.Error, e.CreatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert failed: %w", err)
	}
	return e, nil
}

// List returns the most recent entries first. A limit of zero or less
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `SELECT id, method, url, status, duration_ms, size, error_code, error, created_at
		FROM requests ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// Get returns a single entry by ID.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, method, url, status, duration_ms, size, error_code, error, created_at
		 FROM requests WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%s: %w", id, ErrEntryNotFound)
	}
	return e, err
}

// Clear deletes every entry and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM requests`)
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.Method, &e.URL, &e.Status, &e.DurationMs, &e.Size, &e.ErrorCode, &e.Error, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("failed to scan row: %w", err)
	}
	return e, nil
}

// NewEntry describes a finished request. err is the transport error, if
// any; resp is ignored when err is set.
func NewEntry(method, url string, resp *http.Response, err error) Entry {
	e := Entry{Method: method, URL: url}
	if err != nil {
		te := http.Classify(err)
		e.ErrorCode = te.Code
		e.Error = te.Message
		return e
	}
	if resp != nil {
		e.Status = resp.StatusCode
		e.DurationMs = resp.DurationMs()
		e.Size = len(resp.Body)
	}
	return e
}
