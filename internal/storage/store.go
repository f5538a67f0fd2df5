package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a case or a single-row record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when a required field is missing or invalid.
	ErrValidation = errors.New("validation failed")
)

// Supported SQL drivers. Both are pure Go; ncruces runs SQLite under wazero,
// modernc is a transpiled SQLite.
const (
	DriverNcruces = "ncruces"
	DriverModernc = "modernc"
)

var driverNames = map[string]string{
	DriverNcruces: "sqlite3",
	DriverModernc: "sqlite",
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the case and phase data store. A Store obtained through WithTx
// runs every accessor inside that transaction.
type Store struct {
	db  *sql.DB
	q   querier
	now func() time.Time
}

// Open opens (or creates) the database file at path with the given driver.
// It does not create tables; call InitSchema once at startup.
func Open(ctx context.Context, path, driver string) (*Store, error) {
	if driver == "" {
		driver = DriverNcruces
	}
	name, ok := driverNames[driver]
	if !ok {
		return nil, fmt.Errorf("unknown sqlite driver %q", driver)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open(name, "file:"+path+"?"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open case db: %w", err)
	}
	// Verify the connection works
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping case db: %w", err)
	}
	return &Store{db: db, q: db, now: time.Now}, nil
}

// InitSchema creates any missing tables and indexes. It is idempotent.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.q.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate case db: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn against a Store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise. Calling
// WithTx on a Store that is already transactional reuses the transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx, now: s.now}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// timeLayout is fixed-width so that timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}
