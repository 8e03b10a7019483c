package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/lib/pq"

	"confdesk/config"
	"confdesk/internal/domain"
)

// ErrSchemaInstall is returned by Open when the store lacks the expected
// schema and installing it from the bootstrap script fails. The message is
// part of the wire contract.
var ErrSchemaInstall = errors.New("Could not initialize the database")

// Querier is the statement-execution capability shared by a live session and
// an open transaction. Both *sql.DB and *sql.Tx satisfy it.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Session owns the single database connection for a run. It is a pure
// capability object: results are reported by the callers, never by the
// session itself.
type Session struct {
	db   *sql.DB
	log  *slog.Logger
	open bool
}

// NewSession wraps an already-open database handle. Used by Open and by
// tests that back the session with a mock.
func NewSession(db *sql.DB, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{db: db, log: logger, open: true}
}

// Open connects to the named database with the caller-supplied credentials
// and installs the schema from cfg.SchemaFile if the store has never been
// initialized. Either step failing means no usable session.
func Open(ctx context.Context, cfg *config.Config, database, login, password string) (*Session, error) {
	conninfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, login, password, database, cfg.DBSSLMode)
	db, err := sql.Open("postgres", conninfo)
	if err != nil {
		return nil, domain.WrapStoreError(err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, domain.WrapStoreError(err)
	}
	s := NewSession(db, slog.Default())
	if err := s.ensureSchema(ctx, cfg.SchemaFile); err != nil {
		s.log.Error("schema installation failed", "script", cfg.SchemaFile, "error", err)
		s.Close()
		return nil, ErrSchemaInstall
	}
	return s, nil
}

// ensureSchema installs the schema from the bootstrap script when the store
// does not carry the expected tables yet.
func (s *Session) ensureSchema(ctx context.Context, scriptPath string) error {
	var n int
	if err := s.db.QueryRowContext(ctx,
		"select count(*) from pg_tables where tablename = 'talk'").Scan(&n); err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	s.log.Info("database needs initialization", "script", scriptPath)
	script, err := os.ReadFile(scriptPath)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(script))
	return err
}

// IsOpen reports whether the session can execute statements. Safe on a nil
// session: every command evaluated before "open" sees a nil one.
func (s *Session) IsOpen() bool {
	return s != nil && s.open
}

// Close releases the connection. The session is unusable afterwards.
func (s *Session) Close() error {
	if s == nil || !s.open {
		return nil
	}
	s.open = false
	return s.db.Close()
}

// DB exposes the session's connection as a Querier for single-statement
// commands that need no transaction.
func (s *Session) DB() Querier {
	return s.db
}

// Query runs a read-only statement against the session's connection.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.WrapStoreError(err)
	}
	return rows, nil
}

// WithTx runs fn inside a transaction and commits only if fn reports
// success; any other outcome discards the partial writes.
func (s *Session) WithTx(ctx context.Context, fn func(q Querier) *domain.Result) *domain.Result {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Error(err.Error())
	}
	res := fn(tx)
	if res.Status != domain.StatusOK {
		if err := tx.Rollback(); err != nil {
			s.log.Warn("rollback failed", "error", err)
		}
		return res
	}
	if err := tx.Commit(); err != nil {
		return domain.Error(err.Error())
	}
	return res
}

// Exec runs a statement and returns the number of affected rows.
func Exec(ctx context.Context, q Querier, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, domain.WrapStoreError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.WrapStoreError(err)
	}
	return n, nil
}

// QueryID runs a single-value integer lookup. found is false when no row
// matched, mirroring a scalar query that came back null.
func QueryID(ctx context.Context, q Querier, query string, args ...any) (id int64, found bool, err error) {
	err = q.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, domain.WrapStoreError(err)
	}
	return id, true, nil
}
