// Package store persists videos, snapshots, monitoring state, channels,
// and alerts behind one operation contract with two interchangeable
// backends: an embedded SQLite file and a remote Postgres database.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"spyglass/internal/config"
	"spyglass/internal/logging"
)

//go:embed schema_sqlite.sql
var schemaSQLite string

//go:embed schema_postgres.sql
var schemaPostgres string

// schemaVersion is the current schema version. Bump on schema changes;
// existing databases with an older version are rejected at open.
const schemaVersion = 1

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Store is the durable tabular store shared by the acquisition engine,
// growth monitor, analyzers, and CLI. Every exported operation is atomic
// on its own; batch operations commit per chunk.
type Store struct {
	db        *sql.DB
	dialect   dialect
	batchSize int
	retries   int
	logger    *slog.Logger
}

// Open connects the backend selected by the configuration and ensures
// the schema is in place. A postgres:// DATABASE_URL selects the remote
// backend; otherwise the embedded file at cfg.DatabasePath() is used.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	store := &Store{
		batchSize: cfg.Store.BatchSize,
		retries:   cfg.Store.ConnectRetries,
		logger:    logging.WithComponent(logger, "store"),
	}

	if cfg.UsesPostgres() {
		db, err := sql.Open("pgx", cfg.Store.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		store.db = db
		store.dialect = dialectPostgres
		if err := store.pingWithBackoff(context.Background()); err != nil {
			_ = db.Close()
			return nil, err
		}
	} else {
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
		db, err := sql.Open("sqlite", cfg.DatabasePath())
		if err != nil {
			return nil, fmt.Errorf("open sqlite db: %w", err)
		}
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA foreign_keys = ON",
			"PRAGMA busy_timeout = 5000",
		}
		for _, pragma := range pragmas {
			if _, execErr := db.Exec(pragma); execErr != nil {
				_ = db.Close()
				return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
			}
		}
		store.db = db
		store.dialect = dialectSQLite
	}

	if err := store.initSchema(context.Background()); err != nil {
		_ = store.db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) pingWithBackoff(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if err := s.db.PingContext(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < s.retries {
			wait := backoffDelay(attempt)
			s.logger.Warn("backend unreachable, retrying",
				logging.Int("attempt", attempt+1),
				logging.Duration("wait", wait),
				logging.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, lastErr)
}

func backoffDelay(attempt int) time.Duration {
	wait := time.Duration(float64(500*time.Millisecond) * math.Pow(2, float64(attempt)))
	if wait > 10*time.Second {
		wait = 10 * time.Second
	}
	return wait
}

// do runs op, retrying lost-connection failures against the remote
// backend with exponential backoff. The embedded backend never retries.
func (s *Store) do(ctx context.Context, op func() error) error {
	err := op()
	if err == nil || s.dialect != dialectPostgres || !retryableConnErr(err) {
		return err
	}
	for attempt := 0; attempt < s.retries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffDelay(attempt)):
		}
		if err = op(); err == nil {
			return nil
		}
		if !retryableConnErr(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	var probe string
	if s.dialect == dialectPostgres {
		probe = "SELECT COUNT(1) FROM information_schema.tables WHERE table_name = 'schema_version'"
	} else {
		probe = "SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'"
	}
	if err := s.db.QueryRowContext(ctx, probe).Scan(&tableExists); err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("schema version mismatch: database has %d, expected %d", version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	schema := schemaSQLite
	if s.dialect == dialectPostgres {
		schema = schemaPostgres
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO schema_version (version) VALUES (?)"), schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// rebind converts ?-style placeholders to the backend's format.
func (s *Store) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	bound, err := sq.Dollar.ReplacePlaceholders(query)
	if err != nil {
		return query
	}
	return bound
}

// builder returns a squirrel statement builder with the backend's
// placeholder format, used for the filterable queries.
func (s *Store) builder() sq.StatementBuilderType {
	if s.dialect == dialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}
