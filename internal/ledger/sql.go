package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLRecorder persists usage records to SQLite or Postgres.
type SQLRecorder struct {
	db      *sql.DB
	dialect string
}

// NewSQLiteRecorder opens (and initialises) a SQLite-backed ledger. An empty
// dsn uses a file in the working directory.
func NewSQLiteRecorder(dsn string) (*SQLRecorder, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "aicentral-usage.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite usage ledger: %w", err)
	}
	r := &SQLRecorder{db: db, dialect: "sqlite"}
	if err := r.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// NewPostgresRecorder opens (and initialises) a Postgres-backed ledger.
func NewPostgresRecorder(dsn string) (*SQLRecorder, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres usage ledger: %w", err)
	}
	r := &SQLRecorder{db: db, dialect: "postgres"}
	if err := r.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLRecorder) init() error {
	if err := r.db.Ping(); err != nil {
		return fmt.Errorf("ping %s usage ledger: %w", r.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS token_usage (
	id TEXT PRIMARY KEY,
	caller_id INTEGER NOT NULL,
	contract_id INTEGER NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	operation TEXT NOT NULL,
	tokens_used INTEGER NOT NULL,
	tokens_exact INTEGER NOT NULL,
	cost_usd REAL NOT NULL,
	request_snapshot TEXT,
	response_snapshot TEXT,
	created_at TIMESTAMP NOT NULL
);`

	if r.dialect == "postgres" {
		ddl = `
CREATE TABLE IF NOT EXISTS token_usage (
	id TEXT PRIMARY KEY,
	caller_id INTEGER NOT NULL,
	contract_id INTEGER NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	operation TEXT NOT NULL,
	tokens_used INTEGER NOT NULL,
	tokens_exact BOOLEAN NOT NULL,
	cost_usd DOUBLE PRECISION NOT NULL,
	request_snapshot TEXT,
	response_snapshot TEXT,
	created_at TIMESTAMPTZ NOT NULL
);`
	}

	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize usage ledger schema: %w", err)
	}
	return nil
}

// Record implements Recorder with a single insert. Missing IDs and
// timestamps are filled in here so callers can stay minimal.
func (r *SQLRecorder) Record(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = NewRecordID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO token_usage(id, caller_id, contract_id, provider, model, operation, tokens_used, tokens_exact, cost_usd, request_snapshot, response_snapshot, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if r.dialect == "postgres" {
		query = `INSERT INTO token_usage(id, caller_id, contract_id, provider, model, operation, tokens_used, tokens_exact, cost_usd, request_snapshot, response_snapshot, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	}

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.CallerID,
		rec.ContractID,
		rec.Provider,
		rec.Model,
		rec.Operation,
		rec.TokensUsed,
		rec.TokensExact,
		rec.CostUSD,
		rec.RequestSnapshot,
		rec.ResponseSnapshot,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("write usage record: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (r *SQLRecorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
