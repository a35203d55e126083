package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/paisaflow/paisaflow/pkg/models"
)

// PostgresStore implements Store on PostgreSQL.
// Connection URL comes from PAISAFLOW_DATABASE_URL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects and creates the required tables if they
// don't exist.
func NewPostgresStore(ctx context.Context, connURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}

	log.Info().Msg("Postgres store initialized")
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS pf_execution_log (
			id         TEXT PRIMARY KEY,
			agent      TEXT NOT NULL,
			user_id    TEXT NOT NULL DEFAULT '',
			context    JSONB NOT NULL DEFAULT '{}',
			input      JSONB NOT NULL DEFAULT '{}',
			output     JSONB,
			status     TEXT NOT NULL,
			error      TEXT NOT NULL DEFAULT '',
			duration_ms BIGINT NOT NULL DEFAULT 0,
			tokens     BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_pf_execlog_user ON pf_execution_log (user_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS pf_receipts (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL DEFAULT '',
			image_url  TEXT NOT NULL,
			status     TEXT NOT NULL,
			error      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

// ── Execution Log ───────────────────────────────────────────

// AppendEntry records one invocation's log entry.
func (s *PostgresStore) AppendEntry(ctx context.Context, entry *models.ExecutionLogEntry) error {
	contextJSON, _ := json.Marshal(entry.Context)
	inputJSON, _ := json.Marshal(entry.Input)

	var outputJSON []byte
	if entry.Output != nil {
		outputJSON, _ = json.Marshal(entry.Output)
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO pf_execution_log
			(id, agent, user_id, context, input, output, status, error, duration_ms, tokens, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.Agent, entry.Context.UserID, contextJSON, inputJSON, outputJSON,
		string(entry.Status), entry.Error, entry.Duration.Milliseconds(), entry.Tokens, createdAt,
	)
	if err != nil {
		return fmt.Errorf("append execution log entry: %w", err)
	}
	return nil
}

// ListEntries returns entries newest-first, optionally filtered by user.
func (s *PostgresStore) ListEntries(ctx context.Context, userID string, limit int) ([]models.ExecutionLogEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, agent, context, input, output, status, error, duration_ms, tokens, created_at
		FROM pf_execution_log`
	args := []interface{}{}
	if userID != "" {
		query += ` WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, userID, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list execution log entries: %w", err)
	}
	defer rows.Close()

	var out []models.ExecutionLogEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

// GetEntry returns one entry by id.
func (s *PostgresStore) GetEntry(ctx context.Context, id string) (*models.ExecutionLogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, agent, context, input, output, status, error, duration_ms, tokens, created_at
		FROM pf_execution_log WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get execution log entry: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, &ErrNotFound{Entity: "execution log entry", Key: id}
	}
	return scanEntry(rows)
}

func scanEntry(rows pgx.Rows) (*models.ExecutionLogEntry, error) {
	var (
		entry       models.ExecutionLogEntry
		contextJSON []byte
		inputJSON   []byte
		outputJSON  []byte
		status      string
		durationMs  int64
	)
	if err := rows.Scan(&entry.ID, &entry.Agent, &contextJSON, &inputJSON, &outputJSON,
		&status, &entry.Error, &durationMs, &entry.Tokens, &entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan execution log entry: %w", err)
	}

	_ = json.Unmarshal(contextJSON, &entry.Context)
	_ = json.Unmarshal(inputJSON, &entry.Input)
	if len(outputJSON) > 0 {
		_ = json.Unmarshal(outputJSON, &entry.Output)
	}
	entry.Status = models.ExecutionStatus(status)
	entry.Duration = time.Duration(durationMs) * time.Millisecond
	return &entry, nil
}

// ── Receipt Records ─────────────────────────────────────────

// CreateReceipt registers a new receipt record.
func (s *PostgresStore) CreateReceipt(ctx context.Context, rec *models.ReceiptRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pf_receipts (id, user_id, image_url, status, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		rec.ID, rec.UserID, rec.ImageURL, string(rec.Status), rec.Error, createdAt,
	)
	if err != nil {
		return fmt.Errorf("create receipt: %w", err)
	}
	return nil
}

// UpdateReceiptStatus writes the record's status.
func (s *PostgresStore) UpdateReceiptStatus(ctx context.Context, id string, status models.ReceiptStatus, errMsg string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pf_receipts SET status = $2, error = $3, updated_at = NOW() WHERE id = $1`,
		id, string(status), errMsg,
	)
	if err != nil {
		return fmt.Errorf("update receipt status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "receipt", Key: id}
	}
	return nil
}

// GetReceipt returns one receipt record by id.
func (s *PostgresStore) GetReceipt(ctx context.Context, id string) (*models.ReceiptRecord, error) {
	var (
		rec    models.ReceiptRecord
		status string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, image_url, status, error, created_at, updated_at
		FROM pf_receipts WHERE id = $1`, id).
		Scan(&rec.ID, &rec.UserID, &rec.ImageURL, &status, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "receipt", Key: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	rec.Status = models.ReceiptStatus(status)
	return &rec, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
