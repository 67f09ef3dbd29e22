package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/folio/pkg/folio"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements folio.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) folio.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) folio.Repository {
	return &Repository{db: pool}
}

// NewDbPool opens a pool and checks it with a ping.
func NewDbPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "22P02", "22P05", "22032": // invalid_text_representation, untranslatable_character, invalid_json_text
			return fmt.Errorf("%w: %s", folio.ErrSerialization, pgErr.Message)
		case "42P01": // undefined_table
			return fmt.Errorf("%w: table does not exist - database migration required", folio.ErrStorageUnavailable)
		default:
			return fmt.Errorf("%w: database error in %s: %s (code: %s)", folio.ErrStorageUnavailable, operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("%w: database error in %s: %w", folio.ErrStorageUnavailable, operation, err)
}

func (r *Repository) GetAll(ctx context.Context) ([]folio.Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT key, value FROM config`)
	if err != nil {
		return nil, r.handlePostgresError("get all", err)
	}
	defer rows.Close()

	entries := []folio.Entry{}
	for rows.Next() {
		var entry folio.Entry
		if err := rows.Scan(&entry.Key, &entry.Value); err != nil {
			return nil, r.handlePostgresError("scan section", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("get all", err)
	}

	return entries, nil
}

func (r *Repository) Get(ctx context.Context, key string) (folio.Entry, error) {
	entry := folio.Entry{Key: key}
	err := r.db.QueryRow(ctx, `SELECT value FROM config WHERE key = $1`, key).Scan(&entry.Value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return folio.Entry{}, folio.ErrSectionNotFound
		}
		return folio.Entry{}, r.handlePostgresError("get section", err)
	}
	return entry, nil
}

func (r *Repository) Upsert(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO config (key, value) VALUES ($1, $2::jsonb)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	// pass the document as text so pgx does not re-encode it
	if _, err := r.db.Exec(ctx, query, key, string(value)); err != nil {
		return r.handlePostgresError("upsert section", err)
	}
	return nil
}

func (r *Repository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM config`); err != nil {
		return r.handlePostgresError("delete all", err)
	}
	return nil
}
