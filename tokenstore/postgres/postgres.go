// Package postgres stores TokenRecords in PostgreSQL. The original
// deployment kept these in a document store; one flat row per user is
// all the schema this data needs.
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/flairlondon/freeagent-bridge/internal/errors"
	"github.com/flairlondon/freeagent-bridge/tokenstore"
	"github.com/flairlondon/freeagent-bridge/tokenstore/postgres/migrations"
)

// DBTX is the subset of database/sql used by this repo. Both *sql.DB
// and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ tokenstore.Repo = (*Repo)(nil)

type Repo struct {
	db DBTX
}

func NewRepo(db DBTX) *Repo {
	return &Repo{db: db}
}

// Open connects via the pgx stdlib driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("postgres.Open ping: %w", err)
	}
	return db, nil
}

// RunMigrations sets up goose with the embedded migrations and runs
// them against the provided database connection.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (r *Repo) Get(ctx context.Context, userID string) (*tokenstore.TokenRecord, error) {
	query :=
		`SELECT user_id, access_token, refresh_token, expires_in, issued_at
		 FROM fa_tokens
		 WHERE user_id = $1
		 `

	record := &tokenstore.TokenRecord{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&record.UserID, &record.AccessToken, &record.RefreshToken, &record.ExpiresIn, &record.Timestamp)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrUserNotFound, "postgres.Get %q", userID)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return record, nil
}

// Upsert writes the whole record in one statement so a refresh replaces
// access token, refresh token, expiry, and timestamp atomically.
func (r *Repo) Upsert(ctx context.Context, record *tokenstore.TokenRecord) error {
	query :=
		`INSERT INTO fa_tokens (user_id, access_token, refresh_token, expires_in, issued_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
		   access_token = EXCLUDED.access_token,
		   refresh_token = EXCLUDED.refresh_token,
		   expires_in = EXCLUDED.expires_in,
		   issued_at = EXCLUDED.issued_at
		 `

	_, err := r.db.ExecContext(ctx, query,
		record.UserID, record.AccessToken, record.RefreshToken, record.ExpiresIn, record.Timestamp)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *Repo) List(ctx context.Context) ([]*tokenstore.TokenRecord, error) {
	query :=
		`SELECT user_id, access_token, refresh_token, expires_in, issued_at
		 FROM fa_tokens
		 ORDER BY user_id
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var records []*tokenstore.TokenRecord
	for rows.Next() {
		record := &tokenstore.TokenRecord{}
		if err := rows.Scan(
			&record.UserID, &record.AccessToken, &record.RefreshToken, &record.ExpiresIn, &record.Timestamp); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return records, nil
}
