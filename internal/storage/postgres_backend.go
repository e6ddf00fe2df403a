package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"antigravity2api-go/internal/migrations"
)

// PostgresBackend stores each document as one row in ag2api_documents.
// Schema is managed by golang-migrate (internal/migrations).
type PostgresBackend struct {
	dsn string
	db  *sql.DB
}

// NewPostgresBackend creates a PostgreSQL storage backend.
func NewPostgresBackend(dsn string) *PostgresBackend {
	return &PostgresBackend{dsn: dsn}
}

func (p *PostgresBackend) Initialize(ctx context.Context) error {
	db, err := sql.Open("postgres", p.dsn)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrations.Run(db); err != nil {
		db.Close()
		return fmt.Errorf("apply migrations: %w", err)
	}
	p.db = db
	return nil
}

func (p *PostgresBackend) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *PostgresBackend) Health(ctx context.Context) error {
	if p.db == nil {
		return fmt.Errorf("postgres not initialized")
	}
	return p.db.PingContext(ctx)
}

func (p *PostgresBackend) Name() string { return "postgres" }

func (p *PostgresBackend) LoadAccounts(ctx context.Context) ([]byte, error) {
	return p.load(ctx, DocAccounts)
}

func (p *PostgresBackend) SaveAccounts(ctx context.Context, data []byte) error {
	return p.save(ctx, DocAccounts, data)
}

func (p *PostgresBackend) LoadQuotas(ctx context.Context) ([]byte, error) {
	return p.load(ctx, DocQuotas)
}

func (p *PostgresBackend) SaveQuotas(ctx context.Context, data []byte) error {
	return p.save(ctx, DocQuotas, data)
}

func (p *PostgresBackend) load(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT data FROM ag2api_documents WHERE name = $1`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (p *PostgresBackend) save(ctx context.Context, name string, data []byte) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO ag2api_documents (name, data, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		name, data)
	return err
}
