package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const schema = `CREATE TABLE IF NOT EXISTS tvremote_credentials (
    host       TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    port       INTEGER NOT NULL DEFAULT 0,
    token      TEXT NOT NULL DEFAULT '',
    paired     BOOLEAN NOT NULL DEFAULT false,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores credentials in the tvremote_credentials table.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects using a lib/pq DSN and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing handle. The caller keeps ownership of db.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the credentials table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating credentials table: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, host string) (Credentials, error) {
	creds := Credentials{Host: host}
	err := p.db.QueryRowContext(ctx,
		`SELECT name, port, token, paired, updated_at FROM tvremote_credentials WHERE host = $1`,
		host,
	).Scan(&creds.Name, &creds.Port, &creds.Token, &creds.Paired, &creds.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Credentials{}, ErrNotFound
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("loading credentials for %s: %w", host, err)
	}
	return creds, nil
}

func (p *Postgres) Save(ctx context.Context, creds Credentials) error {
	if creds.Host == "" {
		return errors.New("tokenstore: credentials without host")
	}
	if creds.UpdatedAt.IsZero() {
		creds.UpdatedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO tvremote_credentials (host, name, port, token, paired, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (host)
DO UPDATE SET name = EXCLUDED.name,
              port = EXCLUDED.port,
              token = EXCLUDED.token,
              paired = EXCLUDED.paired,
              updated_at = EXCLUDED.updated_at`,
		creds.Host, creds.Name, creds.Port, creds.Token, creds.Paired, creds.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving credentials for %s: %w", creds.Host, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
