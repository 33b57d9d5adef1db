package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tripdesk/internal/common/db"
)

// Postgres stores values in the dashboard_kv table
type Postgres struct {
	db *db.DB
}

func NewPostgres(ctx context.Context, database *db.DB) (*Postgres, error) {
	if err := database.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return &Postgres{db: database}, nil
}

func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.db.Conn().QueryRowContext(ctx,
		`SELECT value FROM dashboard_kv WHERE key = $1`, key).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying key %s: %w", key, err)
	}

	return value, true, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	tx, err := p.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dashboard_kv (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	if err != nil {
		return fmt.Errorf("upserting key %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing key %s: %w", key, err)
	}

	p.db.Logger().Debug("Stored value", "key", key)
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.db.Conn().ExecContext(ctx, `DELETE FROM dashboard_kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}
	return nil
}
