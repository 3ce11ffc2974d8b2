package session

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of *pgxpool.Pool used by Postgres.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores one client's items in console_storage.
type Postgres struct {
	DB       Querier
	ClientID string
}

func (p *Postgres) GetItem(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := p.DB.QueryRow(ctx,
		`select value from console_storage where client_id = $1 and key = $2`,
		p.ClientID, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (p *Postgres) SetItem(ctx context.Context, key, value string) error {
	_, err := p.DB.Exec(ctx, `
		insert into console_storage (client_id, key, value, updated_at)
		values ($1, $2, $3, now())
		on conflict (client_id, key)
		do update set value = excluded.value, updated_at = now()
	`, p.ClientID, key, value)
	return err
}

func (p *Postgres) RemoveItem(ctx context.Context, key string) error {
	_, err := p.DB.Exec(ctx,
		`delete from console_storage where client_id = $1 and key = $2`,
		p.ClientID, key)
	return err
}
