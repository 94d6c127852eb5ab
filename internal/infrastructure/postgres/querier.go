package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier abstracción mínima satisfecha por *pgxpool.Pool y pgx.Tx.
// Permite usar los mismos adaptadores con el pool o dentro de una transacción.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txStarter lo implementan *pgxpool.Pool y pgx.Tx (savepoint anidado).
type txStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
