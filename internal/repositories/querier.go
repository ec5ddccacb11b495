package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier é o denominador comum entre *pgxpool.Pool e pgx.Tx. Os helpers de
// escrita dos repositórios recebem querier para rodar tanto direto no pool
// quanto dentro de uma transação aberta por WithTx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}
