// Package db provides a thin, sqlc-style data access layer over Postgres.
// Queries is constructed over anything satisfying DBTX, so the same query
// set runs against a pool, a single connection, or a transaction.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn, and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries bundles every prepared statement used by NOVA's agent runtime,
// message bus, and strategy stores.
type Queries struct {
	db DBTX
}

// New creates a Queries over the given DBTX.
func New(dbtx DBTX) *Queries {
	return &Queries{db: dbtx}
}
