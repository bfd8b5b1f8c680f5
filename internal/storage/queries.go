package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type KvStore struct {
	Key   string
	Value []byte
}

const getValue = `
SELECT key, value FROM kv_store
WHERE key = ?
`

func (q *Queries) GetValue(ctx context.Context, key string) (KvStore, error) {
	row := q.db.QueryRowContext(ctx, getValue, key)
	var i KvStore
	err := row.Scan(&i.Key, &i.Value)
	return i, err
}

const upsertValue = `
INSERT INTO kv_store (key, value, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET
    value = excluded.value,
    updated_at = excluded.updated_at
`

type UpsertValueParams struct {
	Key   string
	Value []byte
}

func (q *Queries) UpsertValue(ctx context.Context, arg UpsertValueParams) error {
	_, err := q.db.ExecContext(ctx, upsertValue, arg.Key, arg.Value)
	return err
}
