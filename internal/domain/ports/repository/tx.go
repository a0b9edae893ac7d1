package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction/executor handle. Repositories accept it as the
// first data argument so calls can run inside or outside a transaction; nil
// means "use the pool directly".
type Tx = any

// NoTX marks call sites that intentionally run outside a transaction.
var NoTX Tx = nil

// TransactionManager runs fn inside a database transaction, committing when
// fn returns nil and rolling back otherwise.
type TransactionManager interface {
	WithTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
