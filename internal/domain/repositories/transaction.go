package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager runs a unit of work atomically.
// Every repository call made with the ctx passed to fn joins the transaction;
// if fn returns an error nothing it wrote becomes visible.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
