package zkp

import "context"

// UnitOfWork lets an Engine operation stage every substore mutation made
// during its epilogue (nullifier burn, leaf insertion, pool-state save,
// token leg) behind one atomic commit, so a late failure rolls back
// everything the operation already did instead of leaving it durably
// half-applied (§5 "no partial state mutation is observable", §7 "no
// partial failure is recoverable").
type UnitOfWork interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxBeginner is implemented by a PoolStore that can open a real
// transactional unit of work — the Postgres store begins one pgx.Tx that
// every substore write made against the returned context runs inside, so
// a rollback undoes all of them together. Stores that don't implement it
// (the in-memory test/single-process stores) get noUnitOfWork: there is
// no cross-table durability to roll back, but the Engine still restores
// its own in-memory tree/nullifier/pool-state snapshots on failure, which
// is what every caller actually observes through the Engine's API.
type TxBeginner interface {
	BeginTx(ctx context.Context) (context.Context, UnitOfWork, error)
}

type noUnitOfWork struct{}

func (noUnitOfWork) Commit(ctx context.Context) error   { return nil }
func (noUnitOfWork) Rollback(ctx context.Context) error { return nil }

// beginUnitOfWork opens a transactional unit of work against store if it
// supports one, otherwise returns ctx unchanged alongside a no-op one.
func beginUnitOfWork(ctx context.Context, store PoolStore) (context.Context, UnitOfWork, error) {
	if tb, ok := store.(TxBeginner); ok {
		return tb.BeginTx(ctx)
	}
	return ctx, noUnitOfWork{}, nil
}
