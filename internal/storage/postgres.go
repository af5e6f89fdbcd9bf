// Package storage implements the PostgreSQL persistence layer for the
// shielded pool engine: pool scalars, Merkle accumulator state, the
// nullifier bloom filter, VK-data blobs and the emitted event log.
package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shieldpool/core/internal/zkp"
	"github.com/shieldpool/core/pkg/types"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrInvalidData  = errors.New("invalid data")
	ErrDBConnection = errors.New("database connection error")
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every store
// method below can run against whichever one the request context carries.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type txKey struct{}

// querierFor returns the pgx.Tx embedded in ctx by BeginTx, or the pool
// itself when no transaction is in flight.
func (s *PostgresStore) querierFor(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

// pgUnitOfWork wraps a pgx.Tx as a zkp.UnitOfWork.
type pgUnitOfWork struct {
	tx        pgx.Tx
	committed bool
}

func (u *pgUnitOfWork) Commit(ctx context.Context) error {
	if u.committed {
		return nil
	}
	u.committed = true
	return u.tx.Commit(ctx)
}

func (u *pgUnitOfWork) Rollback(ctx context.Context) error {
	if u.committed {
		return nil
	}
	return u.tx.Rollback(ctx)
}

// PostgresStore implements persistent storage using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Config holds database configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DefaultConfig returns default database configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "shieldpool",
		Password: "",
		Database: "shieldpool",
		SSLMode:  "disable",
		MaxConns: 20,
	}
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(ctx context.Context, cfg *Config) (*PostgresStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.MaxConns,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// ============================================
// Pool scalar state
// ============================================

// PoolScalarStore adapts one pool's row to zkp.PoolStore.
type PoolScalarStore struct {
	db     *PostgresStore
	poolID types.Hash
}

func (s *PostgresStore) PoolScalars(poolID types.Hash) *PoolScalarStore {
	return &PoolScalarStore{db: s, poolID: poolID}
}

// BeginTx opens a single Postgres transaction spanning every substore
// write (pool scalars, tree state, nullifier state) made against the
// returned context, implementing zkp.TxBeginner: a late failure anywhere
// in an Engine operation's epilogue rolls all of them back together
// (§5 "no partial state mutation is observable").
func (p *PoolScalarStore) BeginTx(ctx context.Context) (context.Context, zkp.UnitOfWork, error) {
	tx, err := p.db.pool.Begin(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return context.WithValue(ctx, txKey{}, tx), &pgUnitOfWork{tx: tx}, nil
}

func (p *PoolScalarStore) LoadPoolState(ctx context.Context) (*zkp.PoolState, error) {
	query := `
		SELECT authority, asset_id, merkle_root, tree_depth, next_leaf_index, vk_hash,
		       total_shielded, active, historical_roots, relayer, relayer_fee_bps,
		       created_at, last_activity_at
		FROM pools WHERE id = $1
	`

	var authority, assetID, root, vkHash, relayer []byte
	var historicalRoots [][]byte
	var state zkp.PoolState

	err := p.db.querierFor(ctx).QueryRow(ctx, query, p.poolID[:]).Scan(
		&authority, &assetID, &root, &state.TreeDepth, &state.NextLeafIndex, &vkHash,
		&state.TotalShielded, &state.Active, &historicalRoots, &relayer, &state.RelayerFeeBps,
		&state.CreatedAt, &state.LastActivityAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil // no prior state: fresh engine (mirrors in-memory store semantics)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pool state: %w", err)
	}

	copy(state.Authority[:], authority)
	copy(state.AssetID[:], assetID)
	state.MerkleRoot = types.HashFromBytes(root)
	state.VKHash = types.HashFromBytes(vkHash)
	copy(state.Relayer[:], relayer)

	state.HistoricalRoots = make([]types.Hash, len(historicalRoots))
	for i, r := range historicalRoots {
		state.HistoricalRoots[i] = types.HashFromBytes(r)
	}

	return &state, nil
}

func (p *PoolScalarStore) SavePoolState(ctx context.Context, state *zkp.PoolState) error {
	query := `
		INSERT INTO pools (
			id, authority, asset_id, merkle_root, tree_depth, next_leaf_index, vk_hash,
			total_shielded, active, historical_roots, relayer, relayer_fee_bps,
			created_at, last_activity_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			merkle_root = $4, tree_depth = $5, next_leaf_index = $6, vk_hash = $7,
			total_shielded = $8, active = $9, historical_roots = $10,
			relayer_fee_bps = $12, last_activity_at = $14
	`

	historicalRoots := make([][]byte, len(state.HistoricalRoots))
	for i, r := range state.HistoricalRoots {
		historicalRoots[i] = r.Bytes()
	}

	_, err := p.db.querierFor(ctx).Exec(ctx, query,
		p.poolID[:],
		state.Authority[:],
		state.AssetID[:],
		state.MerkleRoot[:],
		state.TreeDepth,
		state.NextLeafIndex,
		state.VKHash[:],
		state.TotalShielded,
		state.Active,
		historicalRoots,
		state.Relayer[:],
		state.RelayerFeeBps,
		state.CreatedAt,
		state.LastActivityAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save pool state: %w", err)
	}
	return nil
}

// ============================================
// Merkle accumulator state
// ============================================

// PoolTreeStore adapts one pool's row to zkp.TreeStore.
type PoolTreeStore struct {
	db     *PostgresStore
	poolID types.Hash
}

func (s *PostgresStore) Tree(poolID types.Hash) *PoolTreeStore {
	return &PoolTreeStore{db: s, poolID: poolID}
}

func (t *PoolTreeStore) LoadState(ctx context.Context) (*zkp.TreeState, error) {
	query := `SELECT depth, leaf_count, root, filled_subtrees FROM merkle_state WHERE pool_id = $1`

	var root []byte
	var filledSubtrees [][]byte
	var state zkp.TreeState

	err := t.db.querierFor(ctx).QueryRow(ctx, query, t.poolID[:]).Scan(
		&state.Depth, &state.LeafCount, &root, &filledSubtrees,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load merkle state: %w", err)
	}

	state.Root = types.HashFromBytes(root)
	state.FilledSubtrees = make([]types.Hash, len(filledSubtrees))
	for i, f := range filledSubtrees {
		state.FilledSubtrees[i] = types.HashFromBytes(f)
	}
	return &state, nil
}

func (t *PoolTreeStore) SaveState(ctx context.Context, state *zkp.TreeState) error {
	query := `
		INSERT INTO merkle_state (pool_id, depth, leaf_count, root, filled_subtrees)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pool_id) DO UPDATE SET
			leaf_count = $3, root = $4, filled_subtrees = $5
	`

	filledSubtrees := make([][]byte, len(state.FilledSubtrees))
	for i, f := range state.FilledSubtrees {
		filledSubtrees[i] = f.Bytes()
	}

	_, err := t.db.querierFor(ctx).Exec(ctx, query, t.poolID[:], state.Depth, state.LeafCount, state.Root[:], filledSubtrees)
	if err != nil {
		return fmt.Errorf("failed to save merkle state: %w", err)
	}
	return nil
}

// ============================================
// Nullifier bloom filter state
// ============================================

// PoolNullifierStore adapts one pool's row to zkp.NullifierStore. The
// filter is stored as a little-endian byte blob (§6: "256 x u64 contiguous").
type PoolNullifierStore struct {
	db     *PostgresStore
	poolID types.Hash
}

func (s *PostgresStore) Nullifiers(poolID types.Hash) *PoolNullifierStore {
	return &PoolNullifierStore{db: s, poolID: poolID}
}

func (n *PoolNullifierStore) LoadState(ctx context.Context) (*zkp.NullifierState, error) {
	query := `SELECT count, filter FROM nullifier_state WHERE pool_id = $1`

	var filterBytes []byte
	var state zkp.NullifierState

	err := n.db.querierFor(ctx).QueryRow(ctx, query, n.poolID[:]).Scan(&state.Count, &filterBytes)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load nullifier state: %w", err)
	}

	for i := 0; i < zkp.BloomWords && (i+1)*8 <= len(filterBytes); i++ {
		state.Filter[i] = binary.LittleEndian.Uint64(filterBytes[i*8 : i*8+8])
	}
	return &state, nil
}

func (n *PoolNullifierStore) SaveState(ctx context.Context, state *zkp.NullifierState) error {
	query := `
		INSERT INTO nullifier_state (pool_id, count, filter)
		VALUES ($1, $2, $3)
		ON CONFLICT (pool_id) DO UPDATE SET count = $2, filter = $3
	`

	filterBytes := make([]byte, zkp.BloomWords*8)
	for i, word := range state.Filter {
		binary.LittleEndian.PutUint64(filterBytes[i*8:i*8+8], word)
	}

	_, err := n.db.querierFor(ctx).Exec(ctx, query, n.poolID[:], state.Count, filterBytes)
	if err != nil {
		return fmt.Errorf("failed to save nullifier state: %w", err)
	}
	return nil
}

// ============================================
// VK-data blob
// ============================================

// PoolVKStore adapts one pool's row to zkp.VKStore.
type PoolVKStore struct {
	db     *PostgresStore
	poolID types.Hash
}

func (s *PostgresStore) VKData(poolID types.Hash) *PoolVKStore {
	return &PoolVKStore{db: s, poolID: poolID}
}

func (v *PoolVKStore) LoadBytes(ctx context.Context) ([]byte, error) {
	query := `SELECT data FROM vk_data WHERE pool_id = $1`

	var data []byte
	err := v.db.pool.QueryRow(ctx, query, v.poolID[:]).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load vk data: %w", err)
	}
	return data, nil
}

func (v *PoolVKStore) SaveBytes(ctx context.Context, data []byte) error {
	query := `
		INSERT INTO vk_data (pool_id, data) VALUES ($1, $2)
		ON CONFLICT (pool_id) DO UPDATE SET data = $2
	`
	_, err := v.db.pool.Exec(ctx, query, v.poolID[:], data)
	if err != nil {
		return fmt.Errorf("failed to save vk data: %w", err)
	}
	return nil
}

// ============================================
// Event log
// ============================================

// AppendEvent persists one emitted event (§6), in addition to its
// broadcast over the gossipsub event bus (internal/events): the database
// copy is what a late-joining indexer replays from.
func (s *PostgresStore) AppendEvent(ctx context.Context, ev *types.Event) error {
	query := `
		INSERT INTO events (
			pool_id, kind, nullifiers, commitments, leaf_indices, new_root,
			amount, submitter, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	nullifiers := make([][]byte, len(ev.Nullifiers))
	for i, n := range ev.Nullifiers {
		nullifiers[i] = n.Bytes()
	}

	commitments := make([][]byte, len(ev.Commitments))
	leafIndices := make([]int64, len(ev.Commitments))
	for i, c := range ev.Commitments {
		commitments[i] = c.Commitment.Bytes()
		leafIndices[i] = int64(c.LeafIndex)
	}

	_, err := s.pool.Exec(ctx, query,
		ev.PoolID[:], uint8(ev.Kind), nullifiers, commitments, leafIndices,
		ev.NewRoot[:], ev.Amount, ev.Submitter[:], ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// EventsForPool returns a pool's event log in emission order, the
// fallback path an indexer uses to catch up after missing gossipsub
// messages.
func (s *PostgresStore) EventsForPool(ctx context.Context, poolID types.Hash, since int64) ([]*types.Event, error) {
	query := `
		SELECT kind, nullifiers, commitments, leaf_indices, new_root, amount, submitter, timestamp
		FROM events WHERE pool_id = $1 AND timestamp >= $2
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, poolID[:], since)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*types.Event
	for rows.Next() {
		var kind uint8
		var nullifiers, commitments [][]byte
		var leafIndices []int64
		var newRoot, submitter []byte
		ev := &types.Event{PoolID: poolID}

		if err := rows.Scan(&kind, &nullifiers, &commitments, &leafIndices, &newRoot, &ev.Amount, &submitter, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		ev.Kind = types.OpKind(kind)
		ev.NewRoot = types.HashFromBytes(newRoot)
		copy(ev.Submitter[:], submitter)

		ev.Nullifiers = make([]types.Hash, len(nullifiers))
		for i, n := range nullifiers {
			ev.Nullifiers[i] = types.HashFromBytes(n)
		}

		ev.Commitments = make([]types.LeafCommitment, len(commitments))
		for i, c := range commitments {
			idx := uint64(0)
			if i < len(leafIndices) {
				idx = uint64(leafIndices[i])
			}
			ev.Commitments[i] = types.LeafCommitment{Commitment: types.HashFromBytes(c), LeafIndex: idx}
		}

		events = append(events, ev)
	}

	return events, nil
}
