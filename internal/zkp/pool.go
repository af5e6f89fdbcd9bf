package zkp

import (
	"context"
	"sync"

	"github.com/shieldpool/core/pkg/common"
	"github.com/shieldpool/core/pkg/types"
)

// HistoricalRootWindow bounds how many superseded roots a pool remembers
// (§3, §4.1): a proof may reference the current root or any of these.
const HistoricalRootWindow = 100

// PoolState is the persisted shape of a Pool: everything the state machine
// needs to resume across operations without replaying history.
type PoolState struct {
	Authority       types.Address
	AssetID         types.AssetID
	MerkleRoot      types.Hash
	TreeDepth       int
	NextLeafIndex   uint64
	VKHash          types.Hash
	TotalShielded   uint64
	Active          bool
	HistoricalRoots []types.Hash
	Relayer         types.Address
	RelayerFeeBps   uint16
	CreatedAt       int64
	LastActivityAt  int64
}

// PoolStore persists a pool's scalar state across operations.
type PoolStore interface {
	LoadPoolState(ctx context.Context) (*PoolState, error)
	SavePoolState(ctx context.Context, state *PoolState) error
}

// TokenLedger is the transparent-value boundary this engine hands value in
// or out through (§1: "custodial token transfers for the transparent leg
// ... delegated to a token module" is out of scope). A native-asset pool
// and an SPL-style token pool both implement this the same way; which one
// applies is a detail of the AssetID the ledger is keyed on, not of this
// engine.
type TokenLedger interface {
	Debit(ctx context.Context, asset types.AssetID, from types.Address, amount uint64) error
	Credit(ctx context.Context, asset types.AssetID, to types.Address, amount uint64) error
}

// Engine is the per-pool state machine: the prologue/epilogue shared by
// every operation, plus the five handlers (§4.5, §4.6).
type Engine struct {
	mu sync.Mutex

	id     types.Hash
	store  PoolStore
	tree   *CommitmentTree
	nulls  *NullifierSet
	vk     *VKDataAccount
	tokens TokenLedger
	batch  *NullifierBatch // nil: bloom hit is a hard reject (§4.2 policy (a))

	state        *PoolState
	verifier     *Verifier
	verifierHash types.Hash
}

// NewEngine wires the substores for one pool. batch may be nil.
func NewEngine(id types.Hash, store PoolStore, tree *CommitmentTree, nulls *NullifierSet, vk *VKDataAccount, tokens TokenLedger, batch *NullifierBatch) *Engine {
	return &Engine{id: id, store: store, tree: tree, nulls: nulls, vk: vk, tokens: tokens, batch: batch}
}

// Initialize loads prior pool state, or leaves the engine Uninitialised.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.tree.Initialize(ctx); err != nil {
		return err
	}
	if err := e.nulls.Initialize(ctx); err != nil {
		return err
	}

	state, err := e.store.LoadPoolState(ctx)
	if err != nil {
		return err
	}
	e.state = state
	return nil
}

// InitializePool creates the pool (§4.6: Uninitialised -> Active).
func (e *Engine) InitializePool(ctx context.Context, authority types.Address, assetID types.AssetID, vkHash types.Hash, depth int, relayer types.Address, relayerFeeBps uint16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if depth <= 0 {
		depth = DefaultTreeDepth
	}

	now := common.Now()
	e.state = &PoolState{
		Authority:      authority,
		AssetID:        assetID,
		MerkleRoot:     e.tree.Root(),
		TreeDepth:      depth,
		NextLeafIndex:  0,
		VKHash:         vkHash,
		TotalShielded:  0,
		Active:         true,
		Relayer:        relayer,
		RelayerFeeBps:  relayerFeeBps,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	return e.store.SavePoolState(ctx, e.state)
}

// InitVKData creates the pool's VK-data account with a declared size.
func (e *Engine) InitVKData(ctx context.Context, authority types.Address, size int) error {
	if err := e.requireAuthority(authority); err != nil {
		return err
	}
	return e.vk.Init(ctx, size)
}

// WriteVKData writes one chunk of the VK-data account.
func (e *Engine) WriteVKData(ctx context.Context, authority types.Address, offset int, chunk []byte) error {
	if err := e.requireAuthority(authority); err != nil {
		return err
	}
	return e.vk.Write(ctx, offset, chunk)
}

// UpdateVerificationKey rotates pool.vk_hash (§4.5.5). No in-flight proof
// built against the prior circuit can succeed afterward: every subsequent
// operation re-derives and re-checks the verifier against the new hash.
func (e *Engine) UpdateVerificationKey(ctx context.Context, authority types.Address, newVKHash types.Hash) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActiveLocked(); err != nil {
		return err
	}
	if authority != e.state.Authority {
		return ErrUnauthorized
	}

	e.state.VKHash = newVKHash
	e.state.LastActivityAt = common.Now()
	e.verifier = nil // stale cache; rebuilt on next use against the new hash
	return e.store.SavePoolState(ctx, e.state)
}

func (e *Engine) requireAuthority(authority types.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return ErrPoolNotActive
	}
	if authority != e.state.Authority {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) requireActiveLocked() error {
	if e.state == nil || !e.state.Active {
		return ErrPoolNotActive
	}
	return nil
}

// acceptedRootLocked reports whether root is the current root or still within
// the historical-root window (§4.1 "root acceptance window").
func (e *Engine) acceptedRootLocked(root types.Hash) bool {
	if root == e.state.MerkleRoot {
		return true
	}
	for _, r := range e.state.HistoricalRoots {
		if r == root {
			return true
		}
	}
	return false
}

// pushHistoricalRootLocked archives the root being superseded, evicting
// the oldest entry once the window is full.
func (e *Engine) pushHistoricalRootLocked(root types.Hash) {
	e.state.HistoricalRoots = append(e.state.HistoricalRoots, root)
	if len(e.state.HistoricalRoots) > HistoricalRootWindow {
		e.state.HistoricalRoots = e.state.HistoricalRoots[len(e.state.HistoricalRoots)-HistoricalRootWindow:]
	}
}

// loadVerifierLocked returns a Verifier for the pool's current vk_hash,
// rebuilding it only when the hash has changed since the last call
// (§9 PreparedVerifyingKey reuse).
func (e *Engine) loadVerifierLocked(ctx context.Context) (*Verifier, error) {
	hash, err := e.vk.ContentHash(ctx)
	if err != nil {
		return nil, err
	}
	if hash != e.state.VKHash {
		return nil, ErrInvalidVerificationKey
	}
	if e.verifier != nil && e.verifierHash == hash {
		return e.verifier, nil
	}

	data, err := e.vk.Load(ctx)
	if err != nil {
		return nil, err
	}
	v, err := NewVerifier(data)
	if err != nil {
		return nil, err
	}
	e.verifier, e.verifierHash = v, hash
	return v, nil
}

// verifyNullifiersUnspentLocked rejects the spend if either nullifier hits
// the bloom filter (§4.2 policy (a): a hit is an authoritative reject).
// When the engine holds a NullifierBatch, a hit is rejected only if the
// batch also lists the nullifier.
func (e *Engine) verifyNullifiersUnspentLocked(n1, n2 types.Hash) error {
	if err := e.nulls.Verify(n1, e.batch); err != nil {
		return err
	}
	if err := e.nulls.Verify(n2, e.batch); err != nil {
		return err
	}
	return nil
}

func (e *Engine) markSpentLocked(ctx context.Context, n1, n2 types.Hash) error {
	if err := e.nulls.Add(ctx, n1); err != nil {
		return err
	}
	if err := e.nulls.Add(ctx, n2); err != nil {
		return err
	}
	if e.batch != nil {
		_ = e.batch.Add(n1)
		_ = e.batch.Add(n2)
	}
	return nil
}

// ShieldRequest is the input to Shield (§4.5.1, §6).
type ShieldRequest struct {
	Submitter  types.Address
	Amount     uint64
	Commitment types.Hash
	// NewRoot, if set, is a client-computed root trusted in place of the
	// engine's own recomputation (§4.1 dual-mode note). Adversarial use
	// only bricks the depositor's own future spends.
	NewRoot *types.Hash
}

// Shield deposits amount into the pool and appends commitment to the tree
// (§4.5.1). No proof is required: ownership of the deposited amount is
// proven by the submitter's authority over the transparent-transfer leg,
// which is why the token debit runs first here rather than last — unlike
// the proof-carrying operations, there is no proof step to front-load it
// ahead of.
func (e *Engine) Shield(ctx context.Context, req ShieldRequest) (*types.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActiveLocked(); err != nil {
		return nil, err
	}
	if req.Amount == 0 {
		return nil, ErrInvalidAmount
	}

	// Every mutation from here on is staged behind one unit of work: a
	// late failure (the token leg, or the final pool-state save) rolls
	// the whole epilogue back instead of leaving it durably half-applied.
	txCtx, uow, err := beginUnitOfWork(ctx, e.store)
	if err != nil {
		return nil, err
	}
	treeSnap := e.tree.snapshot()
	prevState := *e.state
	prevState.HistoricalRoots = append([]types.Hash(nil), e.state.HistoricalRoots...)
	rollback := func() {
		e.tree.restore(treeSnap)
		*e.state = prevState
		uow.Rollback(txCtx)
	}

	if err := e.tokens.Debit(txCtx, e.state.AssetID, req.Submitter, req.Amount); err != nil {
		rollback()
		return nil, err
	}

	leafIndex, err := e.tree.Insert(txCtx, req.Commitment)
	if err != nil {
		rollback()
		return nil, err
	}

	newRoot := e.tree.Root()
	if req.NewRoot != nil {
		newRoot = *req.NewRoot
	}

	total := e.state.TotalShielded + req.Amount
	if total < e.state.TotalShielded {
		rollback()
		return nil, ErrArithmeticOverflow
	}

	e.pushHistoricalRootLocked(e.state.MerkleRoot)
	e.state.MerkleRoot = newRoot
	e.state.NextLeafIndex = e.tree.LeafCount()
	e.state.TotalShielded = total
	e.state.LastActivityAt = common.Now()

	if err := e.store.SavePoolState(txCtx, e.state); err != nil {
		rollback()
		return nil, err
	}
	if err := uow.Commit(txCtx); err != nil {
		rollback()
		return nil, err
	}

	return &types.Event{
		Kind:        types.OpShield,
		PoolID:      e.id,
		Commitments: []types.LeafCommitment{{Commitment: req.Commitment, LeafIndex: leafIndex}},
		NewRoot:     e.state.MerkleRoot,
		Amount:      int64(req.Amount),
		Submitter:   req.Submitter,
		Timestamp:   e.state.LastActivityAt,
	}, nil
}

// TransferRequest is the input to Transfer (§4.5.2, §6).
type TransferRequest struct {
	Submitter   types.Address
	Proof       *types.GrothProof
	Nullifier1  types.Hash
	Nullifier2  types.Hash
	Commitment1 types.Hash
	Commitment2 types.Hash
	Root        types.Hash
}

// Transfer spends two notes and creates two, value-preserving and fully
// private (§4.5.2): value conservation is enforced inside the circuit, so
// public_amount is always zero here.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (*types.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActiveLocked(); err != nil {
		return nil, err
	}
	if !e.acceptedRootLocked(req.Root) {
		return nil, ErrInvalidRoot
	}
	if err := e.verifyNullifiersUnspentLocked(req.Nullifier1, req.Nullifier2); err != nil {
		return nil, err
	}

	verifier, err := e.loadVerifierLocked(ctx)
	if err != nil {
		return nil, err
	}

	pub := &PublicInputs{
		MerkleRoot:        req.Root,
		Nullifier1:        req.Nullifier1,
		Nullifier2:        req.Nullifier2,
		OutputCommitment1: req.Commitment1,
		OutputCommitment2: req.Commitment2,
		PublicAmount:      0,
		AssetID:           e.state.AssetID,
	}
	ok, err := verifier.Verify(req.Proof, pub)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidProof
	}

	// Every mutation from here on is staged behind one unit of work: a
	// late failure (e.g. the final pool-state save) rolls the whole
	// epilogue back instead of leaving it durably half-applied.
	txCtx, uow, err := beginUnitOfWork(ctx, e.store)
	if err != nil {
		return nil, err
	}
	treeSnap := e.tree.snapshot()
	nullSnap := e.nulls.snapshot()
	prevState := *e.state
	prevState.HistoricalRoots = append([]types.Hash(nil), e.state.HistoricalRoots...)
	rollback := func() {
		e.tree.restore(treeSnap)
		e.nulls.restore(nullSnap)
		*e.state = prevState
		uow.Rollback(txCtx)
	}

	if err := e.markSpentLocked(txCtx, req.Nullifier1, req.Nullifier2); err != nil {
		rollback()
		return nil, err
	}

	idx1, err := e.tree.Insert(txCtx, req.Commitment1)
	if err != nil {
		rollback()
		return nil, err
	}
	idx2, err := e.tree.Insert(txCtx, req.Commitment2)
	if err != nil {
		rollback()
		return nil, err
	}

	e.pushHistoricalRootLocked(e.state.MerkleRoot)
	e.state.MerkleRoot = e.tree.Root()
	e.state.NextLeafIndex = e.tree.LeafCount()
	e.state.LastActivityAt = common.Now()

	if err := e.store.SavePoolState(txCtx, e.state); err != nil {
		rollback()
		return nil, err
	}
	if err := uow.Commit(txCtx); err != nil {
		rollback()
		return nil, err
	}

	return &types.Event{
		Kind:       types.OpTransfer,
		PoolID:     e.id,
		Nullifiers: []types.Hash{req.Nullifier1, req.Nullifier2},
		Commitments: []types.LeafCommitment{
			{Commitment: req.Commitment1, LeafIndex: idx1},
			{Commitment: req.Commitment2, LeafIndex: idx2},
		},
		NewRoot:   e.state.MerkleRoot,
		Submitter: req.Submitter,
		Timestamp: e.state.LastActivityAt,
	}, nil
}

// UnshieldRequest is the input to Unshield (§4.5.3, §6).
type UnshieldRequest struct {
	Submitter   types.Address
	Recipient   types.Address
	Proof       *types.GrothProof
	Nullifier1  types.Hash
	Nullifier2  types.Hash
	Commitment1 types.Hash // zero sentinel: no change note
	Commitment2 types.Hash // zero sentinel: no second output
	Root        types.Hash
	Amount      uint64
	NewRoot     *types.Hash
}

// Unshield withdraws amount to a transparent recipient (§4.5.3).
// public_amount is -amount; only non-zero commitments are inserted.
func (e *Engine) Unshield(ctx context.Context, req UnshieldRequest) (*types.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActiveLocked(); err != nil {
		return nil, err
	}
	if req.Amount == 0 {
		return nil, ErrInvalidAmount
	}
	if !e.acceptedRootLocked(req.Root) {
		return nil, ErrInvalidRoot
	}
	if e.state.TotalShielded < req.Amount {
		return nil, ErrInsufficientPoolBalance
	}
	if err := e.verifyNullifiersUnspentLocked(req.Nullifier1, req.Nullifier2); err != nil {
		return nil, err
	}

	verifier, err := e.loadVerifierLocked(ctx)
	if err != nil {
		return nil, err
	}

	pub := &PublicInputs{
		MerkleRoot:        req.Root,
		Nullifier1:        req.Nullifier1,
		Nullifier2:        req.Nullifier2,
		OutputCommitment1: req.Commitment1,
		OutputCommitment2: req.Commitment2,
		PublicAmount:      -int64(req.Amount),
		AssetID:           e.state.AssetID,
	}
	ok, err := verifier.Verify(req.Proof, pub)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidProof
	}

	// Every mutation from here on is staged behind one unit of work: if
	// the token credit or the final pool-state save fails, the whole
	// epilogue rolls back together — the spec's central invariant is that
	// a token-layer failure must never leave nullifiers burned and the
	// tree advanced with nothing paid out.
	txCtx, uow, err := beginUnitOfWork(ctx, e.store)
	if err != nil {
		return nil, err
	}
	treeSnap := e.tree.snapshot()
	nullSnap := e.nulls.snapshot()
	prevState := *e.state
	prevState.HistoricalRoots = append([]types.Hash(nil), e.state.HistoricalRoots...)
	rollback := func() {
		e.tree.restore(treeSnap)
		e.nulls.restore(nullSnap)
		*e.state = prevState
		uow.Rollback(txCtx)
	}

	if err := e.markSpentLocked(txCtx, req.Nullifier1, req.Nullifier2); err != nil {
		rollback()
		return nil, err
	}

	var commitments []types.LeafCommitment
	for _, c := range []types.Hash{req.Commitment1, req.Commitment2} {
		if c.IsZero() {
			continue
		}
		idx, err := e.tree.Insert(txCtx, c)
		if err != nil {
			rollback()
			return nil, err
		}
		commitments = append(commitments, types.LeafCommitment{Commitment: c, LeafIndex: idx})
	}

	newRoot := e.tree.Root()
	if req.NewRoot != nil {
		newRoot = *req.NewRoot
	}

	if err := e.tokens.Credit(txCtx, e.state.AssetID, req.Recipient, req.Amount); err != nil {
		rollback()
		return nil, err
	}

	total := e.state.TotalShielded - req.Amount
	if total > e.state.TotalShielded {
		rollback()
		return nil, ErrArithmeticOverflow
	}

	e.pushHistoricalRootLocked(e.state.MerkleRoot)
	e.state.MerkleRoot = newRoot
	e.state.NextLeafIndex = e.tree.LeafCount()
	e.state.TotalShielded = total
	e.state.LastActivityAt = common.Now()

	if err := e.store.SavePoolState(txCtx, e.state); err != nil {
		rollback()
		return nil, err
	}
	if err := uow.Commit(txCtx); err != nil {
		rollback()
		return nil, err
	}

	return &types.Event{
		Kind:        types.OpUnshield,
		PoolID:      e.id,
		Nullifiers:  []types.Hash{req.Nullifier1, req.Nullifier2},
		Commitments: commitments,
		NewRoot:     e.state.MerkleRoot,
		Amount:      -int64(req.Amount),
		Submitter:   req.Submitter,
		Timestamp:   e.state.LastActivityAt,
	}, nil
}

// TransferViaRelayerRequest is the input to TransferViaRelayer (§4.5.4, §6).
type TransferViaRelayerRequest struct {
	Submitter   types.Address
	Proof       *types.GrothProof
	Nullifier1  types.Hash
	Nullifier2  types.Hash
	Commitment1 types.Hash
	Commitment2 types.Hash
	CommitmentFee types.Hash
	Root        types.Hash
}

// TransferViaRelayer is Transfer with a third, relayer-addressed fee
// output (§4.5.4). The submitter must equal pool.relayer; this identity
// gate runs before proof verification (scenario 6), since the fee split
// itself is a circuit-enforced invariant this engine cannot re-check
// without the note's plaintext value.
func (e *Engine) TransferViaRelayer(ctx context.Context, req TransferViaRelayerRequest) (*types.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActiveLocked(); err != nil {
		return nil, err
	}
	if req.Submitter != e.state.Relayer {
		return nil, ErrUnauthorized
	}
	if !e.acceptedRootLocked(req.Root) {
		return nil, ErrInvalidRoot
	}
	if err := e.verifyNullifiersUnspentLocked(req.Nullifier1, req.Nullifier2); err != nil {
		return nil, err
	}

	verifier, err := e.loadVerifierLocked(ctx)
	if err != nil {
		return nil, err
	}

	// The relayer fee output folds into OutputCommitment2's circuit slot
	// conceptually, but the verifier's public-input layout is fixed at
	// seven fields (§4.4) regardless of how many notes the circuit opens;
	// the third commitment is bound inside the proof, not as a distinct
	// public input.
	pub := &PublicInputs{
		MerkleRoot:        req.Root,
		Nullifier1:        req.Nullifier1,
		Nullifier2:        req.Nullifier2,
		OutputCommitment1: req.Commitment1,
		OutputCommitment2: req.Commitment2,
		PublicAmount:      0,
		AssetID:           e.state.AssetID,
	}
	ok, err := verifier.Verify(req.Proof, pub)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidProof
	}

	// Every mutation from here on is staged behind one unit of work: a
	// late failure (e.g. the final pool-state save) rolls the whole
	// epilogue back instead of leaving it durably half-applied.
	txCtx, uow, err := beginUnitOfWork(ctx, e.store)
	if err != nil {
		return nil, err
	}
	treeSnap := e.tree.snapshot()
	nullSnap := e.nulls.snapshot()
	prevState := *e.state
	prevState.HistoricalRoots = append([]types.Hash(nil), e.state.HistoricalRoots...)
	rollback := func() {
		e.tree.restore(treeSnap)
		e.nulls.restore(nullSnap)
		*e.state = prevState
		uow.Rollback(txCtx)
	}

	if err := e.markSpentLocked(txCtx, req.Nullifier1, req.Nullifier2); err != nil {
		rollback()
		return nil, err
	}

	idx1, err := e.tree.Insert(txCtx, req.Commitment1)
	if err != nil {
		rollback()
		return nil, err
	}
	idx2, err := e.tree.Insert(txCtx, req.Commitment2)
	if err != nil {
		rollback()
		return nil, err
	}
	idxFee, err := e.tree.Insert(txCtx, req.CommitmentFee)
	if err != nil {
		rollback()
		return nil, err
	}

	e.pushHistoricalRootLocked(e.state.MerkleRoot)
	e.state.MerkleRoot = e.tree.Root()
	e.state.NextLeafIndex = e.tree.LeafCount()
	e.state.LastActivityAt = common.Now()

	if err := e.store.SavePoolState(txCtx, e.state); err != nil {
		rollback()
		return nil, err
	}
	if err := uow.Commit(txCtx); err != nil {
		rollback()
		return nil, err
	}

	return &types.Event{
		Kind:       types.OpTransferViaRelayer,
		PoolID:     e.id,
		Nullifiers: []types.Hash{req.Nullifier1, req.Nullifier2},
		Commitments: []types.LeafCommitment{
			{Commitment: req.Commitment1, LeafIndex: idx1},
			{Commitment: req.Commitment2, LeafIndex: idx2},
			{Commitment: req.CommitmentFee, LeafIndex: idxFee},
		},
		NewRoot:   e.state.MerkleRoot,
		Submitter: req.Submitter,
		Timestamp: e.state.LastActivityAt,
	}, nil
}

// State returns a copy of the pool's current persisted scalars.
func (e *Engine) State() PoolState {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := *e.state
	cp.HistoricalRoots = append([]types.Hash(nil), e.state.HistoricalRoots...)
	return cp
}

// InMemoryPoolStore is a PoolStore backed by a single in-process value,
// used by tests and single-process embeddings of the engine.
type InMemoryPoolStore struct {
	mu    sync.RWMutex
	state *PoolState
}

func NewInMemoryPoolStore() *InMemoryPoolStore {
	return &InMemoryPoolStore{}
}

func (s *InMemoryPoolStore) LoadPoolState(ctx context.Context) (*PoolState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, nil
	}
	cp := *s.state
	cp.HistoricalRoots = append([]types.Hash(nil), s.state.HistoricalRoots...)
	return &cp, nil
}

func (s *InMemoryPoolStore) SavePoolState(ctx context.Context, state *PoolState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *state
	cp.HistoricalRoots = append([]types.Hash(nil), state.HistoricalRoots...)
	s.state = &cp
	return nil
}

// InMemoryTokenLedger is a TokenLedger backed by in-process balances, used
// by tests in place of the real token-module boundary (§1 out of scope).
type InMemoryTokenLedger struct {
	mu       sync.Mutex
	balances map[types.AssetID]map[types.Address]uint64
}

func NewInMemoryTokenLedger() *InMemoryTokenLedger {
	return &InMemoryTokenLedger{balances: make(map[types.AssetID]map[types.Address]uint64)}
}

// Fund tops up addr, bypassing Debit's balance check, so tests can fund
// a submitter before exercising Shield.
func (l *InMemoryTokenLedger) Fund(asset types.AssetID, addr types.Address, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureLocked(asset)
	l.balances[asset][addr] += amount
}

func (l *InMemoryTokenLedger) ensureLocked(asset types.AssetID) {
	if l.balances[asset] == nil {
		l.balances[asset] = make(map[types.Address]uint64)
	}
}

func (l *InMemoryTokenLedger) Debit(ctx context.Context, asset types.AssetID, from types.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureLocked(asset)
	if l.balances[asset][from] < amount {
		return ErrInsufficientBalance
	}
	l.balances[asset][from] -= amount
	return nil
}

func (l *InMemoryTokenLedger) Credit(ctx context.Context, asset types.AssetID, to types.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureLocked(asset)
	l.balances[asset][to] += amount
	return nil
}

func (l *InMemoryTokenLedger) Balance(asset types.AssetID, addr types.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[asset][addr]
}
