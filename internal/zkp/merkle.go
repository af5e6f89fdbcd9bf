// Package zkp implements the shielded pool's cryptographic core: the
// note-commitment accumulator, the spent-nullifier set, the verification
// key store and the Groth16/BN254 verifier.
package zkp

import (
	"context"
	"sync"

	"github.com/shieldpool/core/pkg/types"
)

// DefaultTreeDepth matches the pool's default at initialisation.
const DefaultTreeDepth = 20

// TreeState is the persisted shape of a commitment tree: everything needed
// to resume inserting without replaying every prior leaf. FilledSubtrees
// holds exactly Depth+1 entries, one per level including the root level.
type TreeState struct {
	Depth          int
	LeafCount      uint64
	Root           types.Hash
	FilledSubtrees []types.Hash
}

// TreeStore persists a CommitmentTree's state across operations.
type TreeStore interface {
	LoadState(ctx context.Context) (*TreeState, error)
	SaveState(ctx context.Context, state *TreeState) error
}

// CommitmentTree is an append-only, fixed-depth binary Merkle accumulator
// with the filled-subtree optimisation (§4.1): each insertion costs exactly
// depth hash evaluations along the right frontier, with pre-computed zero
// subtrees standing in for the empty siblings.
type CommitmentTree struct {
	mu sync.RWMutex

	depth          int
	leafCount      uint64
	root           types.Hash
	filledSubtrees []types.Hash
	zeroSubtrees   []types.Hash

	store TreeStore
}

// NewCommitmentTree constructs a tree of the given depth (DefaultTreeDepth
// if zero) and precomputes its zero subtrees.
func NewCommitmentTree(store TreeStore, depth int) *CommitmentTree {
	if depth <= 0 {
		depth = DefaultTreeDepth
	}

	zeros := computeZeroSubtrees(depth)

	return &CommitmentTree{
		depth:          depth,
		filledSubtrees: append([]types.Hash(nil), zeros...),
		zeroSubtrees:   zeros,
		root:           zeros[depth],
		store:          store,
	}
}

// computeZeroSubtrees returns, for level l in [0, depth], the hash of an
// entirely-empty subtree of height l: level 0 is the canonical empty leaf,
// each subsequent level is hashPair(prev, prev).
func computeZeroSubtrees(depth int) []types.Hash {
	zeros := make([]types.Hash, depth+1)
	zeros[0] = types.EmptyHash
	for l := 1; l <= depth; l++ {
		zeros[l] = hashPair(zeros[l-1], zeros[l-1])
	}
	return zeros
}

// Initialize loads prior state from the store, or starts an empty tree if
// none is persisted yet.
func (t *CommitmentTree) Initialize(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.store.LoadState(ctx)
	if err != nil || state == nil {
		return nil // fresh tree: zero-value state set by NewCommitmentTree
	}

	t.depth = state.Depth
	t.leafCount = state.LeafCount
	t.root = state.Root
	t.filledSubtrees = append([]types.Hash(nil), state.FilledSubtrees...)
	t.zeroSubtrees = computeZeroSubtrees(state.Depth)
	return nil
}

// MaxLeaves returns 2^depth, the capacity of the tree.
func (t *CommitmentTree) MaxLeaves() uint64 {
	return uint64(1) << uint(t.depth)
}

// Insert appends a leaf commitment, returning its 0-based index. Mirrors
// the filled-subtree walk: at each level the current node either becomes
// the new left frontier (even index) or is combined with the cached left
// frontier (odd index).
func (t *CommitmentTree) Insert(ctx context.Context, leaf types.Hash) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.leafCount >= t.MaxLeaves() {
		return 0, ErrTreeFull
	}

	prevRoot := t.root
	prevFilledSubtrees := append([]types.Hash(nil), t.filledSubtrees...)

	index := t.leafCount
	currentIndex := index
	currentHash := leaf

	for level := 0; level < t.depth; level++ {
		var left, right types.Hash
		if currentIndex%2 == 0 {
			left = currentHash
			right = t.zeroSubtrees[level]
			t.filledSubtrees[level] = currentHash
		} else {
			left = t.filledSubtrees[level]
			right = currentHash
		}
		currentHash = hashPair(left, right)
		currentIndex /= 2
	}

	t.root = currentHash
	t.leafCount++

	if err := t.store.SaveState(ctx, t.snapshotLocked()); err != nil {
		// roll back in-memory state in full: root and filledSubtrees were
		// already mutated above, and leaving them advanced while leafCount
		// reverts (or vice versa) corrupts every subsequent insert
		t.leafCount--
		t.root = prevRoot
		t.filledSubtrees = prevFilledSubtrees
		return 0, err
	}

	return index, nil
}

// treeSnapshot captures enough of CommitmentTree's in-memory state to
// undo a whole operation's worth of inserts (Transfer/Unshield/
// TransferViaRelayer each insert more than one leaf) if a later step in
// that same operation fails.
type treeSnapshot struct {
	leafCount      uint64
	root           types.Hash
	filledSubtrees []types.Hash
}

func (t *CommitmentTree) snapshot() treeSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return treeSnapshot{
		leafCount:      t.leafCount,
		root:           t.root,
		filledSubtrees: append([]types.Hash(nil), t.filledSubtrees...),
	}
}

func (t *CommitmentTree) restore(s treeSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leafCount = s.leafCount
	t.root = s.root
	t.filledSubtrees = s.filledSubtrees
}

func (t *CommitmentTree) snapshotLocked() *TreeState {
	return &TreeState{
		Depth:          t.depth,
		LeafCount:      t.leafCount,
		Root:           t.root,
		FilledSubtrees: append([]types.Hash(nil), t.filledSubtrees...),
	}
}

// Root returns the current root.
func (t *CommitmentTree) Root() types.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// LeafCount returns the number of inserted leaves.
func (t *CommitmentTree) LeafCount() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.leafCount
}

// Depth returns the fixed tree depth.
func (t *CommitmentTree) Depth() int {
	return t.depth
}

// MerkleProof is an off-chain inclusion proof a client can verify locally
// against a historical root without round-tripping to the pool, grounded
// on the accompanying MerkleProof/verify pair in the reference protocol
// this accumulator's semantics were drawn from.
type MerkleProof struct {
	Leaf         types.Hash
	PathElements []types.Hash // length == depth
	PathIndices  []bool       // true = leaf is the right child at that level
}

// Verify recomputes the root along the proof's path and compares it to
// root.
func (p *MerkleProof) Verify(root types.Hash) bool {
	if len(p.PathElements) != len(p.PathIndices) {
		return false
	}

	current := p.Leaf
	for i, sibling := range p.PathElements {
		if p.PathIndices[i] {
			current = hashPair(sibling, current)
		} else {
			current = hashPair(current, sibling)
		}
	}
	return current == root
}

// InMemoryTreeStore is a TreeStore backed by a single in-process value,
// used by tests and by single-process embeddings of the engine.
type InMemoryTreeStore struct {
	mu    sync.RWMutex
	state *TreeState
}

func NewInMemoryTreeStore() *InMemoryTreeStore {
	return &InMemoryTreeStore{}
}

func (s *InMemoryTreeStore) LoadState(ctx context.Context) (*TreeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, nil
	}
	cp := *s.state
	cp.FilledSubtrees = append([]types.Hash(nil), s.state.FilledSubtrees...)
	return &cp, nil
}

func (s *InMemoryTreeStore) SaveState(ctx context.Context, state *TreeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *state
	cp.FilledSubtrees = append([]types.Hash(nil), state.FilledSubtrees...)
	s.state = &cp
	return nil
}
