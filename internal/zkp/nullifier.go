package zkp

import (
	"context"
	"sync"

	"github.com/shieldpool/core/pkg/types"
)

const (
	// BloomBits is the bloom filter width: 256 64-bit words (§3, §4.2).
	BloomBits = 16384
	// BloomWords is BloomBits expressed in 64-bit words for the
	// persisted layout (§6: "256 x u64 contiguous").
	BloomWords = BloomBits / 64
	// NumHashFunctions is k, the number of bit positions set per add.
	NumHashFunctions = 7
	// NullifierBatchSize caps how many nullifiers one NullifierBatch holds.
	NullifierBatchSize = 300
)

// NullifierState is the persisted shape of a NullifierSet.
type NullifierState struct {
	Count  uint64
	Filter [BloomWords]uint64
}

// NullifierStore persists a NullifierSet's bloom filter and count.
type NullifierStore interface {
	LoadState(ctx context.Context) (*NullifierState, error)
	SaveState(ctx context.Context, state *NullifierState) error
}

// NullifierSet is a k=7 bloom filter over 16384 bits (§3, §4.2). A
// "might contain" hit is treated as an authoritative reject: the filter
// is only ever used to deny a spend, never to admit one.
type NullifierSet struct {
	mu     sync.RWMutex
	count  uint64
	filter [BloomWords]uint64
	store  NullifierStore
}

func NewNullifierSet(store NullifierStore) *NullifierSet {
	return &NullifierSet{store: store}
}

// Initialize loads prior state, or starts an empty (all-zero) filter.
func (s *NullifierSet) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.LoadState(ctx)
	if err != nil || state == nil {
		return nil
	}
	s.count = state.Count
	s.filter = state.Filter
	return nil
}

// bitIndices derives the k bit positions for a nullifier via the
// double-hashing construction (§4.2): h_i(n) = h1(n) + i*h2(n) (mod 16384),
// h1 = KECCAK(n), h2 = KECCAK(n||0x01), taking the low 64 bits of each
// digest and mixing with 64-bit wrapping arithmetic.
func bitIndices(n types.Hash) [NumHashFunctions]uint64 {
	h1 := keccak256(n[:])
	h2 := keccak256(n[:], []byte{0x01})

	h1Val := leU64(h1[:8])
	h2Val := leU64(h2[:8])

	var out [NumHashFunctions]uint64
	for i := uint64(0); i < NumHashFunctions; i++ {
		combined := h1Val + i*h2Val // wraps naturally: uint64 arithmetic
		out[i] = combined % BloomBits
	}
	return out
}

func leU64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8 && i < len(b); i++ {
		v |= uint64(b[i]) << (8 * uint(i))
	}
	return v
}

func (s *NullifierSet) testBitLocked(bit uint64) bool {
	word := bit / 64
	off := bit % 64
	return s.filter[word]&(uint64(1)<<off) != 0
}

func (s *NullifierSet) setBitLocked(bit uint64) {
	word := bit / 64
	off := bit % 64
	s.filter[word] |= uint64(1) << off
}

// MightContain returns false only when the nullifier is definitely absent.
// A true result must be treated as an authoritative reject (§3, §4.2).
func (s *NullifierSet) MightContain(n types.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, bit := range bitIndices(n) {
		if !s.testBitLocked(bit) {
			return false
		}
	}
	return true
}

// Add marks a nullifier spent: sets all k bits and increments count. The
// set is monotonic, add-only; it is never cleared.
func (s *NullifierSet) Add(ctx context.Context, n types.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevCount := s.count
	prevFilter := s.filter

	for _, bit := range bitIndices(n) {
		s.setBitLocked(bit)
	}
	s.count++

	if err := s.store.SaveState(ctx, &NullifierState{Count: s.count, Filter: s.filter}); err != nil {
		s.count = prevCount
		s.filter = prevFilter
		return err
	}
	return nil
}

// nullifierSnapshot captures enough of NullifierSet's in-memory state to
// undo an Add (or several, as Transfer/Unshield/TransferViaRelayer each
// burn two nullifiers) if a later step in the same operation fails.
type nullifierSnapshot struct {
	count  uint64
	filter [BloomWords]uint64
}

func (s *NullifierSet) snapshot() nullifierSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return nullifierSnapshot{count: s.count, filter: s.filter}
}

func (s *NullifierSet) restore(snap nullifierSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = snap.count
	s.filter = snap.filter
}

func (s *NullifierSet) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Verify checks whether n is safe to spend. If the bloom filter reports a
// hit and an authoritative batch is supplied, the batch disambiguates a
// false positive from a real double-spend (§9 open question, resolved:
// the happy path degrades to a hard reject without a batch — batch-backed
// disambiguation is opt-in for long-lived pools).
func (s *NullifierSet) Verify(n types.Hash, batch *NullifierBatch) error {
	if !s.MightContain(n) {
		return nil
	}
	if batch != nil && !batch.Contains(n) {
		return nil
	}
	return ErrNullifierAlreadySpent
}

// NullifierBatch is the authoritative, exact nullifier list (§9): declared
// as an optional disambiguation layer rather than wired into the default
// fast path, matching the spec's stated policy choice.
type NullifierBatch struct {
	mu      sync.RWMutex
	entries map[types.Hash]struct{}
}

func NewNullifierBatch() *NullifierBatch {
	return &NullifierBatch{entries: make(map[types.Hash]struct{}, NullifierBatchSize)}
}

func (b *NullifierBatch) Contains(n types.Hash) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.entries[n]
	return ok
}

func (b *NullifierBatch) Add(n types.Hash) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) >= NullifierBatchSize {
		return ErrInvalidPosition // batch full; caller should roll to a new batch
	}
	b.entries[n] = struct{}{}
	return nil
}

// InMemoryNullifierStore is a NullifierStore backed by a single in-process
// value, used by tests and by single-process embeddings of the engine.
type InMemoryNullifierStore struct {
	mu    sync.RWMutex
	state *NullifierState
}

func NewInMemoryNullifierStore() *InMemoryNullifierStore {
	return &InMemoryNullifierStore{}
}

func (s *InMemoryNullifierStore) LoadState(ctx context.Context) (*NullifierState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, nil
	}
	cp := *s.state
	return &cp, nil
}

func (s *InMemoryNullifierStore) SaveState(ctx context.Context, state *NullifierState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *state
	s.state = &cp
	return nil
}
