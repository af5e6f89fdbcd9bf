package zkp

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/shieldpool/core/pkg/types"
)

const (
	// MinVKSize and MaxVKSize bound the flat VK blob length L (§4.3).
	MinVKSize = 452
	MaxVKSize = 2048
	// MaxVKChunkSize is the largest single write() accepts (§4.3).
	MaxVKChunkSize = 800
)

// VKStore persists the raw VK bytes for one pool across init/write calls.
type VKStore interface {
	LoadBytes(ctx context.Context) ([]byte, error)
	SaveBytes(ctx context.Context, data []byte) error
}

// VKDataAccount is the chunked, content-addressed verification-key blob
// store (§4.3): two-phase init(size)/write(offset, bytes), with the
// account's content hash pinned to pool.vk_hash at every use.
type VKDataAccount struct {
	mu    sync.Mutex
	size  int
	data  []byte
	store VKStore
}

func NewVKDataAccount(store VKStore) *VKDataAccount {
	return &VKDataAccount{store: store}
}

// Init creates (or resizes) the account to exactly size bytes.
func (v *VKDataAccount) Init(ctx context.Context, size int) error {
	if size < MinVKSize || size > MaxVKSize {
		return ErrInvalidVerificationKey
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.size = size
	v.data = make([]byte, size)
	return v.store.SaveBytes(ctx, v.data)
}

// Write copies bytes into [offset, offset+len(bytes)).
func (v *VKDataAccount) Write(ctx context.Context, offset int, chunk []byte) error {
	if len(chunk) > MaxVKChunkSize {
		return ErrInvalidVerificationKey
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.data == nil {
		return ErrInvalidVerificationKey
	}
	if offset < 0 || offset+len(chunk) > v.size {
		return ErrInvalidVerificationKey
	}

	copy(v.data[offset:offset+len(chunk)], chunk)
	return v.store.SaveBytes(ctx, v.data)
}

// Load returns the current bytes, reading through to the store if this
// instance hasn't been initialized in-process yet.
func (v *VKDataAccount) Load(ctx context.Context) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.data != nil {
		return append([]byte(nil), v.data...), nil
	}

	data, err := v.store.LoadBytes(ctx)
	if err != nil {
		return nil, err
	}
	v.data = data
	v.size = len(data)
	return append([]byte(nil), data...), nil
}

// ContentHash returns the Keccak-256 hash of the current bytes, which must
// equal pool.vk_hash at every proof-consuming operation.
func (v *VKDataAccount) ContentHash(ctx context.Context) (types.Hash, error) {
	data, err := v.Load(ctx)
	if err != nil {
		return types.Hash{}, err
	}
	return keccak256(data), nil
}

// VerifyingKey is the parsed form of the flat VK layout (§4.3):
//
//	alpha_g1 : 64
//	beta_g2  : 128
//	gamma_g2 : 128
//	delta_g2 : 128
//	ic_count : u32 (LE)
//	IC[]     : ic_count x 64
//
// Kept parsed and ready for repeated use across proof verifications
// against the same vk_hash rather than re-parsed per call.
type VerifyingKey struct {
	AlphaG1 [types.G1Size]byte
	BetaG2  [types.G2Size]byte
	GammaG2 [types.G2Size]byte
	DeltaG2 [types.G2Size]byte
	IC      [][types.G1Size]byte
}

// ParseVerifyingKey parses the flat byte layout, validating declared sizes
// before touching curve arithmetic.
func ParseVerifyingKey(data []byte) (*VerifyingKey, error) {
	const fixedLen = types.G1Size + 3*types.G2Size + 4
	if len(data) < fixedLen {
		return nil, ErrInvalidVerificationKey
	}

	vk := &VerifyingKey{}
	off := 0

	copy(vk.AlphaG1[:], data[off:off+types.G1Size])
	off += types.G1Size

	copy(vk.BetaG2[:], data[off:off+types.G2Size])
	off += types.G2Size

	copy(vk.GammaG2[:], data[off:off+types.G2Size])
	off += types.G2Size

	copy(vk.DeltaG2[:], data[off:off+types.G2Size])
	off += types.G2Size

	icCount := binary.LittleEndian.Uint32(data[off : off+4])
	off += 4

	expectedLen := off + int(icCount)*types.G1Size
	if len(data) < expectedLen {
		return nil, ErrInvalidVerificationKey
	}

	vk.IC = make([][types.G1Size]byte, icCount)
	for i := 0; i < int(icCount); i++ {
		copy(vk.IC[i][:], data[off:off+types.G1Size])
		off += types.G1Size
	}

	return vk, nil
}

// InMemoryVKStore is a VKStore backed by a single in-process byte slice.
type InMemoryVKStore struct {
	mu   sync.RWMutex
	data []byte
}

func NewInMemoryVKStore() *InMemoryVKStore {
	return &InMemoryVKStore{}
}

func (s *InMemoryVKStore) LoadBytes(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.data...), nil
}

func (s *InMemoryVKStore) SaveBytes(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	return nil
}
