package zkp

import (
	"context"
	"testing"

	"github.com/shieldpool/core/pkg/types"
)

func newTestEngine(t *testing.T, depth int) (*Engine, *InMemoryTokenLedger, types.Address, types.AssetID) {
	t.Helper()

	ctx := context.Background()
	poolID := leafHash(0xaa)
	authority := types.Address{0x01}
	asset := types.AssetID{} // native asset sentinel
	vkHash := leafHash(0xbb)

	tree := NewCommitmentTree(NewInMemoryTreeStore(), depth)
	nulls := NewNullifierSet(NewInMemoryNullifierStore())
	vk := NewVKDataAccount(NewInMemoryVKStore())
	tokens := NewInMemoryTokenLedger()

	engine := NewEngine(poolID, NewInMemoryPoolStore(), tree, nulls, vk, tokens, nil)
	if err := engine.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := engine.InitializePool(ctx, authority, asset, vkHash, depth, types.Address{0x02}, 0); err != nil {
		t.Fatalf("initialize pool: %v", err)
	}
	return engine, tokens, authority, asset
}

// Scenario 1: shield 1,000,000 units into an empty tree.
func TestScenarioShieldIntoEmptyTree(t *testing.T) {
	ctx := context.Background()
	engine, tokens, _, asset := newTestEngine(t, 4)

	depositor := types.Address{0x10}
	tokens.Fund(asset, depositor, 1_000_000)

	ev, err := engine.Shield(ctx, ShieldRequest{
		Submitter:  depositor,
		Amount:     1_000_000,
		Commitment: leafHash(0x11),
	})
	if err != nil {
		t.Fatalf("shield: %v", err)
	}

	if len(ev.Commitments) != 1 || ev.Commitments[0].LeafIndex != 0 {
		t.Errorf("expected single commitment at leaf index 0, got %+v", ev.Commitments)
	}

	state := engine.State()
	if state.TotalShielded != 1_000_000 {
		t.Errorf("expected total_shielded = 1,000,000, got %d", state.TotalShielded)
	}
	if state.NextLeafIndex != 1 {
		t.Errorf("expected next_leaf_index = 1, got %d", state.NextLeafIndex)
	}
	if len(state.HistoricalRoots) != 1 {
		t.Errorf("expected one archived (empty-tree) historical root, got %d", len(state.HistoricalRoots))
	}
}

func TestShieldRejectsZeroAmount(t *testing.T) {
	ctx := context.Background()
	engine, _, _, _ := newTestEngine(t, 4)

	if _, err := engine.Shield(ctx, ShieldRequest{Submitter: types.Address{0x10}, Amount: 0, Commitment: leafHash(0x11)}); err != ErrInvalidAmount {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestShieldRejectsInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	engine, _, _, _ := newTestEngine(t, 4)

	if _, err := engine.Shield(ctx, ShieldRequest{Submitter: types.Address{0x10}, Amount: 5, Commitment: leafHash(0x11)}); err != ErrInsufficientBalance {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
}

// Scenario 4 (partial): a root older than the historical window is
// rejected. Drives 101 real shields and inspects the window through
// State() rather than submitting a proof-carrying op against the stale
// root, since Transfer/Unshield also require a passing proof verification
// this test does not attempt to construct.
func TestHistoricalRootWindowEvictsOldestEntry(t *testing.T) {
	ctx := context.Background()
	engine, tokens, _, asset := newTestEngine(t, 20)
	depositor := types.Address{0x10}
	tokens.Fund(asset, depositor, uint64(HistoricalRootWindow+1))

	var firstRoot types.Hash
	for i := 0; i < HistoricalRootWindow+1; i++ {
		ev, err := engine.Shield(ctx, ShieldRequest{
			Submitter:  depositor,
			Amount:     1,
			Commitment: leafHash(byte(i + 1)),
		})
		if err != nil {
			t.Fatalf("shield %d: %v", i, err)
		}
		if i == 0 {
			firstRoot = ev.NewRoot
		}
	}

	state := engine.State()
	if len(state.HistoricalRoots) != HistoricalRootWindow {
		t.Errorf("expected historical root window capped at %d, got %d", HistoricalRootWindow, len(state.HistoricalRoots))
	}
	for _, r := range state.HistoricalRoots {
		if r == firstRoot {
			t.Error("expected the oldest root to have been evicted from the window")
		}
	}
}

// Scenario 3: a double-spend attempt is rejected before proof verification
// ever runs (the nullifier check is the first gate after the root check).
func TestTransferRejectsAlreadySpentNullifier(t *testing.T) {
	ctx := context.Background()
	engine, _, _, _ := newTestEngine(t, 4)

	n1, n2 := leafHash(0x01), leafHash(0x02)
	if err := engine.nulls.Add(ctx, n1); err != nil {
		t.Fatalf("seed spent nullifier: %v", err)
	}

	root := engine.State().MerkleRoot
	_, err := engine.Transfer(ctx, TransferRequest{
		Root:       root,
		Nullifier1: n1,
		Nullifier2: n2,
	})
	if err != ErrNullifierAlreadySpent {
		t.Errorf("expected ErrNullifierAlreadySpent, got %v", err)
	}
}

// Scenario 4: a stale root is rejected.
func TestTransferRejectsStaleRoot(t *testing.T) {
	ctx := context.Background()
	engine, _, _, _ := newTestEngine(t, 4)

	_, err := engine.Transfer(ctx, TransferRequest{
		Root:       leafHash(0xde),
		Nullifier1: leafHash(0x01),
		Nullifier2: leafHash(0x02),
	})
	if err != ErrInvalidRoot {
		t.Errorf("expected ErrInvalidRoot, got %v", err)
	}
}

// Scenario 5: a proof's VK hash no longer matches pool.vk_hash after
// rotation (the account bytes were never uploaded to match the new hash).
func TestTransferRejectsAfterVKRotationWithoutMatchingUpload(t *testing.T) {
	ctx := context.Background()
	engine, _, authority, _ := newTestEngine(t, 4)

	if err := engine.UpdateVerificationKey(ctx, authority, leafHash(0xcc)); err != nil {
		t.Fatalf("rotate vk: %v", err)
	}

	root := engine.State().MerkleRoot
	_, err := engine.Transfer(ctx, TransferRequest{
		Root:       root,
		Nullifier1: leafHash(0x01),
		Nullifier2: leafHash(0x02),
	})
	if err != ErrInvalidVerificationKey {
		t.Errorf("expected ErrInvalidVerificationKey, got %v", err)
	}
}

func TestUpdateVerificationKeyRejectsNonAuthority(t *testing.T) {
	ctx := context.Background()
	engine, _, _, _ := newTestEngine(t, 4)

	if err := engine.UpdateVerificationKey(ctx, types.Address{0x99}, leafHash(0xcc)); err != ErrUnauthorized {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

// Scenario 6: a relayer-transfer submitted by anyone but the configured
// relayer is rejected before proof verification.
func TestTransferViaRelayerRejectsNonRelayer(t *testing.T) {
	ctx := context.Background()
	engine, _, _, _ := newTestEngine(t, 4)

	root := engine.State().MerkleRoot
	_, err := engine.TransferViaRelayer(ctx, TransferViaRelayerRequest{
		Submitter:  types.Address{0xff}, // not pool.relayer
		Root:       root,
		Nullifier1: leafHash(0x01),
		Nullifier2: leafHash(0x02),
	})
	if err != ErrUnauthorized {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUnshieldRejectsWhenPoolBalanceInsufficient(t *testing.T) {
	ctx := context.Background()
	engine, _, _, _ := newTestEngine(t, 4)

	root := engine.State().MerkleRoot
	_, err := engine.Unshield(ctx, UnshieldRequest{
		Root:       root,
		Amount:     1,
		Nullifier1: leafHash(0x01),
		Nullifier2: leafHash(0x02),
	})
	if err != ErrInsufficientPoolBalance {
		t.Errorf("expected ErrInsufficientPoolBalance, got %v", err)
	}
}

func TestUnshieldRejectsZeroAmount(t *testing.T) {
	ctx := context.Background()
	engine, _, _, _ := newTestEngine(t, 4)

	root := engine.State().MerkleRoot
	_, err := engine.Unshield(ctx, UnshieldRequest{
		Root:       root,
		Amount:     0,
		Nullifier1: leafHash(0x01),
		Nullifier2: leafHash(0x02),
	})
	if err != ErrInvalidAmount {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestOperationsRejectWhenPoolNotActive(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(
		leafHash(0x01),
		NewInMemoryPoolStore(),
		NewCommitmentTree(NewInMemoryTreeStore(), 4),
		NewNullifierSet(NewInMemoryNullifierStore()),
		NewVKDataAccount(NewInMemoryVKStore()),
		NewInMemoryTokenLedger(),
		nil,
	)
	if err := engine.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if _, err := engine.Shield(ctx, ShieldRequest{Amount: 1, Commitment: leafHash(0x01)}); err != ErrPoolNotActive {
		t.Errorf("expected ErrPoolNotActive before initialize_pool, got %v", err)
	}
}
