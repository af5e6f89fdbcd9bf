package zkp

import (
	"context"
	"testing"

	"github.com/shieldpool/core/pkg/types"
)

func leafHash(b byte) types.Hash {
	var h types.Hash
	h[0] = b
	return h
}

func TestCommitmentTreeInsertAssignsSequentialIndices(t *testing.T) {
	ctx := context.Background()
	tree := NewCommitmentTree(NewInMemoryTreeStore(), 4)
	if err := tree.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	for i := uint64(0); i < 3; i++ {
		idx, err := tree.Insert(ctx, leafHash(byte(i+1)))
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if idx != i {
			t.Errorf("expected index %d, got %d", i, idx)
		}
	}

	if tree.LeafCount() != 3 {
		t.Errorf("expected leaf count 3, got %d", tree.LeafCount())
	}
}

func TestCommitmentTreeRootChangesOnInsert(t *testing.T) {
	ctx := context.Background()
	tree := NewCommitmentTree(NewInMemoryTreeStore(), 4)
	if err := tree.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	emptyRoot := tree.Root()
	if _, err := tree.Insert(ctx, leafHash(0x11)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if tree.Root() == emptyRoot {
		t.Error("root should change after insert")
	}
}

func TestCommitmentTreeRejectsWhenFull(t *testing.T) {
	ctx := context.Background()
	tree := NewCommitmentTree(NewInMemoryTreeStore(), 2) // capacity = 4
	if err := tree.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	for i := 0; i < 4; i++ {
		if _, err := tree.Insert(ctx, leafHash(byte(i+1))); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	if _, err := tree.Insert(ctx, leafHash(0xff)); err != ErrTreeFull {
		t.Errorf("expected ErrTreeFull, got %v", err)
	}
}

func TestCommitmentTreeResumesFromStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryTreeStore()

	tree1 := NewCommitmentTree(store, 4)
	if err := tree1.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := tree1.Insert(ctx, leafHash(0x01)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	wantRoot := tree1.Root()

	tree2 := NewCommitmentTree(store, 4)
	if err := tree2.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if tree2.Root() != wantRoot {
		t.Error("resumed tree root does not match persisted root")
	}
	if tree2.LeafCount() != 1 {
		t.Errorf("expected resumed leaf count 1, got %d", tree2.LeafCount())
	}
}

func TestMerkleProofVerify(t *testing.T) {
	ctx := context.Background()
	tree := NewCommitmentTree(NewInMemoryTreeStore(), 3)
	if err := tree.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	leaf := leafHash(0x42)
	if _, err := tree.Insert(ctx, leaf); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Manually build the proof for the single-leaf case: the leaf is the
	// left child of every zero sibling up to the root.
	proof := &MerkleProof{
		Leaf:         leaf,
		PathElements: []types.Hash{tree.zeroSubtrees[0], tree.zeroSubtrees[1], tree.zeroSubtrees[2]},
		PathIndices:  []bool{false, false, false},
	}

	if !proof.Verify(tree.Root()) {
		t.Error("expected proof to verify against current root")
	}
	if proof.Verify(leafHash(0x99)) {
		t.Error("expected proof to fail against an unrelated root")
	}
}
