package zkp

import (
	"context"
	"encoding/binary"
	"testing"
)

func buildVKBytes(icCount int) []byte {
	buf := make([]byte, 0, vkByteLen(icCount))
	buf = append(buf, make([]byte, 64)...)  // alpha_g1
	buf = append(buf, make([]byte, 128)...) // beta_g2
	buf = append(buf, make([]byte, 128)...) // gamma_g2
	buf = append(buf, make([]byte, 128)...) // delta_g2

	countBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(countBytes, uint32(icCount))
	buf = append(buf, countBytes...)

	for i := 0; i < icCount; i++ {
		buf = append(buf, make([]byte, 64)...)
	}
	return buf
}

func vkByteLen(icCount int) int {
	return 64 + 128*3 + 4 + icCount*64
}

func TestParseVerifyingKeyRoundTrips(t *testing.T) {
	data := buildVKBytes(8) // seven public inputs + 1
	vk, err := ParseVerifyingKey(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(vk.IC) != 8 {
		t.Errorf("expected 8 IC entries, got %d", len(vk.IC))
	}
}

func TestParseVerifyingKeyRejectsShortInput(t *testing.T) {
	if _, err := ParseVerifyingKey(make([]byte, 100)); err != ErrInvalidVerificationKey {
		t.Errorf("expected ErrInvalidVerificationKey, got %v", err)
	}
}

func TestParseVerifyingKeyRejectsTruncatedICArray(t *testing.T) {
	data := buildVKBytes(8)
	truncated := data[:len(data)-64] // drop the last IC entry but keep ic_count=8
	if _, err := ParseVerifyingKey(truncated); err != ErrInvalidVerificationKey {
		t.Errorf("expected ErrInvalidVerificationKey, got %v", err)
	}
}

func TestVKDataAccountInitWriteLoad(t *testing.T) {
	ctx := context.Background()
	account := NewVKDataAccount(NewInMemoryVKStore())

	if err := account.Init(ctx, 452); err != nil {
		t.Fatalf("init: %v", err)
	}

	chunk := []byte("hello")
	if err := account.Write(ctx, 10, chunk); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := account.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(data[10:15]) != "hello" {
		t.Errorf("expected written chunk at offset 10, got %q", data[10:15])
	}
}

func TestVKDataAccountRejectsOutOfBoundsWrite(t *testing.T) {
	ctx := context.Background()
	account := NewVKDataAccount(NewInMemoryVKStore())
	if err := account.Init(ctx, 452); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := account.Write(ctx, 450, []byte("too long")); err != ErrInvalidVerificationKey {
		t.Errorf("expected ErrInvalidVerificationKey, got %v", err)
	}
}

func TestVKDataAccountRejectsSizeOutsideBounds(t *testing.T) {
	ctx := context.Background()
	account := NewVKDataAccount(NewInMemoryVKStore())
	if err := account.Init(ctx, MinVKSize-1); err != ErrInvalidVerificationKey {
		t.Errorf("expected ErrInvalidVerificationKey for undersized account, got %v", err)
	}
	if err := account.Init(ctx, MaxVKSize+1); err != ErrInvalidVerificationKey {
		t.Errorf("expected ErrInvalidVerificationKey for oversized account, got %v", err)
	}
}

func TestVKDataAccountContentHashMatchesHashVerificationKey(t *testing.T) {
	ctx := context.Background()
	account := NewVKDataAccount(NewInMemoryVKStore())
	data := buildVKBytes(8)
	if err := account.Init(ctx, len(data)); err != nil {
		t.Fatalf("init: %v", err)
	}
	for off := 0; off < len(data); off += MaxVKChunkSize {
		end := off + MaxVKChunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := account.Write(ctx, off, data[off:end]); err != nil {
			t.Fatalf("write at offset %d: %v", off, err)
		}
	}

	hash, err := account.ContentHash(ctx)
	if err != nil {
		t.Fatalf("content hash: %v", err)
	}
	if hash != HashVerificationKey(data) {
		t.Error("account content hash should match the standalone hash of the same bytes")
	}
}
