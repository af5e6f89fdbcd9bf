// Package types defines the core data structures of the shielded pool:
// hashes, assets, commitments, proofs and the events the pool emits.
package types

import (
	"encoding/hex"
	"encoding/json"
)

const (
	// HashSize is the size of a commitment, nullifier or root in bytes.
	HashSize = 32

	// AddressSize is the size of a submitter/relayer address in bytes.
	AddressSize = 32

	// G1Size is the size of an uncompressed affine BN254 G1 point.
	G1Size = 64

	// G2Size is the size of an uncompressed affine BN254 G2 point.
	G2Size = 128
)

// Hash is a 32-byte value: a commitment, a nullifier or a Merkle root.
type Hash [HashSize]byte

// EmptyHash is the zero hash, used as the unset-commitment sentinel.
var EmptyHash = Hash{}

func (h Hash) IsZero() bool { return h == EmptyHash }

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }

// HashFromBytes builds a Hash from a byte slice, truncating or zero-padding
// on the right as needed.
func HashFromBytes(b []byte) Hash {
	var h Hash
	n := len(b)
	if n > HashSize {
		n = HashSize
	}
	copy(h[:n], b[:n])
	return h
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*h = HashFromBytes(b)
	return nil
}

// Address identifies a pool authority, depositor, recipient or relayer.
type Address [AddressSize]byte

var EmptyAddress = Address{}

func (a Address) IsZero() bool { return a == EmptyAddress }

func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	var out Address
	n := len(b)
	if n > AddressSize {
		n = AddressSize
	}
	copy(out[:n], b[:n])
	*a = out
	return nil
}

// AssetID identifies the value an operation moves. The zero value is the
// reserved sentinel denoting the pool's native asset.
type AssetID Hash

func (a AssetID) IsNative() bool { return Hash(a).IsZero() }

func (a AssetID) Bytes() []byte { return a[:] }

// GrothProof is the wire form of a Groth16 proof: A‖B‖C, 256 bytes total.
type GrothProof struct {
	A [G1Size]byte
	B [G2Size]byte
	C [G1Size]byte
}

// Bytes serialises the proof to its 256-byte wire encoding.
func (p *GrothProof) Bytes() []byte {
	out := make([]byte, 0, G1Size+G2Size+G1Size)
	out = append(out, p.A[:]...)
	out = append(out, p.B[:]...)
	out = append(out, p.C[:]...)
	return out
}

// GrothProofFromBytes parses the 256-byte wire encoding of a proof.
func GrothProofFromBytes(b []byte) (*GrothProof, error) {
	if len(b) != G1Size+G2Size+G1Size {
		return nil, ErrMalformedProof
	}
	p := &GrothProof{}
	copy(p.A[:], b[0:64])
	copy(p.B[:], b[64:192])
	copy(p.C[:], b[192:256])
	return p, nil
}

// OpKind names which pool operation produced an event.
type OpKind uint8

const (
	OpInitializePool OpKind = iota
	OpShield
	OpTransfer
	OpUnshield
	OpTransferViaRelayer
	OpUpdateVerificationKey
)

func (k OpKind) String() string {
	switch k {
	case OpInitializePool:
		return "initialize_pool"
	case OpShield:
		return "shield"
	case OpTransfer:
		return "transfer"
	case OpUnshield:
		return "unshield"
	case OpTransferViaRelayer:
		return "transfer_via_relayer"
	case OpUpdateVerificationKey:
		return "update_verification_key"
	default:
		return "unknown"
	}
}

// Event is the single record every value-flow operation emits after all
// state mutations have succeeded. Consumers (indexers, note scanners)
// reconstruct their view from the event stream rather than polling state.
type Event struct {
	Kind        OpKind
	PoolID      Hash
	Nullifiers  []Hash
	Commitments []LeafCommitment
	NewRoot     Hash
	Amount      int64 // signed: positive on shield, negative on unshield, 0 otherwise
	Submitter   Address
	Timestamp   int64
}

// LeafCommitment pairs a commitment with the leaf index it was inserted at.
type LeafCommitment struct {
	Commitment Hash
	LeafIndex  uint64
}
