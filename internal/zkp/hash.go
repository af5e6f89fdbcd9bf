package zkp

import (
	mimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"golang.org/x/crypto/sha3"

	"github.com/shieldpool/core/pkg/types"
)

// hashPair is the tree's algebraic two-input hash (§4.1, §9): a single
// SNARK-friendly hash family used uniformly for the accumulator and for
// note-commitment/nullifier derivation, so the same equality can be
// asserted inside a proving circuit. MiMC over the BN254 scalar field is
// the concrete choice, matching the hash gnark circuits use natively for
// Merkle proofs (see std/hash/mimc, std/accumulator/merkle upstream).
func hashPair(left, right types.Hash) types.Hash {
	h := mimc.NewMiMC()
	h.Write(left[:])
	h.Write(right[:])
	return types.HashFromBytes(h.Sum(nil))
}

// hashFields mixes an arbitrary number of 32-byte fields with the same
// algebraic hash. The engine receives commitments and nullifiers as opaque
// 32-byte values and derives none itself, so nothing in this repository
// calls it.
func hashFields(fields ...[]byte) types.Hash {
	h := mimc.NewMiMC()
	for _, f := range fields {
		h.Write(f)
	}
	return types.HashFromBytes(h.Sum(nil))
}

// keccak256 is Keccak-256 (not SHA3-256: no NIST padding byte), used only
// where the spec explicitly calls for it: VK content-addressing (§4.3) and
// the nullifier bloom filter's double-hashing construction (§4.2). Never
// used for data a proving circuit asserts equality over.
func keccak256(data ...[]byte) types.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return types.HashFromBytes(h.Sum(nil))
}
