package zkp

import (
	"encoding/binary"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/shieldpool/core/pkg/types"
)

// PublicInputs is the seven-field layout the verifier checks against a
// proof (§4.4), in this fixed order.
type PublicInputs struct {
	MerkleRoot        types.Hash
	Nullifier1        types.Hash
	Nullifier2        types.Hash
	OutputCommitment1 types.Hash
	OutputCommitment2 types.Hash
	PublicAmount      int64 // +shield, -unshield, 0 internal/relayer transfer
	AssetID           types.AssetID
}

// reverseBytes32 flips byte order. scalars uses it exactly once per field
// on the way in (caller-supplied little-endian -> big-endian scalar)
// because the spec calls this out as the single most bug-prone step in the
// verifier; encodeAmountLE also uses it to turn a negative amount's
// big-endian field value into the little-endian wire form.
func reverseBytes32(b [32]byte) [32]byte {
	var out [32]byte
	for i := 0; i < 32; i++ {
		out[i] = b[31-i]
	}
	return out
}

// encodeAmountLE implements the signed public-amount encoding (§4.4):
// non-negative values occupy the low 8 bytes of the 32-byte little-endian
// form; negative values are r - |x| in the BN254 scalar field, so that
// field arithmetic absorbs the sign. This is the canonical encoding; the
// repo's other encoding (byte 31 = 0xFF sentinel) is leftover test code
// and is intentionally not reproduced here.
func encodeAmountLE(amount int64) [32]byte {
	var le [32]byte
	if amount >= 0 {
		binary.LittleEndian.PutUint64(le[0:8], uint64(amount))
		return le
	}

	r := fr.Modulus()
	abs := new(big.Int).Neg(big.NewInt(amount))
	val := new(big.Int).Sub(r, abs)

	var be [32]byte
	valBytes := val.Bytes()
	copy(be[32-len(valBytes):], valBytes)
	return reverseBytes32(be)
}

// scalars converts the seven public inputs to the big.Int scalars used in
// the IC linear combination, reversing each from the caller's
// little-endian wire form to the big-endian form field arithmetic expects.
func (pi *PublicInputs) scalars() [7]*big.Int {
	le := [7][32]byte{
		pi.MerkleRoot,
		pi.Nullifier1,
		pi.Nullifier2,
		pi.OutputCommitment1,
		pi.OutputCommitment2,
		encodeAmountLE(pi.PublicAmount),
		[32]byte(pi.AssetID),
	}

	var out [7]*big.Int
	for i, f := range le {
		be := reverseBytes32(f)
		out[i] = new(big.Int).SetBytes(be[:])
	}
	return out
}

// Verifier verifies Groth16/BN254 proofs against a parsed verification
// key, reusing the parsed curve points across calls (§9: PreparedVerifyingKey).
type Verifier struct {
	vk *VerifyingKey

	alpha bn254.G1Affine
	beta  bn254.G2Affine
	gamma bn254.G2Affine
	delta bn254.G2Affine
	ic    []bn254.G1Affine
}

// NewVerifier parses the flat VK bytes once and prepares the curve points
// used by every subsequent Verify call against this key.
func NewVerifier(vkBytes []byte) (*Verifier, error) {
	vk, err := ParseVerifyingKey(vkBytes)
	if err != nil {
		return nil, err
	}

	v := &Verifier{vk: vk, ic: make([]bn254.G1Affine, len(vk.IC))}

	if err := v.alpha.Unmarshal(vk.AlphaG1[:]); err != nil {
		return nil, ErrInvalidVerificationKey
	}
	if err := v.beta.Unmarshal(vk.BetaG2[:]); err != nil {
		return nil, ErrInvalidVerificationKey
	}
	if err := v.gamma.Unmarshal(vk.GammaG2[:]); err != nil {
		return nil, ErrInvalidVerificationKey
	}
	if err := v.delta.Unmarshal(vk.DeltaG2[:]); err != nil {
		return nil, ErrInvalidVerificationKey
	}
	for i := range vk.IC {
		if err := v.ic[i].Unmarshal(vk.IC[i][:]); err != nil {
			return nil, ErrInvalidVerificationKey
		}
	}

	return v, nil
}

// Verify checks e(-A, B) . e(alpha, beta) . e(IC_sum, gamma) . e(C, delta) = 1
// where IC_sum = IC[0] + sum_i x_i * IC[i+1] (§4.4).
func (v *Verifier) Verify(proof *types.GrothProof, pub *PublicInputs) (bool, error) {
	scalars := pub.scalars()

	if len(v.ic) != len(scalars)+1 {
		return false, ErrInvalidPublicInputs
	}

	var a, c bn254.G1Affine
	var b bn254.G2Affine
	if err := a.Unmarshal(proof.A[:]); err != nil {
		return false, ErrInvalidProof
	}
	if err := b.Unmarshal(proof.B[:]); err != nil {
		return false, ErrInvalidProof
	}
	if err := c.Unmarshal(proof.C[:]); err != nil {
		return false, ErrInvalidProof
	}

	// -A = (A.x, q - A.y); leave unchanged when A is the point at infinity.
	var negA bn254.G1Affine
	negA.Neg(&a)

	icSum := v.ic[0]
	for i, x := range scalars {
		var term bn254.G1Affine
		term.ScalarMultiplication(&v.ic[i+1], x)
		icSum.Add(&icSum, &term)
	}

	ok, err := bn254.PairingCheck(
		[]bn254.G1Affine{negA, v.alpha, icSum, c},
		[]bn254.G2Affine{b, v.beta, v.gamma, v.delta},
	)
	if err != nil {
		return false, ErrInvalidProof
	}
	return ok, nil
}

// HashVerificationKey returns the Keccak-256 content hash of raw VK bytes,
// the value pinned as pool.vk_hash (§4.3).
func HashVerificationKey(vkBytes []byte) types.Hash {
	return keccak256(vkBytes)
}
