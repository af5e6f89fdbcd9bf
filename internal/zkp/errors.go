package zkp

import "errors"

// Error taxonomy (§7), one sentinel per surfaced failure. Every operation
// aborts on the first of these it hits; none are retried inside the
// engine and none leave partial state.
var (
	// Authorisation
	ErrUnauthorized = errors.New("zkp: unauthorized")

	// State
	ErrPoolNotActive   = errors.New("zkp: pool is not active")
	ErrInvalidRoot     = errors.New("zkp: merkle root outside acceptance window")
	ErrTreeFull        = errors.New("zkp: merkle tree is full")

	// Replay
	ErrNullifierAlreadySpent = errors.New("zkp: nullifier already spent")

	// Proof
	ErrInvalidProof           = errors.New("zkp: invalid groth16 proof")
	ErrInvalidVerificationKey = errors.New("zkp: invalid or mismatched verification key")
	ErrInvalidPublicInputs    = errors.New("zkp: invalid public input count")

	// Value
	ErrInvalidAmount         = errors.New("zkp: amount must be non-zero")
	ErrInsufficientBalance   = errors.New("zkp: insufficient balance")
	ErrInsufficientPoolBalance = errors.New("zkp: insufficient pool balance")
	ErrArithmeticOverflow    = errors.New("zkp: arithmetic overflow")

	// Asset
	ErrTokenMintMismatch = errors.New("zkp: token mint mismatch")
	ErrInvalidTokenOwner = errors.New("zkp: invalid token account owner")
	ErrMissingTokenLeg   = errors.New("zkp: missing token account for non-native asset")

	// Boundary
	ErrRelayerFeeExceedsMax = errors.New("zkp: relayer fee exceeds pool maximum")
	ErrInvalidCommitment    = errors.New("zkp: invalid commitment")

	// Structural (not named directly in §7; returned by NullifierBatch.Add
	// when a batch is full)
	ErrInvalidPosition = errors.New("zkp: invalid leaf position")
)
