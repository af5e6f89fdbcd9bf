package types

import "errors"

// ErrMalformedProof is returned when a wire-format Groth16 proof cannot be
// parsed because it is not exactly 256 bytes.
var ErrMalformedProof = errors.New("types: malformed groth16 proof encoding")
