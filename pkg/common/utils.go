// Package common provides shared hex and timestamp helpers used by the
// daemon entrypoint and the pool engine.
package common

import (
	"encoding/hex"
	"time"
)

// HexToBytes converts a hex string to bytes, tolerating an optional 0x/0X
// prefix.
func HexToBytes(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return hex.DecodeString(s)
}

// BytesToHex converts bytes to a 0x-prefixed hex string.
func BytesToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// Now returns the current Unix timestamp, the clock every pool-state
// mutation stamps LastActivityAt/CreatedAt with.
func Now() int64 {
	return time.Now().Unix()
}
