// Package types defines core primitive types for the Ember chain.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// DigestSize is the length of a content digest in bytes.
const DigestSize = 32

// ErrInvalidLength is returned when constructing a digest or address from
// material of the wrong size.
var ErrInvalidLength = fmt.Errorf("invalid length")

// Digest represents a 256-bit SHA-256 content hash. All identity in the
// system (transactions, blocks, addresses) is built on it.
type Digest [DigestSize]byte

// IsZero returns true if the digest is all zeros.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Bytes returns a copy of the digest as a byte slice.
func (d Digest) Bytes() []byte {
	b := make([]byte, DigestSize)
	copy(b, d[:])
	return b
}

// Hex returns the digest as 64 uppercase hex digits. The uppercase form is
// load-bearing: proof-of-work difficulty targets are compared against it
// lexicographically.
func (d Digest) Hex() string {
	return strings.ToUpper(hex.EncodeToString(d[:]))
}

// String returns the hex-encoded digest.
func (d Digest) String() string {
	return d.Hex()
}

// MarshalJSON encodes the digest as a hex string.
func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Hex())
}

// UnmarshalJSON decodes a hex string into a digest.
func (d *Digest) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Digest{}
		return nil
	}
	parsed, err := DigestFromHex(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DigestFromBytes constructs a Digest from exactly 32 bytes.
func DigestFromBytes(b []byte) (Digest, error) {
	if len(b) != DigestSize {
		return Digest{}, fmt.Errorf("%w: digest must be %d bytes, got %d", ErrInvalidLength, DigestSize, len(b))
	}
	var d Digest
	copy(d[:], b)
	return d, nil
}

// DigestFromHex constructs a Digest from exactly 64 hex digits.
// Both upper and lower case input are accepted.
func DigestFromHex(s string) (Digest, error) {
	if len(s) != DigestSize*2 {
		return Digest{}, fmt.Errorf("%w: digest must be %d hex digits, got %d", ErrInvalidLength, DigestSize*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, fmt.Errorf("invalid hex: %w", err)
	}
	var d Digest
	copy(d[:], b)
	return d, nil
}
