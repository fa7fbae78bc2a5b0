// Package crypto provides the fixed cryptographic primitives for the Ember
// chain: SHA-256 content digests and RSA signing. Both are used as given,
// black-box primitives; the wire formats depend on their exact output sizes.
package crypto

import (
	"crypto/sha256"

	"github.com/ember-net/ember-chain/pkg/types"
)

// Digest computes the SHA-256 digest of the entire input.
func Digest(data []byte) types.Digest {
	return sha256.Sum256(data)
}

// DigestRange computes the SHA-256 digest of data[start : start+length].
// Transactions and blocks hash and sign specific byte ranges of their wire
// encoding, so the range form is the one the codecs use.
func DigestRange(data []byte, start, length int) types.Digest {
	return sha256.Sum256(data[start : start+length])
}
