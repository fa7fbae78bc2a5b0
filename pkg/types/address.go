package types

// Address identifies the sender or recipient of coins. It is the SHA-256
// digest of an encoded public key. Addresses are derived values: the system
// never stores one independently of the key material it came from.
type Address struct {
	digest Digest
}

// NewAddress wraps the digest of an encoded public key.
func NewAddress(d Digest) Address {
	return Address{digest: d}
}

// AddressFromBytes constructs an Address from a 32-byte public key digest.
func AddressFromBytes(b []byte) (Address, error) {
	d, err := DigestFromBytes(b)
	if err != nil {
		return Address{}, err
	}
	return Address{digest: d}, nil
}

// AddressFromHex constructs an Address from 64 hex digits.
func AddressFromHex(s string) (Address, error) {
	d, err := DigestFromHex(s)
	if err != nil {
		return Address{}, err
	}
	return Address{digest: d}, nil
}

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a.digest.IsZero()
}

// Digest returns the underlying public key digest.
func (a Address) Digest() Digest {
	return a.digest
}

// Bytes returns a copy of the address as a byte slice.
func (a Address) Bytes() []byte {
	return a.digest.Bytes()
}

// Hex returns the address as 64 uppercase hex digits.
func (a Address) Hex() string {
	return a.digest.Hex()
}

// String returns the hex-encoded address.
func (a Address) String() string {
	return a.digest.Hex()
}

// MarshalJSON encodes the address as a hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return a.digest.MarshalJSON()
}

// UnmarshalJSON decodes a hex string into an address.
func (a *Address) UnmarshalJSON(data []byte) error {
	return a.digest.UnmarshalJSON(data)
}
