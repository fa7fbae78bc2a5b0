package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/ember-net/ember-chain/pkg/types"
)

// Fixed key-size constants. The transaction wire format embeds the encoded
// public key and the signature at fixed widths, so these three values must
// change together or not at all.
const (
	// KeyBits is the RSA modulus size.
	KeyBits = 1024

	// PublicKeyBytes is the length of a PKIX (X.509 SubjectPublicKeyInfo)
	// encoded public key for a KeyBits modulus.
	PublicKeyBytes = 162

	// SignatureBytes is the length of a PKCS#1 v1.5 signature for a KeyBits
	// modulus.
	SignatureBytes = 128
)

// PEM block types for key files on disk. The generic labels match the
// encodings used: PKIX for the public key and PKCS#8 for the private key.
const (
	pemPublicKeyType  = "PUBLIC KEY"
	pemPrivateKeyType = "PRIVATE KEY"
)

// Signer produces transaction signatures. It is injected into finalization so
// the signing capability never lives in package-level state.
type Signer interface {
	// Sign produces a SHA-256/PKCS#1 v1.5 signature over data.
	Sign(data []byte) ([]byte, error)
	// EncodedPublicKey returns the PKIX encoding of the public key,
	// exactly PublicKeyBytes long.
	EncodedPublicKey() []byte
}

// PrivateKey wraps an RSA private key for signing.
type PrivateKey struct {
	key *rsa.PrivateKey
}

// GenerateKey creates a new random RSA key pair.
func GenerateKey() (*PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	pk := &PrivateKey{key: key}
	if got := len(pk.EncodedPublicKey()); got != PublicKeyBytes {
		return nil, fmt.Errorf("encoded public key is %d bytes, want %d", got, PublicKeyBytes)
	}
	return pk, nil
}

// Sign produces a SHA-256/PKCS#1 v1.5 signature over data.
func (pk *PrivateKey) Sign(data []byte) ([]byte, error) {
	digest := Digest(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, pk.key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("rsa sign: %w", err)
	}
	if len(sig) != SignatureBytes {
		return nil, fmt.Errorf("signature is %d bytes, want %d", len(sig), SignatureBytes)
	}
	return sig, nil
}

// EncodedPublicKey returns the PKIX encoding of the public key.
func (pk *PrivateKey) EncodedPublicKey() []byte {
	der, err := x509.MarshalPKIXPublicKey(&pk.key.PublicKey)
	if err != nil {
		// MarshalPKIXPublicKey cannot fail for a well-formed rsa.PublicKey.
		panic(fmt.Sprintf("marshal public key: %v", err))
	}
	return der
}

// Address returns the chain address of this key pair's public half.
func (pk *PrivateKey) Address() types.Address {
	return AddressFromPublicKey(pk.EncodedPublicKey())
}

// Verify checks a SHA-256/PKCS#1 v1.5 signature against data and a PKIX
// encoded public key. Returns false on any parse or verification failure.
func Verify(data, signature, publicKey []byte) bool {
	pub, err := parsePublicKey(publicKey)
	if err != nil {
		return false
	}
	digest := Digest(data)
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], signature) == nil
}

// AddressFromPublicKey derives a chain address from a PKIX encoded public
// key: Address = SHA-256(encoded key).
func AddressFromPublicKey(publicKey []byte) types.Address {
	return types.NewAddress(Digest(publicKey))
}

// parsePublicKey decodes a PKIX encoded RSA public key.
func parsePublicKey(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, want *rsa.PublicKey", pub)
	}
	return rsaPub, nil
}

// MarshalPublicPEM encodes the public half of the key in PEM form for
// storage in a key file.
func (pk *PrivateKey) MarshalPublicPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  pemPublicKeyType,
		Bytes: pk.EncodedPublicKey(),
	})
}

// MarshalPrivatePEM encodes the private key in PKCS#8 PEM form.
func (pk *PrivateKey) MarshalPrivatePEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(pk.key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  pemPrivateKeyType,
		Bytes: der,
	}), nil
}

// MarshalPrivateDER encodes the private key as raw PKCS#8 DER. The encrypted
// keystore stores this form inside its ciphertext.
func (pk *PrivateKey) MarshalPrivateDER() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(pk.key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return der, nil
}

// ParsePrivatePEM decodes a PKCS#8 PEM private key.
func ParsePrivatePEM(data []byte) (*PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	return ParsePrivateDER(block.Bytes)
}

// ParsePrivateDER decodes a raw PKCS#8 DER private key.
func ParsePrivateDER(der []byte) (*PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, want *rsa.PrivateKey", key)
	}
	return &PrivateKey{key: rsaKey}, nil
}

// ParsePublicPEM decodes a PKIX PEM public key and returns its encoded form.
func ParsePublicPEM(data []byte) ([]byte, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if _, err := parsePublicKey(block.Bytes); err != nil {
		return nil, err
	}
	return block.Bytes, nil
}
