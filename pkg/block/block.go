// Package block defines blocks, their binary encoding, sealing, and the
// legality and validation checks.
package block

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ember-net/ember-chain/pkg/crypto"
	"github.com/ember-net/ember-chain/pkg/params"
	"github.com/ember-net/ember-chain/pkg/types"
)

// Wire layout. All integers are big endian. The header digest covers the
// header fields after itself, bytes [32:110]; the transaction list digest
// covers the digest list, bytes [110:].
//
//	[0:32]    header digest
//	[32:36]   height
//	[36:68]   previous block digest
//	[68:76]   nonce
//	[76:78]   transaction count
//	[78:110]  transaction list digest
//	[110:]    transaction digests, 32 bytes each
const (
	digestOffset     = 0
	heightOffset     = types.DigestSize
	prevOffset       = heightOffset + 4
	nonceOffset      = prevOffset + types.DigestSize
	countOffset      = nonceOffset + 8
	listDigestOffset = countOffset + 2

	// HeaderSize is the encoded size of the header alone.
	HeaderSize = listDigestOffset + types.DigestSize

	// MaxTransactions follows from the signed 16-bit count on the wire.
	MaxTransactions = 32767

	// minWireSize is a header plus the mandatory coinbase digest.
	minWireSize = HeaderSize + types.DigestSize
)

// Decode errors.
var (
	ErrTruncated        = errors.New("block bytes truncated")
	ErrLengthMismatch   = errors.New("block length does not match transaction count")
	ErrTooManyTxs       = errors.New("too many transactions")
	ErrNotSealed        = errors.New("block not sealed")
	ErrAlreadyAssembled = errors.New("block already assembled")
)

// Block is a group of transactions mined together. The first transaction is
// always the coinbase. A block under construction accepts transactions until
// the first Seal; after that only the nonce and header digest change.
type Block struct {
	params *params.Params

	raw    []byte
	status types.Status
	reason string

	digest     types.Digest
	height     int32
	prev       types.Digest
	nonce      int64
	listDigest types.Digest
	txDigests  []types.Digest
}

// New starts a block at the given height on top of prev. The genesis block
// uses height 0 and a zero previous digest.
func New(p *params.Params, height int32, prev types.Digest) *Block {
	return &Block{
		params: p,
		height: height,
		prev:   prev,
	}
}

// AddTransaction appends a transaction digest. The coinbase must be added
// first.
func (b *Block) AddTransaction(d types.Digest) error {
	if b.raw != nil {
		return ErrAlreadyAssembled
	}
	if len(b.txDigests) >= MaxTransactions {
		return ErrTooManyTxs
	}
	b.txDigests = append(b.txDigests, d)
	return nil
}

// Seal writes the nonce into the block, recomputes the header digest, and
// returns it. Mining calls Seal repeatedly with candidate nonces until the
// digest meets the difficulty target.
func (b *Block) Seal(nonce int64) types.Digest {
	if b.raw == nil {
		b.assemble()
	}
	b.nonce = nonce
	binary.BigEndian.PutUint64(b.raw[nonceOffset:], uint64(nonce))
	b.digest = crypto.DigestRange(b.raw, types.DigestSize, HeaderSize-types.DigestSize)
	copy(b.raw[digestOffset:], b.digest[:])
	return b.digest
}

// assemble lays out every field except the nonce and header digest.
func (b *Block) assemble() {
	raw := make([]byte, HeaderSize+len(b.txDigests)*types.DigestSize)
	binary.BigEndian.PutUint32(raw[heightOffset:], uint32(b.height))
	copy(raw[prevOffset:], b.prev[:])
	binary.BigEndian.PutUint16(raw[countOffset:], uint16(len(b.txDigests)))

	off := HeaderSize
	for _, d := range b.txDigests {
		copy(raw[off:], d[:])
		off += types.DigestSize
	}

	b.listDigest = crypto.DigestRange(raw, HeaderSize, len(raw)-HeaderSize)
	copy(raw[listDigestOffset:], b.listDigest[:])
	b.raw = raw
}

// Clone returns an independent copy of the block. Parallel mining gives
// each worker its own copy so Seal calls never race.
func (b *Block) Clone() *Block {
	c := *b
	if b.raw != nil {
		c.raw = make([]byte, len(b.raw))
		copy(c.raw, b.raw)
	}
	c.txDigests = make([]types.Digest, len(b.txDigests))
	copy(c.txDigests, b.txDigests)
	return &c
}

// Decode parses a wire-encoded block. Decode only enforces a readable byte
// layout; semantic legality, the header digest included, is decided by
// CheckStructure.
func Decode(p *params.Params, data []byte) (*Block, error) {
	if len(data) < minWireSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	numTx := int(int16(binary.BigEndian.Uint16(data[countOffset:])))
	if numTx < 1 {
		return nil, fmt.Errorf("%w: count %d", ErrLengthMismatch, numTx)
	}
	if len(data) != HeaderSize+numTx*types.DigestSize {
		return nil, fmt.Errorf("%w: %d bytes for %d transactions", ErrLengthMismatch, len(data), numTx)
	}

	raw := make([]byte, len(data))
	copy(raw, data)

	b := &Block{
		params:    p,
		raw:       raw,
		height:    int32(binary.BigEndian.Uint32(raw[heightOffset:])),
		nonce:     int64(binary.BigEndian.Uint64(raw[nonceOffset:])),
		txDigests: make([]types.Digest, numTx),
	}
	copy(b.digest[:], raw[digestOffset:])
	copy(b.prev[:], raw[prevOffset:])
	copy(b.listDigest[:], raw[listDigestOffset:])
	for i := 0; i < numTx; i++ {
		copy(b.txDigests[i][:], raw[HeaderSize+i*types.DigestSize:])
	}
	return b, nil
}

// Encode returns a copy of the wire encoding. The block must be sealed or
// decoded.
func (b *Block) Encode() ([]byte, error) {
	if b.raw == nil || b.digest.IsZero() {
		return nil, ErrNotSealed
	}
	out := make([]byte, len(b.raw))
	copy(out, b.raw)
	return out, nil
}

// Digest returns the block header digest.
func (b *Block) Digest() types.Digest {
	return b.digest
}

// Height returns the block height.
func (b *Block) Height() int32 {
	return b.height
}

// PreviousDigest returns the digest of the parent block.
func (b *Block) PreviousDigest() types.Digest {
	return b.prev
}

// Nonce returns the mining nonce.
func (b *Block) Nonce() int64 {
	return b.nonce
}

// TransactionDigests returns the digests of the block's transactions, the
// coinbase first.
func (b *Block) TransactionDigests() []types.Digest {
	return b.txDigests
}

// Status returns the current validation status.
func (b *Block) Status() types.Status {
	return b.status
}

// Reason returns the explanation recorded with an Illegal or Invalid
// verdict, or an empty string.
func (b *Block) Reason() string {
	return b.reason
}

// ResetStatus drops a revocable contextual verdict back to Legal so the
// block can be re-validated against a different fork. Unknown and Illegal
// are unaffected.
func (b *Block) ResetStatus() {
	if b.status == types.StatusValid || b.status == types.StatusInvalid {
		b.status = types.StatusLegal
		b.reason = ""
	}
}

// Size returns the encoded length in bytes.
func (b *Block) Size() int {
	return len(b.raw)
}

// String returns a short description for logs.
func (b *Block) String() string {
	return fmt.Sprintf("block %s height=%d txs=%d", b.digest.Hex()[:12], b.height, len(b.txDigests))
}
