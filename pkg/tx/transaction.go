// Package tx defines transactions, their fixed binary encoding, and the
// two-phase legality and validation checks.
package tx

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ember-net/ember-chain/pkg/crypto"
	"github.com/ember-net/ember-chain/pkg/params"
	"github.com/ember-net/ember-chain/pkg/types"
)

// Wire layout. All integers are big endian. The signature covers the payload
// region, everything from payloadOffset to the end; the digest covers
// everything after itself, public key and signature included.
//
//	[0:32]    digest
//	[32:194]  encoded public key
//	[194:322] signature
//	[322:326] coinbase height, -1 for regular transactions
//	[326]     input count
//	[327]     output count
//	...       inputs, 41 bytes each: source digest(32) | output index(1) | amount(8)
//	...       outputs, 41 bytes each: index(1) | amount(8) | destination(32)
//	[-8:]     fee
const (
	digestOffset    = 0
	publicKeyOffset = types.DigestSize
	signatureOffset = publicKeyOffset + crypto.PublicKeyBytes
	payloadOffset   = signatureOffset + crypto.SignatureBytes
	heightOffset    = payloadOffset
	countsOffset    = heightOffset + 4
	entriesOffset   = countsOffset + 2

	inputWireSize  = types.DigestSize + 1 + 8
	outputWireSize = 1 + 8 + types.DigestSize
	feeWireSize    = 8

	// MaxInputs and MaxOutputs follow from the single-byte counts in the
	// wire format.
	MaxInputs  = 255
	MaxOutputs = 255
)

// Decode errors.
var (
	ErrTruncated      = errors.New("transaction bytes truncated")
	ErrLengthMismatch = errors.New("transaction length does not match entry counts")
	ErrNotFinalized   = errors.New("transaction not finalized")
)

// Input spends one output of an earlier transaction. Amount repeats the
// amount of the referenced output so a transaction is checkable for
// conservation without any chain context.
type Input struct {
	SourceDigest types.Digest
	OutputIndex  byte
	Amount       int64
}

// Outpoint returns the coordinates of the output this input spends.
func (in Input) Outpoint() types.Outpoint {
	return types.Outpoint{TxDigest: in.SourceDigest, Index: in.OutputIndex}
}

// Output grants an amount to a destination address.
type Output struct {
	Index       byte
	Amount      int64
	Destination types.Address
}

// Transaction is a transfer of coins, either a regular spend or a coinbase
// reward. Once finalized or decoded it carries its full wire encoding and is
// immutable apart from its validation status.
type Transaction struct {
	params *params.Params

	raw    []byte
	status types.Status
	reason string

	digest         types.Digest
	publicKey      []byte
	signature      []byte
	coinbaseHeight int32
	inputs         []Input
	outputs        []Output
	fee            int64
}

// New starts a regular transaction for the given currency. Inputs and
// outputs are added incrementally; Finalize seals and signs it.
func New(p *params.Params) *Transaction {
	return &Transaction{
		params:         p,
		coinbaseHeight: -1,
	}
}

// NewCoinbase starts a coinbase transaction claiming the reward and fees of
// a block at the given height. A coinbase has no inputs, exactly one output,
// and zero fee.
func NewCoinbase(p *params.Params, height int32) *Transaction {
	return &Transaction{
		params:         p,
		coinbaseHeight: height,
	}
}

// AddInput appends an input spending the given output. The transaction must
// not be finalized yet.
func (t *Transaction) AddInput(source types.Digest, index byte, amount int64) error {
	if t.raw != nil {
		return ErrNotMutable
	}
	if len(t.inputs) >= MaxInputs {
		return ErrTooManyInputs
	}
	t.inputs = append(t.inputs, Input{SourceDigest: source, OutputIndex: index, Amount: amount})
	return nil
}

// AddOutput appends an output granting amount to dest. Output indices are
// assigned in insertion order.
func (t *Transaction) AddOutput(amount int64, dest types.Address) error {
	if t.raw != nil {
		return ErrNotMutable
	}
	if len(t.outputs) >= MaxOutputs {
		return ErrTooManyOutputs
	}
	t.outputs = append(t.outputs, Output{
		Index:       byte(len(t.outputs)),
		Amount:      amount,
		Destination: dest,
	})
	return nil
}

// SetFee sets the transaction fee. Ignored for coinbase transactions, whose
// fee is fixed at zero.
func (t *Transaction) SetFee(fee int64) error {
	if t.raw != nil {
		return ErrNotMutable
	}
	if t.coinbaseHeight < 0 {
		t.fee = fee
	}
	return nil
}

// Finalize serializes the transaction, signs the payload with the given key,
// and computes the digest. After Finalize the transaction is immutable and
// goes through the same structural checks a decoded copy would, so a node
// never judges its own transactions more leniently than the network does.
func (t *Transaction) Finalize(signer crypto.Signer) error {
	if t.raw != nil {
		return ErrNotMutable
	}

	raw := make([]byte, wireSize(len(t.inputs), len(t.outputs)))

	pub := signer.EncodedPublicKey()
	if len(pub) != crypto.PublicKeyBytes {
		return fmt.Errorf("encoded public key is %d bytes, want %d", len(pub), crypto.PublicKeyBytes)
	}
	copy(raw[publicKeyOffset:], pub)

	binary.BigEndian.PutUint32(raw[heightOffset:], uint32(t.coinbaseHeight))
	raw[countsOffset] = byte(len(t.inputs))
	raw[countsOffset+1] = byte(len(t.outputs))

	off := entriesOffset
	for _, in := range t.inputs {
		copy(raw[off:], in.SourceDigest[:])
		raw[off+types.DigestSize] = in.OutputIndex
		binary.BigEndian.PutUint64(raw[off+types.DigestSize+1:], uint64(in.Amount))
		off += inputWireSize
	}
	for _, out := range t.outputs {
		raw[off] = out.Index
		binary.BigEndian.PutUint64(raw[off+1:], uint64(out.Amount))
		copy(raw[off+9:], out.Destination.Bytes())
		off += outputWireSize
	}
	binary.BigEndian.PutUint64(raw[off:], uint64(t.fee))

	sig, err := signer.Sign(raw[payloadOffset:])
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	copy(raw[signatureOffset:], sig)

	digest := crypto.DigestRange(raw, types.DigestSize, len(raw)-types.DigestSize)
	copy(raw[digestOffset:], digest[:])

	t.raw = raw
	t.publicKey = raw[publicKeyOffset:signatureOffset]
	t.signature = raw[signatureOffset:payloadOffset]
	t.digest = digest
	return t.CheckStructure()
}

// Decode parses a wire-encoded transaction. Decode only enforces that the
// byte layout is readable; semantic legality is decided by CheckStructure.
func Decode(p *params.Params, data []byte) (*Transaction, error) {
	if len(data) < entriesOffset+feeWireSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	numIn := int(data[countsOffset])
	numOut := int(data[countsOffset+1])
	if len(data) != wireSize(numIn, numOut) {
		return nil, fmt.Errorf("%w: %d bytes for %d inputs, %d outputs",
			ErrLengthMismatch, len(data), numIn, numOut)
	}

	raw := make([]byte, len(data))
	copy(raw, data)

	t := &Transaction{
		params:         p,
		raw:            raw,
		publicKey:      raw[publicKeyOffset:signatureOffset],
		signature:      raw[signatureOffset:payloadOffset],
		coinbaseHeight: int32(binary.BigEndian.Uint32(raw[heightOffset:])),
		inputs:         make([]Input, 0, numIn),
		outputs:        make([]Output, 0, numOut),
	}
	copy(t.digest[:], raw[digestOffset:])

	off := entriesOffset
	for i := 0; i < numIn; i++ {
		var in Input
		copy(in.SourceDigest[:], raw[off:])
		in.OutputIndex = raw[off+types.DigestSize]
		in.Amount = int64(binary.BigEndian.Uint64(raw[off+types.DigestSize+1:]))
		t.inputs = append(t.inputs, in)
		off += inputWireSize
	}
	for i := 0; i < numOut; i++ {
		var out Output
		out.Index = raw[off]
		out.Amount = int64(binary.BigEndian.Uint64(raw[off+1:]))
		var dest types.Digest
		copy(dest[:], raw[off+9:])
		out.Destination = types.NewAddress(dest)
		t.outputs = append(t.outputs, out)
		off += outputWireSize
	}
	t.fee = int64(binary.BigEndian.Uint64(raw[off:]))

	return t, nil
}

// wireSize returns the encoded length for the given entry counts.
func wireSize(numIn, numOut int) int {
	return entriesOffset + numIn*inputWireSize + numOut*outputWireSize + feeWireSize
}

// Encode returns a copy of the wire encoding. The transaction must be
// finalized or decoded.
func (t *Transaction) Encode() ([]byte, error) {
	if t.raw == nil {
		return nil, ErrNotFinalized
	}
	out := make([]byte, len(t.raw))
	copy(out, t.raw)
	return out, nil
}

// Digest returns the transaction digest.
func (t *Transaction) Digest() types.Digest {
	return t.digest
}

// Status returns the current validation status.
func (t *Transaction) Status() types.Status {
	return t.status
}

// Reason explains an Illegal or Invalid status, empty otherwise.
func (t *Transaction) Reason() string {
	return t.reason
}

// ResetStatus drops a revocable contextual verdict back to Legal so the
// transaction can be re-validated against a different chain. Unknown and
// Illegal are unaffected.
func (t *Transaction) ResetStatus() {
	if t.status == types.StatusValid || t.status == types.StatusInvalid {
		t.status = types.StatusLegal
		t.reason = ""
	}
}

// IsCoinbase reports whether this is a coinbase transaction.
func (t *Transaction) IsCoinbase() bool {
	return t.coinbaseHeight >= 0
}

// CoinbaseHeight returns the block height a coinbase transaction was created
// for, or -1 for a regular transaction.
func (t *Transaction) CoinbaseHeight() int32 {
	return t.coinbaseHeight
}

// Inputs returns the transaction inputs.
func (t *Transaction) Inputs() []Input {
	return t.inputs
}

// Outputs returns the transaction outputs.
func (t *Transaction) Outputs() []Output {
	return t.outputs
}

// Output returns the output with the given index, or nil.
func (t *Transaction) Output(index byte) *Output {
	for i := range t.outputs {
		if t.outputs[i].Index == index {
			return &t.outputs[i]
		}
	}
	return nil
}

// Fee returns the transaction fee.
func (t *Transaction) Fee() int64 {
	return t.fee
}

// PublicKey returns the encoded public key of the signer.
func (t *Transaction) PublicKey() []byte {
	return t.publicKey
}

// OwnerAddress returns the address derived from the embedded public key.
// Inputs may only spend outputs granted to this address.
func (t *Transaction) OwnerAddress() types.Address {
	return crypto.AddressFromPublicKey(t.publicKey)
}

// Size returns the encoded length in bytes.
func (t *Transaction) Size() int {
	return len(t.raw)
}

// String returns a short description for logs.
func (t *Transaction) String() string {
	kind := "tx"
	if t.IsCoinbase() {
		kind = "coinbase"
	}
	return fmt.Sprintf("%s %s in=%d out=%d fee=%d", kind, t.digest.Hex()[:12], len(t.inputs), len(t.outputs), t.fee)
}
