package tx

import (
	"errors"
	"fmt"

	"github.com/ember-net/ember-chain/pkg/crypto"
	"github.com/ember-net/ember-chain/pkg/types"
)

// Legality and validation errors.
var (
	ErrNotMutable          = errors.New("transaction already finalized")
	ErrTooManyInputs       = errors.New("too many inputs")
	ErrTooManyOutputs      = errors.New("too many outputs")
	ErrNoInputs            = errors.New("transaction has no inputs")
	ErrNoOutputs           = errors.New("transaction has no outputs")
	ErrDigestMismatch      = errors.New("digest does not match content")
	ErrBadSignature        = errors.New("signature verification failed")
	ErrNonPositiveAmount   = errors.New("amount is not positive")
	ErrBadOutputIndex      = errors.New("output index out of order")
	ErrFeeTooLow           = errors.New("fee below currency minimum")
	ErrNotConserved        = errors.New("inputs do not cover outputs plus fee")
	ErrCoinbaseShape       = errors.New("malformed coinbase transaction")
	ErrPrematureValidation = errors.New("validation before legality check")
)

// ChainView is the read-only chain state a transaction is validated against.
type ChainView interface {
	// Transaction returns the transaction with the given digest, or nil if
	// the chain does not contain it.
	Transaction(d types.Digest) *Transaction

	// ContainsUTXO reports whether the given output is currently unspent.
	ContainsUTXO(txDigest types.Digest, index byte) bool
}

// CheckStructure runs the self-contained legality checks and moves the
// status from Unknown to Legal or Illegal. Illegal is terminal; once a
// verdict exists the check is not repeated. Returns the reason when the
// transaction is, or already was, illegal.
func (t *Transaction) CheckStructure() error {
	if t.status != types.StatusUnknown {
		if t.status == types.StatusIllegal {
			return fmt.Errorf("transaction %s is illegal: %s", t.digest.Hex()[:12], t.reason)
		}
		return nil
	}
	if err := t.checkStructure(); err != nil {
		t.status = types.StatusIllegal
		t.reason = err.Error()
		return err
	}
	t.status = types.StatusLegal
	return nil
}

func (t *Transaction) checkStructure() error {
	if t.raw == nil {
		return ErrNotFinalized
	}

	want := crypto.DigestRange(t.raw, types.DigestSize, len(t.raw)-types.DigestSize)
	if t.digest != want {
		return ErrDigestMismatch
	}
	if !crypto.Verify(t.raw[payloadOffset:], t.signature, t.publicKey) {
		return ErrBadSignature
	}

	for i, out := range t.outputs {
		if out.Index != byte(i) {
			return fmt.Errorf("output %d: %w", i, ErrBadOutputIndex)
		}
		if out.Amount <= 0 {
			return fmt.Errorf("output %d: %w", i, ErrNonPositiveAmount)
		}
	}

	if t.IsCoinbase() {
		if len(t.inputs) != 0 || len(t.outputs) != 1 || t.fee != 0 {
			return ErrCoinbaseShape
		}
		return nil
	}

	if len(t.inputs) == 0 {
		return ErrNoInputs
	}
	if len(t.outputs) == 0 {
		return ErrNoOutputs
	}

	// Inputs referencing the same output twice are not a structural defect.
	// Legality is self-contained; whether an output is still unspent is a
	// question for Validate, where the second spend misses the UTXO set.
	var totalIn int64
	for i, in := range t.inputs {
		if in.Amount <= 0 {
			return fmt.Errorf("input %d: %w", i, ErrNonPositiveAmount)
		}
		totalIn += in.Amount
	}

	var totalOut int64
	for _, out := range t.outputs {
		totalOut += out.Amount
	}

	if t.fee < t.params.MinimumFee() {
		return fmt.Errorf("%w: %d < %d", ErrFeeTooLow, t.fee, t.params.MinimumFee())
	}
	if totalIn != totalOut+t.fee {
		return fmt.Errorf("%w: in=%d out=%d fee=%d", ErrNotConserved, totalIn, totalOut, t.fee)
	}
	return nil
}

// Validate checks a regular transaction against chain state and moves the
// status to Valid or Invalid. The verdict is revocable: ResetStatus returns
// it to Legal so the transaction can be judged against another fork.
//
// Every input must reference an existing, currently unspent output that is
// granted to this transaction's own address and whose amount matches the
// amount the input declares. Each input consumes its output, so a second
// input naming the same output finds it spent.
func (t *Transaction) Validate(view ChainView) (types.Status, error) {
	if !t.status.IsLegal() {
		return t.status, fmt.Errorf("%w: status %s", ErrPrematureValidation, t.status)
	}

	if reason := t.validate(view); reason != "" {
		t.status = types.StatusInvalid
		t.reason = reason
		return t.status, nil
	}
	t.status = types.StatusValid
	return t.status, nil
}

// validate returns an empty string when every input spends a live output of
// the view, or the reason the transaction conflicts with it.
func (t *Transaction) validate(view ChainView) string {
	owner := t.OwnerAddress().Digest()
	spent := make(map[types.Outpoint]bool, len(t.inputs))
	for i, in := range t.inputs {
		src := view.Transaction(in.SourceDigest)
		if src == nil {
			return fmt.Sprintf("input %d: source transaction %s does not exist", i, in.SourceDigest.Hex()[:12])
		}
		out := src.Output(in.OutputIndex)
		if out == nil {
			return fmt.Sprintf("input %d: output %s:%d does not exist", i, in.SourceDigest.Hex()[:12], in.OutputIndex)
		}
		if out.Amount != in.Amount {
			return fmt.Sprintf("input %d: amount %d does not match output amount %d", i, in.Amount, out.Amount)
		}
		if out.Destination.Digest() != owner {
			return fmt.Sprintf("input %d: output %s:%d belongs to another address", i, in.SourceDigest.Hex()[:12], in.OutputIndex)
		}
		op := in.Outpoint()
		if spent[op] || !view.ContainsUTXO(in.SourceDigest, in.OutputIndex) {
			return fmt.Sprintf("input %d: output %s:%d is not unspent", i, in.SourceDigest.Hex()[:12], in.OutputIndex)
		}
		spent[op] = true
	}
	return ""
}

// ValidateCoinbase checks a coinbase transaction against the block that
// carries it: the recorded height must match the block height and the single
// output must equal the scheduled reward plus the fees of the block's other
// transactions.
func (t *Transaction) ValidateCoinbase(height int32, totalFees int64) (types.Status, error) {
	if !t.status.IsLegal() {
		return t.status, fmt.Errorf("%w: status %s", ErrPrematureValidation, t.status)
	}
	if !t.IsCoinbase() || len(t.outputs) != 1 {
		t.status = types.StatusInvalid
		t.reason = "not a single-output coinbase transaction"
		return t.status, nil
	}
	if t.coinbaseHeight != height {
		t.status = types.StatusInvalid
		t.reason = fmt.Sprintf("coinbase height %d does not match block height %d", t.coinbaseHeight, height)
		return t.status, nil
	}
	if want := t.params.Reward(height) + totalFees; t.outputs[0].Amount != want {
		t.status = types.StatusInvalid
		t.reason = fmt.Sprintf("coinbase pays %d, want reward plus fees %d", t.outputs[0].Amount, want)
		return t.status, nil
	}
	t.status = types.StatusValid
	return t.status, nil
}
