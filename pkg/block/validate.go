package block

import (
	"fmt"

	"github.com/ember-net/ember-chain/pkg/crypto"
	"github.com/ember-net/ember-chain/pkg/tx"
	"github.com/ember-net/ember-chain/pkg/types"
)

// ChainView is the read-only chain state a block is validated against. The
// transaction view must reflect the chain up to, but not including, this
// block.
type ChainView interface {
	tx.ChainView

	// Block returns the block with the given digest, or nil.
	Block(d types.Digest) *Block
}

// CheckStructure runs the self-contained legality checks and moves the
// status from Unknown to Legal or Illegal. The checks cover the header
// digest, the difficulty target for the block's height, and the transaction
// list digest. Illegal is terminal.
func (b *Block) CheckStructure() error {
	if b.status != types.StatusUnknown {
		if b.status == types.StatusIllegal {
			return fmt.Errorf("block %s is illegal: %s", b.digest.Hex()[:12], b.reason)
		}
		return nil
	}
	if err := b.checkStructure(); err != nil {
		b.status = types.StatusIllegal
		b.reason = err.Error()
		return err
	}
	b.status = types.StatusLegal
	return nil
}

func (b *Block) checkStructure() error {
	if b.raw == nil {
		return ErrNotSealed
	}

	want := crypto.DigestRange(b.raw, types.DigestSize, HeaderSize-types.DigestSize)
	if b.digest != want {
		return fmt.Errorf("header digest does not match content")
	}
	if !b.params.MeetsDifficulty(b.height, b.digest) {
		return fmt.Errorf("header digest %s misses difficulty target %s",
			b.digest.Hex()[:12], b.params.Difficulty(b.height))
	}
	if len(b.txDigests) < 1 {
		return fmt.Errorf("block has no transactions")
	}

	wantList := crypto.DigestRange(b.raw, HeaderSize, len(b.raw)-HeaderSize)
	if b.listDigest != wantList {
		return fmt.Errorf("transaction list digest does not match content")
	}
	return nil
}

// Validate checks the block against chain state and moves the status to
// Valid or Invalid. The verdict is revocable across forks via ResetStatus.
//
// The genesis block of the currency is valid by definition. Every other
// block requires a valid parent at the preceding height, known transactions
// with no duplicates, a coinbase that pays exactly the scheduled reward plus
// the other transactions' fees, and validity of every other transaction
// against the chain state before this block.
func (b *Block) Validate(view ChainView) (types.Status, error) {
	if b.status == types.StatusUnknown {
		if err := b.CheckStructure(); err != nil {
			return b.status, nil
		}
	}
	if !b.status.IsLegal() {
		return b.status, fmt.Errorf("%w: status %s", tx.ErrPrematureValidation, b.status)
	}
	b.ResetStatus()

	if b.digest == b.params.GenesisDigest() {
		b.status = types.StatusValid
		return b.status, nil
	}

	if reason := b.validate(view); reason != "" {
		b.status = types.StatusInvalid
		b.reason = reason
		return b.status, nil
	}
	b.status = types.StatusValid
	return b.status, nil
}

// validate returns an empty string when the block is consistent with the
// view, or the reason it is not.
func (b *Block) validate(view ChainView) string {
	prev := view.Block(b.prev)
	if prev == nil {
		return fmt.Sprintf("previous block %s does not exist", b.prev.Hex()[:12])
	}
	if !prev.Status().IsValid() {
		return fmt.Sprintf("previous block %s is not valid", b.prev.Hex()[:12])
	}
	if prev.Height()+1 != b.height {
		return fmt.Sprintf("height %d does not follow previous height %d", b.height, prev.Height())
	}

	seen := make(map[types.Digest]bool, len(b.txDigests))
	for _, d := range b.txDigests {
		if view.Transaction(d) == nil {
			return fmt.Sprintf("transaction %s does not exist", d.Hex()[:12])
		}
		if seen[d] {
			return fmt.Sprintf("duplicate transaction %s", d.Hex()[:12])
		}
		seen[d] = true
	}

	var totalFees int64
	for _, d := range b.txDigests[1:] {
		totalFees += view.Transaction(d).Fee()
	}

	coinbase := view.Transaction(b.txDigests[0])
	if err := coinbase.CheckStructure(); err != nil {
		return fmt.Sprintf("coinbase transaction: %v", err)
	}
	status, err := coinbase.ValidateCoinbase(b.height, totalFees)
	if err != nil || !status.IsValid() {
		return fmt.Sprintf("coinbase transaction %s is not valid", b.txDigests[0].Hex()[:12])
	}

	for _, d := range b.txDigests[1:] {
		t := view.Transaction(d)
		if err := t.CheckStructure(); err != nil {
			return fmt.Sprintf("transaction %s: %v", d.Hex()[:12], err)
		}
		status, err := t.Validate(view)
		if err != nil || !status.IsValid() {
			return fmt.Sprintf("transaction %s is not valid", d.Hex()[:12])
		}
	}
	return ""
}
