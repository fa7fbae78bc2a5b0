package tx

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ember-net/ember-chain/pkg/crypto"
	"github.com/ember-net/ember-chain/pkg/params"
	"github.com/ember-net/ember-chain/pkg/types"
)

// ErrInsufficientFunds means the spendable coins cannot cover a payment.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Spendable is one coin a wallet can spend: an unspent output and its amount.
type Spendable struct {
	Outpoint types.Outpoint
	Amount   int64
}

// BuildPayment assembles and signs a payment of amount to dest, funded from
// the signer's spendable coins. Coins are consumed largest first until the
// amount plus fee is covered; any excess comes back to the signer as a
// change output.
func BuildPayment(p *params.Params, signer crypto.Signer, coins []Spendable, dest types.Address, amount, fee int64) (*Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("payment amount %d: %w", amount, ErrNonPositiveAmount)
	}
	if fee < p.MinimumFee() {
		return nil, fmt.Errorf("%w: %d < %d", ErrFeeTooLow, fee, p.MinimumFee())
	}

	sorted := make([]Spendable, len(coins))
	copy(sorted, coins)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Amount > sorted[j].Amount })

	t := New(p)
	need := amount + fee
	var gathered int64
	for _, c := range sorted {
		if gathered >= need {
			break
		}
		if err := t.AddInput(c.Outpoint.TxDigest, c.Outpoint.Index, c.Amount); err != nil {
			return nil, err
		}
		gathered += c.Amount
	}
	if gathered < need {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, gathered, need)
	}

	if err := t.AddOutput(amount, dest); err != nil {
		return nil, err
	}
	if change := gathered - need; change > 0 {
		if err := t.AddOutput(change, crypto.AddressFromPublicKey(signer.EncodedPublicKey())); err != nil {
			return nil, err
		}
	}
	if err := t.SetFee(fee); err != nil {
		return nil, err
	}
	if err := t.Finalize(signer); err != nil {
		return nil, err
	}
	return t, nil
}
