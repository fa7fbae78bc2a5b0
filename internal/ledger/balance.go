package ledger

import (
	"sort"

	"github.com/ember-net/ember-chain/internal/utxo"
	"github.com/ember-net/ember-chain/pkg/tx"
	"github.com/ember-net/ember-chain/pkg/types"
)

// Balance is the spendable holdings of one address on the canonical chain.
type Balance struct {
	Address types.Address
	Amount  int64
	UTXOs   []utxo.UTXO
}

// BalanceOf returns the balance of one address. The result is empty, not
// nil, for unknown addresses.
func (l *Ledger) BalanceOf(addr types.Address) Balance {
	b := Balance{Address: addr}
	l.utxos.ForEach(func(u utxo.UTXO) {
		if u.Owner == addr {
			b.Amount += u.Amount
			b.UTXOs = append(b.UTXOs, u)
		}
	})
	sort.Slice(b.UTXOs, func(i, j int) bool {
		return b.UTXOs[i].Outpoint.String() < b.UTXOs[j].Outpoint.String()
	})
	return b
}

// Balances returns the balances of every address holding coins, sorted by
// address for stable display.
func (l *Ledger) Balances() []Balance {
	byAddr := make(map[types.Address]*Balance)
	l.utxos.ForEach(func(u utxo.UTXO) {
		b, ok := byAddr[u.Owner]
		if !ok {
			b = &Balance{Address: u.Owner}
			byAddr[u.Owner] = b
		}
		b.Amount += u.Amount
		b.UTXOs = append(b.UTXOs, u)
	})

	out := make([]Balance, 0, len(byAddr))
	for _, b := range byAddr {
		sort.Slice(b.UTXOs, func(i, j int) bool {
			return b.UTXOs[i].Outpoint.String() < b.UTXOs[j].Outpoint.String()
		})
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.Hex() < out[j].Address.Hex()
	})
	return out
}

// Spendables returns an address's unspent outputs in the form the payment
// builder consumes.
func (l *Ledger) Spendables(addr types.Address) []tx.Spendable {
	b := l.BalanceOf(addr)
	coins := make([]tx.Spendable, 0, len(b.UTXOs))
	for _, u := range b.UTXOs {
		coins = append(coins, tx.Spendable{Outpoint: u.Outpoint, Amount: u.Amount})
	}
	return coins
}
