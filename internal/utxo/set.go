// Package utxo tracks the set of unspent transaction outputs for one chain
// state, with cached undo data so blocks can be applied and reverted while
// exploring competing forks.
package utxo

import (
	"github.com/rs/zerolog"

	"github.com/ember-net/ember-chain/pkg/tx"
	"github.com/ember-net/ember-chain/pkg/types"
)

// UTXO is one unspent output: its coordinates, amount, and owning address.
type UTXO struct {
	Outpoint types.Outpoint `json:"outpoint"`
	Amount   int64          `json:"amount"`
	Owner    types.Address  `json:"owner"`
}

// Set is an in-memory UTXO set. It is not safe for concurrent use; the
// ledger serializes access.
type Set struct {
	entries map[types.Outpoint]UTXO
	log     zerolog.Logger
}

// NewSet creates an empty set.
func NewSet(logger zerolog.Logger) *Set {
	return &Set{
		entries: make(map[types.Outpoint]UTXO),
		log:     logger,
	}
}

// Contains reports whether the output is unspent.
func (s *Set) Contains(op types.Outpoint) bool {
	_, ok := s.entries[op]
	return ok
}

// Get returns the UTXO at the given outpoint.
func (s *Set) Get(op types.Outpoint) (UTXO, bool) {
	u, ok := s.entries[op]
	return u, ok
}

// Len returns the number of unspent outputs.
func (s *Set) Len() int {
	return len(s.entries)
}

// ForEach calls fn for every unspent output, in map order.
func (s *Set) ForEach(fn func(UTXO)) {
	for _, u := range s.entries {
		fn(u)
	}
}

// TxUndo captures what ApplyTx changed: the outputs it consumed, with their
// full contents, and the outputs it created. UndoTx replays it backwards.
type TxUndo struct {
	Spent   []UTXO
	Created []types.Outpoint
}

// ApplyTx spends the transaction's inputs and records its outputs. A missing
// input is logged and skipped rather than failed; validation decides whether
// a transaction is acceptable, the set only tracks effects.
func (s *Set) ApplyTx(t *tx.Transaction) *TxUndo {
	undo := &TxUndo{}
	for _, in := range t.Inputs() {
		op := in.Outpoint()
		u, ok := s.entries[op]
		if !ok {
			s.log.Warn().Stringer("outpoint", op).Msg("attempt to spend missing utxo")
			continue
		}
		delete(s.entries, op)
		undo.Spent = append(undo.Spent, u)
	}
	for _, out := range t.Outputs() {
		op := types.Outpoint{TxDigest: t.Digest(), Index: out.Index}
		s.entries[op] = UTXO{Outpoint: op, Amount: out.Amount, Owner: out.Destination}
		undo.Created = append(undo.Created, op)
	}
	return undo
}

// UndoTx reverts ApplyTx: created outputs are removed and spent outputs are
// restored, each in reverse order.
func (s *Set) UndoTx(undo *TxUndo) {
	for i := len(undo.Created) - 1; i >= 0; i-- {
		delete(s.entries, undo.Created[i])
	}
	for i := len(undo.Spent) - 1; i >= 0; i-- {
		u := undo.Spent[i]
		s.entries[u.Outpoint] = u
	}
}

// BlockUndo is the undo data for one applied block.
type BlockUndo struct {
	txs []*TxUndo
}

// ApplyBlock applies every transaction of the block in order. resolve maps a
// digest to its transaction; unknown digests are skipped with a warning.
func (s *Set) ApplyBlock(digests []types.Digest, resolve func(types.Digest) *tx.Transaction) *BlockUndo {
	undo := &BlockUndo{}
	for _, d := range digests {
		t := resolve(d)
		if t == nil {
			s.log.Warn().Stringer("tx", d).Msg("block references unknown transaction")
			continue
		}
		undo.txs = append(undo.txs, s.ApplyTx(t))
	}
	return undo
}

// UndoBlock reverts ApplyBlock, last transaction first.
func (s *Set) UndoBlock(undo *BlockUndo) {
	for i := len(undo.txs) - 1; i >= 0; i-- {
		s.UndoTx(undo.txs[i])
	}
}
