// Package ledger holds every known block and transaction of a currency and
// decides, by exploring the block tree, which chain is the canonical one.
package ledger

import (
	"errors"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ember-net/ember-chain/internal/utxo"
	"github.com/ember-net/ember-chain/pkg/block"
	"github.com/ember-net/ember-chain/pkg/params"
	"github.com/ember-net/ember-chain/pkg/tx"
	"github.com/ember-net/ember-chain/pkg/types"
)

// ErrNoGenesis means the ledger has no block matching the currency's genesis
// digest, so there is nothing to build on.
var ErrNoGenesis = errors.New("genesis block not present")

// Ledger is the in-memory pool of blocks and transactions plus the state
// derived from them by Build: the canonical chain, its UTXO set, and the
// unconfirmed transactions. It implements the chain views blocks and
// transactions are validated against.
type Ledger struct {
	params *params.Params
	log    zerolog.Logger

	blocks map[types.Digest]*block.Block
	txs    map[types.Digest]*tx.Transaction

	utxos       *utxo.Set
	tip         *block.Block
	canonical   []types.Digest
	unconfirmed []*tx.Transaction
}

// New creates an empty ledger for the given currency.
func New(p *params.Params, logger zerolog.Logger) *Ledger {
	return &Ledger{
		params: p,
		log:    logger,
		blocks: make(map[types.Digest]*block.Block),
		txs:    make(map[types.Digest]*tx.Transaction),
		utxos:  utxo.NewSet(logger),
	}
}

// AddTransaction checks the transaction's structure and admits it to the
// pool. Illegal transactions are dropped with an error; duplicates are
// ignored.
func (l *Ledger) AddTransaction(t *tx.Transaction) error {
	if err := t.CheckStructure(); err != nil {
		return err
	}
	if _, ok := l.txs[t.Digest()]; !ok {
		l.txs[t.Digest()] = t
	}
	return nil
}

// AddBlock checks the block's structure and admits it to the pool. Illegal
// blocks are dropped with an error; duplicates are ignored.
func (l *Ledger) AddBlock(b *block.Block) error {
	if err := b.CheckStructure(); err != nil {
		return err
	}
	if _, ok := l.blocks[b.Digest()]; !ok {
		l.blocks[b.Digest()] = b
	}
	return nil
}

// Transaction returns the pooled transaction with the given digest, or nil.
func (l *Ledger) Transaction(d types.Digest) *tx.Transaction {
	return l.txs[d]
}

// Block returns the pooled block with the given digest, or nil.
func (l *Ledger) Block(d types.Digest) *block.Block {
	return l.blocks[d]
}

// ContainsUTXO reports whether the output is unspent in the chain state the
// ledger currently exposes. During Build that state tracks the fork being
// explored; afterwards it is the canonical chain's state.
func (l *Ledger) ContainsUTXO(txDigest types.Digest, index byte) bool {
	return l.utxos.Contains(types.Outpoint{TxDigest: txDigest, Index: index})
}

// Tip returns the last block of the canonical chain, or nil before a
// successful Build.
func (l *Ledger) Tip() *block.Block {
	return l.tip
}

// Height returns the canonical chain height, or -1 before a successful
// Build.
func (l *Ledger) Height() int32 {
	if l.tip == nil {
		return -1
	}
	return l.tip.Height()
}

// Canonical returns the digests of the canonical chain, genesis first.
func (l *Ledger) Canonical() []types.Digest {
	return l.canonical
}

// dfsFrame is one level of the block tree walk: an applied block, the undo
// data to revert it, and a cursor over its children.
type dfsFrame struct {
	blk      *block.Block
	undo     *utxo.BlockUndo
	children []*block.Block
	next     int
}

// Build explores the whole block tree from the genesis block, validating
// every reachable block against the state of its own ancestry, and installs
// the best chain: maximum height among valid tips, ties broken by the
// lowest header digest. The walk applies each block's transactions on the
// way down and reverts them on the way up, so the UTXO set always matches
// the fork under the cursor.
//
// Build is idempotent: revocable verdicts are reset before every run.
func (l *Ledger) Build() error {
	genesis, ok := l.blocks[l.params.GenesisDigest()]
	if !ok {
		return ErrNoGenesis
	}

	for _, b := range l.blocks {
		b.ResetStatus()
	}
	for _, t := range l.txs {
		t.ResetStatus()
	}
	l.utxos = utxo.NewSet(l.log)
	l.tip = nil
	l.canonical = nil
	l.unconfirmed = nil

	children := make(map[types.Digest][]*block.Block)
	for _, b := range l.blocks {
		children[b.PreviousDigest()] = append(children[b.PreviousDigest()], b)
	}
	// Deterministic visit order regardless of map iteration.
	for _, kids := range children {
		sort.Slice(kids, func(i, j int) bool {
			return kids[i].Digest().Hex() < kids[j].Digest().Hex()
		})
	}

	var best *block.Block

	// The genesis block is valid by definition.
	if status, err := genesis.Validate(l); err != nil || !status.IsValid() {
		return ErrNoGenesis
	}
	stack := []*dfsFrame{{
		blk:      genesis,
		undo:     l.utxos.ApplyBlock(genesis.TransactionDigests(), l.resolve),
		children: children[genesis.Digest()],
	}}
	best = genesis

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		if frame.next >= len(frame.children) {
			l.utxos.UndoBlock(frame.undo)
			stack = stack[:len(stack)-1]
			continue
		}
		child := frame.children[frame.next]
		frame.next++

		status, err := child.Validate(l)
		if err != nil {
			return err
		}
		if !status.IsValid() {
			l.log.Debug().
				Stringer("block", child.Digest()).
				Str("reason", child.Reason()).
				Msg("block rejected during tree walk")
			continue
		}

		if betterTip(child, best) {
			best = child
		}
		stack = append(stack, &dfsFrame{
			blk:      child,
			undo:     l.utxos.ApplyBlock(child.TransactionDigests(), l.resolve),
			children: children[child.Digest()],
		})
	}

	l.install(best)
	l.collectUnconfirmed()

	l.log.Info().
		Int32("height", l.tip.Height()).
		Stringer("tip", l.tip.Digest()).
		Int("blocks", len(l.blocks)).
		Int("utxos", l.utxos.Len()).
		Int("unconfirmed", len(l.unconfirmed)).
		Msg("ledger built")
	return nil
}

// betterTip reports whether a beats b as the canonical tip: greater height,
// or equal height with the lower header digest.
func betterTip(a, b *block.Block) bool {
	if a.Height() != b.Height() {
		return a.Height() > b.Height()
	}
	return a.Digest().Hex() < b.Digest().Hex()
}

// resolve adapts the transaction pool to the UTXO set's lookup callback.
func (l *Ledger) resolve(d types.Digest) *tx.Transaction {
	return l.txs[d]
}

// install replays the chain ending at tip onto a fresh UTXO set and records
// it as canonical.
func (l *Ledger) install(tip *block.Block) {
	var chain []types.Digest
	for b := tip; b != nil; b = l.blocks[b.PreviousDigest()] {
		chain = append(chain, b.Digest())
		if b.Digest() == l.params.GenesisDigest() {
			break
		}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	l.utxos = utxo.NewSet(l.log)
	for _, d := range chain {
		l.utxos.ApplyBlock(l.blocks[d].TransactionDigests(), l.resolve)
	}
	l.tip = tip
	l.canonical = chain
}

// collectUnconfirmed gathers every legal regular transaction that is not
// part of the canonical chain. Membership does not depend on validity: a
// pooled double spend stays visible as an unconfirmed transaction. Each one
// is validated against the canonical tip so its status and reason report
// whether it could still enter a block.
func (l *Ledger) collectUnconfirmed() {
	confirmed := make(map[types.Digest]bool)
	for _, d := range l.canonical {
		for _, td := range l.blocks[d].TransactionDigests() {
			confirmed[td] = true
		}
	}

	var pending []*tx.Transaction
	for d, t := range l.txs {
		if confirmed[d] || t.IsCoinbase() || !t.Status().IsLegal() {
			continue
		}
		t.ResetStatus()
		if _, err := t.Validate(l); err != nil {
			continue
		}
		pending = append(pending, t)
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Digest().Hex() < pending[j].Digest().Hex()
	})
	l.unconfirmed = pending
}

// Unconfirmed returns the pending transactions, sorted by digest. Their
// statuses reflect validation against the canonical tip; callers choosing
// transactions for a block filter on status themselves.
func (l *Ledger) Unconfirmed() []*tx.Transaction {
	return l.unconfirmed
}
