package ledger

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ember-net/ember-chain/pkg/block"
	"github.com/ember-net/ember-chain/pkg/crypto"
	"github.com/ember-net/ember-chain/pkg/params"
	"github.com/ember-net/ember-chain/pkg/tx"
	"github.com/ember-net/ember-chain/pkg/types"
)

// harness wires a ledger, a currency with an always-satisfied difficulty
// target, and a few key pairs.
type harness struct {
	t      *testing.T
	params *params.Params
	ledger *Ledger
	alice  *crypto.PrivateKey
	bob    *crypto.PrivateKey
	carol  *crypto.PrivateKey
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	p, err := params.New("testcoin", "", 2, 100, strings.Repeat("F", 64))
	if err != nil {
		t.Fatalf("params.New: %v", err)
	}
	h := &harness{t: t, params: p, ledger: New(p, zerolog.Nop())}
	for _, key := range []**crypto.PrivateKey{&h.alice, &h.bob, &h.carol} {
		k, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("GenerateKey: %v", err)
		}
		*key = k
	}
	return h
}

// genesis mines the genesis block granting amount to alice and registers its
// digest with the currency.
func (h *harness) genesis(amount int64) *block.Block {
	h.t.Helper()
	grant := tx.NewCoinbase(h.params, 0)
	if err := grant.AddOutput(amount, h.alice.Address()); err != nil {
		h.t.Fatalf("AddOutput: %v", err)
	}
	if err := grant.Finalize(h.alice); err != nil {
		h.t.Fatalf("Finalize: %v", err)
	}
	b := h.mine(0, types.Digest{}, grant, nil)
	h.params.SetGenesisDigest(b.Digest())
	return b
}

// extend mines a block on top of prev carrying the given regular
// transactions plus a correct coinbase paid to the miner key.
func (h *harness) extend(prev *block.Block, miner *crypto.PrivateKey, txs ...*tx.Transaction) *block.Block {
	h.t.Helper()
	height := prev.Height() + 1
	var fees int64
	for _, t := range txs {
		fees += t.Fee()
	}
	cb := tx.NewCoinbase(h.params, height)
	if err := cb.AddOutput(h.params.Reward(height)+fees, miner.Address()); err != nil {
		h.t.Fatalf("AddOutput: %v", err)
	}
	if err := cb.Finalize(miner); err != nil {
		h.t.Fatalf("Finalize: %v", err)
	}
	return h.mine(height, prev.Digest(), cb, txs)
}

func (h *harness) mine(height int32, prev types.Digest, cb *tx.Transaction, txs []*tx.Transaction) *block.Block {
	h.t.Helper()
	if err := h.ledger.AddTransaction(cb); err != nil {
		h.t.Fatalf("AddTransaction coinbase: %v", err)
	}
	b := block.New(h.params, height, prev)
	if err := b.AddTransaction(cb.Digest()); err != nil {
		h.t.Fatalf("AddTransaction: %v", err)
	}
	for _, t := range txs {
		if err := h.ledger.AddTransaction(t); err != nil {
			h.t.Fatalf("AddTransaction: %v", err)
		}
		if err := b.AddTransaction(t.Digest()); err != nil {
			h.t.Fatalf("AddTransaction: %v", err)
		}
	}
	for nonce := int64(0); ; nonce++ {
		if h.params.MeetsDifficulty(height, b.Seal(nonce)) {
			break
		}
	}
	if err := h.ledger.AddBlock(b); err != nil {
		h.t.Fatalf("AddBlock: %v", err)
	}
	return b
}

// pay builds and pools a signed payment from the key's spendable outputs.
func (h *harness) pay(from *crypto.PrivateKey, coins []tx.Spendable, to types.Address, amount int64) *tx.Transaction {
	h.t.Helper()
	t, err := tx.BuildPayment(h.params, from, coins, to, amount, h.params.MinimumFee())
	if err != nil {
		h.t.Fatalf("BuildPayment: %v", err)
	}
	if err := h.ledger.AddTransaction(t); err != nil {
		h.t.Fatalf("AddTransaction: %v", err)
	}
	return t
}

// spendableGrant returns the genesis grant as a spendable coin.
func spendableGrant(g *block.Block, amount int64) []tx.Spendable {
	return []tx.Spendable{{
		Outpoint: types.Outpoint{TxDigest: g.TransactionDigests()[0], Index: 0},
		Amount:   amount,
	}}
}

func TestBuildRequiresGenesis(t *testing.T) {
	h := newHarness(t)
	if err := h.ledger.Build(); !errors.Is(err, ErrNoGenesis) {
		t.Fatalf("err = %v, want ErrNoGenesis", err)
	}
}

func TestBuildLinearChain(t *testing.T) {
	h := newHarness(t)
	g := h.genesis(1000)

	spend := h.pay(h.alice, spendableGrant(g, 1000), h.bob.Address(), 600)
	b1 := h.extend(g, h.carol, spend)

	if err := h.ledger.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if h.ledger.Tip().Digest() != b1.Digest() {
		t.Fatalf("tip = %s, want %s", h.ledger.Tip(), b1)
	}
	if h.ledger.Height() != 1 {
		t.Errorf("height = %d, want 1", h.ledger.Height())
	}
	if got := len(h.ledger.Canonical()); got != 2 {
		t.Errorf("canonical length = %d, want 2", got)
	}

	fee := h.params.MinimumFee()
	if got := h.ledger.BalanceOf(h.bob.Address()).Amount; got != 600 {
		t.Errorf("bob balance = %d, want 600", got)
	}
	if got := h.ledger.BalanceOf(h.alice.Address()).Amount; got != 1000-600-fee {
		t.Errorf("alice balance = %d, want %d", got, 1000-600-fee)
	}
	if got := h.ledger.BalanceOf(h.carol.Address()).Amount; got != h.params.Reward(1)+fee {
		t.Errorf("carol balance = %d, want %d", got, h.params.Reward(1)+fee)
	}
	if got := len(h.ledger.Unconfirmed()); got != 0 {
		t.Errorf("%d unconfirmed transactions, want 0", got)
	}
}

func TestForkChoicePrefersHeight(t *testing.T) {
	h := newHarness(t)
	g := h.genesis(1000)

	short := h.extend(g, h.bob)
	long1 := h.extend(g, h.carol)
	long2 := h.extend(long1, h.carol)

	if err := h.ledger.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if h.ledger.Tip().Digest() != long2.Digest() {
		t.Fatalf("tip = %s, want the longer fork %s", h.ledger.Tip(), long2)
	}
	// The losing fork's block is still valid, just not canonical.
	if !short.Status().IsValid() {
		t.Errorf("short fork status = %s, want valid", short.Status())
	}
	if got := h.ledger.BalanceOf(h.bob.Address()).Amount; got != 0 {
		t.Errorf("bob balance = %d, want 0 on the canonical chain", got)
	}
}

func TestForkChoiceTieBreaksOnDigest(t *testing.T) {
	h := newHarness(t)
	g := h.genesis(1000)

	a := h.extend(g, h.bob)
	b := h.extend(g, h.carol)

	if err := h.ledger.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := a
	if b.Digest().Hex() < a.Digest().Hex() {
		want = b
	}
	if h.ledger.Tip().Digest() != want.Digest() {
		t.Fatalf("tip = %s, want the lower digest %s", h.ledger.Tip(), want)
	}
}

func TestDoubleSpendAcrossBlocksIsRejected(t *testing.T) {
	h := newHarness(t)
	g := h.genesis(1000)

	first := h.pay(h.alice, spendableGrant(g, 1000), h.bob.Address(), 600)
	b1 := h.extend(g, h.carol, first)

	// A second spend of the same grant output, mined on top of the block
	// that already consumed it.
	second := h.pay(h.alice, spendableGrant(g, 1000), h.carol.Address(), 500)
	b2 := h.extend(b1, h.carol, second)

	if err := h.ledger.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if h.ledger.Tip().Digest() != b1.Digest() {
		t.Fatalf("tip = %s, want %s", h.ledger.Tip(), b1)
	}
	if b2.Status() != types.StatusInvalid {
		t.Errorf("double-spending block status = %s, want invalid", b2.Status())
	}
}

func TestOverpayingCoinbaseExcludesBlock(t *testing.T) {
	h := newHarness(t)
	g := h.genesis(1000)

	greedy := tx.NewCoinbase(h.params, 1)
	if err := greedy.AddOutput(h.params.Reward(1)+1, h.bob.Address()); err != nil {
		t.Fatalf("AddOutput: %v", err)
	}
	if err := greedy.Finalize(h.bob); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	h.mine(1, g.Digest(), greedy, nil)

	if err := h.ledger.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if h.ledger.Tip().Digest() != g.Digest() {
		t.Fatalf("tip = %s, want genesis", h.ledger.Tip())
	}
}

func TestConflictingPoolSpendStaysUnconfirmed(t *testing.T) {
	h := newHarness(t)
	g := h.genesis(1000)

	confirmed := h.pay(h.alice, spendableGrant(g, 1000), h.bob.Address(), 600)
	h.extend(g, h.carol, confirmed)

	// A rival spend of the grant output arrives in the pool after a block
	// already consumed it. It cannot enter a chain, but it is still a known
	// transaction outside the canonical chain and stays visible as
	// unconfirmed, carrying the verdict from validation against the tip.
	rival := h.pay(h.alice, spendableGrant(g, 1000), h.carol.Address(), 500)

	if err := h.ledger.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	unconfirmed := h.ledger.Unconfirmed()
	if len(unconfirmed) != 1 || unconfirmed[0].Digest() != rival.Digest() {
		t.Fatalf("unconfirmed = %v, want the rival spend", unconfirmed)
	}
	if rival.Status() != types.StatusInvalid {
		t.Errorf("rival status = %s, want invalid", rival.Status())
	}
	if rival.Reason() == "" {
		t.Error("rival spend has no recorded reason")
	}
}

func TestUnconfirmedTransactions(t *testing.T) {
	h := newHarness(t)
	g := h.genesis(1000)

	pending := h.pay(h.alice, spendableGrant(g, 1000), h.bob.Address(), 300)

	if err := h.ledger.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	unconfirmed := h.ledger.Unconfirmed()
	if len(unconfirmed) != 1 || unconfirmed[0].Digest() != pending.Digest() {
		t.Fatalf("unconfirmed = %v, want the pending payment", unconfirmed)
	}
	if unconfirmed[0].Status() != types.StatusValid {
		t.Errorf("pending status = %s, want valid", unconfirmed[0].Status())
	}

	// Once mined, it leaves the unconfirmed pool.
	h.extend(g, h.carol, pending)
	if err := h.ledger.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := len(h.ledger.Unconfirmed()); got != 0 {
		t.Errorf("%d unconfirmed transactions after mining, want 0", got)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	h := newHarness(t)
	g := h.genesis(1000)

	spend := h.pay(h.alice, spendableGrant(g, 1000), h.bob.Address(), 600)
	h.extend(g, h.carol, spend)
	h.extend(g, h.bob)

	if err := h.ledger.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	tip := h.ledger.Tip().Digest()
	bob := h.ledger.BalanceOf(h.bob.Address()).Amount

	if err := h.ledger.Build(); err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if h.ledger.Tip().Digest() != tip {
		t.Errorf("tip changed across rebuilds")
	}
	if got := h.ledger.BalanceOf(h.bob.Address()).Amount; got != bob {
		t.Errorf("bob balance changed across rebuilds: %d then %d", bob, got)
	}
}
