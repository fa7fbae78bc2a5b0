// Package miner assembles candidate blocks from unconfirmed transactions
// and searches for nonces that satisfy the difficulty target.
package miner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ember-net/ember-chain/internal/ledger"
	"github.com/ember-net/ember-chain/pkg/block"
	"github.com/ember-net/ember-chain/pkg/crypto"
	"github.com/ember-net/ember-chain/pkg/params"
	"github.com/ember-net/ember-chain/pkg/tx"
	"github.com/ember-net/ember-chain/pkg/types"
)

// Miner errors.
var (
	ErrNoTip = errors.New("ledger has no canonical tip")
)

// Miner builds and seals blocks for one currency.
type Miner struct {
	params *params.Params
	ledger *ledger.Ledger
	log    zerolog.Logger

	// Threads controls the number of parallel sealing goroutines.
	// 0 or 1 means single-threaded. Each worker searches a strided
	// partition of the nonce space.
	Threads int
}

// New creates a miner over a built ledger.
func New(p *params.Params, l *ledger.Ledger, logger zerolog.Logger) *Miner {
	return &Miner{
		params: p,
		ledger: l,
		log:    logger,
	}
}

// BuildCandidate assembles an unsealed block on top of the canonical tip:
// a coinbase paying the scheduled reward plus fees to the signer, followed
// by every unconfirmed transaction that fits. Only transactions valid
// against the tip are considered, and transactions competing for the same
// output are taken first come first served; only one spend of an output can
// enter the block. Returns the block and its coinbase, which the caller
// must admit to the ledger alongside the sealed block.
func (m *Miner) BuildCandidate(signer crypto.Signer) (*block.Block, *tx.Transaction, error) {
	tip := m.ledger.Tip()
	if tip == nil {
		return nil, nil, ErrNoTip
	}
	height := tip.Height() + 1

	var selected []*tx.Transaction
	var fees int64
	claimed := make(map[types.Outpoint]bool)
selection:
	for _, t := range m.ledger.Unconfirmed() {
		if len(selected)+1 >= block.MaxTransactions {
			break
		}
		if !t.Status().IsValid() {
			continue
		}
		for _, in := range t.Inputs() {
			if claimed[in.Outpoint()] {
				continue selection
			}
		}
		for _, in := range t.Inputs() {
			claimed[in.Outpoint()] = true
		}
		selected = append(selected, t)
		fees += t.Fee()
	}

	coinbase := tx.NewCoinbase(m.params, height)
	if err := coinbase.AddOutput(m.params.Reward(height)+fees, crypto.AddressFromPublicKey(signer.EncodedPublicKey())); err != nil {
		return nil, nil, err
	}
	if err := coinbase.Finalize(signer); err != nil {
		return nil, nil, err
	}

	b := block.New(m.params, height, tip.Digest())
	if err := b.AddTransaction(coinbase.Digest()); err != nil {
		return nil, nil, err
	}
	for _, t := range selected {
		if err := b.AddTransaction(t.Digest()); err != nil {
			return nil, nil, err
		}
	}

	m.log.Debug().
		Int32("height", height).
		Int("transactions", len(selected)).
		Int64("fees", fees).
		Msg("candidate assembled")
	return b, coinbase, nil
}

// GenesisBlock assembles the unsealed genesis block of a brand new
// currency: a single coinbase at height 0 granting creatorGrant to the
// creator. The caller seals it with Mine and then records its digest as
// the currency's genesis digest.
func GenesisBlock(p *params.Params, creator crypto.Signer, creatorGrant int64) (*block.Block, *tx.Transaction, error) {
	grant := tx.NewCoinbase(p, 0)
	if err := grant.AddOutput(creatorGrant, crypto.AddressFromPublicKey(creator.EncodedPublicKey())); err != nil {
		return nil, nil, err
	}
	if err := grant.Finalize(creator); err != nil {
		return nil, nil, err
	}

	b := block.New(p, 0, types.Digest{})
	if err := b.AddTransaction(grant.Digest()); err != nil {
		return nil, nil, err
	}
	return b, grant, nil
}

// Mine searches for a nonce whose header digest meets the difficulty
// target for the block's height, sealing the block with it. Cancelling the
// context stops the search and returns ctx.Err().
func (m *Miner) Mine(ctx context.Context, b *block.Block) (types.Digest, error) {
	start := time.Now()
	var digest types.Digest
	var tried int64
	var err error
	if m.Threads <= 1 {
		digest, tried, err = m.mineSingle(ctx, b)
	} else {
		digest, tried, err = m.mineParallel(ctx, b)
	}
	if err != nil {
		return types.Digest{}, err
	}

	elapsed := time.Since(start)
	m.log.Info().
		Int32("height", b.Height()).
		Stringer("digest", digest).
		Int64("attempts", tried).
		Dur("elapsed", elapsed).
		Msg("block sealed")
	return digest, nil
}

func (m *Miner) mineSingle(ctx context.Context, b *block.Block) (types.Digest, int64, error) {
	height := b.Height()
	for nonce := int64(0); ; nonce++ {
		// Check cancellation every 4096 attempts.
		if nonce&0xFFF == 0 {
			select {
			case <-ctx.Done():
				return types.Digest{}, nonce, ctx.Err()
			default:
			}
		}
		if d := b.Seal(nonce); m.params.MeetsDifficulty(height, d) {
			return d, nonce + 1, nil
		}
	}
}

// mineParallel runs strided workers over private copies of the block and
// re-seals the caller's block with the winning nonce.
func (m *Miner) mineParallel(ctx context.Context, b *block.Block) (types.Digest, int64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	height := b.Height()
	found := make(chan int64, 1)

	var wg sync.WaitGroup
	for i := 0; i < m.Threads; i++ {
		wg.Add(1)
		start, stride := int64(i), int64(m.Threads)
		go func() {
			defer wg.Done()
			private := b.Clone()
			for nonce := start; ; nonce += stride {
				if (nonce/stride)&0xFFF == 0 {
					select {
					case <-ctx.Done():
						return
					default:
					}
				}
				if d := private.Seal(nonce); m.params.MeetsDifficulty(height, d) {
					select {
					case found <- nonce:
					default:
					}
					cancel()
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(found)
	}()

	select {
	case nonce, ok := <-found:
		if !ok {
			return types.Digest{}, 0, ctx.Err()
		}
		return b.Seal(nonce), nonce + 1, nil
	case <-ctx.Done():
		// Drain a late winner so workers never block.
		select {
		case nonce := <-found:
			return b.Seal(nonce), nonce + 1, nil
		default:
		}
		return types.Digest{}, 0, ctx.Err()
	}
}
