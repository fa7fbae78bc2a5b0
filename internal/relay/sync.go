package relay

import (
	"context"

	"github.com/ember-net/ember-chain/internal/archive"
	"github.com/ember-net/ember-chain/internal/ledger"
	"github.com/ember-net/ember-chain/pkg/block"
	"github.com/ember-net/ember-chain/pkg/params"
	"github.com/ember-net/ember-chain/pkg/tx"
)

// SyncResult counts what a Sync run admitted and dropped.
type SyncResult struct {
	Transactions        int
	Blocks              int
	DroppedTransactions int
	DroppedBlocks       int
}

// Sync downloads a currency's transactions and blocks, admits the legal
// ones to the ledger, and archives them. Items that fail to decode or fail
// their structural checks are counted and dropped; a bad item on the relay
// must not stop a sync. When pastSeconds is positive only recent items are
// fetched.
func (c *Client) Sync(ctx context.Context, p *params.Params, l *ledger.Ledger, store *archive.Store, pastSeconds int) (SyncResult, error) {
	var res SyncResult

	rawTxs, err := c.DownloadTransactions(ctx, p.Name(), pastSeconds)
	if err != nil {
		return res, err
	}
	for _, raw := range rawTxs {
		t, err := tx.Decode(p, raw)
		if err != nil {
			res.DroppedTransactions++
			c.log.Warn().Err(err).Msg("downloaded transaction dropped")
			continue
		}
		if err := l.AddTransaction(t); err != nil {
			res.DroppedTransactions++
			c.log.Warn().Stringer("tx", t.Digest()).Err(err).Msg("downloaded transaction rejected")
			continue
		}
		if store != nil {
			if err := store.PutTransaction(t.Digest(), raw); err != nil {
				return res, err
			}
		}
		res.Transactions++
	}

	rawBlocks, err := c.DownloadBlocks(ctx, p.Name(), pastSeconds)
	if err != nil {
		return res, err
	}
	for _, raw := range rawBlocks {
		b, err := block.Decode(p, raw)
		if err != nil {
			res.DroppedBlocks++
			c.log.Warn().Err(err).Msg("downloaded block dropped")
			continue
		}
		if err := l.AddBlock(b); err != nil {
			res.DroppedBlocks++
			c.log.Warn().Stringer("block", b.Digest()).Err(err).Msg("downloaded block rejected")
			continue
		}
		if store != nil {
			if err := store.PutBlock(b.Digest(), raw); err != nil {
				return res, err
			}
		}
		res.Blocks++
	}

	c.log.Info().
		Str("currency", p.Name()).
		Int("transactions", res.Transactions).
		Int("blocks", res.Blocks).
		Int("dropped_transactions", res.DroppedTransactions).
		Int("dropped_blocks", res.DroppedBlocks).
		Msg("sync complete")
	return res, nil
}
