package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ember-net/ember-chain/internal/log"
	"github.com/ember-net/ember-chain/internal/miner"
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine one block on top of the canonical tip",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nick := cfg.Mining.Key
		if nick == "" {
			return fmt.Errorf("no mining key configured (set mining.key or --mining-key)")
		}

		p, err := loadParams()
		if err != nil {
			return err
		}
		ks, err := openKeystore()
		if err != nil {
			return err
		}
		key, err := unlockKey(ks, nick)
		if err != nil {
			return err
		}

		store, db, err := openArchive(cfg.Currency)
		if err != nil {
			return err
		}
		defer db.Close()

		l, err := buildLedger(p, store)
		if err != nil {
			return err
		}

		m := miner.New(p, l, log.Miner)
		m.Threads = cfg.Mining.Threads
		blk, coinbase, err := m.BuildCandidate(key)
		if err != nil {
			return err
		}
		digest, err := m.Mine(cmd.Context(), blk)
		if err != nil {
			return err
		}

		if err := l.AddTransaction(coinbase); err != nil {
			return err
		}
		if err := l.AddBlock(blk); err != nil {
			return err
		}
		if err := l.Build(); err != nil {
			return err
		}

		cbRaw, err := coinbase.Encode()
		if err != nil {
			return err
		}
		blkRaw, err := blk.Encode()
		if err != nil {
			return err
		}
		if err := store.PutTransaction(coinbase.Digest(), cbRaw); err != nil {
			return err
		}
		if err := store.PutBlock(digest, blkRaw); err != nil {
			return err
		}
		fmt.Printf("Mined block %s at height %d\n", digest, blk.Height())

		if cfg.Relay.Endpoint == "" {
			return nil
		}
		client, err := newRelayClient()
		if err != nil {
			return err
		}
		if err := client.UploadTransaction(cmd.Context(), p.Name(), cbRaw); err != nil {
			return fmt.Errorf("block archived but coinbase upload failed: %w", err)
		}
		if err := client.UploadBlock(cmd.Context(), p.Name(), blkRaw); err != nil {
			return fmt.Errorf("block archived but upload failed: %w", err)
		}
		fmt.Println("Uploaded to relay")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mineCmd)
}
