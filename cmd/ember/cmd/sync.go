package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ember-net/ember-chain/internal/ledger"
	"github.com/ember-net/ember-chain/internal/log"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download recent items from the relay into the local archive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadParams()
		if err != nil {
			return err
		}
		client, err := newRelayClient()
		if err != nil {
			return err
		}
		store, db, err := openArchive(cfg.Currency)
		if err != nil {
			return err
		}
		defer db.Close()

		// Admit archived items without building: a fresh archive has no
		// genesis block until this very download delivers it.
		l := ledger.New(p, log.Ledger)
		if _, _, err := store.Populate(p, l); err != nil {
			return err
		}
		res, err := client.Sync(cmd.Context(), p, l, store, cfg.Relay.RecentSeconds)
		if err != nil {
			return err
		}
		fmt.Printf("Synced %d transactions (%d dropped), %d blocks (%d dropped)\n",
			res.Transactions, res.DroppedTransactions, res.Blocks, res.DroppedBlocks)

		if err := l.Build(); err != nil {
			if errors.Is(err, ledger.ErrNoGenesis) {
				fmt.Println("Genesis block not downloaded yet; chain not built")
				return nil
			}
			return err
		}
		fmt.Printf("Chain height %d, %d unconfirmed transactions\n",
			l.Height(), len(l.Unconfirmed()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
