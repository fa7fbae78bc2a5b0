package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the ledger from the local archive and print a summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadParams()
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

		tip := l.Tip()
		fmt.Printf("Currency:    %s\n", p.Name())
		fmt.Printf("Height:      %d\n", l.Height())
		if tip != nil {
			fmt.Printf("Tip:         %s\n", tip.Digest())
		}
		fmt.Printf("Blocks:      %d canonical\n", len(l.Canonical()))
		fmt.Printf("Unconfirmed: %d transactions\n", len(l.Unconfirmed()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
