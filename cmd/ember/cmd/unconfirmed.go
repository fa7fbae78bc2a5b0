package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var unconfirmedCmd = &cobra.Command{
	Use:   "unconfirmed",
	Short: "List transactions waiting to be mined",
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

		pending := l.Unconfirmed()
		if len(pending) == 0 {
			fmt.Println("No unconfirmed transactions")
			return nil
		}
		for _, t := range pending {
			fmt.Printf("%s  from %s  fee %d  %s\n", t.Digest(), t.OwnerAddress(), t.Fee(), t.Status())
			if reason := t.Reason(); reason != "" {
				fmt.Printf("    %s\n", reason)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unconfirmedCmd)
}
