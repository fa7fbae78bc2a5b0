package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ember-net/ember-chain/internal/wallet"
	"github.com/ember-net/ember-chain/pkg/types"
)

var balanceVerbose bool

var balanceCmd = &cobra.Command{
	Use:   "balance [<nickname-or-address>]",
	Short: "Show spendable balances on the canonical chain",
	Args:  cobra.MaximumNArgs(1),
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

		if len(args) == 1 {
			addr, err := resolveAddress(args[0])
			if err != nil {
				return err
			}
			printBalance(args[0], addr, l.BalanceOf(addr).Amount)
			if balanceVerbose {
				for _, u := range l.BalanceOf(addr).UTXOs {
					fmt.Printf("  %s  %d\n", u.Outpoint, u.Amount)
				}
			}
			return nil
		}

		tags, _ := wallet.LoadTags(cfg.WalletDir())
		for _, b := range l.Balances() {
			name := b.Address.Hex()
			if tags != nil {
				if nick := tags.Nickname(b.Address); nick != "" {
					name = nick
				}
			}
			printBalance(name, b.Address, b.Amount)
		}
		return nil
	},
}

func printBalance(name string, addr types.Address, amount int64) {
	if name == addr.Hex() {
		fmt.Printf("%s  %d\n", addr, amount)
		return
	}
	fmt.Printf("%-16s %s  %d\n", name, addr, amount)
}

func init() {
	balanceCmd.Flags().BoolVar(&balanceVerbose, "utxos", false, "list individual unspent outputs")
	rootCmd.AddCommand(balanceCmd)
}
