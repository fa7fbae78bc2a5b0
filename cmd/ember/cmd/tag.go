package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ember-net/ember-chain/internal/wallet"
	"github.com/ember-net/ember-chain/pkg/types"
)

var tagRemove bool

var tagCmd = &cobra.Command{
	Use:   "tag [<nickname> [<address>]]",
	Short: "Manage the nickname to address directory",
	Long: `With no arguments, list every tag. With a nickname and an address,
record the tag. With --remove and a nickname, delete it.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, err := wallet.LoadTags(cfg.WalletDir())
		if err != nil {
			return err
		}

		switch {
		case tagRemove:
			if len(args) != 1 {
				return fmt.Errorf("--remove takes exactly one nickname")
			}
			return tags.Remove(args[0])
		case len(args) == 2:
			addr, err := types.AddressFromHex(args[1])
			if err != nil {
				return err
			}
			return tags.Set(args[0], addr)
		case len(args) == 0:
			for _, nick := range tags.All() {
				addr, err := tags.Address(nick)
				if err != nil {
					return err
				}
				fmt.Printf("%-16s %s\n", nick, addr)
			}
			return nil
		default:
			return fmt.Errorf("tagging needs both a nickname and an address")
		}
	},
}

func init() {
	tagCmd.Flags().BoolVar(&tagRemove, "remove", false, "remove the tag")
	rootCmd.AddCommand(tagCmd)
}

// resolveAddress turns a payee argument into an address: a keystore
// nickname, then a tag, then raw address hex.
func resolveAddress(arg string) (types.Address, error) {
	if ks, err := openKeystore(); err == nil {
		if addr, err := ks.Address(arg); err == nil {
			return addr, nil
		}
	}
	tags, err := wallet.LoadTags(cfg.WalletDir())
	if err == nil {
		if addr, err := tags.Address(arg); err == nil {
			return addr, nil
		}
	}
	addr, err := types.AddressFromHex(arg)
	if err != nil {
		return types.Address{}, fmt.Errorf("%q is not a known nickname, tag, or address", arg)
	}
	return addr, nil
}
