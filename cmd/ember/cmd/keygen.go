package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var keygenEncrypt bool

var keygenCmd = &cobra.Command{
	Use:   "keygen <nickname>",
	Short: "Generate a new key pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nick := args[0]
		ks, err := openKeystore()
		if err != nil {
			return err
		}

		var pass []byte
		if keygenEncrypt {
			pass, err = promptPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassphrase("Confirm passphrase: ")
			if err != nil {
				return err
			}
			if string(pass) != string(confirm) {
				return fmt.Errorf("passphrases do not match")
			}
		}

		key, err := ks.Generate(nick, pass)
		if err != nil {
			return err
		}
		fmt.Printf("Generated key %q\nAddress: %s\n", nick, key.Address())
		return nil
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List key pairs in the wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ks, err := openKeystore()
		if err != nil {
			return err
		}
		nicks, err := ks.List()
		if err != nil {
			return err
		}
		for _, nick := range nicks {
			addr, err := ks.Address(nick)
			if err != nil {
				return err
			}
			marker := " "
			if !ks.HasPrivateKey(nick) {
				marker = " (no private key)"
			} else if ks.Encrypted(nick) {
				marker = " (encrypted)"
			}
			fmt.Printf("%-16s %s%s\n", nick, addr, marker)
		}
		return nil
	},
}

func init() {
	keygenCmd.Flags().BoolVar(&keygenEncrypt, "encrypt", false, "encrypt the private key with a passphrase")
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(keysCmd)
}
