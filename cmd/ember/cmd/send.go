package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ember-net/ember-chain/pkg/tx"
)

var (
	sendFrom string
	sendFee  int64
)

var sendCmd = &cobra.Command{
	Use:   "send <to> <amount>",
	Short: "Build, archive, and upload a payment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("amount %q: %w", args[1], err)
		}
		dest, err := resolveAddress(args[0])
		if err != nil {
			return err
		}

		p, err := loadParams()
		if err != nil {
			return err
		}
		fee := sendFee
		if fee == 0 {
			fee = p.MinimumFee()
		}

		ks, err := openKeystore()
		if err != nil {
			return err
		}
		key, err := unlockKey(ks, sendFrom)
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

		payment, err := tx.BuildPayment(p, key, l.Spendables(key.Address()), dest, amount, fee)
		if err != nil {
			return err
		}
		if err := l.AddTransaction(payment); err != nil {
			return err
		}
		raw, err := payment.Encode()
		if err != nil {
			return err
		}
		if err := store.PutTransaction(payment.Digest(), raw); err != nil {
			return err
		}
		fmt.Printf("Payment %s archived\n", payment.Digest())

		if cfg.Relay.Endpoint == "" {
			fmt.Println("No relay configured; upload it later with sync peers")
			return nil
		}
		client, err := newRelayClient()
		if err != nil {
			return err
		}
		if err := client.UploadTransaction(cmd.Context(), p.Name(), raw); err != nil {
			return fmt.Errorf("payment archived but upload failed: %w", err)
		}
		fmt.Println("Uploaded to relay")
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendFrom, "from", "", "keystore nickname paying")
	sendCmd.Flags().Int64Var(&sendFee, "fee", 0, "transaction fee (default: currency minimum)")
	sendCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(sendCmd)
}
