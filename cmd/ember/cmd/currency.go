package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ember-net/ember-chain/config"
	"github.com/ember-net/ember-chain/internal/log"
	"github.com/ember-net/ember-chain/internal/miner"
	"github.com/ember-net/ember-chain/pkg/params"
)

var (
	currencyKey        string
	currencyMinFee     int64
	currencyReward     int64
	currencyDifficulty string
	currencyGrant      int64
)

var createCurrencyCmd = &cobra.Command{
	Use:   "create-currency <name>",
	Short: "Mine a genesis block and write a new currency file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		path := cfg.CurrencyFile(name)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("currency %q already exists at %s", name, path)
		}

		ks, err := openKeystore()
		if err != nil {
			return err
		}
		key, err := unlockKey(ks, currencyKey)
		if err != nil {
			return err
		}

		p, err := params.New(name, "", currencyMinFee, currencyReward, currencyDifficulty)
		if err != nil {
			return err
		}

		blk, grant, err := miner.GenesisBlock(p, key, currencyGrant)
		if err != nil {
			return err
		}
		m := miner.New(p, nil, log.Miner)
		m.Threads = cfg.Mining.Threads
		digest, err := m.Mine(cmd.Context(), blk)
		if err != nil {
			return err
		}
		p.SetGenesisDigest(digest)

		if err := config.FromParams(p).Save(path); err != nil {
			return err
		}

		store, db, err := openArchive(name)
		if err != nil {
			return err
		}
		defer db.Close()
		grantRaw, err := grant.Encode()
		if err != nil {
			return err
		}
		blkRaw, err := blk.Encode()
		if err != nil {
			return err
		}
		if err := store.PutTransaction(grant.Digest(), grantRaw); err != nil {
			return err
		}
		if err := store.PutBlock(digest, blkRaw); err != nil {
			return err
		}

		fmt.Printf("Created currency %q\nGenesis: %s\nCreator grant: %d to %s\n",
			name, digest, currencyGrant, key.Address())

		if cfg.Relay.Endpoint == "" {
			return nil
		}
		client, err := newRelayClient()
		if err != nil {
			return err
		}
		if err := client.UploadTransaction(cmd.Context(), name, grantRaw); err != nil {
			return fmt.Errorf("genesis archived but grant upload failed: %w", err)
		}
		if err := client.UploadBlock(cmd.Context(), name, blkRaw); err != nil {
			return fmt.Errorf("genesis archived but upload failed: %w", err)
		}
		fmt.Println("Uploaded to relay")
		return nil
	},
}

func init() {
	createCurrencyCmd.Flags().StringVar(&currencyKey, "key", "", "keystore nickname receiving the creator grant")
	createCurrencyCmd.Flags().Int64Var(&currencyMinFee, "min-fee", 1, "minimum transaction fee")
	createCurrencyCmd.Flags().Int64Var(&currencyReward, "reward", 100, "initial mining reward")
	createCurrencyCmd.Flags().StringVar(&currencyDifficulty, "difficulty", "0001", "initial difficulty threshold (hex)")
	createCurrencyCmd.Flags().Int64Var(&currencyGrant, "grant", 1000, "creator grant paid by the genesis coinbase")
	createCurrencyCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(createCurrencyCmd)
}
