// Package cmd contains the ember CLI commands.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ember-net/ember-chain/config"
	"github.com/ember-net/ember-chain/internal/archive"
	"github.com/ember-net/ember-chain/internal/ledger"
	"github.com/ember-net/ember-chain/internal/log"
	"github.com/ember-net/ember-chain/internal/relay"
	"github.com/ember-net/ember-chain/internal/storage"
	"github.com/ember-net/ember-chain/internal/wallet"
	"github.com/ember-net/ember-chain/pkg/crypto"
	"github.com/ember-net/ember-chain/pkg/params"
)

var (
	flags config.Flags
	cfg   *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "ember",
	Short:         "Ember chain wallet and miner",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dataDir := flags.DataDir
		if dataDir == "" {
			dataDir = config.DefaultDataDir()
		}
		configPath := flags.ConfigFile
		if configPath == "" {
			configPath = filepath.Join(dataDir, "ember.json")
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		flags.Apply(cmd.Flags(), cfg)
		if err := cfg.EnsureDataDirs(); err != nil {
			return err
		}
		return log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File)
	},
}

func init() {
	flags.Register(rootCmd.PersistentFlags())
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadParams reads the active currency file.
func loadParams() (*params.Params, error) {
	return loadParamsFor(cfg.Currency)
}

func loadParamsFor(currency string) (*params.Params, error) {
	c, err := config.LoadCurrency(cfg.CurrencyFile(currency))
	if err != nil {
		return nil, err
	}
	return c.ToParams()
}

// openArchive opens the local BadgerDB archive namespaced to a currency.
// The caller must Close the returned DB.
func openArchive(currency string) (*archive.Store, storage.DB, error) {
	db, err := storage.NewBadger(cfg.ArchiveDir())
	if err != nil {
		return nil, nil, err
	}
	return archive.NewStore(db, currency, log.Archive), db, nil
}

// buildLedger loads every archived item into a fresh ledger and builds it.
func buildLedger(p *params.Params, store *archive.Store) (*ledger.Ledger, error) {
	l := ledger.New(p, log.Ledger)
	if _, _, err := store.Populate(p, l); err != nil {
		return nil, err
	}
	if err := l.Build(); err != nil {
		return nil, err
	}
	return l, nil
}

// newRelayClient builds the relay client from config.
func newRelayClient() (*relay.Client, error) {
	if cfg.Relay.Endpoint == "" {
		return nil, fmt.Errorf("no relay endpoint configured (set relay.endpoint or --relay)")
	}
	timeout := time.Duration(cfg.Relay.TimeoutSeconds) * time.Second
	return relay.NewClient(cfg.Relay.Endpoint, cfg.Relay.APIKey, timeout, log.Relay), nil
}

func openKeystore() (*wallet.Keystore, error) {
	return wallet.NewKeystore(cfg.WalletDir())
}

// promptPassphrase reads a passphrase from the terminal without echo.
func promptPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	return pass, nil
}

// unlockKey loads a signing key, prompting for a passphrase when the key
// is encrypted at rest.
func unlockKey(ks *wallet.Keystore, nick string) (*crypto.PrivateKey, error) {
	var pass []byte
	if ks.Encrypted(nick) {
		var err error
		pass, err = promptPassphrase(fmt.Sprintf("Passphrase for %q: ", nick))
		if err != nil {
			return nil, err
		}
	}
	return ks.Load(nick, pass)
}
