// Package wallet manages key pairs on disk, keyed by nickname, and the tag
// directory mapping nicknames to addresses.
package wallet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ember-net/ember-chain/pkg/crypto"
	"github.com/ember-net/ember-chain/pkg/types"
)

// Keystore errors.
var (
	ErrKeyExists    = errors.New("key pair already exists")
	ErrKeyNotFound  = errors.New("key pair not found")
	ErrNoPrivateKey = errors.New("no private key for nickname")
)

// File name patterns. Every nickname gets a public key file; the private
// half is stored either as plain PEM or, when a passphrase is supplied,
// encrypted.
const (
	publicKeyPrefix    = "publickey-"
	privateKeyPrefix   = "privatekey-"
	pemSuffix          = ".pem"
	encryptedKeySuffix = ".enc"
)

// Keystore reads and writes key pairs in a directory.
type Keystore struct {
	dir string
}

// NewKeystore opens a keystore directory, creating it if needed.
func NewKeystore(dir string) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{dir: dir}, nil
}

func (ks *Keystore) publicPath(nick string) string {
	return filepath.Join(ks.dir, publicKeyPrefix+nick+pemSuffix)
}

func (ks *Keystore) privatePath(nick string) string {
	return filepath.Join(ks.dir, privateKeyPrefix+nick+pemSuffix)
}

func (ks *Keystore) encryptedPath(nick string) string {
	return filepath.Join(ks.dir, privateKeyPrefix+nick+encryptedKeySuffix)
}

// Generate creates a new key pair for a nickname and writes it to disk.
// With a non-empty passphrase the private key is encrypted; otherwise it is
// stored as plain PEM. Fails if the nickname already has a key pair.
func (ks *Keystore) Generate(nick string, passphrase []byte) (*crypto.PrivateKey, error) {
	if _, err := os.Stat(ks.publicPath(nick)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyExists, nick)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := ks.writeKey(nick, key, passphrase); err != nil {
		return nil, err
	}
	return key, nil
}

// Import writes an existing key pair to disk under a nickname.
func (ks *Keystore) Import(nick string, key *crypto.PrivateKey, passphrase []byte) error {
	if _, err := os.Stat(ks.publicPath(nick)); err == nil {
		return fmt.Errorf("%w: %s", ErrKeyExists, nick)
	}
	return ks.writeKey(nick, key, passphrase)
}

func (ks *Keystore) writeKey(nick string, key *crypto.PrivateKey, passphrase []byte) error {
	if err := os.WriteFile(ks.publicPath(nick), key.MarshalPublicPEM(), 0644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}

	if len(passphrase) > 0 {
		der, err := key.MarshalPrivateDER()
		if err != nil {
			return err
		}
		sealed, err := Encrypt(der, passphrase, DefaultParams())
		if err != nil {
			return fmt.Errorf("encrypt private key: %w", err)
		}
		if err := os.WriteFile(ks.encryptedPath(nick), sealed, 0600); err != nil {
			return fmt.Errorf("write private key: %w", err)
		}
		return nil
	}

	pemBytes, err := key.MarshalPrivatePEM()
	if err != nil {
		return err
	}
	if err := os.WriteFile(ks.privatePath(nick), pemBytes, 0600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	return nil
}

// Load reads a nickname's private key. The passphrase is required for
// encrypted keys and ignored for plain ones.
func (ks *Keystore) Load(nick string, passphrase []byte) (*crypto.PrivateKey, error) {
	if sealed, err := os.ReadFile(ks.encryptedPath(nick)); err == nil {
		der, err := Decrypt(sealed, passphrase)
		if err != nil {
			return nil, fmt.Errorf("unlock key %q: %w", nick, err)
		}
		return crypto.ParsePrivateDER(der)
	}

	pemBytes, err := os.ReadFile(ks.privatePath(nick))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoPrivateKey, nick)
	}
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	return crypto.ParsePrivatePEM(pemBytes)
}

// PublicKey returns a nickname's encoded public key.
func (ks *Keystore) PublicKey(nick string) ([]byte, error) {
	pemBytes, err := os.ReadFile(ks.publicPath(nick))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, nick)
	}
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return crypto.ParsePublicPEM(pemBytes)
}

// Address returns the chain address of a nickname's public key.
func (ks *Keystore) Address(nick string) (types.Address, error) {
	pub, err := ks.PublicKey(nick)
	if err != nil {
		return types.Address{}, err
	}
	return crypto.AddressFromPublicKey(pub), nil
}

// Encrypted reports whether a nickname's private key needs a passphrase.
func (ks *Keystore) Encrypted(nick string) bool {
	_, err := os.Stat(ks.encryptedPath(nick))
	return err == nil
}

// HasPrivateKey reports whether the nickname can sign, encrypted or not.
func (ks *Keystore) HasPrivateKey(nick string) bool {
	if _, err := os.Stat(ks.encryptedPath(nick)); err == nil {
		return true
	}
	_, err := os.Stat(ks.privatePath(nick))
	return err == nil
}

// List returns every nickname with a public key, sorted.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.dir)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	var nicks []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, publicKeyPrefix) || !strings.HasSuffix(name, pemSuffix) {
			continue
		}
		nicks = append(nicks, name[len(publicKeyPrefix):len(name)-len(pemSuffix)])
	}
	sort.Strings(nicks)
	return nicks, nil
}

// Delete removes a nickname's key files.
func (ks *Keystore) Delete(nick string) error {
	if _, err := os.Stat(ks.publicPath(nick)); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, nick)
	}
	if err := os.Remove(ks.publicPath(nick)); err != nil {
		return err
	}
	os.Remove(ks.privatePath(nick))
	os.Remove(ks.encryptedPath(nick))
	return nil
}
