package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ember-net/ember-chain/pkg/types"
)

// tagsFileName is the directory file inside the wallet dir.
const tagsFileName = "tags.json"

// ErrTagNotFound means a nickname has no recorded address.
var ErrTagNotFound = errors.New("tag not found")

// Tags is the local directory of nickname to address mappings. Payments are
// addressed by nickname, so sending to someone requires tagging their
// address first.
type Tags struct {
	path   string
	byNick map[string]string // nickname -> address hex
}

// LoadTags reads the tag directory from a wallet dir, starting empty when
// no file exists yet.
func LoadTags(dir string) (*Tags, error) {
	t := &Tags{
		path:   filepath.Join(dir, tagsFileName),
		byNick: make(map[string]string),
	}
	data, err := os.ReadFile(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}
	if err := json.Unmarshal(data, &t.byNick); err != nil {
		return nil, fmt.Errorf("parse tags: %w", err)
	}
	return t, nil
}

func (t *Tags) save() error {
	data, err := json.MarshalIndent(t.byNick, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	if err := os.WriteFile(t.path, data, 0644); err != nil {
		return fmt.Errorf("write tags: %w", err)
	}
	return nil
}

// Set records a nickname's address, overwriting any previous entry.
func (t *Tags) Set(nick string, addr types.Address) error {
	t.byNick[nick] = addr.Hex()
	return t.save()
}

// Remove deletes a nickname's entry.
func (t *Tags) Remove(nick string) error {
	if _, ok := t.byNick[nick]; !ok {
		return fmt.Errorf("%w: %s", ErrTagNotFound, nick)
	}
	delete(t.byNick, nick)
	return t.save()
}

// Address looks up the address tagged with a nickname.
func (t *Tags) Address(nick string) (types.Address, error) {
	hex, ok := t.byNick[nick]
	if !ok {
		return types.Address{}, fmt.Errorf("%w: %s", ErrTagNotFound, nick)
	}
	addr, err := types.AddressFromHex(hex)
	if err != nil {
		return types.Address{}, fmt.Errorf("tag %q: %w", nick, err)
	}
	return addr, nil
}

// Nickname reverse-looks-up the tag for an address, or an empty string.
// With multiple tags on one address the lexicographically first wins.
func (t *Tags) Nickname(addr types.Address) string {
	hex := addr.Hex()
	var found []string
	for nick, a := range t.byNick {
		if a == hex {
			found = append(found, nick)
		}
	}
	if len(found) == 0 {
		return ""
	}
	sort.Strings(found)
	return found[0]
}

// All returns every nickname in sorted order.
func (t *Tags) All() []string {
	nicks := make([]string, 0, len(t.byNick))
	for nick := range t.byNick {
		nicks = append(nicks, nick)
	}
	sort.Strings(nicks)
	return nicks
}
