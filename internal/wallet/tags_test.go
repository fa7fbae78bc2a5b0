package wallet

import (
	"errors"
	"testing"

	"github.com/ember-net/ember-chain/pkg/crypto"
)

func TestTagsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tags, err := LoadTags(dir)
	if err != nil {
		t.Fatalf("LoadTags: %v", err)
	}

	addr := crypto.AddressFromPublicKey([]byte("some public key"))
	if err := tags.Set("dana", addr); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := tags.Address("dana")
	if err != nil {
		t.Fatalf("Address: %v", err)
	}
	if got != addr {
		t.Errorf("Address = %s, want %s", got, addr)
	}
	if nick := tags.Nickname(addr); nick != "dana" {
		t.Errorf("Nickname = %q, want dana", nick)
	}

	// Reload from disk.
	reloaded, err := LoadTags(dir)
	if err != nil {
		t.Fatalf("LoadTags reload: %v", err)
	}
	got, err = reloaded.Address("dana")
	if err != nil {
		t.Fatalf("Address after reload: %v", err)
	}
	if got != addr {
		t.Errorf("Address after reload = %s, want %s", got, addr)
	}
}

func TestTagsMissingAndRemove(t *testing.T) {
	tags, err := LoadTags(t.TempDir())
	if err != nil {
		t.Fatalf("LoadTags: %v", err)
	}

	if _, err := tags.Address("ghost"); !errors.Is(err, ErrTagNotFound) {
		t.Errorf("err = %v, want ErrTagNotFound", err)
	}

	addr := crypto.AddressFromPublicKey([]byte("pk"))
	if err := tags.Set("eve", addr); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := tags.Remove("eve"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := tags.Remove("eve"); !errors.Is(err, ErrTagNotFound) {
		t.Errorf("second Remove: err = %v, want ErrTagNotFound", err)
	}
	if got := len(tags.All()); got != 0 {
		t.Errorf("All has %d entries, want 0", got)
	}
}
