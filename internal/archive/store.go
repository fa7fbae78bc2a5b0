// Package archive persists raw transactions and blocks so the ledger can be
// rebuilt without re-downloading everything from the relay.
package archive

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ember-net/ember-chain/internal/ledger"
	"github.com/ember-net/ember-chain/internal/storage"
	"github.com/ember-net/ember-chain/pkg/block"
	"github.com/ember-net/ember-chain/pkg/params"
	"github.com/ember-net/ember-chain/pkg/tx"
	"github.com/ember-net/ember-chain/pkg/types"
)

// Key prefixes within a currency's namespace.
var (
	prefixTx    = []byte("t/") // t/<digest32> -> raw transaction
	prefixBlock = []byte("b/") // b/<digest32> -> raw block
)

// Store is the archive of one currency. Items are stored in wire form,
// keyed by digest, inside a per-currency namespace of the shared database.
type Store struct {
	db  *storage.PrefixDB
	log zerolog.Logger
}

// NewStore opens the archive namespace for a currency on the given
// database.
func NewStore(db storage.DB, currency string, logger zerolog.Logger) *Store {
	return &Store{
		db:  storage.NewPrefixDB(db, []byte("c/"+currency+"/")),
		log: logger,
	}
}

func itemKey(prefix []byte, d types.Digest) []byte {
	key := make([]byte, len(prefix)+types.DigestSize)
	copy(key, prefix)
	copy(key[len(prefix):], d[:])
	return key
}

// PutTransaction stores a raw transaction under its digest.
func (s *Store) PutTransaction(d types.Digest, raw []byte) error {
	if err := s.db.Put(itemKey(prefixTx, d), raw); err != nil {
		return fmt.Errorf("archive transaction %s: %w", d, err)
	}
	return nil
}

// PutBlock stores a raw block under its digest.
func (s *Store) PutBlock(d types.Digest, raw []byte) error {
	if err := s.db.Put(itemKey(prefixBlock, d), raw); err != nil {
		return fmt.Errorf("archive block %s: %w", d, err)
	}
	return nil
}

// HasTransaction reports whether the transaction is archived.
func (s *Store) HasTransaction(d types.Digest) (bool, error) {
	return s.db.Has(itemKey(prefixTx, d))
}

// HasBlock reports whether the block is archived.
func (s *Store) HasBlock(d types.Digest) (bool, error) {
	return s.db.Has(itemKey(prefixBlock, d))
}

// Transaction returns the raw bytes of an archived transaction.
func (s *Store) Transaction(d types.Digest) ([]byte, error) {
	return s.db.Get(itemKey(prefixTx, d))
}

// Block returns the raw bytes of an archived block.
func (s *Store) Block(d types.Digest) ([]byte, error) {
	return s.db.Get(itemKey(prefixBlock, d))
}

// ForEachTransaction calls fn for every archived transaction in digest
// order.
func (s *Store) ForEachTransaction(fn func(d types.Digest, raw []byte) error) error {
	return s.forEach(prefixTx, fn)
}

// ForEachBlock calls fn for every archived block in digest order.
func (s *Store) ForEachBlock(fn func(d types.Digest, raw []byte) error) error {
	return s.forEach(prefixBlock, fn)
}

func (s *Store) forEach(prefix []byte, fn func(d types.Digest, raw []byte) error) error {
	return s.db.ForEach(prefix, func(key, value []byte) error {
		if len(key) != len(prefix)+types.DigestSize {
			s.log.Warn().Str("key", string(key)).Msg("malformed archive key skipped")
			return nil
		}
		var d types.Digest
		copy(d[:], key[len(prefix):])
		raw := make([]byte, len(value))
		copy(raw, value)
		return fn(d, raw)
	})
}

// Purge deletes every archived item of this currency.
func (s *Store) Purge() error {
	return s.db.DeleteAll()
}

// Populate decodes every archived item into the ledger. Items that fail to
// decode or fail their structural checks are dropped with a warning instead
// of aborting the load; a corrupt archive entry must not wedge the whole
// currency. Returns the number of transactions and blocks admitted.
func (s *Store) Populate(p *params.Params, l *ledger.Ledger) (int, int, error) {
	var txCount, blockCount int

	err := s.ForEachTransaction(func(d types.Digest, raw []byte) error {
		t, err := tx.Decode(p, raw)
		if err != nil {
			s.log.Warn().Stringer("tx", d).Err(err).Msg("archived transaction dropped")
			return nil
		}
		if err := l.AddTransaction(t); err != nil {
			s.log.Warn().Stringer("tx", d).Err(err).Msg("archived transaction rejected")
			return nil
		}
		txCount++
		return nil
	})
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return txCount, blockCount, err
	}

	err = s.ForEachBlock(func(d types.Digest, raw []byte) error {
		b, err := block.Decode(p, raw)
		if err != nil {
			s.log.Warn().Stringer("block", d).Err(err).Msg("archived block dropped")
			return nil
		}
		if err := l.AddBlock(b); err != nil {
			s.log.Warn().Stringer("block", d).Err(err).Msg("archived block rejected")
			return nil
		}
		blockCount++
		return nil
	})
	if err != nil {
		return txCount, blockCount, err
	}
	return txCount, blockCount, nil
}
