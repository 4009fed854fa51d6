package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Cache persists filename proposals keyed by a hash of the provider,
// model, and extracted content, so a resumed run or a retried file never
// re-charges the provider for content it has already paid to analyze
// (spec.md §1 "without ... re-charging").
type Cache struct {
	db *badger.DB
}

// OpenCache opens (or creates) a badger database at dir for the response
// cache.
func OpenCache(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open llm response cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Key derives the cache key for a (provider, model, content) triple.
func Key(provider, model, text string) string {
	h := sha256.Sum256([]byte(provider + "\x00" + model + "\x00" + text))
	return hex.EncodeToString(h[:])
}

// Get returns the cached filename proposal for key, if present.
func (c *Cache) Get(key string) (string, bool) {
	if c == nil || c.db == nil {
		return "", false
	}

	var value string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false
	}
	return value, true
}

// Set stores a filename proposal under key.
func (c *Cache) Set(key, filename string) error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(filename))
	})
}
