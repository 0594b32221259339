package client

import (
	"errors"
	"fmt"
	"os"

	"clubsite/pkg/logger"

	"github.com/dgraph-io/badger/v4"
)

// Cache is the local copy of documents used in development mode.
type Cache interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Close() error
}

// BadgerCache keeps cached documents in a badger database.
type BadgerCache struct {
	db *badger.DB
}

type badgerLogger struct{}

func (badgerLogger) Errorf(f string, a ...interface{})   { logger.Sugar.Errorf(f, a...) }
func (badgerLogger) Warningf(f string, a ...interface{}) { logger.Sugar.Warnf(f, a...) }
func (badgerLogger) Infof(f string, a ...interface{})    { logger.Sugar.Debugf(f, a...) }
func (badgerLogger) Debugf(f string, a ...interface{})   { logger.Sugar.Debugf(f, a...) }

// OpenBadgerCache opens a cache under dir, creating it if needed.
func OpenBadgerCache(dir string) (*BadgerCache, error) {
	if dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}
	return openBadger(badger.DefaultOptions(dir).WithSyncWrites(true))
}

// OpenMemoryCache opens a cache that lives only as long as the process.
func OpenMemoryCache() (*BadgerCache, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true))
}

func openBadger(opts badger.Options) (*BadgerCache, error) {
	db, err := badger.Open(opts.WithNumVersionsToKeep(1).WithLogger(badgerLogger{}))
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

func (c *BadgerCache) Get(key string) ([]byte, bool, error) {
	var out []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache key %s: %w", key, err)
	}
	return out, true, nil
}

func (c *BadgerCache) Set(key string, value []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (c *BadgerCache) Close() error { return c.db.Close() }
