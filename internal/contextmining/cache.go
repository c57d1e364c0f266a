// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package contextmining

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/deepaksaipendyala/QUEST/internal/domain"
	"github.com/deepaksaipendyala/QUEST/pkg/logging"
)

// Cache is an embedded key-value tier in front of Mine, grounded on the
// teacher's services/trace/storage/badger package. A run mines the
// module under test once, before its first attempt; caching by content
// hash turns any later run against an unchanged module into a lookup
// instead of a tree-sitter parse.
type Cache struct {
	db *badger.DB
}

// OpenCache opens (creating if necessary) a BadgerDB-backed cache at
// dir. BadgerDB's internal logging is disabled, matching the teacher's
// "nil logger disables BadgerDB's internal logging" default; cache hits
// and misses are not logged, only read/write/encode failures are.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create context cache directory %s: %w", dir, err)
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open context cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached ContextPack for source, if one has been stored.
func (c *Cache) Get(source []byte) (domain.ContextPack, bool) {
	var pack domain.ContextPack
	found := false

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(source))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &pack); err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	if err != nil {
		logging.Default().Warn("context cache read failed", "error", err)
		return domain.ContextPack{}, false
	}
	return pack, found
}

// Put stores pack under source's content hash.
func (c *Cache) Put(source []byte, pack domain.ContextPack) {
	encoded, err := json.Marshal(pack)
	if err != nil {
		logging.Default().Warn("context cache encode failed", "error", err)
		return
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(source), encoded)
	})
	if err != nil {
		logging.Default().Warn("context cache write failed", "error", err)
	}
}

func cacheKey(source []byte) []byte {
	sum := sha256.Sum256(source)
	return []byte("contextpack:" + hex.EncodeToString(sum[:]))
}

// MineCached behaves like Miner.Mine but consults cache first and
// populates it on a miss.
func (m *Miner) MineCached(ctx context.Context, source []byte, modulePath string, cache *Cache) (domain.ContextPack, error) {
	if cache != nil {
		if pack, ok := cache.Get(source); ok {
			return pack, nil
		}
	}
	pack, err := m.Mine(ctx, source, modulePath)
	if err != nil {
		return domain.ContextPack{}, err
	}
	if cache != nil {
		cache.Put(source, pack)
	}
	return pack, nil
}
