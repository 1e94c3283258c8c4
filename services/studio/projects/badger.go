// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package projects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	badgerdb "github.com/AleutianAI/StipulaForge/pkg/storage/badger"
)

const badgerKeyPrefix = "project/"

// badgerRecord is the stored value.
type badgerRecord struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Snapshot  json.RawMessage `json:"snapshot"`
}

// BadgerStore keeps projects in BadgerDB under "project/<name>".
type BadgerStore struct {
	db  *badgerdb.DB
	now func() time.Time
}

// OpenBadger opens a persistent BadgerStore at dir.
func OpenBadger(dir string, logger *slog.Logger) (*BadgerStore, error) {
	cfg := badgerdb.DefaultConfig(dir)
	cfg.Logger = logger
	db, err := badgerdb.Open(cfg)
	if err != nil {
		return nil, err
	}
	return NewBadgerStore(db), nil
}

// NewBadgerStore wraps an open database. The store takes ownership of db.
func NewBadgerStore(db *badgerdb.DB) *BadgerStore {
	return &BadgerStore{db: db, now: time.Now}
}

func badgerKey(name string) []byte {
	return []byte(badgerKeyPrefix + name)
}

func (s *BadgerStore) Put(ctx context.Context, name string, snapshot []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	if !json.Valid(snapshot) {
		return fmt.Errorf("store project %s: snapshot is not valid JSON", name)
	}
	value, err := json.Marshal(badgerRecord{UpdatedAt: s.now().UTC(), Snapshot: snapshot})
	if err != nil {
		return fmt.Errorf("encode project %s: %w", name, err)
	}
	return s.db.Update(ctx, func(txn *badger.Txn) error {
		return txn.Set(badgerKey(name), value)
	})
}

func (s *BadgerStore) Get(ctx context.Context, name string) (Record, error) {
	var rec Record
	err := s.db.View(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var stored badgerRecord
			if err := json.Unmarshal(val, &stored); err != nil {
				return fmt.Errorf("decode project %s: %w", name, err)
			}
			rec = Record{
				Summary: Summary{
					Name:      name,
					UpdatedAt: stored.UpdatedAt,
					Size:      len(stored.Snapshot),
				},
				Snapshot: append([]byte(nil), stored.Snapshot...),
			}
			return nil
		})
	})
	return rec, err
}

func (s *BadgerStore) Delete(ctx context.Context, name string) error {
	return s.db.Update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerKey(name)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(badgerKey(name))
	})
}

// List iterates the key prefix, which Badger returns in byte order.
func (s *BadgerStore) List(ctx context.Context) ([]Summary, error) {
	var out []Summary
	err := s.db.View(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			name := string(item.Key()[len(badgerKeyPrefix):])
			err := item.Value(func(val []byte) error {
				var stored badgerRecord
				if err := json.Unmarshal(val, &stored); err != nil {
					return fmt.Errorf("decode project %s: %w", name, err)
				}
				out = append(out, Summary{Name: name, UpdatedAt: stored.UpdatedAt, Size: len(stored.Snapshot)})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if out == nil {
		out = []Summary{}
	}
	return out, err
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
