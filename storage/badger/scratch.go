// Copyright 2025 Compliance IQ
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/nmogil/compliance-iq-sub003/storage"
)

// ScratchRepository implements storage.ScratchRepository for BadgerDB.
// Entries live under "scratch:<runID>:" and are owned exclusively by
// one batch run, so no locking beyond Badger's transactions is needed.
type ScratchRepository struct {
	backend *Backend
}

var _ storage.ScratchRepository = (*ScratchRepository)(nil)

// NewScratchRepository creates a new ScratchRepository.
func NewScratchRepository(backend *Backend) *ScratchRepository {
	return &ScratchRepository{backend: backend}
}

// Put persists a value under the given run and key.
func (r *ScratchRepository) Put(ctx context.Context, runID, key string, value []byte) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeScratchKey(runID, key), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Get retrieves a value by run and key.
// Returns storage.ErrNotFound if no value exists.
func (r *ScratchRepository) Get(ctx context.Context, runID, key string) ([]byte, error) {
	var value []byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeScratchKey(runID, key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	}, false)
	return value, err
}

// Keys lists the scratch keys currently stored for a run.
func (r *ScratchRepository) Keys(ctx context.Context, runID string) ([]string, error) {
	prefix := makePartialScratchKey(runID)
	var keys []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			full := string(iter.Item().Key())
			keys = append(keys, strings.TrimPrefix(full, string(prefix)))
		}
		return nil
	}, false)
	return keys, err
}

// Cleanup deletes every scratch entry belonging to a run.
func (r *ScratchRepository) Cleanup(ctx context.Context, runID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		// Collect keys first; Badger forbids deleting under an open iterator.
		var keys [][]byte
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialScratchKey(runID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}
