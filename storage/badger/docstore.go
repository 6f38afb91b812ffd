// Copyright 2025 Poiesic Systems
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
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/taskvault/core"
)

var (
	// ErrInvalidPartition is returned for partition names the key layout cannot hold.
	ErrInvalidPartition = errors.New("invalid partition name")
)

// Change is one entry of a partition's append-only change log.
type Change struct {
	Seq  uint64
	Data []byte
}

// DocumentStore persists one document per partition as a snapshot plus
// an append-only change log. Values are opaque bytes.
type DocumentStore struct {
	backend *Backend
	seq     *badger.Sequence
}

// NewDocumentStore creates a DocumentStore over backend.
func NewDocumentStore(backend *Backend) (*DocumentStore, error) {
	seq, err := backend.GetSequence(docChangeSeq)
	if err != nil {
		return nil, err
	}
	return &DocumentStore{
		backend: backend,
		seq:     seq,
	}, nil
}

// Close releases the change sequence. The backend stays open.
func (s *DocumentStore) Close() error {
	return s.seq.Release()
}

// Load returns the latest snapshot of partition, or false if it was never committed.
func (s *DocumentStore) Load(ctx context.Context, partition core.ID) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var snapshot []byte
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSnapshotKey(partition))
		if err != nil {
			return err
		}
		snapshot, err = item.ValueCopy(nil)
		return err
	}, false)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return snapshot, true, nil
}

// ValidatePartition reports whether partition can be stored under the key layout.
func ValidatePartition(partition core.ID) error {
	if partition.IsZero() || strings.Contains(string(partition), ":") {
		return fmt.Errorf("%w: %q", ErrInvalidPartition, partition)
	}
	return nil
}

// Commit atomically replaces the snapshot of partition and appends change
// to its change log. Returns the sequence number assigned to the change.
func (s *DocumentStore) Commit(ctx context.Context, partition core.ID, snapshot, change []byte) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := ValidatePartition(partition); err != nil {
		return 0, err
	}

	seq, err := s.nextSeq()
	if err != nil {
		return 0, err
	}

	err = s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeSnapshotKey(partition), snapshot); err != nil {
			return err
		}
		if err := tx.Set(makeChangeKey(partition, seq), change); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (s *DocumentStore) nextSeq() (uint64, error) {
	seq, err := s.seq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if seq == 0 {
		return s.seq.Next()
	}
	return seq, nil
}

// Changes returns the change log of partition in commit order.
func (s *DocumentStore) Changes(ctx context.Context, partition core.ID) ([]Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var changes []Change
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChangeKey(partition)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			seq, ok := parseChangeSeq(item.Key())
			if !ok {
				continue
			}
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			changes = append(changes, Change{Seq: seq, Data: data})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// Partitions lists every partition with a committed snapshot, in key order.
func (s *DocumentStore) Partitions(ctx context.Context) ([]core.ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var partitions []core.ID
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(docSnapshotPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if p, ok := parseSnapshotPartition(iter.Item().Key()); ok {
				partitions = append(partitions, p)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return partitions, nil
}
