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


package document

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/poiesic/taskvault/core"
	"github.com/poiesic/taskvault/storage"
	"github.com/poiesic/taskvault/storage/badger"
)

var (
	// ErrClosed is returned by a Manager after Close.
	ErrClosed = errors.New("document manager is closed")

	// ErrNoPartition is returned when a handle is requested for the empty partition.
	ErrNoPartition = errors.New("partition is required")
)

// Engine is the persistence engine behind a Manager.
// *badger.DocumentStore implements it.
type Engine interface {
	Load(ctx context.Context, partition core.ID) ([]byte, bool, error)
	Commit(ctx context.Context, partition core.ID, snapshot, change []byte) (uint64, error)
	Changes(ctx context.Context, partition core.ID) ([]badger.Change, error)
	Partitions(ctx context.Context) ([]core.ID, error)
}

var _ Engine = (*badger.DocumentStore)(nil)

// Handle is an open partition document.
type Handle struct {
	partition core.ID
	mu        sync.RWMutex
	root      *node
}

// Partition returns the partition the handle belongs to.
func (h *Handle) Partition() core.ID {
	return h.partition
}

// Manager owns the open partition documents of one engine.
// At most one Handle exists per partition per Manager.
type Manager struct {
	engine Engine
	logger *slog.Logger
	clock  func() time.Time

	mu      sync.Mutex
	handles map[core.ID]*Handle
	closed  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock sets the time source used for change-log entries.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// NewManager creates a Manager over engine.
func NewManager(engine Engine, opts ...Option) *Manager {
	m := &Manager{
		engine:  engine,
		logger:  slog.Default(),
		clock:   time.Now,
		handles: make(map[core.ID]*Handle),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreate returns the handle for partition, loading its snapshot from the
// engine on first use. A partition that was never written yields an empty document.
func (m *Manager) GetOrCreate(ctx context.Context, partition core.ID) (*Handle, error) {
	if partition.IsZero() {
		return nil, ErrNoPartition
	}
	if err := badger.ValidatePartition(partition); err != nil {
		return nil, storage.Validation("document", "open", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if h, ok := m.handles[partition]; ok {
		return h, nil
	}

	data, found, err := m.engine.Load(ctx, partition)
	if err != nil {
		return nil, err
	}
	root := newNode()
	if found {
		if err := storage.Unmarshal(data, root); err != nil {
			return nil, storage.Conversion("document", "open", partition, err)
		}
	}

	h := &Handle{partition: partition, root: root}
	m.handles[partition] = h
	m.logger.Debug("opened document", "partition", partition, "existing", found)
	return h, nil
}

// LoadAtPath returns the raw value stored at path.
// Missing segments report false with a nil error.
func (m *Manager) LoadAtPath(ctx context.Context, h *Handle, path Path) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := m.checkOpen(); err != nil {
		return nil, false, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	value, found := h.root.get(path)
	return value, found, nil
}

// ChildrenAt returns the sorted names directly below path.
func (m *Manager) ChildrenAt(ctx context.Context, h *Handle, path Path) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.root.children(path), nil
}

// SaveAtPath stores value at path, creating intermediate containers, and
// commits the document.
func (m *Manager) SaveAtPath(ctx context.Context, h *Handle, path Path, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	return m.UpdateAtPath(ctx, h, path, func([]byte, bool) ([]byte, error) {
		return value, nil
	})
}

// UpdateAtPath replaces the value at path with the result of fn while holding
// the handle's write lock. A nil result removes the value. If fn fails nothing
// is committed.
func (m *Manager) UpdateAtPath(ctx context.Context, h *Handle, path Path, fn func(current []byte, found bool) ([]byte, error)) error {
	if err := path.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.checkOpen(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	old, had := h.root.get(path)
	next, err := fn(old, had)
	if err != nil {
		return err
	}

	op := opPut
	if next == nil {
		if !had {
			return nil
		}
		op = opRemove
		h.root.remove(path)
	} else {
		h.root.put(path, next)
	}

	if err := m.commit(ctx, h, op, path); err != nil {
		restore(h.root, path, old, had)
		return err
	}
	return nil
}

// RemoveAtPath deletes the value at path. Reports whether it was present.
func (m *Manager) RemoveAtPath(ctx context.Context, h *Handle, path Path) (bool, error) {
	var removed bool
	err := m.UpdateAtPath(ctx, h, path, func(_ []byte, found bool) ([]byte, error) {
		removed = found
		return nil, nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func restore(root *node, path Path, old []byte, had bool) {
	if had {
		root.put(path, old)
		return
	}
	root.remove(path)
}

// commit persists the handle's tree. Caller holds h.mu.
func (m *Manager) commit(ctx context.Context, h *Handle, op string, path Path) error {
	snapshot, err := storage.Marshal(h.root)
	if err != nil {
		return storage.Conversion("document", "commit", h.partition, err)
	}
	change, err := storage.Marshal(HistoryEntry{
		Op:   op,
		Path: path.String(),
		At:   m.clock().UTC(),
	})
	if err != nil {
		return storage.Conversion("document", "commit", h.partition, err)
	}
	seq, err := m.engine.Commit(ctx, h.partition, snapshot, change)
	if err != nil {
		m.logger.Warn("document commit failed", "partition", h.partition, "path", path.String(), "error", err)
		return err
	}
	m.logger.Debug("document committed", "partition", h.partition, "op", op, "path", path.String(), "seq", seq)
	return nil
}

// Partitions lists every partition known to the engine or open in this Manager.
func (m *Manager) Partitions(ctx context.Context) ([]core.ID, error) {
	stored, err := m.engine.Partitions(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	open := slices.Collect(maps.Keys(m.handles))
	m.mu.Unlock()

	all := append(stored, open...)
	slices.Sort(all)
	return slices.Compact(all), nil
}

// Close drops every open handle. The engine is not closed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	clear(m.handles)
	return nil
}

func (m *Manager) checkOpen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}
