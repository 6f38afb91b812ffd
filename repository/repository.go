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


package repository

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/taskvault/core"
	"github.com/poiesic/taskvault/storage"
)

var errMissingID = errors.New("entity has no identity")

// Option configures a Repository.
type Option func(*settings)

type settings struct {
	logger *slog.Logger
	clock  func() time.Time
	newID  func() core.ID
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithClock sets the time source used when a Stamp carries no time.
func WithClock(clock func() time.Time) Option {
	return func(s *settings) {
		s.clock = clock
	}
}

// WithIDGenerator sets the generator for entities saved without an ID.
func WithIDGenerator(newID func() core.ID) Option {
	return func(s *settings) {
		s.newID = newID
	}
}

// Repository applies the write-through, first-found-read policy for one
// entity type across an ordered save list and an ordered search list.
type Repository[T storage.Entity] struct {
	typ    storage.EntityType
	save   []Backend[T]
	search []Backend[T]
	settings
}

// New creates a repository. Either list may be empty.
func New[T storage.Entity](typ storage.EntityType, save, search []Backend[T], opts ...Option) *Repository[T] {
	s := settings{
		logger: slog.Default(),
		clock:  time.Now,
		newID:  core.NewID,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &Repository[T]{
		typ:      typ,
		save:     slices.Clone(save),
		search:   slices.Clone(search),
		settings: s,
	}
}

// EntityType returns the type descriptor.
func (r *Repository[T]) EntityType() storage.EntityType {
	return r.typ
}

// SaveBackends returns the save list in write order.
func (r *Repository[T]) SaveBackends() []Backend[T] {
	return slices.Clone(r.save)
}

// SearchBackends returns the search list in read order.
func (r *Repository[T]) SearchBackends() []Backend[T] {
	return slices.Clone(r.search)
}

// Backend returns the first configured backend of kind from the save list,
// then the search list.
func (r *Repository[T]) Backend(kind Kind) (Backend[T], bool) {
	for _, b := range slices.Concat(r.save, r.search) {
		if b.Kind() == kind {
			return b, true
		}
	}
	return Backend[T]{}, false
}

// Save validates and stamps entity, assigns an ID if it has none, then writes
// it to every save backend in order. The first failure is returned as is;
// backends written before it keep the entity.
func (r *Repository[T]) Save(ctx context.Context, partition core.ID, entity T, stamp storage.Stamp) error {
	const op = "save"
	if err := r.typ.BindPartition(op, partition, entity); err != nil {
		return err
	}
	if v, ok := any(entity).(storage.Validator); ok {
		if err := v.Validate(); err != nil {
			return storage.Validation(r.typ.Name, op, err)
		}
	}
	if entity.EntityID().IsZero() {
		entity.AssignID(r.newID())
	}
	if entity.EntityID().IsZero() {
		return storage.Validation(r.typ.Name, op, errMissingID)
	}

	entity.Touch(stamp.Actor, r.stampTime(stamp))
	return r.writeAll(ctx, op, partition, entity)
}

func (r *Repository[T]) writeAll(ctx context.Context, op string, partition core.ID, entity T) error {
	for _, b := range r.save {
		if err := b.Save(ctx, partition, entity); err != nil {
			r.logger.Warn("backend write failed",
				"entity", r.typ.Name, "op", op, "backend", b.Kind(),
				"partition", partition, "id", entity.EntityID(), "error", err)
			return err
		}
	}
	r.logger.Debug("entity written",
		"entity", r.typ.Name, "op", op, "partition", partition,
		"id", entity.EntityID(), "backends", len(r.save))
	return nil
}

// stampTime normalizes to UTC microseconds so every backend stores the same instant.
func (r *Repository[T]) stampTime(stamp storage.Stamp) time.Time {
	at := stamp.At
	if at.IsZero() {
		at = r.clock()
	}
	return at.UTC().Truncate(time.Microsecond)
}

// FindByID returns the first copy found across the search list.
func (r *Repository[T]) FindByID(ctx context.Context, partition, id core.ID) (T, bool, error) {
	var zero T
	if err := r.typ.CheckPartition("find", partition); err != nil {
		return zero, false, err
	}
	for _, b := range r.search {
		entity, found, err := b.FindByID(ctx, partition, id)
		if err != nil {
			return zero, false, err
		}
		if found {
			return entity, true, nil
		}
	}
	return zero, false, nil
}

// FindAll returns the partition's entities from the first search backend only.
// Entities held solely by later backends are not included.
func (r *Repository[T]) FindAll(ctx context.Context, partition core.ID) ([]T, error) {
	if err := r.typ.CheckPartition("find all", partition); err != nil {
		return nil, err
	}
	if len(r.search) == 0 {
		return []T{}, nil
	}
	return r.search[0].FindAll(ctx, partition)
}

// Count returns the partition's entity count from the first search backend only.
func (r *Repository[T]) Count(ctx context.Context, partition core.ID) (int, error) {
	if err := r.typ.CheckPartition("count", partition); err != nil {
		return 0, err
	}
	if len(r.search) == 0 {
		return 0, nil
	}
	return r.search[0].Count(ctx, partition)
}

// Exists reports whether any search backend holds the entity.
func (r *Repository[T]) Exists(ctx context.Context, partition, id core.ID) (bool, error) {
	if err := r.typ.CheckPartition("exists", partition); err != nil {
		return false, err
	}
	for _, b := range r.search {
		found, err := b.Exists(ctx, partition, id)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// Delete physically removes the entity from every save backend in order,
// stopping at the first failure.
func (r *Repository[T]) Delete(ctx context.Context, partition, id core.ID) error {
	if err := r.typ.CheckPartition("delete", partition); err != nil {
		return err
	}
	for _, b := range r.save {
		if err := b.Delete(ctx, partition, id); err != nil {
			r.logger.Warn("backend delete failed",
				"entity", r.typ.Name, "backend", b.Kind(),
				"partition", partition, "id", id, "error", err)
			return err
		}
	}
	return nil
}

// MarkDeleted soft-deletes the entity on every save backend. Only the
// tombstone changes; all other fields keep their stored values.
func (r *Repository[T]) MarkDeleted(ctx context.Context, partition, id core.ID, stamp storage.Stamp) error {
	const op = "mark deleted"
	return r.updateTombstone(ctx, op, partition, id, func(sd storage.SoftDeletable) {
		sd.MarkDeleted(stamp.Actor, r.stampTime(stamp))
	})
}

// MarkRestored clears the tombstone on every save backend.
func (r *Repository[T]) MarkRestored(ctx context.Context, partition, id core.ID) error {
	const op = "mark restored"
	return r.updateTombstone(ctx, op, partition, id, func(sd storage.SoftDeletable) {
		sd.MarkRestored()
	})
}

func (r *Repository[T]) updateTombstone(ctx context.Context, op string, partition, id core.ID, apply func(storage.SoftDeletable)) error {
	var zero T
	if _, ok := any(zero).(storage.SoftDeletable); !ok {
		return storage.InvalidOperation(r.typ.Name, op, "entity type has no tombstone")
	}
	entity, found, err := r.FindByID(ctx, partition, id)
	if err != nil {
		return err
	}
	if !found {
		return storage.NotFound(r.typ.Name, op, partition, id)
	}
	apply(any(entity).(storage.SoftDeletable))
	return r.writeAll(ctx, op, partition, entity)
}
