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


package relational

import (
	"context"
	"errors"

	"github.com/poiesic/taskvault/core"
	"github.com/poiesic/taskvault/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errMissingID = errors.New("entity id is required")

// table runs the row-level queries for one entity type.
type table[T storage.Entity] interface {
	upsert(ctx context.Context, partition core.ID, entity T) error
	find(ctx context.Context, partition, id core.ID) (T, bool, error)
	findAll(ctx context.Context, partition core.ID) ([]T, error)
	remove(ctx context.Context, partition, id core.ID) (bool, error)
	count(ctx context.Context, partition core.ID) (int64, error)
}

// Adapter implements storage.Adapter over one relational table.
type Adapter[T storage.Entity] struct {
	typ   storage.EntityType
	table table[T]
}

var _ storage.Adapter[*core.Task] = (*Adapter[*core.Task])(nil)

// NewAdapter creates an adapter for typ using mapping to convert rows.
func NewAdapter[T storage.Entity, R any](db *DB, typ storage.EntityType, mapping Mapping[T, R]) *Adapter[T] {
	return &Adapter[T]{
		typ:   typ,
		table: &gormTable[T, R]{db: db, mapping: mapping},
	}
}

// EntityType returns the type descriptor.
func (a *Adapter[T]) EntityType() storage.EntityType {
	return a.typ
}

// Save inserts the row or updates the existing one with the same key.
func (a *Adapter[T]) Save(ctx context.Context, partition core.ID, entity T) error {
	const op = "save"
	if err := a.typ.BindPartition(op, partition, entity); err != nil {
		return err
	}
	if entity.EntityID().IsZero() {
		return storage.Validation(a.typ.Name, op, errMissingID)
	}
	if err := a.table.upsert(ctx, partition, entity); err != nil {
		return storage.StoreFailure(a.typ.Name, op, partition, err)
	}
	return nil
}

// FindByID retrieves an entity.
func (a *Adapter[T]) FindByID(ctx context.Context, partition, id core.ID) (T, bool, error) {
	const op = "find"
	var zero T
	if err := a.typ.CheckPartition(op, partition); err != nil {
		return zero, false, err
	}
	if id.IsZero() {
		return zero, false, nil
	}
	entity, found, err := a.table.find(ctx, partition, id)
	if err != nil {
		return zero, false, storage.StoreFailure(a.typ.Name, op, partition, err)
	}
	return entity, found, nil
}

// FindAll returns every entity in the partition, oldest first.
func (a *Adapter[T]) FindAll(ctx context.Context, partition core.ID) ([]T, error) {
	const op = "find all"
	if err := a.typ.CheckPartition(op, partition); err != nil {
		return nil, err
	}
	entities, err := a.table.findAll(ctx, partition)
	if err != nil {
		return nil, storage.StoreFailure(a.typ.Name, op, partition, err)
	}
	return entities, nil
}

// Delete removes the row.
func (a *Adapter[T]) Delete(ctx context.Context, partition, id core.ID) error {
	const op = "delete"
	if err := a.typ.CheckPartition(op, partition); err != nil {
		return err
	}
	removed, err := a.table.remove(ctx, partition, id)
	if err != nil {
		return storage.StoreFailure(a.typ.Name, op, partition, err)
	}
	if !removed {
		return storage.NotFound(a.typ.Name, op, partition, id)
	}
	return nil
}

// Exists reports whether the row is stored.
func (a *Adapter[T]) Exists(ctx context.Context, partition, id core.ID) (bool, error) {
	_, found, err := a.FindByID(ctx, partition, id)
	return found, err
}

// Count returns the number of rows in the partition.
func (a *Adapter[T]) Count(ctx context.Context, partition core.ID) (int, error) {
	const op = "count"
	if err := a.typ.CheckPartition(op, partition); err != nil {
		return 0, err
	}
	n, err := a.table.count(ctx, partition)
	if err != nil {
		return 0, storage.StoreFailure(a.typ.Name, op, partition, err)
	}
	return int(n), nil
}

// gormTable implements table for row type R.
type gormTable[T storage.Entity, R any] struct {
	db      *DB
	mapping Mapping[T, R]
}

const keyClause = "partition_id = ? AND id = ?"

func (t *gormTable[T, R]) upsert(ctx context.Context, partition core.ID, entity T) error {
	row := t.mapping.ToRow(partition, entity)
	// Save cannot be used: it treats the empty partition_id of global rows as a new record.
	return t.db.session(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

func (t *gormTable[T, R]) find(ctx context.Context, partition, id core.ID) (T, bool, error) {
	var zero T
	var row R
	err := t.db.session(ctx).Take(&row, keyClause, partition.String(), id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	return t.mapping.FromRow(&row), true, nil
}

func (t *gormTable[T, R]) findAll(ctx context.Context, partition core.ID) ([]T, error) {
	var rows []R
	err := t.db.session(ctx).
		Where("partition_id = ?", partition.String()).
		Order(t.mapping.Order).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	entities := make([]T, 0, len(rows))
	for i := range rows {
		entities = append(entities, t.mapping.FromRow(&rows[i]))
	}
	return entities, nil
}

func (t *gormTable[T, R]) remove(ctx context.Context, partition, id core.ID) (bool, error) {
	result := t.db.session(ctx).Where(keyClause, partition.String(), id.String()).Delete(new(R))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (t *gormTable[T, R]) count(ctx context.Context, partition core.ID) (int64, error) {
	var n int64
	err := t.db.session(ctx).Model(new(R)).Where("partition_id = ?", partition.String()).Count(&n).Error
	return n, err
}
