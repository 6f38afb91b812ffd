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
	"slices"

	"github.com/poiesic/taskvault/core"
	"github.com/poiesic/taskvault/storage"
)

var (
	errMissingID = errors.New("entity id is required")
	errAbsent    = errors.New("entity absent")
)

const (
	collectionsRoot = "collections"
	preferencesRoot = "preferences"
)

// layout decides where a type's entities live inside a partition document.
type layout[T storage.Entity] interface {
	save(ctx context.Context, m *Manager, h *Handle, entity T) error
	find(ctx context.Context, m *Manager, h *Handle, id core.ID) (T, bool, error)
	findAll(ctx context.Context, m *Manager, h *Handle) ([]T, error)
	remove(ctx context.Context, m *Manager, h *Handle, id core.ID) (bool, error)
}

// Adapter implements storage.Adapter on top of a Manager.
type Adapter[T storage.Entity] struct {
	manager *Manager
	typ     storage.EntityType
	layout  layout[T]
}

var _ storage.Adapter[*core.Task] = (*Adapter[*core.Task])(nil)

// NewAdapter creates an adapter storing entities of typ as one collection
// value per partition at collections/<collection>.
func NewAdapter[T storage.Entity](manager *Manager, typ storage.EntityType) *Adapter[T] {
	return &Adapter[T]{
		manager: manager,
		typ:     typ,
		layout:  collectionLayout[T]{path: Path{collectionsRoot, typ.Collection}},
	}
}

// NewPreferenceAdapter creates an adapter storing each preference of a user
// at preferences/<feature>/<scope>/<item>.
func NewPreferenceAdapter(manager *Manager) *Adapter[*core.Preference] {
	return &Adapter[*core.Preference]{
		manager: manager,
		typ:     storage.PreferenceType,
		layout:  preferenceLayout{},
	}
}

// EntityType returns the type descriptor.
func (a *Adapter[T]) EntityType() storage.EntityType {
	return a.typ
}

// Save inserts or replaces the entity in its partition document.
func (a *Adapter[T]) Save(ctx context.Context, partition core.ID, entity T) error {
	const op = "save"
	if err := a.typ.BindPartition(op, partition, entity); err != nil {
		return err
	}
	if entity.EntityID().IsZero() {
		return storage.Validation(a.typ.Name, op, errMissingID)
	}
	h, err := a.handle(ctx, op, partition)
	if err != nil {
		return err
	}
	return a.wrap(op, partition, a.layout.save(ctx, a.manager, h, entity))
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
	h, err := a.handle(ctx, op, partition)
	if err != nil {
		return zero, false, err
	}
	entity, found, err := a.layout.find(ctx, a.manager, h, id)
	if err != nil {
		return zero, false, a.wrap(op, partition, err)
	}
	return entity, found, nil
}

// FindAll returns every entity in the partition, oldest first.
func (a *Adapter[T]) FindAll(ctx context.Context, partition core.ID) ([]T, error) {
	const op = "find all"
	if err := a.typ.CheckPartition(op, partition); err != nil {
		return nil, err
	}
	h, err := a.handle(ctx, op, partition)
	if err != nil {
		return nil, err
	}
	entities, err := a.layout.findAll(ctx, a.manager, h)
	if err != nil {
		return nil, a.wrap(op, partition, err)
	}
	storage.SortByCreation(entities)
	return entities, nil
}

// Delete removes an entity from its partition document.
func (a *Adapter[T]) Delete(ctx context.Context, partition, id core.ID) error {
	const op = "delete"
	if err := a.typ.CheckPartition(op, partition); err != nil {
		return err
	}
	h, err := a.handle(ctx, op, partition)
	if err != nil {
		return err
	}
	removed, err := a.layout.remove(ctx, a.manager, h, id)
	if err != nil {
		return a.wrap(op, partition, err)
	}
	if !removed {
		return storage.NotFound(a.typ.Name, op, partition, id)
	}
	return nil
}

// Exists reports whether the entity is stored.
func (a *Adapter[T]) Exists(ctx context.Context, partition, id core.ID) (bool, error) {
	_, found, err := a.FindByID(ctx, partition, id)
	return found, err
}

// Count returns the number of entities in the partition.
func (a *Adapter[T]) Count(ctx context.Context, partition core.ID) (int, error) {
	entities, err := a.FindAll(ctx, partition)
	if err != nil {
		return 0, err
	}
	return len(entities), nil
}

// handle opens the partition document. Global entities live in core.GlobalPartition.
func (a *Adapter[T]) handle(ctx context.Context, op string, partition core.ID) (*Handle, error) {
	docPartition := partition
	if docPartition.IsZero() {
		docPartition = core.GlobalPartition
	}
	h, err := a.manager.GetOrCreate(ctx, docPartition)
	if err != nil {
		return nil, a.wrap(op, partition, err)
	}
	return h, nil
}

func (a *Adapter[T]) wrap(op string, partition core.ID, err error) error {
	if err == nil {
		return nil
	}
	if storage.KindOf(err) != 0 {
		return err
	}
	return storage.StoreFailure(a.typ.Name, op, partition, err)
}

// collectionLayout keeps all entities of a type in one id-keyed map.
type collectionLayout[T storage.Entity] struct {
	path Path
}

func (l collectionLayout[T]) save(ctx context.Context, m *Manager, h *Handle, entity T) error {
	return Update(ctx, m, h, l.path, func(coll *map[core.ID]T, _ bool) error {
		if *coll == nil {
			*coll = make(map[core.ID]T)
		}
		(*coll)[entity.EntityID()] = entity
		return nil
	})
}

func (l collectionLayout[T]) find(ctx context.Context, m *Manager, h *Handle, id core.ID) (T, bool, error) {
	var zero T
	coll, _, err := Load[map[core.ID]T](ctx, m, h, l.path)
	if err != nil {
		return zero, false, err
	}
	entity, ok := coll[id]
	return entity, ok, nil
}

func (l collectionLayout[T]) findAll(ctx context.Context, m *Manager, h *Handle) ([]T, error) {
	coll, _, err := Load[map[core.ID]T](ctx, m, h, l.path)
	if err != nil {
		return nil, err
	}
	entities := make([]T, 0, len(coll))
	for _, entity := range coll {
		entities = append(entities, entity)
	}
	return entities, nil
}

func (l collectionLayout[T]) remove(ctx context.Context, m *Manager, h *Handle, id core.ID) (bool, error) {
	err := Update(ctx, m, h, l.path, func(coll *map[core.ID]T, _ bool) error {
		if _, ok := (*coll)[id]; !ok {
			return errAbsent
		}
		delete(*coll, id)
		return nil
	})
	if errors.Is(err, errAbsent) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// preferenceLayout stores each preference at its own path.
type preferenceLayout struct{}

func preferencePath(id core.ID) (Path, bool) {
	feature, scope, item, ok := core.SplitPreferenceKey(id)
	if !ok {
		return nil, false
	}
	return Path{preferencesRoot, feature, scope.String(), item}, true
}

func (preferenceLayout) save(ctx context.Context, m *Manager, h *Handle, pref *core.Preference) error {
	path, ok := preferencePath(pref.EntityID())
	if !ok {
		return storage.Validation(storage.PreferenceType.Name, "save", core.ErrInvalidPreferenceKey)
	}
	return Store(ctx, m, h, path, pref)
}

func (preferenceLayout) find(ctx context.Context, m *Manager, h *Handle, id core.ID) (*core.Preference, bool, error) {
	path, ok := preferencePath(id)
	if !ok {
		return nil, false, nil
	}
	return Load[*core.Preference](ctx, m, h, path)
}

func (preferenceLayout) findAll(ctx context.Context, m *Manager, h *Handle) ([]*core.Preference, error) {
	var prefs []*core.Preference
	root := Path{preferencesRoot}
	features, err := m.ChildrenAt(ctx, h, root)
	if err != nil {
		return nil, err
	}
	for _, feature := range features {
		scopes, err := m.ChildrenAt(ctx, h, root.Child(feature))
		if err != nil {
			return nil, err
		}
		for _, scope := range scopes {
			items, err := m.ChildrenAt(ctx, h, root.Child(feature, scope))
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				pref, found, err := Load[*core.Preference](ctx, m, h, root.Child(feature, scope, item))
				if err != nil {
					return nil, err
				}
				if found {
					prefs = append(prefs, pref)
				}
			}
		}
	}
	return slices.Clip(prefs), nil
}

func (preferenceLayout) remove(ctx context.Context, m *Manager, h *Handle, id core.ID) (bool, error) {
	path, ok := preferencePath(id)
	if !ok {
		return false, nil
	}
	return m.RemoveAtPath(ctx, h, path)
}
