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


package storage

import (
	"context"
	"time"

	"github.com/poiesic/taskvault/core"
)

// Entity is implemented by every persisted domain record.
type Entity interface {
	// EntityID returns the identity within the partition. Empty means not yet assigned.
	EntityID() core.ID
	// AssignID sets a generated identity. Derived-identity types ignore it.
	AssignID(id core.ID)
	// Touch stamps last-modification metadata.
	Touch(actor core.ID, at time.Time)
}

// Partitioned is implemented by entities that carry their own partition key.
type Partitioned interface {
	PartitionKey() core.ID
	SetPartitionKey(partition core.ID)
}

// SoftDeletable is implemented by entities with a tombstone.
type SoftDeletable interface {
	MarkDeleted(actor core.ID, at time.Time)
	MarkRestored()
	IsDeleted() bool
}

// Validator is implemented by entities with invariants checked before save.
type Validator interface {
	Validate() error
}

// Relation is implemented by many-to-many relation records.
type Relation interface {
	Entity
	Parent() core.ID
	Child() core.ID
}

// Stamp identifies who saved an entity and when.
// A zero At is replaced with the current time.
type Stamp struct {
	Actor core.ID
	At    time.Time
}

// Adapter is the CRUD contract every backend implementation satisfies.
// Implementations must be safe for concurrent use.
type Adapter[T Entity] interface {
	// Save inserts the entity or updates the stored copy with the same identity.
	Save(ctx context.Context, partition core.ID, entity T) error

	// FindByID retrieves an entity. Absence is reported as false with a nil error.
	FindByID(ctx context.Context, partition, id core.ID) (T, bool, error)

	// FindAll returns every entity in the partition, oldest first.
	FindAll(ctx context.Context, partition core.ID) ([]T, error)

	// Delete physically removes an entity.
	// Returns a NotFound error if it doesn't exist.
	Delete(ctx context.Context, partition, id core.ID) error

	// Exists reports whether the entity is stored.
	Exists(ctx context.Context, partition, id core.ID) (bool, error)

	// Count returns the number of entities in the partition.
	Count(ctx context.Context, partition core.ID) (int, error)
}
