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
	"fmt"

	"github.com/poiesic/taskvault/core"
	"github.com/poiesic/taskvault/storage"
	"github.com/poiesic/taskvault/storage/document"
	"github.com/poiesic/taskvault/storage/relational"
)

// Kind identifies the storage technology behind a Backend.
type Kind int

const (
	// Relational is the query-indexed SQL store.
	Relational Kind = iota + 1
	// Document is the partitioned document store.
	Document
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Relational:
		return "relational"
	case Document:
		return "document"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Backend holds exactly one adapter and dispatches the storage.Adapter
// contract to it. Construct it with RelationalBackend or DocumentBackend;
// the zero value rejects every call with an invalid-operation error.
type Backend[T storage.Entity] struct {
	kind       Kind
	relational *relational.Adapter[T]
	document   *document.Adapter[T]
}

var _ storage.Adapter[*core.Task] = Backend[*core.Task]{}

// RelationalBackend wraps a relational adapter.
func RelationalBackend[T storage.Entity](a *relational.Adapter[T]) Backend[T] {
	return Backend[T]{kind: Relational, relational: a}
}

// DocumentBackend wraps a document-store adapter.
func DocumentBackend[T storage.Entity](a *document.Adapter[T]) Backend[T] {
	return Backend[T]{kind: Document, document: a}
}

// Kind returns the backend kind, or 0 for the zero Backend.
func (b Backend[T]) Kind() Kind {
	return b.kind
}

// String returns the kind name.
func (b Backend[T]) String() string {
	return b.kind.String()
}

func (b Backend[T]) invalid(op string) error {
	return storage.InvalidOperation("", op, "backend has no adapter")
}

// Save dispatches to the wrapped adapter.
func (b Backend[T]) Save(ctx context.Context, partition core.ID, entity T) error {
	switch b.kind {
	case Relational:
		return b.relational.Save(ctx, partition, entity)
	case Document:
		return b.document.Save(ctx, partition, entity)
	}
	return b.invalid("save")
}

// FindByID dispatches to the wrapped adapter.
func (b Backend[T]) FindByID(ctx context.Context, partition, id core.ID) (T, bool, error) {
	switch b.kind {
	case Relational:
		return b.relational.FindByID(ctx, partition, id)
	case Document:
		return b.document.FindByID(ctx, partition, id)
	}
	var zero T
	return zero, false, b.invalid("find")
}

// FindAll dispatches to the wrapped adapter.
func (b Backend[T]) FindAll(ctx context.Context, partition core.ID) ([]T, error) {
	switch b.kind {
	case Relational:
		return b.relational.FindAll(ctx, partition)
	case Document:
		return b.document.FindAll(ctx, partition)
	}
	return nil, b.invalid("find all")
}

// Delete dispatches to the wrapped adapter.
func (b Backend[T]) Delete(ctx context.Context, partition, id core.ID) error {
	switch b.kind {
	case Relational:
		return b.relational.Delete(ctx, partition, id)
	case Document:
		return b.document.Delete(ctx, partition, id)
	}
	return b.invalid("delete")
}

// Exists dispatches to the wrapped adapter.
func (b Backend[T]) Exists(ctx context.Context, partition, id core.ID) (bool, error) {
	switch b.kind {
	case Relational:
		return b.relational.Exists(ctx, partition, id)
	case Document:
		return b.document.Exists(ctx, partition, id)
	}
	return false, b.invalid("exists")
}

// Count dispatches to the wrapped adapter.
func (b Backend[T]) Count(ctx context.Context, partition core.ID) (int, error) {
	switch b.kind {
	case Relational:
		return b.relational.Count(ctx, partition)
	case Document:
		return b.document.Count(ctx, partition)
	}
	return 0, b.invalid("count")
}
