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


package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/taskvault/core"
	"github.com/poiesic/taskvault/storage"
)

// Finder lists a partition's relation records.
// *repository.Repository satisfies it.
type Finder[T storage.Relation] interface {
	FindAll(ctx context.Context, partition core.ID) ([]T, error)
	EntityType() storage.EntityType
}

// PartitionSource lists every partition that may hold relation records.
type PartitionSource interface {
	Partitions(ctx context.Context) ([]core.ID, error)
}

// PartitionFunc adapts a function to PartitionSource.
type PartitionFunc func(ctx context.Context) ([]core.ID, error)

// Partitions calls f.
func (f PartitionFunc) Partitions(ctx context.Context) ([]core.ID, error) {
	return f(ctx)
}

// ProjectLister lists projects.
type ProjectLister interface {
	FindAll(ctx context.Context, partition core.ID) ([]*core.Project, error)
}

// ProjectPartitions returns a PartitionSource yielding every known project ID.
func ProjectPartitions(projects ProjectLister) PartitionSource {
	return PartitionFunc(func(ctx context.Context) ([]core.ID, error) {
		all, err := projects.FindAll(ctx, core.NoPartition)
		if err != nil {
			return nil, err
		}
		ids := make([]core.ID, 0, len(all))
		for _, p := range all {
			ids = append(ids, p.ID)
		}
		return ids, nil
	})
}

// Option configures a Resolver.
type Option func(*settings) error

type settings struct {
	logger  *slog.Logger
	pool    *ants.Pool
	ownPool bool
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		s.logger = logger
		return nil
	}
}

// WithPoolSize sets the number of partitions scanned concurrently.
func WithPoolSize(size int) Option {
	return func(s *settings) error {
		if size <= 0 {
			return fmt.Errorf("pool size must be positive, got %d", size)
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return fmt.Errorf("failed to create scan pool: %w", err)
		}
		s.releasePool()
		s.pool = pool
		s.ownPool = true
		return nil
	}
}

// WithPool shares an existing worker pool. The Resolver does not release it.
func WithPool(pool *ants.Pool) Option {
	return func(s *settings) error {
		s.releasePool()
		s.pool = pool
		s.ownPool = false
		return nil
	}
}

func (s *settings) releasePool() {
	if s.ownPool && s.pool != nil {
		s.pool.Release()
	}
}

// Resolver finds the partition owning a relation record when only its child ID is known.
type Resolver[T storage.Relation] struct {
	finder     Finder[T]
	partitions PartitionSource
	settings
}

// New creates a resolver scanning the partitions listed by partitions.
func New[T storage.Relation](finder Finder[T], partitions PartitionSource, opts ...Option) (*Resolver[T], error) {
	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(&s); err != nil {
			s.releasePool()
			return nil, err
		}
	}
	if s.pool == nil {
		size := max(runtime.NumCPU()/2, 1)
		pool, err := ants.NewPool(size)
		if err != nil {
			return nil, fmt.Errorf("failed to create scan pool: %w", err)
		}
		s.pool = pool
		s.ownPool = true
	}
	return &Resolver[T]{
		finder:     finder,
		partitions: partitions,
		settings:   s,
	}, nil
}

// Release releases the worker pool if the Resolver created it.
func (r *Resolver[T]) Release() {
	r.releasePool()
}

type scanResult struct {
	found bool
	err   error
}

// Resolve returns the partition holding a relation whose child is childID.
// A non-empty hint is returned as is without scanning. Otherwise every known
// partition is scanned and the first match in listing order wins. A scan
// error in a partition listed before the match is returned; when nothing
// matches a NotFound error is returned.
//
// Scanning costs one FindAll per partition.
func (r *Resolver[T]) Resolve(ctx context.Context, childID, hint core.ID) (core.ID, error) {
	const op = "resolve"
	name := r.finder.EntityType().Name
	if !hint.IsZero() {
		return hint, nil
	}
	if childID.IsZero() {
		return "", storage.Validation(name, op, errors.New("child id is required"))
	}

	partitions, err := r.partitions.Partitions(ctx)
	if err != nil {
		return "", err
	}

	results := make([]scanResult, len(partitions))
	var wg sync.WaitGroup
	for i, partition := range partitions {
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			results[i] = r.scan(ctx, partition, childID)
		})
		if err != nil {
			wg.Done()
			results[i] = scanResult{err: fmt.Errorf("failed to schedule scan: %w", err)}
		}
	}
	wg.Wait()

	for i, res := range results {
		if res.err != nil {
			return "", res.err
		}
		if res.found {
			r.logger.Debug("resolved relation partition",
				"entity", name, "child", childID, "partition", partitions[i], "scanned", len(partitions))
			return partitions[i], nil
		}
	}
	return "", storage.NotFound(name, op, core.NoPartition, childID)
}

func (r *Resolver[T]) scan(ctx context.Context, partition, childID core.ID) scanResult {
	if err := ctx.Err(); err != nil {
		return scanResult{err: err}
	}
	relations, err := r.finder.FindAll(ctx, partition)
	if err != nil {
		return scanResult{err: err}
	}
	for _, rel := range relations {
		if rel.Child() == childID {
			return scanResult{found: true}
		}
	}
	return scanResult{}
}
