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


package reconcile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/taskvault/core"
	"github.com/poiesic/taskvault/storage"
)

// Source lists the entities to copy.
type Source[T storage.Entity] interface {
	FindAll(ctx context.Context, partition core.ID) ([]T, error)
}

// Target receives copied entities. repository.Backend satisfies it.
type Target[T storage.Entity] interface {
	Save(ctx context.Context, partition core.ID, entity T) error
	FindAll(ctx context.Context, partition core.ID) ([]T, error)
	Delete(ctx context.Context, partition, id core.ID) error
}

// Config holds configuration for a reconciliation run.
type Config struct {
	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per write
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Prune deletes target entities that are missing from the source
	Prune bool

	// ContinueOnError keeps going after a write fails for good
	ContinueOnError bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     100 * time.Millisecond,
	}
}

// Failure records an entity that could not be copied or pruned.
type Failure struct {
	Partition core.ID
	ID        core.ID
	Err       error
}

// Result summarizes a run.
type Result struct {
	Partitions int
	Copied     int
	Pruned     int
	Failures   []Failure
}

// Run copies every entity held by source in partitions to target.
// Progress is written to progress when it is not nil.
//
// A source read error aborts the run. A write that still fails after retries
// aborts the run unless cfg.ContinueOnError is set, in which case it is
// recorded in the result and Run returns ErrIncomplete at the end.
func Run[T storage.Entity](ctx context.Context, source Source[T], target Target[T], partitions []core.ID, cfg *Config, progress io.Writer) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxRetries <= 0 {
		return nil, ErrInvalidMaxAttempts
	}

	batches := make([][]T, len(partitions))
	total := 0
	for i, partition := range partitions {
		entities, err := source.FindAll(ctx, partition)
		if err != nil {
			return nil, fmt.Errorf("failed to read partition %q: %w", partition, err)
		}
		batches[i] = entities
		total += len(entities)
	}

	if progress == nil {
		progress = io.Discard
	}
	tracker := NewProgressTracker(progress, "Reconciling", total, cfg.ReportInterval)
	tracker.Start()

	result := &Result{Partitions: len(partitions)}
	fail := func(partition, id core.ID, err error) error {
		if !cfg.ContinueOnError {
			return fmt.Errorf("partition %q id %q: %w", partition, id, err)
		}
		slog.Warn("reconcile failure", "partition", partition, "id", id, "err", err)
		result.Failures = append(result.Failures, Failure{Partition: partition, ID: id, Err: err})
		return nil
	}

	for i, partition := range partitions {
		keep := make(map[core.ID]struct{}, len(batches[i]))
		for _, entity := range batches[i] {
			keep[entity.EntityID()] = struct{}{}
			err := RetryWithBackoff(ctx, func() error {
				return target.Save(ctx, partition, entity)
			}, cfg.MaxRetries, cfg.RetryDelay)
			if err == nil {
				result.Copied++
				tracker.Increment(1)
			} else if err := fail(partition, entity.EntityID(), err); err != nil {
				return result, err
			}
		}

		if cfg.Prune {
			if err := prune(ctx, target, partition, keep, cfg, result, fail); err != nil {
				return result, err
			}
		}
	}
	tracker.Finish()

	slog.Info("reconcile complete",
		"partitions", result.Partitions,
		"copied", result.Copied,
		"pruned", result.Pruned,
		"failures", len(result.Failures),
		"elapsed", tracker.Elapsed().Round(time.Millisecond))

	if len(result.Failures) > 0 {
		return result, fmt.Errorf("%w: %d of %d entities failed", ErrIncomplete, len(result.Failures), total)
	}
	return result, nil
}

func prune[T storage.Entity](ctx context.Context, target Target[T], partition core.ID, keep map[core.ID]struct{}, cfg *Config, result *Result, fail func(partition, id core.ID, err error) error) error {
	existing, err := target.FindAll(ctx, partition)
	if err != nil {
		return fmt.Errorf("failed to list target partition %q: %w", partition, err)
	}
	for _, entity := range existing {
		id := entity.EntityID()
		if _, ok := keep[id]; ok {
			continue
		}
		err := RetryWithBackoff(ctx, func() error {
			return target.Delete(ctx, partition, id)
		}, cfg.MaxRetries, cfg.RetryDelay)
		if err == nil {
			result.Pruned++
		} else if err := fail(partition, id, err); err != nil {
			return err
		}
	}
	return nil
}
