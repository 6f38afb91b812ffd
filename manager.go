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


package taskvault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/taskvault/config"
	"github.com/poiesic/taskvault/core"
	"github.com/poiesic/taskvault/repository"
	"github.com/poiesic/taskvault/resolver"
	"github.com/poiesic/taskvault/storage/badger"
	"github.com/poiesic/taskvault/storage/document"
	"github.com/poiesic/taskvault/storage/relational"
)

var (
	// ErrNotInitialized is returned before Initialize succeeds.
	ErrNotInitialized = errors.New("backend manager is not initialized")

	// ErrAlreadyInitialized is returned by a second Initialize. Use UpdateConfig instead.
	ErrAlreadyInitialized = errors.New("backend manager is already initialized")

	// ErrDocumentStoreDisabled is returned when the document store is not configured.
	ErrDocumentStoreDisabled = errors.New("document store is not enabled")
)

// Manager assembles one repository per entity type from a configuration and
// owns the stores behind them.
//
// A Manager starts unconfigured. Initialize makes it ready; UpdateConfig
// rebuilds every repository, resolver and the shared document manager. There
// is no way back to the unconfigured state.
type Manager struct {
	logger *slog.Logger
	clock  func() time.Time

	mu  sync.RWMutex
	res *resources
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger passed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock sets the time source used to stamp saves.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// NewManager creates an unconfigured Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize opens the stores selected by cfg and builds the repositories.
func (m *Manager) Initialize(ctx context.Context, cfg *config.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.res != nil {
		return ErrAlreadyInitialized
	}
	res, err := m.build(ctx, cfg, nil)
	if err != nil {
		return err
	}
	m.res = res
	m.logger.Info("backend manager initialized", "backends", describe(cfg))
	return nil
}

// UpdateConfig rebuilds every repository, resolver and the shared document
// manager for cfg, then releases the previous set. Store connections whose
// settings did not change are carried over; all others are reopened.
// Repositories obtained before the call must not be used afterwards.
func (m *Manager) UpdateConfig(ctx context.Context, cfg *config.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.res == nil || m.res.closed {
		return ErrNotInitialized
	}
	old := m.res
	res, err := m.build(ctx, cfg, old)
	if err != nil {
		return err
	}
	m.res = res

	if err := old.close(); err != nil {
		m.logger.Error("error releasing previous backends", "err", err)
	}
	m.logger.Info("backend configuration updated", "backends", describe(cfg))
	return nil
}

// Repositories returns the current repository set.
func (m *Manager) Repositories() (*Repositories, error) {
	res, err := m.current()
	if err != nil {
		return nil, err
	}
	return res.repos, nil
}

// TagResolver returns the resolver for task-tag relations.
func (m *Manager) TagResolver() (*resolver.Resolver[*core.TaskTag], error) {
	res, err := m.current()
	if err != nil {
		return nil, err
	}
	return res.tagResolver, nil
}

// AssignmentResolver returns the resolver for task-assignment relations.
func (m *Manager) AssignmentResolver() (*resolver.Resolver[*core.TaskAssignment], error) {
	res, err := m.current()
	if err != nil {
		return nil, err
	}
	return res.assignmentResolver, nil
}

// Documents returns the shared document manager.
func (m *Manager) Documents() (*document.Manager, error) {
	res, err := m.current()
	if err != nil {
		return nil, err
	}
	if res.documents == nil {
		return nil, ErrDocumentStoreDisabled
	}
	return res.documents, nil
}

// Config returns a copy of the active configuration.
func (m *Manager) Config() (config.Config, error) {
	res, err := m.current()
	if err != nil {
		return config.Config{}, err
	}
	return res.cfg, nil
}

// Close releases every store. The Manager cannot be used afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.res == nil {
		return nil
	}
	err := m.res.close()
	m.res = &resources{closed: true}
	if err != nil {
		m.logger.Error("error closing backends", "err", err)
	}
	return err
}

func (m *Manager) current() (*resources, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.res == nil || m.res.closed {
		return nil, ErrNotInitialized
	}
	return m.res, nil
}

// resources is everything one configuration opened.
type resources struct {
	cfg    config.Config
	closed bool

	db        *relational.DB
	docEngine *badger.Backend
	docStore  *badger.DocumentStore
	documents *document.Manager
	pool      *ants.Pool

	repos              *Repositories
	tagResolver        *resolver.Resolver[*core.TaskTag]
	assignmentResolver *resolver.Resolver[*core.TaskAssignment]
}

// build opens or carries over the stores for cfg and assembles repositories.
// Connections taken from prev are detached from it so prev.close leaves them open.
func (m *Manager) build(ctx context.Context, cfg *config.Config, prev *resources) (_ *resources, err error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := &resources{cfg: *cfg}
	var carried carriedOver
	defer func() {
		if err != nil {
			carried.restore(prev, res)
			if cerr := res.close(); cerr != nil {
				m.logger.Error("error releasing partial backends", "err", cerr)
			}
		}
	}()

	if cfg.UsesRelational() {
		if prev != nil && prev.db != nil && prev.cfg.Relational == cfg.Relational {
			res.db, prev.db = prev.db, nil
			carried.db = true
		} else {
			res.db, err = relational.Open(cfg.Relational.Driver, cfg.Relational.DSN, relational.WithLogger(m.logger))
			if err != nil {
				return nil, err
			}
		}
		if err = res.db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate relational schema: %w", err)
		}
	}

	if cfg.UsesDocument() {
		if prev != nil && prev.docStore != nil && prev.cfg.Document == cfg.Document {
			res.docEngine, res.docStore = prev.docEngine, prev.docStore
			prev.docEngine, prev.docStore = nil, nil
			carried.docs = true
		} else {
			res.docEngine, err = badger.OpenBackend(cfg.Document.Path, cfg.Document.InMemory, badger.WithLogger(m.logger))
			if err != nil {
				return nil, err
			}
			res.docStore, err = badger.NewDocumentStore(res.docEngine)
			if err != nil {
				return nil, err
			}
		}
		res.documents = document.NewManager(res.docStore,
			document.WithLogger(m.logger),
			document.WithClock(m.clock))
	}

	res.repos = newRepositories(res, []repository.Option{
		repository.WithLogger(m.logger),
		repository.WithClock(m.clock),
	})

	res.pool, err = ants.NewPool(cfg.Resolver.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver pool: %w", err)
	}
	partitions := resolver.ProjectPartitions(res.repos.Projects)
	res.tagResolver, err = resolver.New[*core.TaskTag](res.repos.TaskTags, partitions,
		resolver.WithPool(res.pool), resolver.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}
	res.assignmentResolver, err = resolver.New[*core.TaskAssignment](res.repos.TaskAssignments, partitions,
		resolver.WithPool(res.pool), resolver.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// carriedOver records which connections build moved from the previous resources.
type carriedOver struct {
	db   bool
	docs bool
}

// restore hands carried connections back to prev after a failed build.
func (c carriedOver) restore(prev, res *resources) {
	if c.db {
		prev.db, res.db = res.db, nil
	}
	if c.docs {
		prev.docEngine, prev.docStore = res.docEngine, res.docStore
		res.docEngine, res.docStore = nil, nil
	}
}

// close releases resources in dependency order.
func (r *resources) close() error {
	var errs []error
	if r.pool != nil {
		r.pool.Release()
	}
	if r.documents != nil {
		errs = append(errs, r.documents.Close())
	}
	if r.docStore != nil {
		errs = append(errs, r.docStore.Close())
	}
	if r.docEngine != nil {
		errs = append(errs, r.docEngine.Close())
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
	}
	return errors.Join(errs...)
}

func describe(cfg *config.Config) []string {
	var kinds []string
	if cfg.Backends.RelationalSave {
		kinds = append(kinds, "save:relational")
	}
	if cfg.Backends.DocumentSave {
		kinds = append(kinds, "save:document")
	}
	switch {
	case cfg.Backends.RelationalSearch:
		kinds = append(kinds, "search:relational")
	case cfg.Backends.DocumentSave:
		kinds = append(kinds, "search:document")
	}
	return kinds
}
