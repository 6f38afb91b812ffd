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
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const memoryDSN = "file:taskvault?mode=memory"

var (
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown relational driver")
)

// DB is a shared relational connection pool.
type DB struct {
	gorm   *gorm.DB
	driver string
	logger *slog.Logger
}

// Option configures Open.
type Option func(*DB)

// WithLogger sets the logger used for connection events and SQL tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DB) {
		d.logger = logger
	}
}

// Open connects to the database identified by driver and dsn.
func Open(driver, dsn string, opts ...Option) (*DB, error) {
	d := &DB{driver: driver, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = gormlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(d.logger.With("component", "gorm")),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	d.gorm = db

	if driver == DriverSQLite && isMemoryDSN(dsn) {
		// Every connection to an in-memory database sees its own copy
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	d.logger.Debug("relational database opened", "driver", driver)
	return d, nil
}

// OpenMemory opens a private in-memory SQLite database.
func OpenMemory(opts ...Option) (*DB, error) {
	return Open(DriverSQLite, memoryDSN, opts...)
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// Driver returns the driver name.
func (d *DB) Driver() string {
	return d.driver
}

// Migrate creates or extends one table per entity type.
func (d *DB) Migrate(ctx context.Context) error {
	return d.gorm.WithContext(ctx).AutoMigrate(
		&ProjectRow{},
		&UserRow{},
		&TaskListRow{},
		&TaskRow{},
		&SubtaskRow{},
		&TagRow{},
		&TaskTagRow{},
		&TaskAssignmentRow{},
		&PreferenceRow{},
	)
}

// Close closes the connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *DB) session(ctx context.Context) *gorm.DB {
	return d.gorm.WithContext(ctx)
}
