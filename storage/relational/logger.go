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
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLoggerAdapter adapts slog.Logger to gorm's logger interface.
type gormLoggerAdapter struct {
	logger *slog.Logger
	level  gormlogger.LogLevel
}

var _ gormlogger.Interface = (*gormLoggerAdapter)(nil)

func newGormLogger(logger *slog.Logger) *gormLoggerAdapter {
	return &gormLoggerAdapter{logger: logger, level: gormlogger.Warn}
}

func (gl *gormLoggerAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *gl
	clone.level = level
	return &clone
}

func (gl *gormLoggerAdapter) Info(ctx context.Context, msg string, items ...any) {
	if gl.level >= gormlogger.Info {
		gl.logger.InfoContext(ctx, fmt.Sprintf(msg, items...))
	}
}

func (gl *gormLoggerAdapter) Warn(ctx context.Context, msg string, items ...any) {
	if gl.level >= gormlogger.Warn {
		gl.logger.WarnContext(ctx, fmt.Sprintf(msg, items...))
	}
}

func (gl *gormLoggerAdapter) Error(ctx context.Context, msg string, items ...any) {
	if gl.level >= gormlogger.Error {
		gl.logger.ErrorContext(ctx, fmt.Sprintf(msg, items...))
	}
}

func (gl *gormLoggerAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if gl.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && gl.level >= gormlogger.Error:
		sql, rows := fc()
		gl.logger.ErrorContext(ctx, "query failed", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case elapsed > slowQueryThreshold && gl.level >= gormlogger.Warn:
		sql, rows := fc()
		gl.logger.WarnContext(ctx, "slow query", "sql", sql, "rows", rows, "elapsed", elapsed)
	case gl.logger.Enabled(ctx, slog.LevelDebug):
		sql, rows := fc()
		gl.logger.DebugContext(ctx, "query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
