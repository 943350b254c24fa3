package crudboot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// GormLogger routes gorm logging into zap. Statements are logged at debug
// level only when query logging is on; slow statements and failures always
// are, except record-not-found.
type GormLogger struct {
	logger *zap.Logger
	level  gormlogger.LogLevel
}

func NewGormLogger(logger *zap.Logger, queryLogging bool) *GormLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	level := gormlogger.Warn
	if queryLogging {
		level = gormlogger.Info
	}
	return &GormLogger{
		logger: logger.WithOptions(zap.AddCallerSkip(3)).Named("gorm"),
		level:  level,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gormlogger.ErrRecordNotFound):
		query, rows := fc()
		l.logger.Error("query failed", zap.Error(err), zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", query))
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		query, rows := fc()
		l.logger.Warn("slow query", zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", query))
	case l.level >= gormlogger.Info:
		query, rows := fc()
		l.logger.Debug("query", zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", query))
	}
}
