package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
)

const slowQueryThreshold = 200 * time.Millisecond

// Open connects to SQLite and migrates the schema. SQLite allows one writer,
// so the pool is capped at a single connection.
func Open(dsn string, logger observability.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(logger),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("gormstore: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gormstore: pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&variantRow{},
		&movementRow{},
		&productStatusRow{},
		&orderRow{},
		&orderLineRow{},
		&cancelRequestRow{},
		&returnRequestRow{},
		&paymentRow{},
		&voucherRow{},
		&grantRow{},
		&notificationRow{},
		&receiptRow{},
		&cartItemRow{},
		&userRow{},
	); err != nil {
		return fmt.Errorf("gormstore: migrate: %w", err)
	}
	return nil
}

func isDuplicate(err error) bool { return errors.Is(err, gorm.ErrDuplicatedKey) }

func isNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// gormLogger forwards gorm diagnostics to the service logger. Only errors and
// slow statements are reported.
type gormLogger struct {
	log observability.Logger
}

func newGormLogger(log observability.Logger) gormlogger.Interface {
	if log == nil {
		log = observability.NopLogger()
	}
	return &gormLogger{log: log.With(observability.F("component", "gormstore"))}
}

func (l *gormLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return l }

func (l *gormLogger) Info(_ context.Context, msg string, args ...any) {
	l.log.Debug("gorm_info", observability.F("detail", fmt.Sprintf(msg, args...)))
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...any) {
	l.log.Warn("gorm_warn", observability.F("detail", fmt.Sprintf(msg, args...)))
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...any) {
	l.log.Error("gorm_error", observability.F("detail", fmt.Sprintf(msg, args...)))
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !isNotFound(err) && !isDuplicate(err):
		sql, rows := fc()
		l.log.Error("sql_error",
			observability.F("sql", sql),
			observability.F("rows", rows),
			observability.F("latency_ms", elapsed.Milliseconds()),
			observability.F("error", err),
		)
	case elapsed > slowQueryThreshold:
		sql, rows := fc()
		l.log.Warn("sql_slow",
			observability.F("sql", sql),
			observability.F("rows", rows),
			observability.F("latency_ms", elapsed.Milliseconds()),
		)
	}
}
