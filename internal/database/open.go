package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pedalacom/catalog-api/internal/config"
	"github.com/pedalacom/catalog-api/internal/observability"
)

// Open connects to the configured catalog store and verifies it answers a ping.
func Open(cfg *config.Config) (*gorm.DB, error) {
	ctx := context.Background()
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "connect", time.Since(start))
	}()

	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL)
	case "sqlite":
		dialector = sqlite.Open(SQLiteDSN(cfg.DatabaseURL))
	default:
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, fmt.Errorf("open %s database: %w", cfg.DatabaseDriver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, err
	}
	if cfg.DatabaseDriver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, fmt.Errorf("ping %s database: %w", cfg.DatabaseDriver, err)
	}
	observability.RecordDatabaseStartupEvent(ctx, "connect", "success")
	return db, nil
}

// SQLiteDSN turns on foreign key enforcement so sqlite rejects dangling
// category and model references the same way postgres does.
func SQLiteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}
