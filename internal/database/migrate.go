package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pedalacom/catalog-api/internal/domain"
	"github.com/pedalacom/catalog-api/internal/observability"
)

// Models lists the catalog tables in dependency order.
func Models() []any {
	return []any{
		&domain.ProductCategory{},
		&domain.ProductDescription{},
		&domain.ProductModel{},
		&domain.ProductModelProductDescription{},
		&domain.Product{},
	}
}

func Migrate(db *gorm.DB) error {
	ctx := context.Background()
	start := time.Now()
	err := db.AutoMigrate(Models()...)
	observability.RecordDatabaseStartupDuration(ctx, "migrate", time.Since(start))
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "migrate", "error")
		return err
	}
	observability.RecordDatabaseStartupEvent(ctx, "migrate", "success")
	return nil
}
