package health

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pedalacom/catalog-api/internal/domain"
)

type DBChecker struct {
	db *gorm.DB
}

func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &DBChecker{db: db}
}

func (c *DBChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "db", Healthy: true}
	sqlDB, err := c.db.DB()
	if err != nil {
		res.Healthy = false
		res.Error = err.Error()
		return res
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

// CatalogSchemaChecker reports unready until the catalog tables have been migrated.
type CatalogSchemaChecker struct {
	db *gorm.DB
}

func NewCatalogSchemaChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &CatalogSchemaChecker{db: db}
}

func (c *CatalogSchemaChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "catalog_schema", Healthy: true}
	m := c.db.WithContext(ctx).Migrator()
	for _, model := range []any{&domain.Product{}, &domain.ProductCategory{}} {
		if !m.HasTable(model) {
			res.Healthy = false
			res.Error = fmt.Sprintf("missing table for %T", model)
			return res
		}
	}
	return res
}

type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "redis", Healthy: true}
	if err := c.client.Ping(ctx).Err(); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

type MinIOChecker struct {
	client *minio.Client
	bucket string
}

func NewMinIOChecker(client *minio.Client, bucket string) Checker {
	if client == nil {
		return nil
	}
	return &MinIOChecker{client: client, bucket: bucket}
}

// Check treats a missing bucket as healthy; the thumbnail store creates it on first write.
func (c *MinIOChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "object_storage", Healthy: true}
	if _, err := c.client.BucketExists(ctx, c.bucket); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}
