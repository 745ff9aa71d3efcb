package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pedalacom/catalog-api/internal/domain"
	"github.com/pedalacom/catalog-api/internal/observability"
)

type CategoryRepository interface {
	List(ctx context.Context) ([]domain.ProductCategory, error)
}

type GormCategoryRepository struct{ db *gorm.DB }

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &GormCategoryRepository{db: db}
}

func (r *GormCategoryRepository) List(ctx context.Context) ([]domain.ProductCategory, error) {
	var categories []domain.ProductCategory
	err := translateError(r.db.WithContext(ctx).Order("name asc").Find(&categories).Error)
	observability.RecordRepositoryOperation(ctx, "category", "list", outcomeOf(err))
	if err != nil {
		return nil, err
	}
	return categories, nil
}
