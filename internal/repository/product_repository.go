package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pedalacom/catalog-api/internal/domain"
	"github.com/pedalacom/catalog-api/internal/observability"
)

// SearchFilter narrows catalog searches. Empty fields do not filter.
type SearchFilter struct {
	Categories   []string
	NameContains string
}

type ProductRepository interface {
	ListDetailed(ctx context.Context) ([]domain.Product, error)
	FindDetailedByID(ctx context.Context, id uint) (*domain.Product, error)
	FindByID(ctx context.Context, id uint) (*domain.Product, error)
	CountFiltered(ctx context.Context, filter SearchFilter) (int64, error)
	ListInfoFiltered(ctx context.Context, filter SearchFilter, req PageRequest) ([]domain.InfoProduct, error)
	Create(ctx context.Context, product *domain.Product) error
	Replace(ctx context.Context, product *domain.Product) error
	DeleteByID(ctx context.Context, id uint) error
}

type GormProductRepository struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) ListDetailed(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := translateError(r.detailed(ctx).Order("products.id asc").Find(&products).Error)
	observability.RecordRepositoryOperation(ctx, "product", "list_detailed", outcomeOf(err))
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *GormProductRepository) FindDetailedByID(ctx context.Context, id uint) (*domain.Product, error) {
	product, err := r.first(r.detailed(ctx), id)
	observability.RecordRepositoryOperation(ctx, "product", "find_detailed_by_id", outcomeOf(err))
	return product, err
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uint) (*domain.Product, error) {
	product, err := r.first(r.db.WithContext(ctx), id)
	observability.RecordRepositoryOperation(ctx, "product", "find_by_id", outcomeOf(err))
	return product, err
}

func (r *GormProductRepository) CountFiltered(ctx context.Context, filter SearchFilter) (int64, error) {
	var total int64
	err := translateError(r.filtered(ctx, filter).Count(&total).Error)
	observability.RecordRepositoryOperation(ctx, "product", "count_filtered", outcomeOf(err))
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *GormProductRepository) ListInfoFiltered(ctx context.Context, filter SearchFilter, req PageRequest) ([]domain.InfoProduct, error) {
	items := make([]domain.InfoProduct, 0, req.PageSize)
	err := r.filtered(ctx, filter).
		Select(`products.id AS product_id,
			products.name AS product_name,
			products.list_price AS product_price,
			products.thumbnail_photo AS thumbnail_photo,
			COALESCE(product_categories.name, '') AS category_name`).
		Order("products.id asc").
		Offset(req.Offset()).
		Limit(req.PageSize).
		Scan(&items).Error
	err = translateError(err)
	observability.RecordRepositoryOperation(ctx, "product", "list_info_filtered", outcomeOf(err))
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormProductRepository) Create(ctx context.Context, product *domain.Product) error {
	err := translateError(r.db.WithContext(ctx).Omit("ProductCategory", "ProductModel").Create(product).Error)
	observability.RecordRepositoryOperation(ctx, "product", "create", outcomeOf(err))
	return err
}

// Replace overwrites every mutable column when the stored row version still
// matches product.RowVersion. On success product.RowVersion is advanced.
func (r *GormProductRepository) Replace(ctx context.Context, product *domain.Product) error {
	err := r.replace(ctx, product)
	observability.RecordRepositoryOperation(ctx, "product", "replace", outcomeOf(err))
	return err
}

func (r *GormProductRepository) replace(ctx context.Context, product *domain.Product) error {
	if product.ModifiedDate.IsZero() {
		product.ModifiedDate = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ? AND row_version = ?", product.ID, product.RowVersion).
		Updates(map[string]any{
			"name":                      product.Name,
			"product_number":            product.ProductNumber,
			"color":                     product.Color,
			"standard_cost":             product.StandardCost,
			"list_price":                product.ListPrice,
			"size":                      product.Size,
			"weight":                    product.Weight,
			"product_category_id":       product.ProductCategoryID,
			"product_model_id":          product.ProductModelID,
			"sell_start_date":           product.SellStartDate,
			"sell_end_date":             product.SellEndDate,
			"discontinued_date":         product.DiscontinuedDate,
			"thumbnail_photo":           product.ThumbnailPhoto,
			"thumbnail_photo_file_name": product.ThumbnailPhotoFileName,
			"modified_date":             product.ModifiedDate,
			"row_version":               gorm.Expr("row_version + 1"),
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		exists, err := r.exists(ctx, product.ID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrProductNotFound
		}
		return ErrProductConflict
	}
	product.RowVersion++
	return nil
}

func (r *GormProductRepository) DeleteByID(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.Product{}, id)
	err := translateError(res.Error)
	if err == nil && res.RowsAffected == 0 {
		err = ErrProductNotFound
	}
	observability.RecordRepositoryOperation(ctx, "product", "delete_by_id", outcomeOf(err))
	return err
}

func (r *GormProductRepository) detailed(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("ProductCategory").
		Preload("ProductModel.ProductModelProductDescriptions.ProductDescription")
}

func (r *GormProductRepository) first(q *gorm.DB, id uint) (*domain.Product, error) {
	var product domain.Product
	if err := q.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, translateError(err)
	}
	return &product, nil
}

func (r *GormProductRepository) exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

func (r *GormProductRepository) filtered(ctx context.Context, filter SearchFilter) *gorm.DB {
	q := r.db.WithContext(ctx).
		Table("products").
		Joins("LEFT JOIN product_categories ON product_categories.id = products.product_category_id")
	if len(filter.Categories) > 0 {
		q = q.Where("product_categories.name IN ?", filter.Categories)
	}
	if filter.NameContains != "" {
		q = q.Where(`LOWER(products.name) LIKE ? ESCAPE '\'`, containsPattern(filter.NameContains))
	}
	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(text string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
}
