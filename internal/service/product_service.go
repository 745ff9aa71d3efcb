package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/pedalacom/catalog-api/internal/domain"
	"github.com/pedalacom/catalog-api/internal/observability"
	"github.com/pedalacom/catalog-api/internal/repository"
)

const (
	// CategorySearchPageSize applies to the category aware search.
	CategorySearchPageSize = 6
	// NameSearchPageSize applies to the name only search.
	NameSearchPageSize = 12

	sharedSearchTimeout = 15 * time.Second
)

var (
	ErrPageNotFound            = errors.New("requested page does not exist")
	ErrInvalidPageSize         = errors.New("page size must be greater than 0")
	ErrProductIDMismatch       = errors.New("path id does not match product id")
	ErrProductNameRequired     = errors.New("name is required and must be at most 50 characters")
	ErrProductNumberRequired   = errors.New("product_number is required and must be at most 25 characters")
	ErrProductInvalidPrice     = errors.New("standard_cost and list_price must not be negative")
	ErrProductInvalidWeight    = errors.New("weight must not be negative")
	ErrProductInvalidSellDates = errors.New("sell_end_date must not be before sell_start_date")
	ErrProductRowVersion       = errors.New("row_version is required")
	ErrThumbnailNotFound       = errors.New("product has no thumbnail")
)

type SearchQuery struct {
	Categories []string
	Name       string
	PageNumber int
	PageSize   int
}

type Pagination struct {
	PageNumber int   `json:"page_number"`
	TotalPages int   `json:"total_pages"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
}

type SearchResult struct {
	Items      []domain.InfoProduct `json:"items"`
	Pagination Pagination           `json:"pagination"`
}

// Thumbnail is either inline image bytes or a redirect to object storage.
type Thumbnail struct {
	Data        []byte
	ContentType string
	FileName    string
	RedirectURL string
}

//go:generate mockgen -source=product_service.go -destination=gomock/product_service_mock.go -package=gomock

type ProductService interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id uint) (*domain.Product, error)
	Search(ctx context.Context, query SearchQuery) (*SearchResult, error)
	ListCategories(ctx context.Context) ([]domain.ProductCategory, error)
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	Replace(ctx context.Context, id uint, product *domain.Product) error
	Delete(ctx context.Context, id uint) error
	Thumbnail(ctx context.Context, id uint) (*Thumbnail, error)
}

type ProductServiceImpl struct {
	repo        repository.ProductRepository
	categories  repository.CategoryRepository
	cache       SearchCacheStore
	cacheTTL    time.Duration
	thumbnails  ThumbnailStore
	logger      *slog.Logger
	searchGroup singleflight.Group
	now         func() time.Time
}

// NewProductService wires the catalog service. cache and thumbnails may be nil.
func NewProductService(
	repo repository.ProductRepository,
	categories repository.CategoryRepository,
	cache SearchCacheStore,
	cacheTTL time.Duration,
	thumbnails ThumbnailStore,
	logger *slog.Logger,
) *ProductServiceImpl {
	if cache == nil {
		cache = NewNoopSearchCacheStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductServiceImpl{
		repo:       repo,
		categories: categories,
		cache:      cache,
		cacheTTL:   cacheTTL,
		thumbnails: thumbnails,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *ProductServiceImpl) List(ctx context.Context) ([]domain.Product, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "list", outcome, time.Since(start)) }()

	products, err := s.repo.ListDetailed(ctx)
	if err != nil {
		outcome = outcomeForError(err)
		return nil, err
	}
	return products, nil
}

func (s *ProductServiceImpl) GetByID(ctx context.Context, id uint) (*domain.Product, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "get", outcome, time.Since(start)) }()

	product, err := s.repo.FindDetailedByID(ctx, id)
	if err != nil {
		outcome = outcomeForError(err)
		return nil, err
	}
	return product, nil
}

func (s *ProductServiceImpl) ListCategories(ctx context.Context) ([]domain.ProductCategory, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "list_categories", outcome, time.Since(start)) }()

	categories, err := s.categories.List(ctx)
	if err != nil {
		outcome = outcomeForError(err)
		return nil, err
	}
	return categories, nil
}

// Search counts matching products before paging. Zero matches is an empty
// success for any page number; otherwise the page must be within 1..total pages.
func (s *ProductServiceImpl) Search(ctx context.Context, query SearchQuery) (*SearchResult, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "search", outcome, time.Since(start)) }()

	if query.PageSize <= 0 {
		outcome = "bad_request"
		return nil, ErrInvalidPageSize
	}
	filter := repository.SearchFilter{
		Categories:   normalizeCategories(query.Categories),
		NameContains: query.Name,
	}

	ctx, span := observability.StartSpan(ctx, "product.search",
		attribute.Int("search.page_number", query.PageNumber),
		attribute.Int("search.page_size", query.PageSize),
		attribute.Int("search.category_count", len(filter.Categories)),
	)
	defer span.End()

	key := searchCacheKey(filter, query.PageNumber, query.PageSize)
	if cached, ok := s.cachedSearch(ctx, key); ok {
		span.SetAttributes(attribute.Bool("search.cache_hit", true))
		observability.RecordSearchResultSize(ctx, searchEndpoint(query.PageSize), len(cached.Items))
		return cached, nil
	}

	ch := s.searchGroup.DoChan(key, func() (any, error) {
		// Joined callers share this read, so it must outlive the leader's request.
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedSearchTimeout)
		defer cancel()
		generation, genErr := s.cache.Generation(sharedCtx, searchCacheNamespace)
		if genErr != nil {
			observability.RecordSearchCacheEvent(sharedCtx, "error")
			s.logger.WarnContext(sharedCtx, "search cache generation read failed", "error", genErr)
		}
		res, err := s.searchStore(sharedCtx, filter, query.PageNumber, query.PageSize)
		if err != nil {
			return nil, err
		}
		if genErr == nil {
			s.storeSearch(sharedCtx, key, generation, res)
		}
		return res, nil
	})
	var shared bool
	var v any
	var err error
	select {
	case r := <-ch:
		v, err, shared = r.Val, r.Err, r.Shared
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		outcome = outcomeForError(err)
		if outcome == "error" || outcome == "unavailable" {
			observability.RecordSpanError(span, err)
		}
		return nil, err
	}
	span.SetAttributes(attribute.Bool("search.shared", shared))
	result := v.(*SearchResult)
	observability.RecordSearchResultSize(ctx, searchEndpoint(query.PageSize), len(result.Items))
	return result, nil
}

func (s *ProductServiceImpl) searchStore(ctx context.Context, filter repository.SearchFilter, pageNumber, pageSize int) (*SearchResult, error) {
	total, err := s.repo.CountFiltered(ctx, filter)
	if err != nil {
		return nil, err
	}
	totalPages := repository.TotalPages(total, pageSize)
	result := &SearchResult{
		Items: []domain.InfoProduct{},
		Pagination: Pagination{
			PageNumber: pageNumber,
			TotalPages: totalPages,
			PageSize:   pageSize,
			TotalItems: total,
		},
	}
	if totalPages == 0 {
		return result, nil
	}
	page := repository.PageRequest{Page: pageNumber, PageSize: pageSize}
	if !page.InRange(totalPages) {
		return nil, ErrPageNotFound
	}
	items, err := s.repo.ListInfoFiltered(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	result.Items = items
	return result, nil
}

func (s *ProductServiceImpl) cachedSearch(ctx context.Context, key string) (*SearchResult, bool) {
	payload, ok, err := s.cache.Get(ctx, searchCacheNamespace, key)
	if err != nil {
		observability.RecordSearchCacheEvent(ctx, "error")
		s.logger.WarnContext(ctx, "search cache read failed", "error", err)
		return nil, false
	}
	if !ok {
		observability.RecordSearchCacheEvent(ctx, "miss")
		return nil, false
	}
	var result SearchResult
	if err := json.Unmarshal(payload, &result); err != nil {
		observability.RecordSearchCacheEvent(ctx, "decode_error")
		s.logger.WarnContext(ctx, "search cache entry unreadable", "error", err)
		return nil, false
	}
	if result.Items == nil {
		result.Items = []domain.InfoProduct{}
	}
	observability.RecordSearchCacheEvent(ctx, "hit")
	return &result, true
}

func (s *ProductServiceImpl) storeSearch(ctx context.Context, key string, generation uint64, result *SearchResult) {
	if s.cacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	err = s.cache.Set(ctx, searchCacheNamespace, key, generation, payload, s.cacheTTL)
	if errors.Is(err, ErrSearchCacheStale) {
		observability.RecordSearchCacheEvent(ctx, "stale")
		return
	}
	if err != nil {
		observability.RecordSearchCacheEvent(ctx, "store_error")
		s.logger.WarnContext(ctx, "search cache write failed", "error", err)
		return
	}
	observability.RecordSearchCacheEvent(ctx, "store")
}

func (s *ProductServiceImpl) invalidateSearch(ctx context.Context) {
	if err := s.cache.InvalidateNamespace(ctx, searchCacheNamespace); err != nil {
		observability.RecordSearchCacheEvent(ctx, "invalidate_error")
		s.logger.WarnContext(ctx, "search cache invalidation failed", "error", err)
		return
	}
	observability.RecordSearchCacheEvent(ctx, "invalidate")
}

func (s *ProductServiceImpl) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "create", outcome, time.Since(start)) }()

	thumb, err := DecodeThumbnail(product.ThumbnailPhotoFileName)
	if err != nil {
		outcome = "bad_request"
		return nil, err
	}
	normalizeProduct(product)
	if err := validateProduct(product); err != nil {
		outcome = "bad_request"
		return nil, err
	}

	now := s.now().UTC()
	product.ID = 0
	product.RowVersion = 1
	product.ModifiedDate = now
	if product.SellStartDate.IsZero() {
		product.SellStartDate = now
	}
	product.ThumbnailPhoto = nil
	product.ThumbnailPhotoFileName = ""
	if thumb != nil {
		product.ThumbnailPhoto = thumb.Data
		product.ThumbnailPhotoFileName = thumb.FileName
	}
	product.ProductCategory = nil
	product.ProductModel = nil

	if err := s.repo.Create(ctx, product); err != nil {
		outcome = outcomeForError(err)
		return nil, err
	}
	s.invalidateSearch(ctx)
	if thumb != nil {
		s.mirrorThumbnail(ctx, product.ID, thumb.FileName, thumb.Data, thumb.ContentType)
	}
	return product, nil
}

func (s *ProductServiceImpl) Replace(ctx context.Context, id uint, product *domain.Product) error {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "replace", outcome, time.Since(start)) }()

	if product.ID != id {
		outcome = "bad_request"
		return ErrProductIDMismatch
	}
	normalizeProduct(product)
	if err := validateProduct(product); err != nil {
		outcome = "bad_request"
		return err
	}
	if product.RowVersion < 1 {
		outcome = "bad_request"
		return ErrProductRowVersion
	}
	product.ThumbnailPhotoFileName = strings.TrimSpace(product.ThumbnailPhotoFileName)
	if err := ValidateStoredThumbnail(product.ThumbnailPhoto, product.ThumbnailPhotoFileName); err != nil {
		outcome = "bad_request"
		return err
	}

	var previousFile string
	if s.thumbnails != nil {
		if current, err := s.repo.FindByID(ctx, id); err == nil {
			previousFile = current.ThumbnailPhotoFileName
		}
	}

	product.ModifiedDate = s.now().UTC()
	if product.SellStartDate.IsZero() {
		product.SellStartDate = product.ModifiedDate
	}
	if err := s.repo.Replace(ctx, product); err != nil {
		outcome = outcomeForError(err)
		return err
	}
	s.invalidateSearch(ctx)

	if len(product.ThumbnailPhoto) > 0 && product.ThumbnailPhotoFileName != "" {
		if contentType, ok := ThumbnailContentType(product.ThumbnailPhoto); ok {
			s.mirrorThumbnail(ctx, id, product.ThumbnailPhotoFileName, product.ThumbnailPhoto, contentType)
		}
	}
	if previousFile != "" && previousFile != product.ThumbnailPhotoFileName {
		s.removeThumbnail(ctx, id, previousFile)
	}
	return nil
}

func (s *ProductServiceImpl) Delete(ctx context.Context, id uint) error {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "delete", outcome, time.Since(start)) }()

	var fileName string
	if s.thumbnails != nil {
		if current, err := s.repo.FindByID(ctx, id); err == nil {
			fileName = current.ThumbnailPhotoFileName
		}
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		outcome = outcomeForError(err)
		return err
	}
	s.invalidateSearch(ctx)
	if fileName != "" {
		s.removeThumbnail(ctx, id, fileName)
	}
	return nil
}

func (s *ProductServiceImpl) Thumbnail(ctx context.Context, id uint) (*Thumbnail, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "thumbnail", outcome, time.Since(start)) }()

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		outcome = outcomeForError(err)
		return nil, err
	}
	if len(product.ThumbnailPhoto) == 0 {
		outcome = "not_found"
		return nil, ErrThumbnailNotFound
	}
	if s.thumbnails != nil {
		if key := ThumbnailObjectKey(id, product.ThumbnailPhotoFileName); key != "" {
			u, err := s.thumbnails.PresignedURL(ctx, key)
			if err == nil {
				observability.RecordThumbnailStorageEvent(ctx, "presign", "success")
				return &Thumbnail{RedirectURL: u, FileName: product.ThumbnailPhotoFileName}, nil
			}
			observability.RecordThumbnailStorageEvent(ctx, "presign", "error")
			s.logger.WarnContext(ctx, "thumbnail presign failed, serving stored bytes", "product_id", id, "error", err)
		}
	}
	contentType, _ := ThumbnailContentType(product.ThumbnailPhoto)
	return &Thumbnail{
		Data:        product.ThumbnailPhoto,
		ContentType: contentType,
		FileName:    product.ThumbnailPhotoFileName,
	}, nil
}

func (s *ProductServiceImpl) mirrorThumbnail(ctx context.Context, productID uint, fileName string, data []byte, contentType string) {
	if s.thumbnails == nil {
		return
	}
	key := ThumbnailObjectKey(productID, fileName)
	if key == "" {
		return
	}
	if err := s.thumbnails.Put(ctx, key, data, contentType); err != nil {
		observability.RecordThumbnailStorageEvent(ctx, "upload", "error")
		s.logger.WarnContext(ctx, "thumbnail mirror upload failed", "product_id", productID, "object_key", key, "error", err)
		return
	}
	observability.RecordThumbnailStorageEvent(ctx, "upload", "success")
}

func (s *ProductServiceImpl) removeThumbnail(ctx context.Context, productID uint, fileName string) {
	if s.thumbnails == nil {
		return
	}
	key := ThumbnailObjectKey(productID, fileName)
	if err := s.thumbnails.Delete(ctx, key); err != nil {
		observability.RecordThumbnailStorageEvent(ctx, "delete", "error")
		s.logger.WarnContext(ctx, "thumbnail mirror delete failed", "product_id", productID, "object_key", key, "error", err)
		return
	}
	observability.RecordThumbnailStorageEvent(ctx, "delete", "success")
}

func normalizeProduct(p *domain.Product) {
	p.Name = strings.TrimSpace(p.Name)
	p.ProductNumber = strings.TrimSpace(p.ProductNumber)
	p.Color = strings.TrimSpace(p.Color)
	p.Size = strings.TrimSpace(p.Size)
}

func validateProduct(p *domain.Product) error {
	if p.Name == "" || len(p.Name) > 50 {
		return ErrProductNameRequired
	}
	if p.ProductNumber == "" || len(p.ProductNumber) > 25 {
		return ErrProductNumberRequired
	}
	if p.StandardCost < 0 || p.ListPrice < 0 {
		return ErrProductInvalidPrice
	}
	if p.Weight != nil && *p.Weight < 0 {
		return ErrProductInvalidWeight
	}
	if p.SellEndDate != nil && !p.SellStartDate.IsZero() && p.SellEndDate.Before(p.SellStartDate) {
		return ErrProductInvalidSellDates
	}
	return nil
}

// normalizeCategories trims labels, drops blanks and duplicates. The result is
// sorted so equivalent filters share a cache key.
func normalizeCategories(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

func searchCacheKey(filter repository.SearchFilter, pageNumber, pageSize int) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(pageSize))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(pageNumber))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(filter.NameContains))
	for _, c := range filter.Categories {
		b.WriteByte(0x1f)
		b.WriteString(c)
	}
	return b.String()
}

func searchEndpoint(pageSize int) string {
	switch pageSize {
	case CategorySearchPageSize:
		return "category"
	case NameSearchPageSize:
		return "name"
	default:
		return "other"
	}
}

func outcomeForError(err error) string {
	switch {
	case errors.Is(err, repository.ErrProductNotFound), errors.Is(err, ErrPageNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrProductConflict), errors.Is(err, repository.ErrDuplicateProduct):
		return "conflict"
	case errors.Is(err, repository.ErrStoreUnavailable):
		return "unavailable"
	case errors.Is(err, repository.ErrUnknownReference):
		return "bad_request"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
