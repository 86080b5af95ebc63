package catalog

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/csvimport"
	"github.com/marketplace/backend/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultMaxImageSize is the largest accepted product image (5MB)
const DefaultMaxImageSize int64 = 5 << 20

// AllowedImageTypes maps accepted image content types to file extensions
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Catalog errors
var (
	ErrNoValidRows      = shared.NewDomainError("NO_VALID_ROWS", "CSV file has no valid product rows")
	ErrInvalidImageType = shared.NewDomainError("INVALID_IMAGE", "Image must be JPEG, PNG or WEBP")
	ErrImageTooLarge    = shared.NewDomainError("IMAGE_TOO_LARGE", "Image exceeds the maximum size")
)

// ImageStorage stores uploaded product images.
// Implemented by the infrastructure layer (S3, in-memory stub).
type ImageStorage interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, storageKey string) error
	PublicURL(storageKey string) string
}

// ProductService handles product-related business operations
type ProductService struct {
	productRepo     catalog.ProductRepository
	cache           catalog.ProductCache
	storage         ImageStorage
	eventPublisher  shared.EventPublisher
	maxImageSize    int64
	maxImportRows   int
	maxImportErrors int
}

// ProductServiceOption configures a ProductService
type ProductServiceOption func(*ProductService)

// WithProductCache puts a read-through cache in front of single product reads
func WithProductCache(cache catalog.ProductCache) ProductServiceOption {
	return func(s *ProductService) {
		s.cache = cache
	}
}

// WithImageStorage enables image uploads
func WithImageStorage(storage ImageStorage, maxSize int64) ProductServiceOption {
	return func(s *ProductService) {
		s.storage = storage
		if maxSize > 0 {
			s.maxImageSize = maxSize
		}
	}
}

// WithImportLimits caps the rows of a CSV upload and the row errors reported
// back. Non-positive values keep the defaults.
func WithImportLimits(maxRows, maxErrors int) ProductServiceOption {
	return func(s *ProductService) {
		if maxRows > 0 {
			s.maxImportRows = maxRows
		}
		if maxErrors > 0 {
			s.maxImportErrors = maxErrors
		}
	}
}

// NewProductService creates a new ProductService
func NewProductService(productRepo catalog.ProductRepository, opts ...ProductServiceOption) *ProductService {
	s := &ProductService{
		productRepo:     productRepo,
		maxImageSize:    DefaultMaxImageSize,
		maxImportRows:   5000,
		maxImportErrors: 100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEventPublisher sets the event publisher for product events
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// List returns a page of the public catalog
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) (shared.Paginated[ProductResponse], error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.Limit,
		Search:   strings.TrimSpace(filter.Search),
	}.Normalize()

	if err := setPriceFilter(domainFilter.Filters, catalog.FilterMinPrice, filter.MinPrice); err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	if err := setPriceFilter(domainFilter.Filters, catalog.FilterMaxPrice, filter.MaxPrice); err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}

	products, err := s.productRepo.FindPublished(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	total, err := s.productRepo.CountPublished(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}

	return shared.NewPaginated(ToProductResponses(products), total, domainFilter.Page, domainFilter.PageSize), nil
}

func setPriceFilter(filters map[string]any, key, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	price, err := decimal.NewFromString(raw)
	if err != nil || price.IsNegative() {
		return shared.ErrInvalidInput.WithMessage(fmt.Sprintf("%s must be a non-negative number", key))
	}
	filters[key] = price
	return nil
}

// GetByID returns a published product, going through the cache when configured
func (s *ProductService) GetByID(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, productID)
		if err != nil {
			logger.L(ctx).Warn("product cache read failed", zap.String("product_id", productID.String()), zap.Error(err))
		}
		if cached != nil && cached.IsPurchasable() {
			response := ToProductResponse(cached)
			return &response, nil
		}
	}

	product, err := s.productRepo.FindPurchasableByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, product); err != nil {
			logger.L(ctx).Warn("product cache write failed", zap.String("product_id", productID.String()), zap.Error(err))
		}
	}

	response := ToProductResponse(product)
	return &response, nil
}

// ListMine returns every product of the seller, newest first
func (s *ProductService) ListMine(ctx context.Context, sellerID uuid.UUID) ([]ProductResponse, error) {
	products, err := s.productRepo.FindBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return ToProductResponses(products), nil
}

// Create lists a new product for the seller
func (s *ProductService) Create(ctx context.Context, sellerID uuid.UUID, req CreateProductRequest) (*ProductResponse, error) {
	product, err := catalog.NewProduct(sellerID, req.input())
	if err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	logger.L(ctx).Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("seller_id", sellerID.String()),
	)

	response := ToProductResponse(product)
	return &response, nil
}

// Update replaces the fields of a product owned by the seller
func (s *ProductService) Update(ctx context.Context, sellerID, productID uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByIDForSeller(ctx, sellerID, productID)
	if err != nil {
		return nil, err
	}

	if err := product.Update(req.input()); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.invalidate(ctx, product.ID)
	s.publish(ctx, product)

	response := ToProductResponse(product)
	return &response, nil
}

// Delete soft deletes a product owned by the seller. Orders keep referencing it.
func (s *ProductService) Delete(ctx context.Context, sellerID, productID uuid.UUID) error {
	product, err := s.productRepo.FindByIDForSeller(ctx, sellerID, productID)
	if err != nil {
		return err
	}

	if err := product.Deactivate(); err != nil {
		return err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return err
	}
	s.invalidate(ctx, product.ID)
	s.publish(ctx, product)

	logger.L(ctx).Info("Product deactivated",
		zap.String("product_id", product.ID.String()),
		zap.String("seller_id", sellerID.String()),
	)
	return nil
}

// ImportCSV bulk creates products from a CSV upload. Invalid lines are
// reported with their line numbers; a file without any valid line fails.
func (s *ProductService) ImportCSV(ctx context.Context, sellerID uuid.UUID, r io.Reader) (*ImportResponse, error) {
	parsed, err := csvimport.ParseProducts(r,
		csvimport.WithMaxRows(s.maxImportRows),
		csvimport.WithMaxErrors(s.maxImportErrors),
	)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage(err.Error()).WithCause(err)
	}

	response := &ImportResponse{
		Errors:      parsed.Errors,
		TotalErrors: parsed.TotalErrors,
	}

	products := make([]*catalog.Product, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		product, err := catalog.NewProduct(sellerID, catalog.ProductInput{
			Name:        row.Name,
			Description: row.Description,
			ImageURL:    row.ImageURL,
			Price:       row.Price,
		})
		if err != nil {
			response.Errors = append(response.Errors, csvimport.RowError{
				Row:     row.Line,
				Code:    csvimport.ErrCodeInvalidRange,
				Message: err.Error(),
			})
			response.TotalErrors++
			continue
		}
		products = append(products, product)
	}

	if len(products) == 0 {
		return response, ErrNoValidRows
	}

	if err := s.productRepo.SaveBatch(ctx, products); err != nil {
		return nil, err
	}
	s.publish(ctx, products...)
	response.Created = len(products)

	logger.L(ctx).Info("Products imported",
		zap.String("seller_id", sellerID.String()),
		zap.Int("created", response.Created),
		zap.Int("errors", response.TotalErrors),
	)
	return response, nil
}

// UploadImage stores a new product image and points the product at it
func (s *ProductService) UploadImage(ctx context.Context, sellerID, productID uuid.UUID, contentType string, data []byte) (*ProductResponse, error) {
	if s.storage == nil {
		return nil, shared.ErrServiceUnavailable.WithMessage("Image storage is not configured")
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext, ok := AllowedImageTypes[contentType]
	if !ok {
		return nil, ErrInvalidImageType
	}
	if int64(len(data)) > s.maxImageSize {
		return nil, ErrImageTooLarge.WithMessage(fmt.Sprintf("Image exceeds the maximum size of %d bytes", s.maxImageSize))
	}
	if len(data) == 0 {
		return nil, shared.ErrInvalidInput.WithMessage("Image is empty")
	}

	product, err := s.productRepo.FindByIDForSeller(ctx, sellerID, productID)
	if err != nil {
		return nil, err
	}

	key := imageStorageKey(product.ID, ext)
	if err := s.storage.Upload(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("failed to store product image: %w", err)
	}

	if err := product.SetImageURL(s.storage.PublicURL(key)); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		// Best effort cleanup of the orphaned object
		if delErr := s.storage.DeleteObject(ctx, key); delErr != nil {
			logger.L(ctx).Warn("failed to delete orphaned product image", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}
	s.invalidate(ctx, product.ID)
	s.publish(ctx, product)

	response := ToProductResponse(product)
	return &response, nil
}

// imageStorageKey builds products/{productID}/{uniqueID}{ext}
func imageStorageKey(productID uuid.UUID, ext string) string {
	return path.Join("products", productID.String(), uuid.New().String()+ext)
}

// InvalidateSeller drops every cached product of the seller
func (s *ProductService) InvalidateSeller(ctx context.Context, sellerID uuid.UUID) error {
	if s.cache == nil {
		return nil
	}
	products, err := s.productRepo.FindBySeller(ctx, sellerID)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}
	return s.cache.Invalidate(ctx, ids...)
}

func (s *ProductService) invalidate(ctx context.Context, ids ...uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		logger.L(ctx).Warn("product cache invalidation failed", zap.Error(err))
	}
}

// publish sends the pending product events; failures are logged, not returned
func (s *ProductService) publish(ctx context.Context, products ...*catalog.Product) {
	for _, product := range products {
		events := product.PendingEvents()
		product.ClearEvents()
		if s.eventPublisher == nil || len(events) == 0 {
			continue
		}
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			logger.L(ctx).Warn("failed to publish product events",
				zap.String("product_id", product.ID.String()),
				zap.Error(err),
			)
		}
	}
}
