package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const (
	maxNameLength     = 200
	maxImageURLLength = 1000
)

// ErrProductNotFound is returned when a product does not exist or is not purchasable
var ErrProductNotFound = shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")

// SellerInfo is the read-only seller projection loaded with a product
type SellerInfo struct {
	ID     uuid.UUID
	Name   string
	Active bool
}

// Product is a seller's listing. It is the aggregate root for catalog operations.
type Product struct {
	shared.BaseAggregateRoot
	SellerID    uuid.UUID
	Name        string
	Description string
	ImageURL    string
	Price       decimal.Decimal
	Active      bool
	PublishedAt time.Time

	// Seller is populated by queries that join the seller; nil otherwise
	Seller *SellerInfo
}

// ProductInput carries the editable fields of a product
type ProductInput struct {
	Name        string
	Description string
	ImageURL    string
	Price       decimal.Decimal
}

// NewProduct creates a new active product owned by sellerID
func NewProduct(sellerID uuid.UUID, in ProductInput) (*Product, error) {
	if sellerID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("Seller ID cannot be empty")
	}
	in = in.normalized()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SellerID:          sellerID,
		Name:              in.Name,
		Description:       in.Description,
		ImageURL:          in.ImageURL,
		Price:             in.Price,
		Active:            true,
	}
	product.PublishedAt = product.CreatedAt

	product.RecordEvent(NewProductCreatedEvent(product))

	return product, nil
}

// Update replaces the editable fields
func (p *Product) Update(in ProductInput) error {
	in = in.normalized()
	if err := in.Validate(); err != nil {
		return err
	}

	oldPrice := p.Price
	p.Name = in.Name
	p.Description = in.Description
	p.ImageURL = in.ImageURL
	p.Price = in.Price
	p.UpdatedAt = time.Now()
	p.BumpVersion()

	p.RecordEvent(NewProductUpdatedEvent(p, oldPrice))

	return nil
}

// SetImageURL replaces the product image
func (p *Product) SetImageURL(url string) error {
	url = strings.TrimSpace(url)
	if url == "" || len(url) > maxImageURLLength {
		return shared.NewDomainError("INVALID_IMAGE_URL", "Image URL is required and cannot exceed 1000 characters")
	}
	p.ImageURL = url
	p.UpdatedAt = time.Now()
	p.BumpVersion()

	p.RecordEvent(NewProductUpdatedEvent(p, p.Price))

	return nil
}

// Deactivate hides the product from the catalog. Order history keeps referencing it.
func (p *Product) Deactivate() error {
	if !p.Active {
		return shared.ErrInvalidState.WithMessage("Product is already inactive")
	}
	p.Active = false
	p.UpdatedAt = time.Now()
	p.BumpVersion()

	p.RecordEvent(NewProductDeactivatedEvent(p))

	return nil
}

// IsPurchasable returns true when the product and its seller are both active.
// A product loaded without its seller is judged on its own flag only.
func (p *Product) IsPurchasable() bool {
	if !p.Active {
		return false
	}
	return p.Seller == nil || p.Seller.Active
}

// PriceMoney returns the current price as Money
func (p *Product) PriceMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(p.Price)
}

// SellerName returns the joined seller name, if loaded
func (p *Product) SellerName() string {
	if p.Seller == nil {
		return ""
	}
	return p.Seller.Name
}

func (in ProductInput) normalized() ProductInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.Price = in.Price.Round(valueobject.CurrencyPlaces)
	return in
}

// Validate checks that every field is present and that the price, rounded to
// cents, is positive and within valueobject.MaxAmount
func (in ProductInput) Validate() error {
	if in.Name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(in.Name) > maxNameLength {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	if in.Description == "" {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Product description cannot be empty")
	}
	if in.ImageURL == "" {
		return shared.NewDomainError("INVALID_IMAGE_URL", "Product image URL cannot be empty")
	}
	if len(in.ImageURL) > maxImageURLLength {
		return shared.NewDomainError("INVALID_IMAGE_URL", "Image URL cannot exceed 1000 characters")
	}
	price := valueobject.NewMoneyBRL(in.Price).Rounded()
	if !price.Amount().IsPositive() {
		return shared.NewDomainError("INVALID_PRICE", "Price must be at least 0.01")
	}
	if !price.WithinLimit() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot exceed 9999999999.99")
	}
	return nil
}
