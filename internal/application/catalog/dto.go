package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/infrastructure/csvimport"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to list a new product
type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=200"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Description string          `json:"description" binding:"required,min=1"`
	ImageURL    string          `json:"image_url" binding:"required,min=1,max=1000"`
}

// UpdateProductRequest represents a request to update a product.
// Every field is replaced.
type UpdateProductRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=200"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Description string          `json:"description" binding:"required,min=1"`
	ImageURL    string          `json:"image_url" binding:"required,min=1,max=1000"`
}

func (r CreateProductRequest) input() catalog.ProductInput {
	return catalog.ProductInput{Name: r.Name, Description: r.Description, ImageURL: r.ImageURL, Price: r.Price}
}

func (r UpdateProductRequest) input() catalog.ProductInput {
	return catalog.ProductInput{Name: r.Name, Description: r.Description, ImageURL: r.ImageURL, Price: r.Price}
}

// ProductListFilter represents the public catalog query
type ProductListFilter struct {
	Search   string `form:"search" binding:"max=100"`
	MinPrice string `form:"min_price"`
	MaxPrice string `form:"max_price"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1"`
}

// SellerResponse is the public seller projection of a product
type SellerResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID          uuid.UUID       `json:"id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	Price       decimal.Decimal `json:"price"`
	Active      bool            `json:"active"`
	PublishedAt time.Time       `json:"published_at"`
	Seller      *SellerResponse `json:"seller,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ImportResponse reports the outcome of a CSV upload
type ImportResponse struct {
	Created     int                  `json:"created"`
	Errors      []csvimport.RowError `json:"errors"`
	TotalErrors int                  `json:"total_errors"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
		Active:      p.Active,
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Seller != nil {
		resp.Seller = &SellerResponse{ID: p.Seller.ID, Name: p.Seller.Name}
	}
	return resp
}

// ToProductResponses converts a slice of domain Products
func ToProductResponses(products []catalog.Product) []ProductResponse {
	responses := make([]ProductResponse, len(products))
	for i := range products {
		responses[i] = ToProductResponse(&products[i])
	}
	return responses
}
