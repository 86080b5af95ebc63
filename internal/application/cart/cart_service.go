package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/cart"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
)

// ErrCartItemNotFound is returned when the product is not in the cart
var ErrCartItemNotFound = shared.ErrNotFound.WithMessage("Product is not in the cart")

// CartService handles cart operations of a client
type CartService struct {
	cartRepo    cart.CartRepository
	productRepo catalog.ProductRepository
}

// NewCartService creates a new CartService
func NewCartService(cartRepo cart.CartRepository, productRepo catalog.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetCart returns the user's lines with their products and the running total
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*CartResponse, error) {
	lines, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	products := map[uuid.UUID]*catalog.Product{}
	if len(lines) > 0 {
		ids := make([]uuid.UUID, len(lines))
		for i := range lines {
			ids[i] = lines[i].ProductID
		}
		found, err := s.productRepo.FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range found {
			products[found[i].ID] = &found[i]
		}
	}

	items := make([]CartItemResponse, len(lines))
	subtotals := make([]valueobject.Money, 0, len(lines))
	for i := range lines {
		product := products[lines[i].ProductID]
		items[i] = ToCartItemResponse(&lines[i], product)
		if product != nil {
			subtotals = append(subtotals, product.PriceMoney().Times(lines[i].Quantity))
		}
	}

	return &CartResponse{
		Items: items,
		Total: valueobject.Sum(subtotals...).Amount(),
	}, nil
}

// AddItem adds quantity units of a purchasable product, creating or incrementing the line
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*AddItemResult, error) {
	quantity := cart.DefaultAddQuantity
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if err := cart.ValidateAddQuantity(quantity); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindPurchasableByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	item, err := cart.NewCartItem(userID, product.ID, quantity)
	if err != nil {
		return nil, err
	}

	saved, created, err := s.cartRepo.AddQuantity(ctx, item)
	if err != nil {
		return nil, err
	}

	return &AddItemResult{
		Item:    ToCartItemResponse(saved, product),
		Created: created,
	}, nil
}

// UpdateItem overwrites the line quantity. Zero removes the line and is not
// an error when the line is already absent.
func (s *CartService) UpdateItem(ctx context.Context, userID uuid.UUID, req UpdateItemRequest) (*UpdateItemResult, error) {
	if req.Quantity == nil {
		return nil, cart.ErrInvalidQuantity
	}
	quantity := *req.Quantity
	if err := cart.ValidateSetQuantity(quantity); err != nil {
		return nil, err
	}

	if quantity == 0 {
		if _, err := s.cartRepo.Delete(ctx, userID, req.ProductID); err != nil {
			return nil, err
		}
		return &UpdateItemResult{ProductID: req.ProductID, Removed: true}, nil
	}

	affected, err := s.cartRepo.SetQuantity(ctx, userID, req.ProductID, quantity)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrCartItemNotFound
	}

	return &UpdateItemResult{ProductID: req.ProductID, Quantity: quantity}, nil
}

// RemoveItem deletes the line of the product
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	affected, err := s.cartRepo.Delete(ctx, userID, productID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}
