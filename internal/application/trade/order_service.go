package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/trade"
)

// OrderService serves the order history of a client
type OrderService struct {
	orderRepo   trade.OrderRepository
	productRepo catalog.ProductRepository
}

// NewOrderService creates a new OrderService
func NewOrderService(orderRepo trade.OrderRepository, productRepo catalog.ProductRepository) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
	}
}

// List returns one page of the user's orders, newest first
func (s *OrderService) List(ctx context.Context, userID uuid.UUID, filter OrderListFilter) (shared.Paginated[OrderResponse], error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.Limit,
	}.Normalize()

	orders, err := s.orderRepo.FindByUser(ctx, userID, domainFilter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	total, err := s.orderRepo.CountByUser(ctx, userID)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}

	products, err := s.loadProducts(ctx, orders...)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}

	items := make([]OrderResponse, len(orders))
	for i := range orders {
		items[i] = ToOrderResponse(&orders[i], products)
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize), nil
}

// GetByID returns an order owned by the user
func (s *OrderService) GetByID(ctx context.Context, userID, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByIDForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	products, err := s.loadProducts(ctx, *order)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order, products)
	return &resp, nil
}

// loadProducts fetches the products referenced by the orders, inactive ones included
func (s *OrderService) loadProducts(ctx context.Context, orders ...trade.Order) (map[uuid.UUID]*catalog.Product, error) {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for i := range orders {
		for _, id := range orders[i].ProductIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return map[uuid.UUID]*catalog.Product{}, nil
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return indexProducts(products), nil
}
