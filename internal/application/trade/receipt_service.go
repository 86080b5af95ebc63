package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/trade"
	"github.com/marketplace/backend/internal/infrastructure/printing"
	"go.uber.org/zap"
)

// Receipt formats
const (
	ReceiptFormatPDF  = "pdf"
	ReceiptFormatHTML = "html"
)

// ErrReceiptUnavailable is returned when no PDF renderer is available
var ErrReceiptUnavailable = shared.NewDomainError("SERVICE_UNAVAILABLE", "Receipt rendering is temporarily unavailable")

// ReceiptRenderer renders receipt documents
type ReceiptRenderer interface {
	RenderHTML(ctx context.Context, data *printing.ReceiptData) ([]byte, error)
	RenderPDF(ctx context.Context, data *printing.ReceiptData) ([]byte, error)
}

// ReceiptDocument is a rendered receipt ready to be served
type ReceiptDocument struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ReceiptService renders receipts for orders of a client
type ReceiptService struct {
	orderRepo   trade.OrderRepository
	productRepo catalog.ProductRepository
	userRepo    identity.UserRepository
	renderer    ReceiptRenderer
	logger      *zap.Logger
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(
	orderRepo trade.OrderRepository,
	productRepo catalog.ProductRepository,
	userRepo identity.UserRepository,
	renderer ReceiptRenderer,
	logger *zap.Logger,
) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		renderer:    renderer,
		logger:      logger,
	}
}

// Generate renders the receipt of an order owned by the user
func (s *ReceiptService) Generate(ctx context.Context, userID, orderID uuid.UUID, format string) (*ReceiptDocument, error) {
	if format == "" {
		format = ReceiptFormatPDF
	}
	if format != ReceiptFormatPDF && format != ReceiptFormatHTML {
		return nil, shared.ErrInvalidInput.WithMessage("format must be pdf or html")
	}

	order, err := s.orderRepo.FindByIDForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	products, err := s.productRepo.FindByIDs(ctx, order.ProductIDs())
	if err != nil {
		return nil, err
	}

	data := buildReceiptData(order, user, indexProducts(products))
	filename := fmt.Sprintf("receipt-%s.%s", data.Number, format)

	if format == ReceiptFormatHTML {
		html, err := s.renderer.RenderHTML(ctx, data)
		if err != nil {
			return nil, err
		}
		return &ReceiptDocument{Content: html, ContentType: "text/html; charset=utf-8", Filename: filename}, nil
	}

	pdf, err := s.renderer.RenderPDF(ctx, data)
	if err != nil {
		if errors.Is(err, printing.ErrRendererUnavailable) {
			s.logger.Warn("PDF renderer unavailable", zap.String("order_id", orderID.String()), zap.Error(err))
			return nil, ErrReceiptUnavailable.WithCause(err)
		}
		return nil, err
	}
	return &ReceiptDocument{Content: pdf, ContentType: "application/pdf", Filename: filename}, nil
}

func buildReceiptData(order *trade.Order, user *identity.User, products map[uuid.UUID]*catalog.Product) *printing.ReceiptData {
	lines := make([]printing.ReceiptLine, len(order.Items))
	for i, item := range order.Items {
		name := item.ProductID.String()
		if p, ok := products[item.ProductID]; ok {
			name = p.Name
		}
		lines[i] = printing.ReceiptLine{
			ProductName: name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal().Rounded().Amount(),
		}
	}
	return &printing.ReceiptData{
		OrderID:       order.ID,
		Number:        order.ID.String()[:8],
		Status:        string(order.Status),
		PlacedAt:      order.CreatedAt,
		CustomerName:  user.Name,
		CustomerEmail: user.Email,
		Lines:         lines,
		Total:         order.TotalAmount,
	}
}
