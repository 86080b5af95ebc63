package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cartapp "github.com/marketplace/backend/internal/application/cart"
	catalogapp "github.com/marketplace/backend/internal/application/catalog"
	identityapp "github.com/marketplace/backend/internal/application/identity"
	reportapp "github.com/marketplace/backend/internal/application/report"
	tradeapp "github.com/marketplace/backend/internal/application/trade"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/marketplace/backend/internal/interfaces/http/dto"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// ---- test router helpers ----

// asUser installs what JWTAuth would have set for an authenticated caller
func asUser(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTClaimsKey, &auth.Claims{UserID: userID.String(), Role: role})
		c.Set(middleware.JWTUserIDKey, userID.String())
		c.Set(middleware.JWTRoleKey, role)
		c.Next()
	}
}

func newTestEngine(mw ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(mw...)
	return engine
}

func doRequest(engine http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
	Meta    *dto.Meta      `json:"meta"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := decode[json.RawMessage](t, w)
	require.NotNil(t, env.Error, w.Body.String())
	return env.Error.Code
}

// ---- service mocks ----

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) Register(ctx context.Context, req identityapp.RegisterRequest) (*identityapp.AuthResponse, error) {
	args := m.Called(ctx, req)
	return authResult(args)
}

func (m *mockAuthService) Login(ctx context.Context, req identityapp.LoginRequest) (*identityapp.AuthResponse, error) {
	args := m.Called(ctx, req)
	return authResult(args)
}

func (m *mockAuthService) Refresh(ctx context.Context, req identityapp.RefreshTokenRequest) (*identityapp.AuthResponse, error) {
	args := m.Called(ctx, req)
	return authResult(args)
}

func (m *mockAuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	return m.Called(ctx, claims).Error(0)
}

func (m *mockAuthService) Me(ctx context.Context, userID uuid.UUID) (*identityapp.UserResponse, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.(*identityapp.UserResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func authResult(args mock.Arguments) (*identityapp.AuthResponse, error) {
	if v := args.Get(0); v != nil {
		return v.(*identityapp.AuthResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAccountService struct{ mock.Mock }

func (m *mockAccountService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockAccountService) DeactivateSeller(ctx context.Context, sellerID uuid.UUID) (*identityapp.DeactivateSellerResponse, error) {
	args := m.Called(ctx, sellerID)
	if v := args.Get(0); v != nil {
		return v.(*identityapp.DeactivateSellerResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockProductService struct{ mock.Mock }

func (m *mockProductService) List(ctx context.Context, filter catalogapp.ProductListFilter) (shared.Paginated[catalogapp.ProductResponse], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[catalogapp.ProductResponse]), args.Error(1)
}

func (m *mockProductService) GetByID(ctx context.Context, productID uuid.UUID) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, productID)
	return productResult(args)
}

func (m *mockProductService) ListMine(ctx context.Context, sellerID uuid.UUID) ([]catalogapp.ProductResponse, error) {
	args := m.Called(ctx, sellerID)
	return args.Get(0).([]catalogapp.ProductResponse), args.Error(1)
}

func (m *mockProductService) Create(ctx context.Context, sellerID uuid.UUID, req catalogapp.CreateProductRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, sellerID, req)
	return productResult(args)
}

func (m *mockProductService) Update(ctx context.Context, sellerID, productID uuid.UUID, req catalogapp.UpdateProductRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, sellerID, productID, req)
	return productResult(args)
}

func (m *mockProductService) Delete(ctx context.Context, sellerID, productID uuid.UUID) error {
	return m.Called(ctx, sellerID, productID).Error(0)
}

func (m *mockProductService) ImportCSV(ctx context.Context, sellerID uuid.UUID, r io.Reader) (*catalogapp.ImportResponse, error) {
	content, _ := io.ReadAll(r)
	args := m.Called(ctx, sellerID, string(content))
	if v := args.Get(0); v != nil {
		return v.(*catalogapp.ImportResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProductService) UploadImage(ctx context.Context, sellerID, productID uuid.UUID, contentType string, data []byte) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, sellerID, productID, contentType, data)
	return productResult(args)
}

func productResult(args mock.Arguments) (*catalogapp.ProductResponse, error) {
	if v := args.Get(0); v != nil {
		return v.(*catalogapp.ProductResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCartService struct{ mock.Mock }

func (m *mockCartService) GetCart(ctx context.Context, userID uuid.UUID) (*cartapp.CartResponse, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.(*cartapp.CartResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCartService) AddItem(ctx context.Context, userID uuid.UUID, req cartapp.AddItemRequest) (*cartapp.AddItemResult, error) {
	args := m.Called(ctx, userID, req)
	if v := args.Get(0); v != nil {
		return v.(*cartapp.AddItemResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCartService) UpdateItem(ctx context.Context, userID uuid.UUID, req cartapp.UpdateItemRequest) (*cartapp.UpdateItemResult, error) {
	args := m.Called(ctx, userID, req)
	if v := args.Get(0); v != nil {
		return v.(*cartapp.UpdateItemResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	return m.Called(ctx, userID, productID).Error(0)
}

type mockCheckoutService struct{ mock.Mock }

func (m *mockCheckoutService) PlaceOrder(ctx context.Context, userID uuid.UUID, key string) (*tradeapp.PlaceOrderResponse, error) {
	args := m.Called(ctx, userID, key)
	if v := args.Get(0); v != nil {
		return v.(*tradeapp.PlaceOrderResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockOrderService struct{ mock.Mock }

func (m *mockOrderService) List(ctx context.Context, userID uuid.UUID, filter tradeapp.OrderListFilter) (shared.Paginated[tradeapp.OrderResponse], error) {
	args := m.Called(ctx, userID, filter)
	return args.Get(0).(shared.Paginated[tradeapp.OrderResponse]), args.Error(1)
}

func (m *mockOrderService) GetByID(ctx context.Context, userID, orderID uuid.UUID) (*tradeapp.OrderResponse, error) {
	args := m.Called(ctx, userID, orderID)
	if v := args.Get(0); v != nil {
		return v.(*tradeapp.OrderResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockReceiptService struct{ mock.Mock }

func (m *mockReceiptService) Generate(ctx context.Context, userID, orderID uuid.UUID, format string) (*tradeapp.ReceiptDocument, error) {
	args := m.Called(ctx, userID, orderID, format)
	if v := args.Get(0); v != nil {
		return v.(*tradeapp.ReceiptDocument), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDashboardService struct{ mock.Mock }

func (m *mockDashboardService) GetStats(ctx context.Context, sellerID uuid.UUID) (*reportapp.DashboardStatsResponse, error) {
	args := m.Called(ctx, sellerID)
	if v := args.Get(0); v != nil {
		return v.(*reportapp.DashboardStatsResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

var (
	_ AuthService      = (*mockAuthService)(nil)
	_ AccountService   = (*mockAccountService)(nil)
	_ ProductService   = (*mockProductService)(nil)
	_ CartService      = (*mockCartService)(nil)
	_ CheckoutService  = (*mockCheckoutService)(nil)
	_ OrderService     = (*mockOrderService)(nil)
	_ ReceiptService   = (*mockReceiptService)(nil)
	_ DashboardService = (*mockDashboardService)(nil)

	_ AuthService      = (*identityapp.AuthService)(nil)
	_ AccountService   = (*identityapp.AccountService)(nil)
	_ ProductService   = (*catalogapp.ProductService)(nil)
	_ CartService      = (*cartapp.CartService)(nil)
	_ CheckoutService  = (*tradeapp.CheckoutService)(nil)
	_ OrderService     = (*tradeapp.OrderService)(nil)
	_ ReceiptService   = (*tradeapp.ReceiptService)(nil)
	_ DashboardService = (*reportapp.DashboardService)(nil)
)
