package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	cartapp "github.com/marketplace/backend/internal/application/cart"
	catalogapp "github.com/marketplace/backend/internal/application/catalog"
	reportapp "github.com/marketplace/backend/internal/application/report"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/marketplace/backend/internal/interfaces/http/handler"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCartService struct {
	handler.CartService
}

func (stubCartService) GetCart(context.Context, uuid.UUID) (*cartapp.CartResponse, error) {
	return &cartapp.CartResponse{Items: []cartapp.CartItemResponse{}, Total: decimal.Zero}, nil
}

type stubProductService struct {
	handler.ProductService
}

func (stubProductService) List(context.Context, catalogapp.ProductListFilter) (shared.Paginated[catalogapp.ProductResponse], error) {
	return shared.NewPaginated([]catalogapp.ProductResponse{}, 0, 1, 10), nil
}

type stubDashboardService struct{}

func (stubDashboardService) GetStats(context.Context, uuid.UUID) (*reportapp.DashboardStatsResponse, error) {
	return &reportapp.DashboardStatsResponse{TotalRevenue: decimal.Zero}, nil
}

func newTestServer(t *testing.T, httpCfg config.HTTPConfig) (*Server, *auth.JWTService) {
	t.Helper()
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "router-test-secret-at-least-32-chars",
		AccessTokenExpiration:  time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "marketplace-test",
		MaxRefreshCount:        1,
	})

	srv := NewServer(ServerOptions{
		HTTP:        httpCfg,
		ServiceName: "marketplace-test",
		Health: handler.NewHealthHandler("test", map[string]handler.HealthCheck{
			"database": func(context.Context) error { return nil },
		}),
		Handlers: Handlers{
			Auth:      handler.NewAuthHandler(nil, nil),
			Product:   handler.NewProductHandler(stubProductService{}),
			Cart:      handler.NewCartHandler(stubCartService{}),
			Order:     handler.NewOrderHandler(nil, nil, nil),
			Dashboard: handler.NewDashboardHandler(stubDashboardService{}),
		},
		Authenticate: middleware.JWTAuth(middleware.JWTMiddlewareConfig{JWTService: jwtService}),
	})
	t.Cleanup(srv.Close)
	return srv, jwtService
}

func bearer(t *testing.T, svc *auth.JWTService, role string) string {
	t.Helper()
	pair, err := svc.GenerateTokenPair(auth.GenerateTokenInput{UserID: uuid.New(), Email: "u@example.com", Role: role})
	require.NoError(t, err)
	return "Bearer " + pair.AccessToken
}

func call(srv *Server, method, target, authorization string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Engine.ServeHTTP(w, req)
	return w
}

func TestServer_RoleGuards(t *testing.T) {
	srv, jwtService := newTestServer(t, config.HTTPConfig{})
	client := bearer(t, jwtService, "CLIENT")
	seller := bearer(t, jwtService, "SELLER")

	tests := []struct {
		name          string
		method        string
		target        string
		authorization string
		wantCode      int
		wantBody      string
	}{
		{"cart without token", http.MethodGet, "/api/v1/cart", "", http.StatusUnauthorized, "ERR_UNAUTHORIZED"},
		{"cart with garbage token", http.MethodGet, "/api/v1/cart", "Bearer nope", http.StatusUnauthorized, "ERR_UNAUTHORIZED"},
		{"cart as seller", http.MethodGet, "/api/v1/cart", seller, http.StatusForbidden, "ERR_FORBIDDEN"},
		{"cart as client", http.MethodGet, "/api/v1/cart", client, http.StatusOK, `"total":"0"`},
		{"orders as seller", http.MethodPost, "/api/v1/orders", seller, http.StatusForbidden, "ERR_FORBIDDEN"},
		{"dashboard as client", http.MethodGet, "/api/v1/dashboard/stats", client, http.StatusForbidden, "ERR_FORBIDDEN"},
		{"dashboard as seller", http.MethodGet, "/api/v1/dashboard/stats", seller, http.StatusOK, `"success":true`},
		{"own products as client", http.MethodGet, "/api/v1/products/seller/products", client, http.StatusForbidden, "ERR_FORBIDDEN"},
		{"public catalog", http.MethodGet, "/api/v1/products", "", http.StatusOK, `"meta"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(srv, tt.method, tt.target, tt.authorization, nil)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestServer_HealthAndHeaders(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{})

	w := call(srv, http.MethodGet, "/health/ready", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestServer_BodyLimit(t *testing.T) {
	srv, jwtService := newTestServer(t, config.HTTPConfig{MaxBodySize: 16})

	body := strings.NewReader(`{"product_id":"` + uuid.NewString() + `","quantity":1}`)
	w := call(srv, http.MethodPost, "/api/v1/cart/add", bearer(t, jwtService, "CLIENT"), body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestServer_AuthRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{
		AuthRateLimitEnabled:  true,
		AuthRateLimitRequests: 1,
		AuthRateLimitWindow:   time.Hour,
	})

	// The first attempt is rejected by validation, which still spends the token
	w := call(srv, http.MethodPost, "/api/v1/auth/login", "", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(srv, http.MethodPost, "/api/v1/auth/login", "", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Public reads are not throttled by the credential limiter
	w = call(srv, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_Routes(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{})

	var paths []string
	for _, r := range srv.Routes() {
		paths = append(paths, r.Method+" "+r.Path)
	}

	for _, want := range []string{
		"POST /api/v1/auth/register",
		"DELETE /api/v1/auth/account",
		"PATCH /api/v1/auth/deactivate",
		"GET /api/v1/products",
		"GET /api/v1/products/seller/products",
		"POST /api/v1/products/upload-csv",
		"GET /api/v1/cart",
		"DELETE /api/v1/cart/remove",
		"POST /api/v1/orders",
		"GET /api/v1/orders/:id/receipt",
		"GET /api/v1/dashboard/stats",
	} {
		assert.Contains(t, paths, want)
	}
	assert.NotContains(t, paths, "GET /api/v1/products/seller/mine")
}
