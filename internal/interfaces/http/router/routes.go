package router

import (
	"github.com/gin-gonic/gin"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/interfaces/http/handler"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
)

// Handlers holds the API handlers mounted under /api/v1
type Handlers struct {
	Auth      *handler.AuthHandler
	Product   *handler.ProductHandler
	Cart      *handler.CartHandler
	Order     *handler.OrderHandler
	Dashboard *handler.DashboardHandler
}

// Guards are the per-route middleware chains
type Guards struct {
	// Authenticate resolves the bearer token into a principal
	Authenticate gin.HandlerFunc
	// AuthLimit throttles credential endpoints; nil disables it
	AuthLimit gin.HandlerFunc
	// Profiling labels requests; installed after Authenticate so the role is known
	Profiling gin.HandlerFunc
}

func (g Guards) public(h gin.HandlerFunc) []gin.HandlerFunc {
	return compact(g.Profiling, h)
}

func (g Guards) credentials(h gin.HandlerFunc) []gin.HandlerFunc {
	return compact(g.AuthLimit, g.Profiling, h)
}

func (g Guards) authenticated(h gin.HandlerFunc) []gin.HandlerFunc {
	return compact(g.Authenticate, g.Profiling, h)
}

func (g Guards) role(role identity.Role, h gin.HandlerFunc) []gin.HandlerFunc {
	return compact(g.Authenticate, g.Profiling, middleware.RequireRole(role), h)
}

func compact(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// MarketplaceRoutes builds the domain groups of the marketplace API
func MarketplaceRoutes(h Handlers, g Guards) []RouteRegistrar {
	client := func(fn gin.HandlerFunc) []gin.HandlerFunc { return g.role(identity.RoleClient, fn) }
	seller := func(fn gin.HandlerFunc) []gin.HandlerFunc { return g.role(identity.RoleSeller, fn) }

	authRoutes := NewDomainGroup("auth", "/auth")
	authRoutes.POST("/register", g.credentials(h.Auth.Register)...)
	authRoutes.POST("/login", g.credentials(h.Auth.Login)...)
	authRoutes.POST("/refresh", g.public(h.Auth.Refresh)...)
	authRoutes.POST("/logout", g.authenticated(h.Auth.Logout)...)
	authRoutes.GET("/me", g.authenticated(h.Auth.Me)...)
	authRoutes.DELETE("/account", client(h.Auth.DeleteAccount)...)
	authRoutes.PATCH("/deactivate", seller(h.Auth.DeactivateSeller)...)

	productRoutes := NewDomainGroup("catalog", "/products")
	productRoutes.GET("", g.public(h.Product.List)...)
	productRoutes.GET("/:id", g.public(h.Product.GetByID)...)
	productRoutes.GET("/seller/products", seller(h.Product.ListMine)...)
	productRoutes.POST("", seller(h.Product.Create)...)
	productRoutes.POST("/upload-csv", seller(h.Product.ImportCSV)...)
	productRoutes.PUT("/:id", seller(h.Product.Update)...)
	productRoutes.DELETE("/:id", seller(h.Product.Delete)...)
	productRoutes.POST("/:id/image", seller(h.Product.UploadImage)...)

	cartRoutes := NewDomainGroup("cart", "/cart")
	cartRoutes.GET("", client(h.Cart.Get)...)
	cartRoutes.POST("/add", client(h.Cart.Add)...)
	cartRoutes.PUT("/update", client(h.Cart.Update)...)
	cartRoutes.DELETE("/remove", client(h.Cart.Remove)...)

	orderRoutes := NewDomainGroup("trade", "/orders")
	orderRoutes.POST("", client(h.Order.PlaceOrder)...)
	orderRoutes.GET("", client(h.Order.List)...)
	orderRoutes.GET("/:id", client(h.Order.GetByID)...)
	orderRoutes.GET("/:id/receipt", client(h.Order.Receipt)...)

	dashboardRoutes := NewDomainGroup("report", "/dashboard")
	dashboardRoutes.GET("/stats", seller(h.Dashboard.Stats)...)

	return []RouteRegistrar{authRoutes, productRoutes, cartRoutes, orderRoutes, dashboardRoutes}
}
