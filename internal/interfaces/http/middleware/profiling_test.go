package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestProfiling_LabelsRequest(t *testing.T) {
	labels := map[string]string{}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(JWTRoleKey, "CLIENT")
		c.Next()
	}, Profiling(ProfilingSkips...))
	router.GET("/api/v1/orders/:id", func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(key, value string) bool {
			labels[key] = value
			return true
		})
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/orders/42", nil))

	assert.Equal(t, map[string]string{
		"controller": "orders",
		"route":      "/api/v1/orders/:id",
		"method":     "GET",
		"role":       "CLIENT",
	}, labels)
}

func TestProfiling_SkipsHealth(t *testing.T) {
	labelled := false
	router := gin.New()
	router.Use(Profiling(ProfilingSkips...))
	router.GET("/health", func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(string, string) bool {
			labelled = true
			return false
		})
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.False(t, labelled)
}

func TestResource(t *testing.T) {
	tests := []struct {
		route string
		want  string
	}{
		{"/api/v1/cart/add", "cart"},
		{"/api/v1/products/:id/image", "products"},
		{"/api/v2/dashboard/stats", "dashboard"},
		{"/health", "health"},
		{"", ""},
		{"/api/v1/:id", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resource(tt.route), tt.route)
	}
}
