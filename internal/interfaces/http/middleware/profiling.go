package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/backend/internal/infrastructure/telemetry"
)

// ProfilingSkips are path prefixes left out of profile labelling
var ProfilingSkips = []string{"/health", "/swagger"}

// Profiling runs the rest of the chain under pprof labels naming the
// resource, route, method and caller role. It belongs after JWT; anonymous
// requests get no role label. Paths starting with one of skip are not
// labelled.
func Profiling(skip ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, prefix := range skip {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		route := c.FullPath()
		telemetry.Tagged(c.Request.Context(), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		},
			telemetry.LabelController, resource(route),
			telemetry.LabelRoute, route,
			telemetry.LabelMethod, c.Request.Method,
			telemetry.LabelRole, GetRole(c),
		)
	}
}

// resource returns the first segment after the /api prefix and version,
// "/api/v1/seller/products/:id" -> "seller"
func resource(route string) string {
	segs := strings.Split(strings.Trim(route, "/"), "/")
	if segs[0] == "api" {
		segs = segs[1:]
	}
	if len(segs) > 0 && isVersion(segs[0]) {
		segs = segs[1:]
	}
	if len(segs) == 0 || strings.HasPrefix(segs[0], ":") {
		return ""
	}
	return segs[0]
}

func isVersion(seg string) bool {
	return len(seg) > 1 && seg[0] == 'v' && strings.Trim(seg[1:], "0123456789") == ""
}
