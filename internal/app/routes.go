package app

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/assetsrv/internal/metrics"
)

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules []Module
	// AssetRoots maps module name to the directory /health checks for it.
	AssetRoots map[string]string
	// MetricsPath is where Prometheus metrics are exposed. Empty disables
	// the endpoint.
	MetricsPath string
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}
	if p := deps.MetricsPath; p != "" && !strings.HasPrefix(p, "/") {
		return fmt.Errorf("metrics path %q must start with '/'", p)
	}

	r.GET("/health", healthHandler(deps.AssetRoots))

	if deps.MetricsPath != "" {
		r.GET(deps.MetricsPath, gin.WrapH(metrics.Handler()))
	}

	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(&r.RouterGroup)
	}

	r.NoRoute(noRouteHandler())

	return nil
}

// healthHandler reports whether every asset root is present on disk. A
// missing root makes the service degraded rather than down: the other
// modules keep serving.
func healthHandler(roots map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK

		components := gin.H{}
		for name, root := range roots {
			state := "ok"
			if info, err := os.Stat(root); err != nil || !info.IsDir() {
				state = "missing"
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
			components[name] = state
		}

		c.JSON(code, gin.H{
			"status":     status,
			"components": components,
		})
	}
}

func noRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		renderError(c, http.StatusNotFound, "not found")
	}
}
