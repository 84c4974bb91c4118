package staticfiles

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

var fileMethods = []string{http.MethodGet, http.MethodHead}

// StaticModule implements the app.Module interface for asset serving.
type StaticModule struct {
	handler    *Handler
	loginCheck LoginCheckFunc
}

// NewModule creates a StaticModule. loginCheck may be nil; it is kept for
// other modules sharing this instance and is never consulted by the asset
// routes. Panics if h is nil.
func NewModule(h *Handler, loginCheck LoginCheckFunc) *StaticModule {
	if h == nil {
		panic("staticfiles.NewModule: handler must not be nil")
	}
	return &StaticModule{handler: h, loginCheck: loginCheck}
}

// RegisterRoutes registers the asset routes on r.
func (m *StaticModule) RegisterRoutes(r *gin.RouterGroup) {
	r.Match(fileMethods, "/favicon.ico", m.handler.Favicon)
	r.Match(fileMethods, "/about", m.handler.About)
	r.Match(fileMethods, "/:project/about", m.handler.About)
	r.Match(fileMethods, "/getBackdrops", m.handler.Backdrops)
	r.Match(fileMethods, "/static/:module/*filename", m.handler.Static)
	r.Match(fileMethods, "/:project/static/:module/*filename", m.handler.StaticForProject)
}

// LoginCheck runs the injected login check. It returns ErrNoLoginCheck when
// the module was built without one, so an unset check never grants access.
func (m *StaticModule) LoginCheck(ctx context.Context, req LoginRequirement) (bool, error) {
	if m.loginCheck == nil {
		return false, ErrNoLoginCheck
	}
	return m.loginCheck(ctx, req), nil
}
