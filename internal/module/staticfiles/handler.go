package staticfiles

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/assetsrv/internal/domain"
	"github.com/simp-lee/assetsrv/internal/metrics"
	"github.com/simp-lee/assetsrv/internal/pkg"
)

// Handler serves module assets and the fixed favicon, about and backdrops
// resources. None of its routes require a login.
type Handler struct {
	routing   *Routing
	favicon   FixedFile
	about     FixedFile
	backdrops string
	logger    *slog.Logger
}

// HandlerConfig holds the locations a Handler serves from.
type HandlerConfig struct {
	Routing   *Routing
	Favicon   FixedFile
	About     FixedFile
	Backdrops string
	Logger    *slog.Logger
}

// staticParams are the route parameters of the static file routes. Project
// is accepted so project-scoped pages can link shared assets; it does not
// affect which file is served.
type staticParams struct {
	Project  string `uri:"project"`
	Module   string `uri:"module" binding:"required"`
	Filename string `uri:"filename"`
}

// NewHandler creates a Handler. Panics if cfg.Routing is nil.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Routing == nil {
		panic("staticfiles.NewHandler: routing must not be nil")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		routing:   cfg.Routing,
		favicon:   cfg.Favicon,
		about:     cfg.About,
		backdrops: cfg.Backdrops,
		logger:    log,
	}
}

// Favicon handles GET /favicon.ico.
func (h *Handler) Favicon(c *gin.Context) {
	h.serveFile(c, h.favicon.Root, h.favicon.Name)
}

// About handles GET /about and GET /:project/about.
func (h *Handler) About(c *gin.Context) {
	h.serveFile(c, h.about.Root, h.about.Name)
}

// Backdrops handles GET and HEAD /getBackdrops. Any failure is reported as a bare
// 500; the cause is only logged.
func (h *Handler) Backdrops(c *gin.Context) {
	info, err := LoadBackdrops(h.backdrops)
	if err != nil {
		metrics.RecordBackdropsError(backdropsErrorReason(err))
		h.logger.ErrorContext(c.Request.Context(), "load backdrops failed",
			slog.String("path", h.backdrops),
			slog.Any("error", err),
		)
		pkg.Error(c, domain.ErrInternal)
		return
	}
	c.JSON(http.StatusOK, gin.H{"info": info})
}

// Static handles GET /static/:module/*filename.
func (h *Handler) Static(c *gin.Context) {
	var p staticParams
	if !pkg.BindURI(c, &p) {
		return
	}
	h.serveModuleFile(c, p.Module, p.Filename)
}

// StaticForProject handles GET /:project/static/:module/*filename and
// answers exactly as Static does.
func (h *Handler) StaticForProject(c *gin.Context) {
	h.Static(c)
}

func (h *Handler) serveModuleFile(c *gin.Context, module, filename string) {
	root, err := h.routing.Lookup(module)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "unknown module", err))
		return
	}
	c.Set(metrics.ModuleKey, module)
	h.serveFile(c, root, filename)
}

// serveFile writes name from root using http.ServeContent, which supplies
// Content-Type, Last-Modified, range and conditional request handling.
func (h *Handler) serveFile(c *gin.Context, root, name string) {
	f, info, err := openAsset(root, name)
	if err != nil {
		appErr := classifyOpenError(err)
		if appErr.Code == domain.CodeForbidden {
			attrs := []any{
				slog.String("root", root),
				slog.String("name", name),
				slog.Any("error", err),
			}
			if errors.Is(err, ErrTraversal) {
				h.logger.WarnContext(c.Request.Context(), "path traversal rejected", attrs...)
			} else {
				h.logger.WarnContext(c.Request.Context(), "asset open refused", attrs...)
			}
		}
		pkg.Error(c, appErr)
		return
	}
	defer f.Close()

	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}
