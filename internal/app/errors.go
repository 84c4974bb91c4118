package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/assetsrv/internal/pkg"
)

// renderError sends an error response in the form the client asked for.
// Browsers that explicitly accept text/html get a short plain text body;
// everyone else gets the JSON envelope.
func renderError(c *gin.Context, code int, message string) {
	if acceptsHTML(c) {
		c.Data(code, "text/plain; charset=utf-8", []byte(fmt.Sprintf("%d %s", code, http.StatusText(code))))
		return
	}
	c.JSON(code, pkg.Response{Code: code, Message: message})
}

// acceptsHTML reports whether the Accept header names text/html and does not
// prefer JSON. Wildcards and an empty header count as non-browser clients.
func acceptsHTML(c *gin.Context) bool {
	accept := strings.ToLower(c.GetHeader("Accept"))
	if !strings.Contains(accept, "text/html") {
		return false
	}
	return !strings.HasPrefix(strings.TrimSpace(accept), "application/json")
}
