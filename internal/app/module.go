package app

import "github.com/gin-gonic/gin"

// Module is a self-registering group of routes.
type Module interface {
	RegisterRoutes(r *gin.RouterGroup)
}
