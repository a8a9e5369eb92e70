package app

import "github.com/gin-gonic/gin"

// Module is a self-registering feature module. Each list view registers its
// JSON API routes on api and its page and intent routes on pages.
type Module interface {
	RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup)
}
