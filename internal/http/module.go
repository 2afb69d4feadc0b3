package http

import (
	"lead_routing_backend/platform/config"
	"lead_routing_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is implemented by each domain package (leads, routing, market...).
// router.New calls RegisterRoutes once per module at startup.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the route groups a module mounts on. Protected,
// Admin and Provider already run AuthMiddleware; Admin and Provider add the
// role check on top.
type RouterContext struct {
	Engine    *gin.Engine
	V1        *gin.RouterGroup
	Protected *gin.RouterGroup
	Admin     *gin.RouterGroup
	Provider  *gin.RouterGroup

	Config         config.JWTConfig
	AuthMiddleware gin.HandlerFunc
	// IntakeLimiter throttles the public lead form per client IP.
	IntakeLimiter *httpkit.IPRateLimiter
}
