package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"wedding-planner/internal/handler"
	"wedding-planner/internal/metrics"
	"wedding-planner/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness for load balancers and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", metrics.Handler())
}

// RegisterAuth registers the authentication endpoints under /v1/auth and
// the authenticated account route under /v1. Register, login and the
// refresh flows need no session; logout accepts either a bearer token or
// a refresh token in the body.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole("PLANNER", "COUPLE"))
	auth.GET("/me", a.Me)
}
