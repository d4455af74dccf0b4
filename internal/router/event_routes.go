package router // event, guest, table, constraint and seating routes

import (
	"github.com/labstack/echo/v4"

	"wedding-planner/internal/handler"
	"wedding-planner/internal/middleware"
)

// RegisterEvents registers every event-scoped endpoint under /v1. All
// routes require a valid JWT with a PLANNER or COUPLE role. The cache
// middleware is attached to the hot list endpoints only; mutations and
// live run polling always hit the handlers.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("PLANNER", "COUPLE"),
	)

	// ---- Events ----
	g.POST("/events", h.CreateEvent)
	g.GET("/events", h.ListEvents)
	g.GET("/events/:id", h.GetEvent)
	g.PUT("/events/:id", h.UpdateEvent)
	g.PATCH("/events/:id", h.UpdateEvent)
	g.DELETE("/events/:id", h.DeleteEvent)

	// ---- Guests ----
	g.POST("/events/:id/guests", h.CreateGuest)
	g.POST("/events/:id/guests/bulk", h.CreateGuestsBulk)
	g.GET("/events/:id/guests", h.ListGuests, cache)
	g.GET("/guests/:id", h.GetGuest)
	g.PUT("/guests/:id", h.UpdateGuest)
	g.PATCH("/guests/:id", h.UpdateGuest)
	g.DELETE("/guests/:id", h.DeleteGuest)

	// ---- Tables ----
	g.POST("/events/:id/tables", h.CreateTable)
	g.GET("/events/:id/tables", h.ListTables, cache)
	g.GET("/tables/:id", h.GetTable)
	g.PUT("/tables/:id", h.UpdateTable)
	g.PATCH("/tables/:id", h.UpdateTable)
	g.DELETE("/tables/:id", h.DeleteTable)

	// ---- Constraints ----
	g.POST("/events/:id/constraints", h.CreateConstraint)
	g.GET("/events/:id/constraints", h.ListConstraints, cache)
	g.DELETE("/constraints/:id", h.DeleteConstraint)

	// ---- Seating runs and the saved chart ----
	g.POST("/events/:id/seating/runs", h.StartSeatingRun)
	g.GET("/events/:id/seating/runs", h.GetCurrentSeatingRun)
	g.GET("/events/:id/seating/runs/:run_id", h.GetSeatingRun)
	g.DELETE("/events/:id/seating/runs/:run_id", h.CancelSeatingRun)
	g.POST("/events/:id/seating/runs/:run_id/apply", h.ApplySeatingRun)
	g.GET("/events/:id/seating/assignments", h.GetChart, cache)
	g.DELETE("/events/:id/seating/assignments", h.ClearChart)
}
