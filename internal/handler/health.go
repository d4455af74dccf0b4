package handler // HTTP handlers for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health answers load balancer and monitoring probes.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
