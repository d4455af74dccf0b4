package middleware

// identity.go holds helpers shared across middleware files. userID feeds the
// rate limiter and cache key strategies that partition by user.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// userID extracts the authenticated user's identifier from the context,
// where JWTAuth stored it. It returns "guest" for unauthenticated requests.
func userID(c echo.Context) string {
	if v := c.Get("user_id"); v != nil {
		return fmt.Sprint(v)
	}
	return "guest"
}
