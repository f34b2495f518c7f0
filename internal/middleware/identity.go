package middleware

// identity.go holds the helpers that read the authenticated caller back out
// of the Echo context once JWTAuth has run.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// Actor returns the caller's subject claim, or "anon" when the request is
// unauthenticated.  Numeric subjects are rendered in decimal.
func Actor(c echo.Context) string {
	switch v := c.Get(CtxUserID).(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("%.0f", v)
	case nil:
	default:
		return fmt.Sprint(v)
	}
	return "anon"
}

// Role returns the caller's role claim or "".
func Role(c echo.Context) string {
	r, _ := c.Get(CtxRole).(string)
	return r
}
