package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CtxRequestID is the context key of the request id.
const CtxRequestID = "request_id"

// requestIDMaxLen caps client supplied ids so they cannot flood the logs.
const requestIDMaxLen = 64

// RequestID reuses the caller's X-Request-ID or generates a UUID, stores it
// in the context and echoes it in the response header.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" || len(rid) > requestIDMaxLen {
				rid = uuid.NewString()
			}
			c.Set(CtxRequestID, rid)
			c.Response().Header().Set(echo.HeaderXRequestID, rid)
			return next(c)
		}
	}
}

// RequestIDOf returns the id assigned by RequestID, or "".
func RequestIDOf(c echo.Context) string {
	rid, _ := c.Get(CtxRequestID).(string)
	return rid
}
