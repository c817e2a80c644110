package loggingmw

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
)

// RequestLogger puts a request-scoped logger into the context and writes one
// "request completed" line per request. Errors are rendered here, so the
// logged status is the one the client saw.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			l := base.With(
				"method", req.Method,
				"url", req.URL.Path,
				"remote_ip", c.RealIP(),
			)
			if rid := requestID(c); rid != "" {
				l = l.With("request_id", rid)
			}
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
			}

			res := c.Response()
			attrs := []any{
				"route", c.Path(),
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes", res.Size,
			}
			attrs = append(attrs, principal(c)...)
			if err != nil {
				attrs = append(attrs, "error", err.Error())
			}
			l.Log(c.Request().Context(), levelFor(res.Status), "request completed", attrs...)
			return nil
		}
	}
}

func requestID(c echo.Context) string {
	if rid := c.Request().Header.Get(echo.HeaderXRequestID); rid != "" {
		return rid
	}
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// principal describes who made the request, as resolved by the auth guard.
func principal(c echo.Context) []any {
	id := service.IdentityFromContext(c.Request().Context())
	switch {
	case id == nil:
		return []any{"principal", "anonymous"}
	case id.IsAdmin:
		return []any{"principal", "admin", "user_id", id.UserID}
	default:
		return []any{"principal", "customer", "user_id", id.UserID}
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
