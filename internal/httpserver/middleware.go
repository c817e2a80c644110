package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/metrics"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
)

// maxBody bounds request bodies, image uploads included.
const maxBody = "16M"

// Common is the middleware chain every request passes through. CSRF comes
// last so a rejected token is still logged and counted.
func Common(logger *slog.Logger, m *metrics.Metrics, secureCookies bool) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		echomw.Recover(),
		echomw.RequestID(),
		echomw.Secure(),
		echomw.BodyLimit(maxBody),
		loggingmw.RequestLogger(logger),
		m.Middleware(),
		CSRF(secureCookies),
	}
}
