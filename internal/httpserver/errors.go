package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
)

// ErrorHandler renders HTTP errors as a page, or JSON for API callers.
// Internal errors never expose their cause.
func ErrorHandler(v *View) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok && code < 500 {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
		}
		if code >= 500 {
			logging.FromContext(c.Request().Context()).Error("unhandled_error", "status", code, "error", err)
		}

		req := c.Request()
		var werr error
		switch {
		case req.Method == http.MethodHead:
			werr = c.NoContent(code)
		case wantsJSON(req):
			werr = c.JSON(code, map[string]string{"error": msg})
		default:
			werr = v.Render(c, code, "error.html", map[string]any{"Code": code, "Message": msg})
			if werr != nil && !c.Response().Committed {
				werr = c.String(code, msg)
			}
		}
		if werr != nil {
			logging.FromContext(req.Context()).Error("error_handler_failed", "error", werr)
		}
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) ||
		strings.HasPrefix(r.URL.Path, "/top-products")
}

// httpError maps a service error onto an HTTP error, logging it on l.
func httpError(l *slog.Logger, event string, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", http.StatusNotFound, "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "page not found")
	case errors.Is(err, service.ErrValidation):
		l.Warn(event, "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, userMessage(err))
	case errors.Is(err, service.ErrPermission), errors.Is(err, service.ErrAuthorization):
		l.Warn(event, "status", http.StatusForbidden, "error", err)
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	default:
		l.Error(event, "status", http.StatusInternalServerError, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
}
