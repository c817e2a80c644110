package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/flash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

const ctxIdentity = "identity"

type Resolver interface {
	Identify(ctx context.Context, token string) (*service.Identity, error)
}

// Guard resolves the session cookie once per request and enforces access rules.
type Guard struct {
	Resolver     Resolver
	Flash        *flash.Store
	CookieSecure bool
}

// Identify attaches the caller's identity, if any. A cookie that no longer
// maps to an active session is cleared and the request continues anonymously.
func (g *Guard) Identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ck, err := c.Cookie(tokens.SessionCookie)
		if err != nil || ck.Value == "" {
			return next(c)
		}

		ctx := c.Request().Context()
		id, err := g.Resolver.Identify(ctx, ck.Value)
		if err != nil {
			if !errors.Is(err, service.ErrAuthentication) {
				return err
			}
			logging.FromContext(ctx).Info("session_rejected", "reason", err.Error())
			c.SetCookie(tokens.DeleteCookie(tokens.SessionCookie, "/", g.CookieSecure))
			return next(c)
		}

		SetIdentity(c, id)
		return next(c)
	}
}

func (g *Guard) RequireAuthenticated(next echo.HandlerFunc) echo.HandlerFunc {
	return g.require(next, RuleAuthenticated)
}

func (g *Guard) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return g.require(next, RuleAdmin)
}

func (g *Guard) require(next echo.HandlerFunc, rule Rule) echo.HandlerFunc {
	return func(c echo.Context) error {
		d := Check(IdentityFrom(c), rule)
		switch d.Outcome {
		case Allow:
			return next(c)
		case DenyAnonymous:
			if g.Flash != nil {
				g.Flash.Add(c, flash.Warning, "Please log in to continue.")
			}
			return c.Redirect(http.StatusSeeOther, LoginURL(c.Request().RequestURI))
		default:
			logging.FromContext(c.Request().Context()).Warn("access_denied", "status", 403, "reason", d.Reason)
			if g.Flash != nil {
				g.Flash.Add(c, flash.Danger, "Access denied.")
			}
			return c.Redirect(http.StatusSeeOther, "/")
		}
	}
}

// SetIdentity records id on the echo context and the request context, and
// tags the request logger with the user id.
func SetIdentity(c echo.Context, id *service.Identity) {
	c.Set(ctxIdentity, id)
	ctx := service.WithIdentity(c.Request().Context(), id)
	if id != nil {
		ctx = logging.IntoContext(ctx, logging.FromContext(ctx).With("user_id", id.UserID))
	}
	c.SetRequest(c.Request().WithContext(ctx))
}

// IdentityFrom returns nil for anonymous requests.
func IdentityFrom(c echo.Context) *service.Identity {
	id, _ := c.Get(ctxIdentity).(*service.Identity)
	return id
}
