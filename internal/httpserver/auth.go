package httpserver

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/flash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	View         *View
	Metrics      *metrics.Metrics
	CookieSecure bool
}

func (h *AuthHTTP) LoginForm(c echo.Context) error {
	return h.View.Render(c, http.StatusOK, "login.html", map[string]any{"Next": c.QueryParam("next")})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	next := c.FormValue("next")
	sess, err := h.Svc.Login(ctx, c.FormValue("username"), c.FormValue("password"))
	if errors.Is(err, service.ErrAuthentication) {
		h.Metrics.ObserveLogin("customer", false)
		back := "/login"
		if next != "" {
			back += "?next=" + url.QueryEscape(next)
		}
		return h.View.Redirect(c, flash.Danger, userMessage(service.ErrAuthentication), back)
	}
	if err != nil {
		return httpError(l, "login_failed", err)
	}
	h.Metrics.ObserveLogin("customer", true)

	h.replaceSession(c, sess)
	if sess.Identity.IsAdmin {
		return h.View.Redirect(c, flash.Success, "Welcome back, administrator.", "/admin")
	}
	return h.View.Redirect(c, flash.Success, "Logged in successfully.", authmw.SafeNext(next, "/"))
}

func (h *AuthHTTP) RegisterForm(c echo.Context) error {
	return h.View.Render(c, http.StatusOK, "register.html", nil)
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	_, err := h.Svc.Register(ctx, c.FormValue("username"), c.FormValue("password"))
	switch {
	case errors.Is(err, service.ErrConflict):
		return h.View.Redirect(c, flash.Danger, "Username already exists!", "/register")
	case errors.Is(err, service.ErrValidation):
		return h.View.Redirect(c, flash.Danger, userMessage(err), "/register")
	case err != nil:
		return httpError(l, "register_failed", err)
	}
	return h.View.Redirect(c, flash.Success, "Registration successful! Please log in.", "/login")
}

// Logout always clears the cookie, even when revoking the session fails.
func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if ck, err := c.Cookie(tokens.SessionCookie); err == nil {
		if err := h.Svc.Logout(ctx, ck.Value); err != nil {
			l.Error("logout_failed", "status", 500, "reason", "cannot revoke session", "error", err)
		}
	}
	c.SetCookie(tokens.DeleteCookie(tokens.SessionCookie, "/", h.CookieSecure))
	return h.View.Redirect(c, flash.Info, "You have been logged out.", "/")
}

func (h *AuthHTTP) AdminLoginForm(c echo.Context) error {
	return h.View.Render(c, http.StatusOK, "admin_login.html", nil)
}

func (h *AuthHTTP) AdminLogin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.admin_login")

	sess, err := h.Svc.AdminLogin(ctx, c.FormValue("username"), c.FormValue("password"))
	if errors.Is(err, service.ErrAuthentication) {
		h.Metrics.ObserveLogin("admin", false)
		return h.View.Redirect(c, flash.Danger, userMessage(service.ErrAuthentication), "/admin/login")
	}
	if err != nil {
		return httpError(l, "admin_login_failed", err)
	}
	h.Metrics.ObserveLogin("admin", true)

	h.replaceSession(c, sess)
	return h.View.Redirect(c, flash.Success, "Welcome back, administrator.", "/admin")
}

// replaceSession revokes any session the browser still holds and sets the new cookie.
func (h *AuthHTTP) replaceSession(c echo.Context, sess *service.Session) {
	ctx := c.Request().Context()
	if ck, err := c.Cookie(tokens.SessionCookie); err == nil {
		if err := h.Svc.Logout(ctx, ck.Value); err != nil {
			logging.FromContext(ctx).Warn("revoke_previous_session_failed", "error", err)
		}
	}
	c.SetCookie(tokens.CreateCookie(tokens.SessionCookie, sess.Token, "/", sess.ExpiresAt, h.CookieSecure))
}
