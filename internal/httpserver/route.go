package httpserver

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/metrics"
)

type Deps struct {
	Renderer *Renderer
	View     *View
	Guard    *authmw.Guard
	Metrics  *metrics.Metrics

	Store *StoreHTTP
	Auth  *AuthHTTP
	Admin *AdminHTTP

	Assets          fs.FS
	UploadDir       string
	UploadURLPrefix string

	// Ready reports whether backing stores answer; nil means always ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.Renderer = d.Renderer
	e.HTTPErrorHandler = ErrorHandler(d.View)

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.Ready(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "not ready"})
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}
	if d.Assets != nil {
		e.StaticFS("/static", d.Assets)
	}
	if d.UploadDir != "" {
		e.Static(d.UploadURLPrefix, d.UploadDir)
	}

	site := e.Group("", d.Guard.Identify)

	site.GET("/", d.Store.Home)
	site.GET("/products", d.Store.Products)
	site.GET("/product/:id", d.Store.Product)
	site.GET("/top-products", d.Store.TopProducts)
	site.GET("/search", d.Store.Search)

	site.GET("/login", d.Auth.LoginForm)
	site.POST("/login", d.Auth.Login)
	site.GET("/register", d.Auth.RegisterForm)
	site.POST("/register", d.Auth.Register)
	site.GET("/logout", d.Auth.Logout)
	site.POST("/logout", d.Auth.Logout)
	site.GET("/admin/login", d.Auth.AdminLoginForm)
	site.POST("/admin/login", d.Auth.AdminLogin)

	buy := site.Group("/buy", d.Guard.RequireAuthenticated)
	buy.GET("/:id", d.Store.BuyForm)
	buy.POST("/:id", d.Store.Buy)

	admin := site.Group("/admin", d.Guard.RequireAdmin)
	admin.GET("", d.Admin.Dashboard)

	admin.GET("/users", d.Admin.Users)
	admin.GET("/users/add", d.Admin.UserAddForm)
	admin.POST("/users/add", d.Admin.UserAdd)
	admin.GET("/users/edit/:id", d.Admin.UserEditForm)
	admin.POST("/users/edit/:id", d.Admin.UserEdit)
	admin.POST("/users/delete/:id", d.Admin.UserDelete)

	admin.GET("/products", d.Admin.Products)
	admin.GET("/products/add", d.Admin.ProductAddForm)
	admin.POST("/products/add", d.Admin.ProductAdd)
	admin.GET("/products/edit/:id", d.Admin.ProductEditForm)
	admin.POST("/products/edit/:id", d.Admin.ProductEdit)
	admin.POST("/products/delete/:id", d.Admin.ProductDelete)
}
