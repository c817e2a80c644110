package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/flash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/util"
)

const homeTopLimit = 4

type StoreHTTP struct {
	Catalog  *service.CatalogService
	Checkout *service.CheckoutService
	View     *View
	Metrics  *metrics.Metrics
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "page not found")
	}
	return uint(id), nil
}

func (h *StoreHTTP) Home(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "store.home")

	top, err := h.Catalog.TopProducts(ctx, homeTopLimit)
	if err != nil {
		return httpError(l, "home_failed", err)
	}
	return h.View.Render(c, http.StatusOK, "index.html", map[string]any{"Top": top})
}

func (h *StoreHTTP) Products(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "store.products")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	category := c.QueryParam("category")

	items, err := h.Catalog.ListProducts(ctx, page, category)
	if err != nil {
		return httpError(l, "list_products_failed", err)
	}
	cats, err := h.Catalog.Categories(ctx)
	if err != nil {
		return httpError(l, "list_products_failed", err)
	}

	return h.View.Render(c, http.StatusOK, "products.html", map[string]any{
		"Page":       items,
		"Category":   category,
		"Categories": cats,
	})
}

func (h *StoreHTTP) Product(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "store.product")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.Catalog.GetProduct(ctx, id)
	if err != nil {
		return httpError(l, "get_product_failed", err)
	}
	return h.View.Render(c, http.StatusOK, "product.html", map[string]any{"Product": p})
}

func (h *StoreHTTP) TopProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "store.top_products")

	top, err := h.Catalog.TopProducts(ctx, service.DefaultTopLimit)
	if err != nil {
		return httpError(l, "top_products_failed", err)
	}
	return c.JSON(http.StatusOK, top)
}

func (h *StoreHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "store.search")

	q := c.QueryParam("q")
	page := util.ParseIntDefault(c.QueryParam("page"), 1)

	res, err := h.Catalog.Search(ctx, q, page)
	if err != nil {
		return httpError(l, "search_failed", err)
	}
	return h.View.Render(c, http.StatusOK, "search.html", map[string]any{"Page": res, "Query": q})
}

func (h *StoreHTTP) BuyForm(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "store.buy_form")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.Checkout.Prepare(ctx, id)
	if err != nil {
		return httpError(l, "buy_form_failed", err)
	}
	return h.View.Render(c, http.StatusOK, "buy.html", map[string]any{"Product": p})
}

func (h *StoreHTTP) Buy(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "store.buy")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	buyer := authmw.IdentityFrom(c)
	if buyer == nil {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}

	conf, err := h.Checkout.PlaceOrder(ctx, *buyer, id, c.FormValue("address"))
	if errors.Is(err, service.ErrValidation) {
		l.Warn("buy_failed", "status", 400, "error", err)
		return h.View.Redirect(c, flash.Danger, userMessage(err), fmt.Sprintf("/buy/%d", id))
	}
	if err != nil {
		return httpError(l, "buy_failed", err)
	}

	h.Metrics.OrderPlaced()
	return h.View.Redirect(c, flash.Success,
		fmt.Sprintf("Order placed for %s! It will be delivered to: %s", conf.Product.Name, conf.Address),
		fmt.Sprintf("/product/%d", conf.Product.ID))
}
