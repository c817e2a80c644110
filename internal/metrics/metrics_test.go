package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	t.Parallel()

	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/product/:id", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/missing/:id", func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound) })

	for _, path := range []string{"/product/1", "/product/2", "/missing/3"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.InDelta(t, 2, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/product/:id", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/missing/:id", "404")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.httpInFlight), 0)
}

func TestDomainCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveLogin("customer", true)
	m.ObserveLogin("customer", false)
	m.ObserveLogin("customer", false)
	m.OrderPlaced()

	assert.InDelta(t, 1, testutil.ToFloat64(m.logins.WithLabelValues("customer", "success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.logins.WithLabelValues("customer", "failure")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.orders), 0)
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveLogin("admin", true)
		m.OrderPlaced()
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.OrderPlaced()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "storefront_checkout_orders_placed_total 1")
}
