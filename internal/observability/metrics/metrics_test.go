package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("org_id", "123"),
		attribute.String("customer_id", "456"),
		attribute.String("transition", "quote_accepted"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("org_id"), attrs[0].Key)
	assert.Equal(t, attribute.Key("transition"), attrs[1].Key)
}

func TestWorkflowCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewWithRegisterer(reg, Config{ServiceName: "pressroom", Environment: "test"}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordOrderCreated(ctx, "1", "direct")
	m.RecordOrderCreated(ctx, "1", "direct")
	m.RecordCascade(ctx, "invoice_paid", CascadeOutcomeFailed)
	m.RecordStockRejection()
	m.RecordDeleted("order", 3)
	m.RecordDeleted("order", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersCreated.WithLabelValues("direct")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cascades.WithLabelValues("invoice_paid", CascadeOutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stockRejections))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.docsDeleted.WithLabelValues("order")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RecordCascade(ctx, "x", "y") })
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m, err := NewHTTPMetricsWithRegisterer(reg, Config{})
	require.NoError(t, err)

	router := gin.New()
	router.Use(GinMiddleware(m))
	router.GET("/ping/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/ping/7", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/ping/:id", "204")))
}
