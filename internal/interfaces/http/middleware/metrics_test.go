package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func attrValue(set attribute.Set, key attribute.Key) string {
	v, ok := set.Value(key)
	if !ok {
		return ""
	}
	return v.Emit()
}

func TestHTTPMetrics_DisabledIsPassThrough(t *testing.T) {
	for name, mw := range map[string]gin.HandlerFunc{
		"config disabled": HTTPMetrics(HTTPMetricsConfig{Enabled: false}),
		"nil provider":    HTTPMetrics(HTTPMetricsConfig{Enabled: true}),
		"meter disabled":  HTTPMetricsWithMeter(nil, false),
	} {
		t.Run(name, func(t *testing.T) {
			router := gin.New()
			router.Use(mw)
			router.GET("/plans", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plans", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestHTTPMetricsWithMeter(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("test"), true))
	router.GET("/api/v1/plans/:id", func(c *gin.Context) { c.String(http.StatusOK, "plan") })
	router.POST("/api/v1/documents", func(c *gin.Context) {
		c.Set(AuthMethodKey, AuthMethodAPIKey)
		c.Status(http.StatusCreated)
	})

	for _, id := range []string{"free_tier", "pro", "business"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/plans/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader(`{"type":"invoice"}`)))
	require.Equal(t, http.StatusCreated, w.Code)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	t.Run("request counter labels use route pattern", func(t *testing.T) {
		m := collectMetric(t, reader, "http_server_request_total")
		require.NotNil(t, m)
		sum, ok := m.Data.(metricdata.Sum[int64])
		require.True(t, ok)

		counts := map[string]int64{}
		for _, dp := range sum.DataPoints {
			key := attrValue(dp.Attributes, "http.method") + " " + attrValue(dp.Attributes, "http.route") +
				" " + attrValue(dp.Attributes, "http.status_code") + " " + attrValue(dp.Attributes, attrAuthMethod)
			counts[key] += dp.Value
		}
		assert.Equal(t, int64(3), counts["GET /api/v1/plans/:id 200 anonymous"])
		assert.Equal(t, int64(1), counts["POST /api/v1/documents 201 api_key"])
		assert.Equal(t, int64(1), counts["GET unknown 404 anonymous"])
	})

	t.Run("duration recorded per request", func(t *testing.T) {
		m := collectMetric(t, reader, "http_server_request_duration_seconds")
		require.NotNil(t, m)
		hist, ok := m.Data.(metricdata.Histogram[float64])
		require.True(t, ok)

		var total uint64
		for _, dp := range hist.DataPoints {
			total += dp.Count
		}
		assert.Equal(t, uint64(5), total)
	})

	t.Run("request size only for bodies", func(t *testing.T) {
		m := collectMetric(t, reader, "http_server_request_size_bytes")
		require.NotNil(t, m)
		hist := m.Data.(metricdata.Histogram[float64])
		require.Len(t, hist.DataPoints, 1)
		assert.Equal(t, float64(len(`{"type":"invoice"}`)), hist.DataPoints[0].Sum)
	})

	t.Run("no requests left in flight", func(t *testing.T) {
		m := collectMetric(t, reader, "http_server_active_requests")
		require.NotNil(t, m)
		sum := m.Data.(metricdata.Sum[int64])
		var active int64
		for _, dp := range sum.DataPoints {
			active += dp.Value
		}
		assert.Zero(t, active)
	})
}
