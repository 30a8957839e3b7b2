package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func tracedRouter(t *testing.T, handler gin.HandlerFunc) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	router := gin.New()
	router.Use(
		RequestID(),
		TracingWithConfig(TracingConfig{ServiceName: "billing-test", Enabled: true, TracerProvider: tp}),
		SpanErrorMarker(),
		func(c *gin.Context) {
			if id := c.GetHeader("X-Test-User"); id != "" {
				c.Set(UserIDKey, id)
				c.Set(AuthMethodKey, AuthMethodJWT)
			}
		},
		TracingAttributeInjector(),
	)
	router.GET("/api/v1/plans/:id", handler)
	return router, sr
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]string {
	attrs := map[attribute.Key]string{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	return attrs
}

func TestTracing_SpanCarriesIdentity(t *testing.T) {
	router, sr := tracedRouter(t, func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plans/pro", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	req.Header.Set("X-Test-User", "user-7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttrs(spans[0])
	assert.Equal(t, "req-42", attrs["request_id"])
	assert.Equal(t, "user-7", attrs["user_id"])
	assert.Equal(t, "jwt", attrs["auth.method"])
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestTracing_AnonymousRequestHasNoUser(t *testing.T) {
	router, sr := tracedRouter(t, func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/plans/free_tier", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttrs(spans[0])
	assert.NotEmpty(t, attrs["request_id"])
	assert.NotContains(t, attrs, attribute.Key("user_id"))
}

func TestSpanErrorMarker(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			router, sr := tracedRouter(t, func(c *gin.Context) { c.Status(status) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/plans/x", nil))

			spans := sr.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, codes.Error, spans[0].Status().Code)
			assert.Equal(t, http.StatusText(status), spans[0].Status().Description)
		})
	}

	t.Run("server error keeps handler error", func(t *testing.T) {
		router, sr := tracedRouter(t, func(c *gin.Context) {
			_ = c.Error(errors.New("gateway timeout"))
			c.Status(http.StatusServiceUnavailable)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/plans/x", nil))

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
		assert.Equal(t, "gateway timeout", spanAttrs(spans[0])["error.detail"])
	})
}

func TestTracing_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}), SpanErrorMarker(), TracingAttributeInjector())
	router.GET("/plans", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plans", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestSpanRequestIDTruncated(t *testing.T) {
	router := gin.New()
	router.GET("/plans", func(c *gin.Context) { c.String(http.StatusOK, spanRequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/plans", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("a", 300))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Len(t, w.Body.String(), MaxRequestIDLength)
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "billing-service", cfg.ServiceName)
}
