package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/api/walls/{code}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, code := range []string{"abc123", "xyz789"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/walls/"+code, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	got := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/walls/{code}", "404"))
	assert.Equal(t, float64(2), got)
}

func TestHandlerExposesDomainMetrics(t *testing.T) {
	RecordGiftActivation("show_badge")
	RecordPaymentEvent("processed")
	done := WSConnected()
	assert.Equal(t, float64(1), testutil.ToFloat64(wsConnections))
	done()
	assert.Equal(t, float64(0), testutil.ToFloat64(wsConnections))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `birthday_mate_gifts_activations_total{action="show_badge"}`))
	assert.True(t, strings.Contains(body, `birthday_mate_payments_webhook_events_total{outcome="processed"}`))
}
