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

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/videos/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/videos/a", "/videos/b", "/ok"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/videos/{id}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/ok", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
}

func TestRecordAction(t *testing.T) {
	m := New()
	m.RecordAction("like", "on")
	m.RecordAction("like", "on")
	m.RecordAction("like", "off")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.engagement.WithLabelValues("like", "on")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.engagement.WithLabelValues("like", "off")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RecordAction("like", "on") })
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordAction("follow", "on")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `reelhub_engagement_actions_total{action="follow",outcome="on"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
