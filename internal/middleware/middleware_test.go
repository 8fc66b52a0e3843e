package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "FL", SanitizeString("  F\x00L\x07 "))
	assert.Equal(t, "line1\nline2", SanitizeString("line1\nline2\r"))
}

func TestParseLimit(t *testing.T) {
	tests := map[string]int{"": 20, "abc": 20, "0": 20, "-1": 20, "5": 5, "100": 100, "500": 100}
	for in, want := range tests {
		assert.Equal(t, want, ParseLimit(in), "input %q", in)
	}
}

type checkerFunc func(context.Context) error

func (f checkerFunc) Check(ctx context.Context) error { return f(ctx) }

func TestReadinessHandler(t *testing.T) {
	ok := checkerFunc(func(context.Context) error { return nil })
	bad := checkerFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	ReadinessHandler(map[string]HealthChecker{"database": ok})(rec, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)

	rec = httptest.NewRecorder()
	ReadinessHandler(map[string]HealthChecker{"database": ok, "archive": bad})(rec, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLoggingAndMetrics(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewMetrics()

	r := chi.NewRouter()
	r.Use(Logging(zap.New(core)))
	r.Use(m.Middleware)
	r.Get("/api/analyses/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/123", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/analyses/{id}", fields["route"])
	assert.EqualValues(t, http.StatusNotFound, fields["status"])

	m.ObservePipeline("analyze", "completed", 2*time.Second)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	assert.True(t, strings.Contains(text, `http_requests_total{method="GET",route="/api/analyses/{id}",status="404"} 1`), text)
	assert.Contains(t, text, `pipeline_runs_total{flow="analyze",outcome="completed"} 1`)
}
