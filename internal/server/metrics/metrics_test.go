package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New()
	require.NotNil(t, m)

	tests := []struct {
		name   string
		metric interface{}
	}{
		{"DispatchAttempts", m.DispatchAttempts},
		{"DispatchDuration", m.DispatchDuration},
		{"DispatchRejected", m.DispatchRejected},
		{"QueueDepth", m.QueueDepth},
		{"LogWriteErrors", m.LogWriteErrors},
		{"HTTPRequests", m.HTTPRequests},
		{"HTTPDuration", m.HTTPDuration},
		{"LoginAttempts", m.LoginAttempts},
		{"AuthRejected", m.AuthRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.metric)
		})
	}
}

func TestDispatchMetrics(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveDispatch(true, 200*time.Millisecond)
	m.ObserveDispatch(false, time.Second)
	m.ObserveDispatch(false, time.Second)
	m.RejectDispatch("queue_full")
	m.SetQueueDepth(3)
	m.LogWriteFailed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchAttempts.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DispatchAttempts.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchRejected.WithLabelValues("queue_full")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.QueueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LogWriteErrors))
	assert.Equal(t, 1, testutil.CollectAndCount(m.DispatchDuration))
}

func TestHTTPAndAuthMetrics(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveHTTP(http.MethodGet, "/dashboard", http.StatusOK, 5*time.Millisecond)
	m.ObserveHTTP(http.MethodPost, "/login", http.StatusUnauthorized, time.Millisecond)
	m.ObserveLogin("ok")
	m.ObserveLogin("invalid")
	m.ObserveAuthRejected("expired")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/dashboard", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/login", "401")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginAttempts.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthRejected.WithLabelValues("expired")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveDispatch(true, time.Second)
		m.RejectDispatch("closed")
		m.SetQueueDepth(1)
		m.LogWriteFailed()
		m.ObserveHTTP("GET", "/", 200, time.Second)
		m.ObserveLogin("ok")
		m.ObserveAuthRejected("missing")
	})

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveDispatch(true, time.Second)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `outreach_mail_dispatch_total{succeeded="true"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
