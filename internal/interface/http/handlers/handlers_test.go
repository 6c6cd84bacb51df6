package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyAuth(t *testing.T) {
	auth := NewAPIKeyAuth("X-API-Key", []string{"bot-key", "", "admin-key"})
	ok := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"empty never matches", map[string]string{"X-API-Key": ""}, http.StatusUnauthorized},
		{"header", map[string]string{"X-API-Key": "bot-key"}, http.StatusNoContent},
		{"bearer", map[string]string{"Authorization": "Bearer admin-key"}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			ok.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCompositeHealthChecker(t *testing.T) {
	c := NewCompositeHealthChecker("test")

	st := c.Check(context.Background())
	assert.True(t, st.Healthy)
	assert.Equal(t, "No health checks registered", st.Message)

	c.AddCheck("postgres", NewPingCheck(pinger{}))
	c.AddCheck("redis", NewPingCheck(pinger{err: errors.New("dial tcp: refused")}))

	st = c.Check(context.Background())
	assert.False(t, st.Healthy)
	assert.False(t, st.Ready)
	require.Len(t, st.Checks, 2)
	assert.True(t, st.Checks["postgres"].Healthy)
	assert.Equal(t, "dial tcp: refused", st.Checks["redis"].Message)
	assert.Equal(t, "Some checks failed: redis", st.Message)
}

func TestCompositeHealthChecker_Timeout(t *testing.T) {
	c := NewCompositeHealthChecker("test")
	c.SetTimeout(20 * time.Millisecond)
	c.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	st := c.Check(context.Background())
	assert.False(t, st.Healthy)
	assert.Contains(t, st.Checks["slow"].Message, "deadline")
}

type fakeReport struct{ problem error }

func (r *fakeReport) Err() error { return r.problem }

func TestReportCheck(t *testing.T) {
	c := NewCompositeHealthChecker("test")
	c.AddCheck("healthy", NewReportCheck(func(context.Context) (*fakeReport, error) {
		return &fakeReport{}, nil
	}))
	c.AddCheck("degraded", NewReportCheck(func(context.Context) (*fakeReport, error) {
		return &fakeReport{problem: errors.New("database unhealthy: timeout")}, nil
	}))
	c.AddCheck("closed", NewReportCheck(func(context.Context) (*fakeReport, error) {
		return nil, errors.New("connection closed")
	}))

	st := c.Check(context.Background())
	assert.True(t, st.Checks["healthy"].Healthy)
	assert.Equal(t, "database unhealthy: timeout", st.Checks["degraded"].Message)
	assert.Equal(t, "connection closed", st.Checks["closed"].Message)
	assert.Equal(t, "Some checks failed: closed, degraded", st.Message)
}
