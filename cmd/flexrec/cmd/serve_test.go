package cmd

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"

	"github.com/pavanmanishd/flexrec"
)

func TestChurnFreesEverything(t *testing.T) {
	tracker := flexrec.NewTrackingAllocator(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(time.Millisecond), 1)
	err := churn(ctx, tracker, zaptest.NewLogger(t), limiter, 32, 4)
	require.NoError(t, err)

	m := tracker.Metrics()
	assert.NotZero(t, m.Allocations)
	assert.Equal(t, m.Allocations, m.Frees)
	assert.False(t, m.Leaked())
	assert.LessOrEqual(t, m.PeakBytesInUse, uint64(5*(8+8*32)))
}

func TestMetricsHandler(t *testing.T) {
	tracker := flexrec.NewTrackingAllocator(nil)
	rec, err := flexrec.New(1, 2, func(uint16) uint32 { return 0 }, flexrec.WithAllocator(tracker))
	require.NoError(t, err)
	defer rec.Free()

	handler, err := metricsHandler(tracker, "serve")
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "serve_records_outstanding 1")
	assert.Contains(t, string(body), "serve_records_bytes_in_use 16")
}

func TestServeCommandRejectsRate(t *testing.T) {
	_, err := execute(t, "serve", "--rate", "0", "--log-level", "error")
	assert.ErrorContains(t, err, "rate must be positive")
}
