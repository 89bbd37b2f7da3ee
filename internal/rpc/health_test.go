package rpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// HealthCheck
// ---------------------------------------------------------------------------

func TestHealthCheckHealthy(t *testing.T) {
	srv := evmRPCServer(t, 11155111, 1000)

	ep, err := HealthCheck(context.Background(), srv.URL, 11155111, 0)
	require.NoError(t, err)

	assert.True(t, ep.Healthy)
	assert.True(t, ep.Checked)
	assert.Equal(t, srv.URL, ep.URL)
	assert.Equal(t, uint64(1000), ep.BlockNumber)
	assert.Equal(t, int64(11155111), ep.ChainID)
	assert.Greater(t, int64(ep.Latency), int64(0), "latency should be measured")
}

func TestHealthCheckUnreachable(t *testing.T) {
	ep, err := HealthCheck(context.Background(), "http://127.0.0.1:19994", 0, 0)
	require.Error(t, err)
	assert.False(t, ep.Healthy)
	assert.True(t, ep.Checked)
}

func TestHealthCheckWrongChain(t *testing.T) {
	srv := evmRPCServer(t, 1, 1000)

	ep, err := HealthCheck(context.Background(), srv.URL, 11155111, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serves chain 1")
	assert.False(t, ep.Healthy)
}

func TestHealthCheckStaleBehind(t *testing.T) {
	// 10 blocks behind (> staleBlockThreshold of 3) → unhealthy.
	srv := evmRPCServer(t, 1, 500)

	ep, err := HealthCheck(context.Background(), srv.URL, 1, 510)
	require.NoError(t, err)
	assert.False(t, ep.Healthy, "node is too far behind bestBlock")
	assert.Equal(t, uint64(500), ep.BlockNumber)
}

func TestHealthCheckJustWithinThreshold(t *testing.T) {
	srv := evmRPCServer(t, 1, 997)

	ep, err := HealthCheck(context.Background(), srv.URL, 1, 1000)
	require.NoError(t, err)
	assert.True(t, ep.Healthy, "exactly at threshold is still healthy")
}

func TestHealthCheckAheadOfBest(t *testing.T) {
	srv := evmRPCServer(t, 1, 1005)

	ep, err := HealthCheck(context.Background(), srv.URL, 1, 1000)
	require.NoError(t, err)
	assert.True(t, ep.Healthy)
}

func TestHealthCheckCancelledContext(t *testing.T) {
	srv := evmRPCServer(t, 1, 1000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ep, err := HealthCheck(ctx, srv.URL, 0, 0)
	require.Error(t, err)
	assert.False(t, ep.Healthy)
}
