package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/tokendesk/internal/chain"
)

// probeTimeout bounds a single endpoint check.
const probeTimeout = 5 * time.Second

// HealthCheck pings url. The endpoint is healthy when it answers in time,
// serves wantChainID (0 skips the check) and is no more than
// staleBlockThreshold blocks behind bestBlock (0 skips the check).
func HealthCheck(ctx context.Context, url string, wantChainID int64, bestBlock uint64) (Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	ep := Endpoint{URL: url, Checked: true}
	probe, err := chain.Ping(ctx, url)
	if err != nil {
		return ep, err
	}
	ep.Latency = probe.Latency
	ep.BlockNumber = probe.BlockNumber
	ep.ChainID = probe.ChainID
	ep.Healthy = true

	if wantChainID != 0 && probe.ChainID != wantChainID {
		ep.Healthy = false
		return ep, fmt.Errorf("%s serves chain %d, want %d", url, probe.ChainID, wantChainID)
	}
	if bestBlock > 0 && probe.BlockNumber < bestBlock && bestBlock-probe.BlockNumber > staleBlockThreshold {
		ep.Healthy = false
	}
	return ep, nil
}
