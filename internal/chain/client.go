package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// Dial connects to an EVM JSON-RPC endpoint. http(s) and ws(s) URLs and IPC
// paths are accepted; only ws and IPC support pushed log subscriptions.
func Dial(ctx context.Context, url string) (*ethclient.Client, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return c, nil
}

// Probe is the outcome of pinging an endpoint.
type Probe struct {
	URL         string
	ChainID     int64
	BlockNumber uint64
	Latency     time.Duration
}

// Ping dials url, reads the chain ID and head block, and reports the round
// trip of the head lookup.
func Ping(ctx context.Context, url string) (*Probe, error) {
	c, err := Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	id, err := c.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading chain id from %s: %w", url, err)
	}
	start := time.Now()
	head, err := c.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading head from %s: %w", url, err)
	}
	return &Probe{URL: url, ChainID: id.Int64(), BlockNumber: head, Latency: time.Since(start)}, nil
}
