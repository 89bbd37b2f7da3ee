// Package rpc chooses which public JSON-RPC endpoint of a network to use.
package rpc

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Discard nodes more than this many blocks behind the best.
	staleBlockThreshold = 3
	// Cache winner for this duration before re-scoring.
	cacheTTL = 5 * time.Minute
)

// ParseAlgorithm validates an algorithm name; "" means fastest.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return AlgorithmFastest, nil
	case AlgorithmFastest, AlgorithmRoundRobin, AlgorithmFailover:
		return a, nil
	}
	return "", fmt.Errorf("unknown rpc algorithm %q (fastest|round-robin|failover)", s)
}

// Endpoint is one RPC URL with what was measured about it.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	ChainID     int64
	Healthy     bool // meaningful only when Checked
	Checked     bool
}

// Picker selects an RPC endpoint according to its algorithm.
type Picker struct {
	algo Algorithm

	mu          sync.Mutex
	rrIndex     int
	cachedURL   string
	cacheExpiry time.Time
	now         func() time.Time
}

// NewPicker creates a Picker.
func NewPicker(algo Algorithm) *Picker {
	return &Picker{algo: algo, now: time.Now}
}

// Pick selects an endpoint from endpoints.
func (p *Picker) Pick(endpoints []Endpoint) (*Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoHealthyRPC
	}
	switch p.algo {
	case AlgorithmRoundRobin:
		return p.pickRoundRobin(endpoints)
	case AlgorithmFailover:
		return pickFailover(endpoints)
	default:
		return p.pickFastest(endpoints)
	}
}

// pickFastest scores fresh candidates by latency and head and keeps the
// winner for cacheTTL as long as it stays a candidate.
func (p *Picker) pickFastest(endpoints []Endpoint) (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	candidates := candidatesOf(endpoints)
	if len(candidates) == 0 {
		return nil, ErrNoHealthyRPC
	}

	if p.cachedURL != "" && p.now().Before(p.cacheExpiry) {
		for _, e := range candidates {
			if e.URL == p.cachedURL {
				return e, nil
			}
		}
	}

	best := bestBlock(candidates)
	var winner *Endpoint
	var top float64
	for _, e := range candidates {
		if best-e.BlockNumber > staleBlockThreshold {
			continue
		}
		if s := score(e, best); winner == nil || s > top {
			winner, top = e, s
		}
	}
	if winner == nil {
		return nil, ErrNoHealthyRPC
	}

	p.cachedURL = winner.URL
	p.cacheExpiry = p.now().Add(cacheTTL)
	return winner, nil
}

// pickRoundRobin cycles through the candidates.
func (p *Picker) pickRoundRobin(endpoints []Endpoint) (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	candidates := candidatesOf(endpoints)
	if len(candidates) == 0 {
		return nil, ErrNoHealthyRPC
	}
	idx := p.rrIndex % len(candidates)
	p.rrIndex = idx + 1
	return candidates[idx], nil
}

// pickFailover returns the first endpoint not known to be down.
func pickFailover(endpoints []Endpoint) (*Endpoint, error) {
	for i := range endpoints {
		if e := &endpoints[i]; !e.Checked || e.Healthy {
			return e, nil
		}
	}
	return nil, ErrNoHealthyRPC
}

// --- scoring ---

// score rewards low latency and penalises each block behind best.
func score(e *Endpoint, best uint64) float64 {
	var s float64
	if ms := e.Latency.Seconds() * 1000; ms > 0 {
		s += 1000.0 / ms
	}
	s -= float64(best - e.BlockNumber)
	return s
}

func bestBlock(endpoints []*Endpoint) uint64 {
	var best uint64
	for _, e := range endpoints {
		if e.BlockNumber > best {
			best = e.BlockNumber
		}
	}
	return best
}

// candidatesOf drops endpoints that were checked and found unhealthy.
// Unchecked endpoints are always candidates.
func candidatesOf(endpoints []Endpoint) []*Endpoint {
	out := make([]*Endpoint, 0, len(endpoints))
	for i := range endpoints {
		if e := &endpoints[i]; !e.Checked || e.Healthy {
			out = append(out, e)
		}
	}
	return out
}
