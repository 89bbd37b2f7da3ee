package rpc

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// BenchmarkResult is the outcome of checking one endpoint.
type BenchmarkResult struct {
	Endpoint Endpoint
	Err      error
}

// Benchmark health-checks every url in parallel. Results keep the order of
// urls.
func Benchmark(ctx context.Context, urls []string, wantChainID int64) []BenchmarkResult {
	results := make([]BenchmarkResult, len(urls))
	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()
			ep, err := HealthCheck(ctx, u, wantChainID, 0)
			results[idx] = BenchmarkResult{Endpoint: ep, Err: err}
		}(i, url)
	}
	wg.Wait()
	return results
}

// ResultsToEndpoints flattens results for a Picker.
func ResultsToEndpoints(results []BenchmarkResult) []Endpoint {
	endpoints := make([]Endpoint, 0, len(results))
	for _, r := range results {
		ep := r.Endpoint
		ep.Checked = true
		if r.Err != nil {
			ep.Healthy = false
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints
}

// SelectBest benchmarks urls and picks one with algo. A single url is
// returned without probing.
func SelectBest(ctx context.Context, urls []string, wantChainID int64, algo Algorithm, log logrus.FieldLogger) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}

	results := Benchmark(ctx, urls, wantChainID)
	for _, r := range results {
		entry := log.WithFields(logrus.Fields{"rpc": r.Endpoint.URL, "latency": r.Endpoint.Latency, "block": r.Endpoint.BlockNumber})
		if r.Err != nil {
			entry.WithError(r.Err).Debug("rpc endpoint unhealthy")
			continue
		}
		entry.Debug("rpc endpoint healthy")
	}

	winner, err := NewPicker(algo).Pick(ResultsToEndpoints(results))
	if err != nil {
		return "", err
	}
	log.WithField("rpc", winner.URL).Info("rpc endpoint selected")
	return winner.URL, nil
}
