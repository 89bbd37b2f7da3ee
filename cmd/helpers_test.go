package cmd

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/Mohsinsiddi/tokendesk/internal/chain"
	"github.com/Mohsinsiddi/tokendesk/internal/config"
	"github.com/Mohsinsiddi/tokendesk/internal/rpc"
	"github.com/Mohsinsiddi/tokendesk/internal/token"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useConfig(t *testing.T) {
	t.Helper()
	c, err := config.Load(t.TempDir())
	require.NoError(t, err)
	prev, prevRPC, prevNet := cfg, rpcFlag, networkFlag
	cfg, rpcFlag, networkFlag = c, "", ""
	t.Cleanup(func() { cfg, rpcFlag, networkFlag = prev, prevRPC, prevNet })
}

func TestCandidateRPCs(t *testing.T) {
	useConfig(t)
	eth, err := chain.NewRegistry().GetByName("ethereum")
	require.NoError(t, err)

	require.NoError(t, cfg.AddRPC("ethereum", "https://mine.example"))
	urls := candidateRPCs(eth, chain.ModeMainnet)
	require.NotEmpty(t, urls)
	assert.Equal(t, "https://mine.example", urls[0])
	assert.Equal(t, len(eth.RPCs(chain.ModeMainnet))+1, len(urls))

	rpcFlag = "ws://127.0.0.1:8546"
	assert.Equal(t, []string{"ws://127.0.0.1:8546"}, candidateRPCs(eth, chain.ModeMainnet))
}

func TestResolveNetwork(t *testing.T) {
	useConfig(t)

	c, mode, err := resolveNetwork()
	require.NoError(t, err)
	assert.Equal(t, "ethereum", c.Name)
	assert.Equal(t, chain.ModeMainnet, mode)

	networkFlag = "nowhere"
	_, _, err = resolveNetwork()
	assert.ErrorIs(t, err, chain.ErrChainNotFound)

	networkFlag = ""
	cfg.NetworkMode = "devnet"
	_, _, err = resolveNetwork()
	assert.Error(t, err)
}

func sampleEvents() []token.TransferEvent {
	me := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	other := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	mk := func(from, to common.Address, block uint64) token.TransferEvent {
		return token.TransferEvent{
			From:        from,
			To:          to,
			Amount:      new(big.Int).Mul(big.NewInt(int64(block)), big.NewInt(1e18)),
			TxHash:      common.BigToHash(big.NewInt(int64(block))),
			BlockNumber: block,
		}
	}
	return []token.TransferEvent{mk(me, other, 1), mk(other, me, 2), mk(other, other, 3)}
}

func TestLastN(t *testing.T) {
	evs := sampleEvents()
	assert.Len(t, lastN(evs, 0), 3)
	assert.Len(t, lastN(evs, 5), 3)
	got := lastN(evs, 2)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[0].BlockNumber)
	assert.Equal(t, uint64(3), got[1].BlockNumber)
}

func TestEventViews(t *testing.T) {
	views := eventViews(sampleEvents(), 18, func(h string) string { return "https://scan/tx/" + h })
	require.Len(t, views, 3)
	assert.Equal(t, "2.0", views[1].Amount)
	assert.Equal(t, "2000000000000000000", views[1].Raw)
	assert.Equal(t, "https://scan/tx/"+views[1].TxHash, views[1].ExplorerURL)
}

func TestFeedRowDirection(t *testing.T) {
	me := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	noURL := func(string) string { return "" }
	evs := sampleEvents()

	assert.Equal(t, ui.DirOut, feedRow(evs[0], me, 18, noURL).Direction)
	assert.Equal(t, ui.DirIn, feedRow(evs[1], me, 18, noURL).Direction)
	assert.Equal(t, ui.DirOther, feedRow(evs[2], me, 18, noURL).Direction)
	assert.Equal(t, ui.DirOther, feedRow(evs[1], common.Address{}, 18, noURL).Direction)

	row := feedRow(evs[1], me, 18, noURL)
	assert.Equal(t, "2.0", row.Amount)
	assert.Equal(t, uint64(2), row.BlockNum)
}

func TestBenchmarkViews(t *testing.T) {
	views := benchmarkViews([]rpc.BenchmarkResult{
		{Endpoint: rpc.Endpoint{URL: "https://a", Latency: 42 * time.Millisecond, BlockNumber: 100, Healthy: true}},
		{Endpoint: rpc.Endpoint{URL: "https://b"}, Err: errors.New("dial refused")},
		{Endpoint: rpc.Endpoint{URL: "https://c", ChainID: 5}},
	})
	require.Len(t, views, 3)
	assert.True(t, views[0].Healthy)
	assert.Equal(t, int64(42), views[0].LatencyMS)
	assert.Equal(t, uint64(100), views[0].Block)
	assert.False(t, views[1].Healthy)
	assert.Equal(t, "dial refused", views[1].Error)
	assert.Equal(t, "unhealthy", views[2].Error)
}
