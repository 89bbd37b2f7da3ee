package token

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/tokendesk/internal/wallet"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

// Well-known Hardhat/Anvil accounts #0 and #1. Never fund on mainnet.
const (
	holderKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	holderHex    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	recipientHex = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	canvasHex    = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	otherHex     = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
)

var (
	holder    = common.HexToAddress(holderHex)
	recipient = common.HexToAddress(recipientHex)
	canvas    = common.HexToAddress(canvasHex)
	other     = common.HexToAddress(otherHex)
)

// ether returns n·10^18.
func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// ---------------------------------------------------------------------------
// revertError mimics a node's JSON-RPC error for a reverted call.
// ---------------------------------------------------------------------------

type revertError struct{ reason string }

func (e *revertError) Error() string  { return "execution reverted" }
func (e *revertError) ErrorCode() int { return 3 }
func (e *revertError) ErrorData() interface{} {
	t, _ := abi.NewType("string", "", nil)
	packed, _ := abi.Arguments{{Type: t}}.Pack(e.reason)
	return hexutil.Encode(append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...))
}

// ---------------------------------------------------------------------------
// fakeBackend is an in-memory chain holding ERC20 contracts.
// ---------------------------------------------------------------------------

type fakeToken struct {
	name     string
	symbol   string
	supply   *big.Int
	balances map[common.Address]*big.Int
}

type fakeSub struct {
	token  common.Address
	ch     chan<- types.Log
	active bool
}

type fakeBackend struct {
	mu sync.Mutex

	chainID *big.Int
	head    uint64
	baseFee *big.Int
	tip     *big.Int
	price   *big.Int

	tokens map[common.Address]*fakeToken

	dialErr         error  // every call fails with a transport error
	callErr         error  // CallContract fails
	emptyReturn     bool   // CallContract returns no data
	transferRevert  string // transfer() reverts with this reason
	revertOnChain   bool   // estimation passes, the mined tx reverts
	pendingPolls    int    // receipts stay NotFound this many times
	neverMined      bool
	pushUnsupported bool

	calls        int
	sent         []*types.Transaction
	logs         []types.Log
	subs         []*fakeSub
	unsubscribes int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID: big.NewInt(31337),
		head:    100,
		baseFee: big.NewInt(1_000_000_000),
		tip:     big.NewInt(1_500_000_000),
		price:   big.NewInt(2_000_000_000),
		tokens: map[common.Address]*fakeToken{
			canvas: {
				name:     "Canvas",
				symbol:   "CANV",
				supply:   ether(1000),
				balances: map[common.Address]*big.Int{holder: ether(1000)},
			},
			other: {
				name:     "Other",
				symbol:   "OTH",
				supply:   ether(1),
				balances: map[common.Address]*big.Int{},
			},
		},
	}
}

var _ Backend = (*fakeBackend)(nil)

func (b *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	if b.dialErr != nil {
		return nil, b.dialErr
	}
	return b.chainID, nil
}

func (b *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dialErr != nil {
		return 0, b.dialErr
	}
	return b.head, nil
}

func (b *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &types.Header{Number: new(big.Int).SetUint64(b.head), BaseFee: b.baseFee}, nil
}

func (b *fakeBackend) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.dialErr != nil {
		return nil, b.dialErr
	}
	if _, ok := b.tokens[account]; ok {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

func (b *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.dialErr != nil {
		return nil, b.dialErr
	}
	if b.callErr != nil {
		return nil, b.callErr
	}
	if b.emptyReturn {
		return nil, nil
	}
	tok, ok := b.tokens[*msg.To]
	if !ok {
		return nil, nil
	}
	method, err := erc20ABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "name":
		return method.Outputs.Pack(tok.name)
	case "symbol":
		return method.Outputs.Pack(tok.symbol)
	case "decimals":
		return method.Outputs.Pack(uint8(18))
	case "totalSupply":
		return method.Outputs.Pack(tok.supply)
	case "balanceOf":
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(tok.balanceOf(args[0].(common.Address)))
	case "transfer":
		if b.transferRevert != "" {
			return nil, &revertError{reason: b.transferRevert}
		}
		return method.Outputs.Pack(true)
	}
	return nil, fmt.Errorf("unexpected method %s", method.Name)
}

func (t *fakeToken) balanceOf(a common.Address) *big.Int {
	if v, ok := t.balances[a]; ok {
		return v
	}
	return new(big.Int)
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.sent)), nil
}

func (b *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) { return b.price, nil }

func (b *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) { return b.tip, nil }

func (b *fakeBackend) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.transferRevert != "" && !b.revertOnChain {
		return 0, &revertError{reason: b.transferRevert}
	}
	return 51_234, nil
}

// SendTransaction applies a transfer to the token's balances, mines it into
// the next block and pushes the resulting log to live subscribers.
func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	from, err := types.Sender(types.LatestSignerForChainID(b.chainID), tx)
	if err != nil {
		return err
	}
	b.sent = append(b.sent, tx)
	b.head++
	if b.revertOnChain {
		return nil
	}

	tok := b.tokens[*tx.To()]
	args, err := erc20ABI.Methods["transfer"].Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		return err
	}
	to, amount := args[0].(common.Address), args[1].(*big.Int)
	tok.balances[from] = new(big.Int).Sub(tok.balanceOf(from), amount)
	tok.balances[to] = new(big.Int).Add(tok.balanceOf(to), amount)

	l := transferLog(*tx.To(), from, to, amount, b.head)
	l.TxHash = tx.Hash()
	b.appendLogLocked(l)
	return nil
}

func (b *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.neverMined {
		return nil, ethereum.NotFound
	}
	if b.pendingPolls > 0 {
		b.pendingPolls--
		return nil, ethereum.NotFound
	}
	for _, tx := range b.sent {
		if tx.Hash() == hash {
			status := types.ReceiptStatusSuccessful
			if b.revertOnChain {
				status = types.ReceiptStatusFailed
			}
			return &types.Receipt{Status: status, TxHash: hash, BlockNumber: new(big.Int).SetUint64(b.head)}, nil
		}
	}
	return nil, ethereum.NotFound
}

func (b *fakeBackend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dialErr != nil {
		return nil, b.dialErr
	}
	var out []types.Log
	for _, l := range b.logs {
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && l.Address != q.Addresses[0] {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (b *fakeBackend) SubscribeFilterLogs(_ context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dialErr != nil {
		return nil, b.dialErr
	}
	if b.pushUnsupported {
		return nil, rpc.ErrNotificationsUnsupported
	}
	fs := &fakeSub{token: q.Addresses[0], ch: ch, active: true}
	b.subs = append(b.subs, fs)
	return event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		b.mu.Lock()
		fs.active = false
		b.unsubscribes++
		b.mu.Unlock()
		return nil
	}), nil
}

// emit mines a Transfer log into the next block.
func (b *fakeBackend) emit(token, from, to common.Address, amount *big.Int) types.Log {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head++
	l := transferLog(token, from, to, amount, b.head)
	l.TxHash = crypto.Keccak256Hash(big.NewInt(int64(len(b.logs))).Bytes(), token.Bytes())
	b.appendLogLocked(l)
	return l
}

func (b *fakeBackend) appendLogLocked(l types.Log) {
	l.Index = uint(len(b.logs))
	b.logs = append(b.logs, l)
	for _, s := range b.subs {
		if s.active && s.token == l.Address {
			select {
			case s.ch <- l:
			default:
			}
		}
	}
}

func (b *fakeBackend) unsubscribeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unsubscribes
}

func (b *fakeBackend) sentTxs() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.sent...)
}

func transferLog(token, from, to common.Address, amount *big.Int, block uint64) types.Log {
	data, err := erc20ABI.Events["Transfer"].Inputs.NonIndexed().Pack(amount)
	if err != nil {
		panic(err)
	}
	return types.Log{
		Address:     token,
		Topics:      []common.Hash{TransferTopic, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())},
		Data:        data,
		BlockNumber: block,
	}
}

// ---------------------------------------------------------------------------
// fakeProvider signs with the holder key and can refuse either step.
// ---------------------------------------------------------------------------

type fakeProvider struct {
	key            *ecdsa.PrivateKey
	rejectAccounts bool
	rejectSign     bool
	requests       int
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	key, err := crypto.HexToECDSA(holderKeyHex)
	require.NoError(t, err)
	return &fakeProvider{key: key}
}

var _ wallet.Provider = (*fakeProvider)(nil)

func (p *fakeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.requests++
	if p.rejectAccounts {
		return nil, wallet.ErrUserRejected
	}
	return []common.Address{crypto.PubkeyToAddress(p.key.PublicKey)}, nil
}

func (p *fakeProvider) SignTx(_ context.Context, _ common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if p.rejectSign {
		return nil, fmt.Errorf("signing: %w", wallet.ErrUserRejected)
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), p.key)
}

func newTestSession(t *testing.T, b Backend, p wallet.Provider, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{
		WithReceiptPollInterval(5 * time.Millisecond),
		WithConfirmTimeout(2 * time.Second),
		WithLogPollInterval(10 * time.Millisecond),
	}, opts...)
	s := NewSession(b, p, opts...)
	t.Cleanup(s.Close)
	return s
}

var errDial = errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")
