// Package token talks to one ERC20 contract at a time: it reads metadata and
// balances, submits transfers through a wallet provider and follows the
// contract's Transfer events.
package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/Mohsinsiddi/tokendesk/internal/logging"
	"github.com/Mohsinsiddi/tokendesk/internal/wallet"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

const (
	defaultReceiptPoll    = 2 * time.Second
	defaultConfirmTimeout = 3 * time.Minute
	defaultLogPoll        = 4 * time.Second
)

// TokenInfo is the metadata of a loaded token. It is replaced wholesale on
// every successful load.
type TokenInfo struct {
	Address        string   `json:"address" yaml:"address"`
	Name           string   `json:"name" yaml:"name"`
	Symbol         string   `json:"symbol" yaml:"symbol"`
	TotalSupply    string   `json:"totalSupply" yaml:"totalSupply"`
	TotalSupplyRaw *big.Int `json:"totalSupplyRaw" yaml:"-"`
}

// BalanceInfo is the caller's holding of a token. Address is display-truncated.
type BalanceInfo struct {
	Address string   `json:"address" yaml:"address"`
	Account string   `json:"account" yaml:"account"`
	Balance string   `json:"balance" yaml:"balance"`
	Raw     *big.Int `json:"raw" yaml:"-"`
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The default discards.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) { s.log = l }
}

// WithDecimals overrides the display scale of 18.
func WithDecimals(d int32) Option {
	return func(s *Session) { s.decimals = d }
}

// WithReceiptPollInterval sets how often a pending transfer is checked.
func WithReceiptPollInterval(d time.Duration) Option {
	return func(s *Session) { s.receiptPoll = d }
}

// WithConfirmTimeout bounds the wait for a transfer to be mined.
func WithConfirmTimeout(d time.Duration) Option {
	return func(s *Session) { s.confirmTimeout = d }
}

// WithLogPollInterval sets the eth_getLogs cadence used when the endpoint
// cannot push logs.
func WithLogPollInterval(d time.Duration) Option {
	return func(s *Session) { s.logPoll = d }
}

// Session is a connection to ERC20 contracts through one backend and one
// wallet provider. It holds at most one live Transfer subscription.
type Session struct {
	backend  Backend
	provider wallet.Provider
	log      logrus.FieldLogger

	decimals       int32
	receiptPoll    time.Duration
	confirmTimeout time.Duration
	logPoll        time.Duration

	mu  sync.Mutex
	sub *Subscription
}

// NewSession creates a session. backend may be nil, in which case every
// chain operation fails with ErrConnection; provider may be nil for
// read-only use.
func NewSession(backend Backend, provider wallet.Provider, opts ...Option) *Session {
	s := &Session{
		backend:        backend,
		provider:       provider,
		log:            logging.Discard(),
		decimals:       DefaultDecimals,
		receiptPoll:    defaultReceiptPoll,
		confirmTimeout: defaultConfirmTimeout,
		logPoll:        defaultLogPoll,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Decimals returns the scale used for formatting and parsing amounts.
func (s *Session) Decimals() int32 { return s.decimals }

// LoadMetadata reads name, symbol and total supply of the token at address.
func (s *Session) LoadMetadata(ctx context.Context, address string) (*TokenInfo, error) {
	if s.backend == nil {
		return nil, ErrConnection
	}
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	log := s.log.WithField("token", addr.Hex())

	code, err := s.backend.CodeAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: no contract deployed at %s", ErrContractCall, addr.Hex())
	}

	name, err := callString(ctx, s.backend, addr, "name")
	if err != nil {
		return nil, err
	}
	symbol, err := callString(ctx, s.backend, addr, "symbol")
	if err != nil {
		return nil, err
	}
	supply, err := callBigInt(ctx, s.backend, addr, "totalSupply")
	if err != nil {
		return nil, err
	}

	info := &TokenInfo{
		Address:        addr.Hex(),
		Name:           name,
		Symbol:         symbol,
		TotalSupply:    FormatUnits(supply, s.decimals),
		TotalSupplyRaw: supply,
	}
	log.WithFields(logrus.Fields{"name": name, "symbol": symbol}).Debug("token metadata loaded")
	return info, nil
}

// LoadBalance asks the provider for account access and reads the first
// account's balance of token.
func (s *Session) LoadBalance(ctx context.Context, token string) (*BalanceInfo, error) {
	if s.backend == nil {
		return nil, ErrConnection
	}
	addr, err := ParseAddress(token)
	if err != nil {
		return nil, err
	}
	account, err := s.account(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := callBigInt(ctx, s.backend, addr, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"token": addr.Hex(), "account": account.Hex()}).Debug("balance loaded")
	return &BalanceInfo{
		Address: TruncateAddr(account.Hex()),
		Account: account.Hex(),
		Balance: FormatUnits(raw, s.decimals),
		Raw:     raw,
	}, nil
}

// Account returns the provider's active account.
func (s *Session) Account(ctx context.Context) (common.Address, error) {
	return s.account(ctx)
}

func (s *Session) account(ctx context.Context) (common.Address, error) {
	if s.provider == nil {
		return common.Address{}, fmt.Errorf("%w: no wallet configured", wallet.ErrNoAccounts)
	}
	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accounts) == 0 {
		return common.Address{}, wallet.ErrNoAccounts
	}
	return accounts[0], nil
}

// Close releases the active subscription, if any.
func (s *Session) Close() {
	s.Unsubscribe()
}

// ParseAddress validates a 0x-prefixed 20-byte hex address.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// --- contract calls ---

func call(ctx context.Context, b Backend, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding %s: %v", ErrContractCall, method, err)
	}
	out, err := b.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, classifyCallError(method, err)
	}
	values, err := erc20ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrContractCall, method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: %s returned %d values", ErrContractCall, method, len(values))
	}
	return values, nil
}

func callString(ctx context.Context, b Backend, to common.Address, method string) (string, error) {
	values, err := call(ctx, b, to, method)
	if err != nil {
		return "", err
	}
	v, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s returned %T", ErrContractCall, method, values[0])
	}
	return v, nil
}

func callBigInt(ctx context.Context, b Backend, to common.Address, method string, args ...interface{}) (*big.Int, error) {
	values, err := call(ctx, b, to, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T", ErrContractCall, method, values[0])
	}
	return v, nil
}

// classifyCallError separates node-side rejections (the call ran and
// reverted) from transport failures.
func classifyCallError(method string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) || strings.Contains(err.Error(), "execution reverted") {
		return fmt.Errorf("%w: %s: %s", ErrContractCall, method, RevertReason(err))
	}
	return fmt.Errorf("%w: %s: %v", ErrConnection, method, err)
}
