// Package desk holds the state of one interactive token session: the loaded
// token, the caller's balance, the live transfer history and which actions
// are in flight. Every user action enters through a Desk method, which is
// where errors are classified and recorded for display.
package desk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Mohsinsiddi/tokendesk/internal/logging"
	"github.com/Mohsinsiddi/tokendesk/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

var (
	// ErrBusy is returned when the same action is already in flight.
	ErrBusy = errors.New("action already in progress")
	// ErrNoToken is returned by actions that need a loaded token.
	ErrNoToken = errors.New("no token loaded")
)

// Action names an operation that can be pending.
type Action string

const (
	ActionLoad     Action = "load"
	ActionBalance  Action = "balance"
	ActionTransfer Action = "transfer"
)

// Session is the part of *token.Session a Desk drives.
type Session interface {
	Decimals() int32
	LoadMetadata(ctx context.Context, address string) (*token.TokenInfo, error)
	LoadBalance(ctx context.Context, tokenAddr string) (*token.BalanceInfo, error)
	Transfer(ctx context.Context, tokenAddr, recipient, amount string) (*types.Receipt, error)
	SubscribeTransfers(ctx context.Context, tokenAddr string, onEvent func(token.TransferEvent)) (*token.Subscription, error)
	Unsubscribe()
}

// TransferRecord is one observed Transfer event as shown in the history.
// From and To are display-truncated; Amount is in smallest units.
type TransferRecord struct {
	TxHash      string `json:"txHash" yaml:"txHash"`
	From        string `json:"from" yaml:"from"`
	To          string `json:"to" yaml:"to"`
	Amount      string `json:"amount" yaml:"amount"`
	BlockNumber uint64 `json:"blockNumber" yaml:"blockNumber"`
	ExplorerURL string `json:"explorerUrl,omitempty" yaml:"explorerUrl,omitempty"`
}

// State is a point-in-time copy of a Desk for rendering.
type State struct {
	Token     *token.TokenInfo   `json:"token,omitempty" yaml:"token,omitempty"`
	Balance   *token.BalanceInfo `json:"balance,omitempty" yaml:"balance,omitempty"`
	History   []TransferRecord   `json:"history" yaml:"history"`
	Pending   map[Action]bool    `json:"pending,omitempty" yaml:"pending,omitempty"`
	LastError string             `json:"lastError,omitempty" yaml:"lastError,omitempty"`
}

// Busy reports whether a is in flight.
func (s State) Busy(a Action) bool { return s.Pending[a] }

// Option configures a Desk.
type Option func(*Desk)

// WithExplorer sets how a transaction hash becomes a link.
func WithExplorer(txURL func(hash string) string) Option {
	return func(d *Desk) { d.txURL = txURL }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Desk) { d.log = l }
}

// Desk is the process-wide state of an interactive session.
type Desk struct {
	session Session
	txURL   func(hash string) string
	log     logrus.FieldLogger

	mu        sync.Mutex
	token     *token.TokenInfo
	balance   *token.BalanceInfo
	history   []TransferRecord
	pending   map[Action]bool
	lastError string
	onChange  func(State)
}

// New creates a desk driving session.
func New(session Session, opts ...Option) *Desk {
	d := &Desk{
		session: session,
		log:     logging.Discard(),
		pending: make(map[Action]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnChange registers fn to be called with a fresh snapshot after every
// mutation, including event arrivals. fn runs without the desk lock held.
func (d *Desk) OnChange(fn func(State)) {
	d.mu.Lock()
	d.onChange = fn
	d.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (d *Desk) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Desk) snapshotLocked() State {
	st := State{
		Token:     d.token,
		Balance:   d.balance,
		History:   append([]TransferRecord(nil), d.history...),
		Pending:   make(map[Action]bool, len(d.pending)),
		LastError: d.lastError,
	}
	for a, v := range d.pending {
		st.Pending[a] = v
	}
	return st
}

// Decimals is the scale the session formats and parses amounts with.
func (d *Desk) Decimals() int32 { return d.session.Decimals() }

// Load validates address, fetches its metadata and, on success, replaces
// the token and moves the Transfer subscription to it. Balance and history
// are cleared only when the address differs from the loaded token. On
// failure the previous state is kept.
func (d *Desk) Load(ctx context.Context, address string) (*token.TokenInfo, error) {
	if _, err := token.ParseAddress(address); err != nil {
		d.fail(ActionLoad, err)
		return nil, err
	}
	if err := d.begin(ActionLoad); err != nil {
		return nil, err
	}
	defer d.end(ActionLoad)

	info, err := d.session.LoadMetadata(ctx, address)
	if err != nil {
		d.fail(ActionLoad, err)
		return nil, err
	}

	d.mutate(func() {
		if d.token == nil || d.token.Address != info.Address {
			d.balance = nil
			d.history = nil
		}
		d.token = info
		d.lastError = ""
	})
	d.log.WithFields(logrus.Fields{"token": info.Address, "symbol": info.Symbol}).Info("token loaded")

	if _, err := d.session.SubscribeTransfers(ctx, info.Address, d.onTransfer); err != nil {
		err = fmt.Errorf("watching transfers: %w", err)
		d.fail(ActionLoad, err)
		return info, err
	}
	return info, nil
}

// RefreshBalance reads the caller's balance of the loaded token. On failure
// the previous balance is kept.
func (d *Desk) RefreshBalance(ctx context.Context) (*token.BalanceInfo, error) {
	info := d.currentToken()
	if info == nil {
		return nil, ErrNoToken
	}
	if err := d.begin(ActionBalance); err != nil {
		return nil, err
	}
	defer d.end(ActionBalance)

	bal, err := d.session.LoadBalance(ctx, info.Address)
	if err != nil {
		d.fail(ActionBalance, err)
		return nil, err
	}
	d.mutate(func() {
		if d.token == info {
			d.balance = bal
		}
	})
	return bal, nil
}

// Transfer sends amount of the loaded token to recipient. On success the
// balance is refreshed; the history grows when the Transfer event arrives.
func (d *Desk) Transfer(ctx context.Context, recipient, amount string) (*types.Receipt, error) {
	info := d.currentToken()
	if info == nil {
		return nil, ErrNoToken
	}
	if _, err := token.ParseAddress(recipient); err != nil {
		d.fail(ActionTransfer, err)
		return nil, err
	}
	if _, err := token.ParseUnits(amount, d.session.Decimals()); err != nil {
		d.fail(ActionTransfer, err)
		return nil, err
	}
	if err := d.begin(ActionTransfer); err != nil {
		return nil, err
	}

	receipt, err := d.session.Transfer(ctx, info.Address, recipient, amount)
	d.end(ActionTransfer)
	if err != nil {
		d.fail(ActionTransfer, err)
		return nil, err
	}
	d.log.WithFields(logrus.Fields{"token": info.Address, "tx": receipt.TxHash.Hex()}).Info("transfer confirmed")

	if _, err := d.RefreshBalance(ctx); err != nil && !errors.Is(err, ErrBusy) {
		d.log.WithError(err).Warn("balance refresh after transfer failed")
	}
	return receipt, nil
}

// TxURL returns the explorer link for hash, or "" without an explorer.
func (d *Desk) TxURL(hash string) string {
	if d.txURL == nil {
		return ""
	}
	return d.txURL(hash)
}

// Close releases the Transfer subscription.
func (d *Desk) Close() {
	d.session.Unsubscribe()
}

// onTransfer appends an event of the loaded token to the history. Events
// of a previously loaded token are dropped.
func (d *Desk) onTransfer(ev token.TransferEvent) {
	d.mutate(func() {
		if d.token == nil || common.HexToAddress(d.token.Address) != ev.Token {
			return
		}
		hash := ev.TxHash.Hex()
		d.history = append(d.history, TransferRecord{
			TxHash:      hash,
			From:        token.TruncateAddr(ev.From.Hex()),
			To:          token.TruncateAddr(ev.To.Hex()),
			Amount:      ev.Amount.String(),
			BlockNumber: ev.BlockNumber,
			ExplorerURL: d.TxURL(hash),
		})
	})
}

// --- internal ---

func (d *Desk) currentToken() *token.TokenInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.token
}

func (d *Desk) begin(a Action) error {
	d.mu.Lock()
	if d.pending[a] {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBusy, a)
	}
	d.pending[a] = true
	d.mu.Unlock()
	d.notify()
	return nil
}

func (d *Desk) end(a Action) {
	d.mutate(func() { delete(d.pending, a) })
}

func (d *Desk) fail(a Action, err error) {
	msg := token.RevertReason(err)
	d.log.WithField("action", string(a)).WithError(err).Debug("action failed")
	d.mutate(func() { d.lastError = msg })
}

func (d *Desk) mutate(fn func()) {
	d.mu.Lock()
	fn()
	d.mu.Unlock()
	d.notify()
}

func (d *Desk) notify() {
	d.mu.Lock()
	fn := d.onChange
	var st State
	if fn != nil {
		st = d.snapshotLocked()
	}
	d.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}
