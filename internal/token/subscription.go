package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// TransferEvent is one decoded Transfer(from, to, value) log.
type TransferEvent struct {
	Token       common.Address `json:"token" yaml:"token"`
	From        common.Address `json:"from" yaml:"from"`
	To          common.Address `json:"to" yaml:"to"`
	Amount      *big.Int       `json:"amount" yaml:"amount"`
	TxHash      common.Hash    `json:"txHash" yaml:"txHash"`
	BlockNumber uint64         `json:"blockNumber" yaml:"blockNumber"`
	LogIndex    uint           `json:"logIndex" yaml:"logIndex"`
}

// Subscription delivers Transfer events of one token until Unsubscribe.
type Subscription struct {
	token  common.Address
	mode   string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	err error
}

// Subscription modes.
const (
	ModePush = "push"
	ModePoll = "poll"
)

// Token is the contract the subscription follows.
func (sub *Subscription) Token() common.Address { return sub.token }

// Mode reports whether logs are pushed by the node or polled.
func (sub *Subscription) Mode() string { return sub.mode }

// Done is closed once the delivery goroutine has exited.
func (sub *Subscription) Done() <-chan struct{} { return sub.done }

// Err returns the error that ended the subscription, nil after Unsubscribe.
func (sub *Subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

// Unsubscribe stops delivery and waits until no callback is running. It is
// safe to call more than once but must not be called from the callback.
func (sub *Subscription) Unsubscribe() {
	sub.once.Do(sub.cancel)
	<-sub.done
}

func (sub *Subscription) fail(err error) {
	sub.mu.Lock()
	sub.err = err
	sub.mu.Unlock()
}

// SubscribeTransfers follows Transfer events of token, calling onEvent for
// each on a goroutine owned by the returned Subscription. Any subscription
// the session already holds is released first, so at most one is active.
func (s *Session) SubscribeTransfers(ctx context.Context, token string, onEvent func(TransferEvent)) (*Subscription, error) {
	addr, err := ParseAddress(token)
	if err != nil {
		return nil, err
	}
	if s.backend == nil {
		return nil, ErrConnection
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		s.log.WithField("token", s.sub.token.Hex()).Debug("releasing previous subscription")
		s.sub.Unsubscribe()
		s.sub = nil
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &Subscription{token: addr, cancel: cancel, done: make(chan struct{})}
	log := s.log.WithField("token", addr.Hex())

	query := ethereum.FilterQuery{
		Addresses: []common.Address{addr},
		Topics:    [][]common.Hash{{TransferTopic}},
	}
	logs := make(chan types.Log, 64)
	es, err := s.backend.SubscribeFilterLogs(ctx, query, logs)
	switch {
	case err == nil:
		sub.mode = ModePush
		go s.pushLoop(subCtx, sub, es, logs, onEvent, log)
	case errors.Is(err, rpc.ErrNotificationsUnsupported):
		head, herr := s.backend.BlockNumber(ctx)
		if herr != nil {
			cancel()
			return nil, fmt.Errorf("%w: %v", ErrConnection, herr)
		}
		sub.mode = ModePoll
		go s.pollLoop(subCtx, sub, query, head+1, onEvent, log)
	default:
		cancel()
		return nil, fmt.Errorf("%w: subscribing to transfers: %v", ErrConnection, err)
	}

	log.WithField("mode", sub.mode).Info("subscribed to transfers")
	s.sub = sub
	return sub, nil
}

// Unsubscribe releases the session's active subscription, if any.
func (s *Session) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.log.WithField("token", s.sub.token.Hex()).Info("unsubscribed from transfers")
		s.sub = nil
	}
}

// Subscribed returns the token currently followed.
func (s *Session) Subscribed() (common.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return common.Address{}, false
	}
	return s.sub.token, true
}

func (s *Session) pushLoop(ctx context.Context, sub *Subscription, es ethereum.Subscription, logs <-chan types.Log, onEvent func(TransferEvent), log logrus.FieldLogger) {
	defer close(sub.done)
	defer es.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-es.Err():
			if err != nil {
				log.WithError(err).Warn("transfer subscription dropped")
				sub.fail(fmt.Errorf("%w: %v", ErrConnection, err))
			}
			return
		case l := <-logs:
			deliver(ctx, l, onEvent, log)
		}
	}
}

func (s *Session) pollLoop(ctx context.Context, sub *Subscription, query ethereum.FilterQuery, next uint64, onEvent func(TransferEvent), log logrus.FieldLogger) {
	defer close(sub.done)
	limiter := rate.NewLimiter(rate.Every(s.logPoll), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		head, err := s.backend.BlockNumber(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Debug("polling head failed")
			continue
		}
		if head < next {
			continue
		}
		q := query
		q.FromBlock = new(big.Int).SetUint64(next)
		q.ToBlock = new(big.Int).SetUint64(head)
		found, err := s.backend.FilterLogs(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Debug("polling logs failed")
			continue
		}
		for _, l := range found {
			deliver(ctx, l, onEvent, log)
		}
		next = head + 1
	}
}

// deliver hands one log to the callback unless the subscription is ending.
func deliver(ctx context.Context, l types.Log, onEvent func(TransferEvent), log logrus.FieldLogger) {
	if ctx.Err() != nil || l.Removed {
		return
	}
	ev, err := DecodeTransfer(l)
	if err != nil {
		entry := log.WithError(err)
		if len(l.Topics) > 0 {
			entry = entry.WithField("event", EventName(l.Topics[0]))
		}
		entry.Debug("skipping undecodable log")
		return
	}
	onEvent(ev)
}

// DecodeTransfer turns a raw Transfer log into a TransferEvent.
func DecodeTransfer(l types.Log) (TransferEvent, error) {
	if len(l.Topics) != 3 || l.Topics[0] != TransferTopic {
		return TransferEvent{}, fmt.Errorf("not a Transfer log: %d topics", len(l.Topics))
	}
	values, err := erc20ABI.Events["Transfer"].Inputs.NonIndexed().Unpack(l.Data)
	if err != nil {
		return TransferEvent{}, fmt.Errorf("decoding Transfer data: %w", err)
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return TransferEvent{}, fmt.Errorf("decoding Transfer data: got %T", values[0])
	}
	return TransferEvent{
		Token:       l.Address,
		From:        common.BytesToAddress(l.Topics[1].Bytes()),
		To:          common.BytesToAddress(l.Topics[2].Bytes()),
		Amount:      amount,
		TxHash:      l.TxHash,
		BlockNumber: l.BlockNumber,
		LogIndex:    l.Index,
	}, nil
}
