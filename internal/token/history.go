package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultHistoryBlocks is how far back RecentTransfers looks by default.
const DefaultHistoryBlocks = 1000

// RecentTransfers returns the Transfer events of token mined in the last
// blocks blocks, oldest first.
func (s *Session) RecentTransfers(ctx context.Context, token string, blocks uint64) ([]TransferEvent, error) {
	addr, err := ParseAddress(token)
	if err != nil {
		return nil, err
	}
	if s.backend == nil {
		return nil, ErrConnection
	}
	if blocks == 0 {
		blocks = DefaultHistoryBlocks
	}

	head, err := s.backend.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	var from uint64
	if head+1 > blocks {
		from = head + 1 - blocks
	}

	logs, err := s.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{addr},
		Topics:    [][]common.Hash{{TransferTopic}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetching logs: %v", ErrConnection, err)
	}

	out := make([]TransferEvent, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		ev, err := DecodeTransfer(l)
		if err != nil {
			s.log.WithError(err).Debug("skipping undecodable log")
			continue
		}
		out = append(out, ev)
	}
	s.log.WithField("token", addr.Hex()).WithField("count", len(out)).Debug("recent transfers loaded")
	return out, nil
}
