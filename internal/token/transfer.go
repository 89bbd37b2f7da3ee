package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// PendingTransfer is a signed transfer that has been broadcast.
type PendingTransfer struct {
	Tx        *types.Transaction
	From      common.Address
	To        common.Address
	Token     common.Address
	Amount    *big.Int
	ChainID   *big.Int
	Submitted time.Time
}

// Hash is the transaction hash.
func (p *PendingTransfer) Hash() common.Hash { return p.Tx.Hash() }

// Transfer sends amount (human-scaled, e.g. "5") of token to recipient and
// waits for the transaction to be mined.
func (s *Session) Transfer(ctx context.Context, token, recipient, amount string) (*types.Receipt, error) {
	pending, err := s.SendTransfer(ctx, token, recipient, amount)
	if err != nil {
		return nil, err
	}
	return s.WaitMined(ctx, pending)
}

// SendTransfer validates input, builds, signs and broadcasts the transfer
// without waiting for it to be mined.
func (s *Session) SendTransfer(ctx context.Context, token, recipient, amount string) (*PendingTransfer, error) {
	tokenAddr, err := ParseAddress(token)
	if err != nil {
		return nil, err
	}
	to, err := ParseAddress(recipient)
	if err != nil {
		return nil, err
	}
	raw, err := ParseUnits(amount, s.decimals)
	if err != nil {
		return nil, err
	}
	if raw.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, amount)
	}
	if s.backend == nil {
		return nil, ErrConnection
	}

	from, err := s.account(ctx)
	if err != nil {
		return nil, newTransferError(err)
	}
	log := s.log.WithFields(logrus.Fields{"token": tokenAddr.Hex(), "account": from.Hex()})

	data, err := erc20ABI.Pack("transfer", to, raw)
	if err != nil {
		return nil, newTransferError(err)
	}

	chainID, err := s.backend.ChainID(ctx)
	if err != nil {
		return nil, newTransferError(fmt.Errorf("reading chain id: %w", err))
	}
	tx, err := s.buildTx(ctx, from, tokenAddr, data, chainID)
	if err != nil {
		return nil, newTransferError(err)
	}

	signed, err := s.provider.SignTx(ctx, from, tx, chainID)
	if err != nil {
		log.WithError(err).Info("transfer not signed")
		return nil, newTransferError(err)
	}
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		log.WithError(err).Warn("broadcast failed")
		return nil, newTransferError(err)
	}

	log.WithFields(logrus.Fields{"tx": signed.Hash().Hex(), "to": to.Hex(), "amount": raw.String()}).Info("transfer submitted")
	return &PendingTransfer{
		Tx:        signed,
		From:      from,
		To:        to,
		Token:     tokenAddr,
		Amount:    raw,
		ChainID:   chainID,
		Submitted: time.Now(),
	}, nil
}

// buildTx simulates the call (so reverts surface before anything is signed)
// and prices it as EIP-1559 when the chain has a base fee.
func (s *Session) buildTx(ctx context.Context, from, token common.Address, data []byte, chainID *big.Int) (*types.Transaction, error) {
	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &token, Data: data})
	if err != nil {
		return nil, err
	}
	nonce, err := s.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("reading nonce: %w", err)
	}
	head, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("reading latest block: %w", err)
	}

	if head.BaseFee == nil {
		gasPrice, err := s.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading gas price: %w", err)
		}
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			To:       &token,
			Value:    new(big.Int),
			Data:     data,
		}), nil
	}

	tip, err := s.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading priority fee: %w", err)
	}
	// feeCap = 2·baseFee + tip.
	feeCap := new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip)
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &token,
		Value:     new(big.Int),
		Data:      data,
	}), nil
}

// WaitMined polls for the receipt of p until it is mined, ctx ends or the
// confirmation timeout passes. A reverted receipt is a TransferError.
func (s *Session) WaitMined(ctx context.Context, p *PendingTransfer) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(s.receiptPoll)
	defer ticker.Stop()

	hash := p.Hash()
	log := s.log.WithField("tx", hash.Hex())
	for {
		receipt, err := s.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				reason := s.replayRevert(ctx, p, receipt.BlockNumber)
				log.WithField("reason", reason).Warn("transfer reverted")
				return receipt, &TransferError{Reason: reason}
			}
			log.WithField("block", receipt.BlockNumber).Info("transfer mined")
			return receipt, nil
		case !errors.Is(err, ethereum.NotFound):
			return nil, newTransferError(fmt.Errorf("fetching receipt: %w", err))
		}

		select {
		case <-ctx.Done():
			return nil, newTransferError(fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err()))
		case <-ticker.C:
		}
	}
}

// replayRevert re-executes a failed transfer against the block it was mined
// in to recover the revert reason.
func (s *Session) replayRevert(ctx context.Context, p *PendingTransfer, block *big.Int) string {
	msg := ethereum.CallMsg{From: p.From, To: p.Tx.To(), Data: p.Tx.Data(), Gas: p.Tx.Gas()}
	if _, err := s.backend.CallContract(ctx, msg, block); err != nil {
		return RevertReason(err)
	}
	return "execution reverted"
}
