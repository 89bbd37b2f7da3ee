package cmd

import (
	"errors"

	"github.com/Mohsinsiddi/tokendesk/internal/desk"
	"github.com/Mohsinsiddi/tokendesk/internal/rpc"
	"github.com/Mohsinsiddi/tokendesk/internal/token"
	"github.com/Mohsinsiddi/tokendesk/internal/wallet"
)

// describeError turns an error into the one line shown to the user.
func describeError(err error) string {
	var te *token.TransferError
	switch {
	case errors.Is(err, wallet.ErrUserRejected):
		return "Request rejected in wallet."
	case errors.As(err, &te):
		return "Transfer failed: " + te.Reason
	case errors.Is(err, token.ErrContractCall):
		return "Contract call failed: " + token.RevertReason(err)
	default:
		return err.Error()
	}
}

// errorHint suggests a next step for errors the user can fix.
func errorHint(err error) string {
	switch {
	case errors.Is(err, wallet.ErrNoAccounts):
		return "Add a wallet with `tokendesk wallet add <name> <address>` or set --signer."
	case errors.Is(err, wallet.ErrWatchOnly):
		return "Sending needs a signing wallet: `tokendesk wallet add <name> --key <private-key>`."
	case errors.Is(err, wallet.ErrWalletNotFound):
		return "Run `tokendesk wallet list` to see configured wallets."
	case errors.Is(err, rpc.ErrNoHealthyRPC), errors.Is(err, token.ErrConnection):
		return "Check the network or pass an endpoint with --rpc."
	case errors.Is(err, desk.ErrNoToken):
		return "Load a token first: load <address>."
	case errors.Is(err, token.ErrInvalidAddress):
		return "Addresses are 0x followed by 40 hex characters."
	}
	return ""
}
