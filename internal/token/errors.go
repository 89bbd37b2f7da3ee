package token

import (
	"errors"
	"strings"

	"github.com/Mohsinsiddi/tokendesk/internal/wallet"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// Error kinds surfaced by a Session. Match with errors.Is.
var (
	ErrConnection     = errors.New("no chain connection available")
	ErrContractCall   = errors.New("contract call failed")
	ErrUserRejected   = wallet.ErrUserRejected
	ErrTransfer       = errors.New("transfer failed")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidAmount  = errors.New("invalid amount")
)

// TransferError carries the provider or contract message behind a failed
// transfer. errors.Is(err, ErrTransfer) holds for every TransferError.
type TransferError struct {
	Reason string
	Err    error
}

func (e *TransferError) Error() string {
	return "transfer failed: " + e.Reason
}

func (e *TransferError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransfer}
	}
	return []error{ErrTransfer, e.Err}
}

func newTransferError(err error) *TransferError {
	return &TransferError{Reason: RevertReason(err), Err: err}
}

// RevertReason extracts the human-readable message from an error returned by
// a node or wallet. Standard Error(string) revert data attached to a JSON-RPC
// error is decoded; otherwise the innermost message is used as-is.
func RevertReason(err error) string {
	if err == nil {
		return ""
	}
	var te *TransferError
	if errors.As(err, &te) {
		return te.Reason
	}
	var de rpc.DataError
	if errors.As(err, &de) {
		if reason, ok := decodeRevertData(de.ErrorData()); ok {
			return reason
		}
	}
	msg := err.Error()
	if idx := strings.Index(msg, "execution reverted"); idx >= 0 {
		return msg[idx:]
	}
	return msg
}

func decodeRevertData(data interface{}) (string, bool) {
	s, ok := data.(string)
	if !ok {
		return "", false
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return "", false
	}
	reason, err := abi.UnpackRevert(raw)
	if err != nil {
		return "", false
	}
	return "execution reverted: " + reason, true
}
