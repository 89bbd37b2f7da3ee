package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/external"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrUserRejected means the account holder declined a request.
	ErrUserRejected = errors.New("user rejected the request")
	// ErrNoAccounts means the provider exposes no account to act as.
	ErrNoAccounts = errors.New("no accounts available")
)

// Provider grants access to accounts and signs transactions on their behalf.
type Provider interface {
	// RequestAccounts asks for access and returns the authorised accounts,
	// the active one first.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	SignTx(ctx context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Approver is asked before a local key signs. Returning false rejects.
type Approver func(from common.Address, tx *types.Transaction) bool

// LocalProvider signs with a wallet held in the keystore.
type LocalProvider struct {
	wallet  *Wallet
	ks      KeystoreBackend
	approve Approver
}

// NewLocalProvider exposes w. A nil approve signs without asking.
func NewLocalProvider(w *Wallet, ks KeystoreBackend, approve Approver) *LocalProvider {
	return &LocalProvider{wallet: w, ks: ks, approve: approve}
}

func (p *LocalProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.wallet == nil {
		return nil, ErrNoAccounts
	}
	return []common.Address{p.wallet.Account()}, nil
}

func (p *LocalProvider) SignTx(ctx context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.wallet == nil {
		return nil, ErrNoAccounts
	}
	if account != p.wallet.Account() {
		return nil, fmt.Errorf("account %s is not managed by wallet %q", account.Hex(), p.wallet.Name)
	}
	if !p.wallet.CanSign() {
		return nil, fmt.Errorf("%w: %q cannot sign", ErrWatchOnly, p.wallet.Name)
	}
	if p.approve != nil && !p.approve(account, tx) {
		return nil, ErrUserRejected
	}
	return NewSigner(p.wallet, p.ks).SignTx(tx, chainID)
}

// ExternalProvider delegates to an external signer such as Clef, which
// prompts its own user for every request.
type ExternalProvider struct {
	signer *external.ExternalSigner
}

// DialExternal connects to an external signer at endpoint (IPC path or URL).
func DialExternal(endpoint string) (*ExternalProvider, error) {
	s, err := external.NewExternalSigner(endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to signer %s: %w", endpoint, err)
	}
	return &ExternalProvider{signer: s}, nil
}

func (p *ExternalProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	accs := p.signer.Accounts()
	if len(accs) == 0 {
		return nil, ErrNoAccounts
	}
	out := make([]common.Address, len(accs))
	for i, a := range accs {
		out[i] = a.Address
	}
	return out, nil
}

func (p *ExternalProvider) SignTx(ctx context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	signed, err := p.signer.SignTx(accounts.Account{Address: account}, tx, chainID)
	if err != nil {
		return nil, classifySignerError(err)
	}
	return signed, nil
}

// classifySignerError maps a signer's denial to ErrUserRejected.
func classifySignerError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "denied") || strings.Contains(msg, "rejected") {
		return fmt.Errorf("%w: %v", ErrUserRejected, err)
	}
	return err
}
