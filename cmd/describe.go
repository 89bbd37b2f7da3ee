package cmd

import (
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/tokendesk/internal/token"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/shopspring/decimal"
)

// describeTx lists what the wallet is about to sign. ERC20 transfer
// calldata is decoded; the recipient is shown in full.
func describeTx(from common.Address, tx *types.Transaction, symbol string, decimals int32) [][2]string {
	pairs := [][2]string{{"From", from.Hex()}}
	if to := tx.To(); to != nil {
		pairs = append(pairs, [2]string{"Token", to.Hex()})
	}

	if recipient, amount, ok := decodeTransfer(tx.Data()); ok {
		pairs = append(pairs,
			[2]string{"Recipient", recipient.Hex()},
			[2]string{"Amount", token.FormatUnits(amount, decimals) + " " + symbol},
		)
	} else if len(tx.Data()) >= 4 {
		pairs = append(pairs, [2]string{"Call", fmt.Sprintf("0x%x", tx.Data()[:4])})
	}

	pairs = append(pairs, [2]string{"Gas limit", fmt.Sprintf("%d", tx.Gas())})
	if tx.Type() == types.DynamicFeeTxType {
		pairs = append(pairs, [2]string{"Max fee", gwei(tx.GasFeeCap()) + " gwei"})
	} else {
		pairs = append(pairs, [2]string{"Gas price", gwei(tx.GasPrice()) + " gwei"})
	}
	return pairs
}

// decodeTransfer unpacks transfer(address,uint256) calldata.
func decodeTransfer(data []byte) (common.Address, *big.Int, bool) {
	if len(data) < 4 {
		return common.Address{}, nil, false
	}
	abi := token.ERC20ABI()
	method, err := abi.MethodById(data[:4])
	if err != nil || method.Name != "transfer" {
		return common.Address{}, nil, false
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil || len(args) != 2 {
		return common.Address{}, nil, false
	}
	to, ok1 := args[0].(common.Address)
	amount, ok2 := args[1].(*big.Int)
	return to, amount, ok1 && ok2
}

func gwei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, 0).Div(decimal.NewFromInt(params.GWei)).Round(4).String()
}

// signPrompt prints a transaction and asks before a local key signs it.
// symbol is filled in once the token is loaded.
type signPrompt struct {
	p        *ui.Prompter
	yes      bool
	symbol   string
	decimals int32
}

func newSignPrompt(p *ui.Prompter, yes bool) *signPrompt {
	return &signPrompt{p: p, yes: yes, decimals: token.DefaultDecimals}
}

// approve is a wallet.Approver.
func (s *signPrompt) approve(from common.Address, tx *types.Transaction) bool {
	if s.yes {
		return true
	}
	fmt.Fprintln(s.p.Out(), ui.KeyValueBlock("Sign transfer", describeTx(from, tx, s.symbol, s.decimals)))
	return s.p.Confirm("Sign and send this transaction?")
}
