package cmd

import (
	"fmt"
	"os"

	"github.com/Mohsinsiddi/tokendesk/internal/token"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/spf13/cobra"
)

var (
	transferTo     string
	transferAmount string
	transferYes    bool
)

// transferView is the machine-readable transfer result.
type transferView struct {
	TxHash      string `json:"txHash" yaml:"txHash"`
	BlockNumber uint64 `json:"blockNumber" yaml:"blockNumber"`
	From        string `json:"from" yaml:"from"`
	To          string `json:"to" yaml:"to"`
	Amount      string `json:"amount" yaml:"amount"`
	Raw         string `json:"raw" yaml:"raw"`
	ExplorerURL string `json:"explorerUrl,omitempty" yaml:"explorerUrl,omitempty"`
	Balance     string `json:"balance,omitempty" yaml:"balance,omitempty"`
}

var transferCmd = &cobra.Command{
	Use:   "transfer <token>",
	Short: "Send tokens to an address",
	Long: `Send an ERC20 transfer signed by your wallet and wait for it to be mined.

The amount is in whole tokens (18 decimals): --amount 5 sends 5·10^18 units.
Local wallets ask for confirmation before signing unless --yes is given;
an external signer (--signer) asks on its own.

Examples:
  tokendesk transfer 0x5FbD...0aa3 --to 0x7099...79C8 --amount 5 --network local
  tokendesk transfer 0x5FbD...0aa3 --to 0x7099...79C8 --amount 0.25 --testnet --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if transferTo == "" {
			return fmt.Errorf("--to is required")
		}
		if transferAmount == "" {
			return fmt.Errorf("--amount is required")
		}
		if _, err := token.ParseAddress(args[0]); err != nil {
			return err
		}
		if _, err := token.ParseAddress(transferTo); err != nil {
			return err
		}

		ctx := cmd.Context()
		prompt := newSignPrompt(ui.StdPrompter(), transferYes)
		c, err := connect(ctx, prompt.approve)
		if err != nil {
			return err
		}
		defer c.Close()
		if _, err := token.ParseUnits(transferAmount, c.session.Decimals()); err != nil {
			return err
		}
		prompt.decimals = c.session.Decimals()

		info, err := c.session.LoadMetadata(ctx, args[0])
		if err != nil {
			return err
		}
		prompt.symbol = info.Symbol

		pending, err := c.session.SendTransfer(ctx, info.Address, transferTo, transferAmount)
		if err != nil {
			return err
		}
		hash := pending.Hash().Hex()
		fmt.Fprintln(os.Stderr, ui.Info("Submitted "+hash))

		spin := ui.NewSpinner("Waiting for confirmation...")
		spin.Start()
		receipt, err := c.session.WaitMined(ctx, pending)
		spin.Stop()
		if err != nil {
			return err
		}

		view := transferView{
			TxHash:      hash,
			BlockNumber: receipt.BlockNumber.Uint64(),
			From:        pending.From.Hex(),
			To:          pending.To.Hex(),
			Amount:      token.FormatUnits(pending.Amount, c.session.Decimals()),
			Raw:         pending.Amount.String(),
			ExplorerURL: c.txURL(hash),
		}
		if bal, err := c.session.LoadBalance(ctx, info.Address); err == nil {
			view.Balance = bal.Balance
		} else {
			log.WithError(err).Warn("balance refresh after transfer failed")
		}

		return ui.Render(os.Stdout, outputFormat, view, func() string {
			pairs := [][2]string{
				{"Tx", ui.Addr(view.TxHash)},
				{"Block", fmt.Sprintf("%d", view.BlockNumber)},
				{"To", ui.Addr(view.To)},
				{"Amount", ui.Val(view.Amount) + " " + info.Symbol},
			}
			if view.Balance != "" {
				pairs = append(pairs, [2]string{"New balance", view.Balance + " " + info.Symbol})
			}
			if view.ExplorerURL != "" {
				pairs = append(pairs, [2]string{"Explorer", view.ExplorerURL})
			}
			return ui.Success("Transfer confirmed") + "\n" + ui.KeyValueBlock("", pairs) + "\n"
		})
	},
}

func init() {
	transferCmd.Flags().StringVar(&transferTo, "to", "", "recipient address")
	transferCmd.Flags().StringVar(&transferAmount, "amount", "", "amount in whole tokens, e.g. 5 or 0.25")
	transferCmd.Flags().BoolVarP(&transferYes, "yes", "y", false, "sign without asking")
}
