package cmd

import (
	"fmt"
	"os"

	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/spf13/cobra"
)

// balanceView is the machine-readable balance output.
type balanceView struct {
	Token   string `json:"token" yaml:"token"`
	Symbol  string `json:"symbol" yaml:"symbol"`
	Account string `json:"account" yaml:"account"`
	Balance string `json:"balance" yaml:"balance"`
	Raw     string `json:"raw" yaml:"raw"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance <token>",
	Short: "Check your balance of a token",
	Long: `Ask the wallet for its account and read balanceOf(account).

The account comes from --wallet, the default wallet or --signer.

Examples:
  tokendesk balance 0x5FbD...0aa3 --network local
  tokendesk balance 0x5FbD...0aa3 --wallet alice --testnet`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := connect(ctx, nil)
		if err != nil {
			return err
		}
		defer c.Close()

		spin := ui.NewSpinner(fmt.Sprintf("Fetching balance on %s...", c.label()))
		spin.Start()
		info, err := c.session.LoadMetadata(ctx, args[0])
		if err != nil {
			spin.Stop()
			return err
		}
		bal, err := c.session.LoadBalance(ctx, info.Address)
		spin.Stop()
		if err != nil {
			return err
		}

		view := balanceView{
			Token:   info.Address,
			Symbol:  info.Symbol,
			Account: bal.Account,
			Balance: bal.Balance,
			Raw:     bal.Raw.String(),
		}
		return ui.Render(os.Stdout, outputFormat, view, func() string {
			return ui.KeyValueBlock(fmt.Sprintf("%s · %s", info.Name, c.label()), [][2]string{
				{"Account", ui.Addr(bal.Address)},
				{"Balance", ui.Val(bal.Balance) + " " + info.Symbol},
			}) + "\n"
		})
	},
}
