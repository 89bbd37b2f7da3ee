package cmd

import (
	"fmt"
	"os"

	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <token>",
	Short: "Show a token's name, symbol and total supply",
	Long: `Read name(), symbol() and totalSupply() from an ERC20 contract.

Examples:
  tokendesk info 0x5FbDB2315678afecb367f032d93F642f64180aa3 --network local
  tokendesk info 0xA0b8...eB48 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := connect(ctx, nil)
		if err != nil {
			return err
		}
		defer c.Close()

		spin := ui.NewSpinner(fmt.Sprintf("Reading token on %s...", c.label()))
		spin.Start()
		info, err := c.session.LoadMetadata(ctx, args[0])
		spin.Stop()
		if err != nil {
			return err
		}

		return ui.Render(os.Stdout, outputFormat, info, func() string {
			return ui.KeyValueBlock(fmt.Sprintf("Token · %s", c.label()), [][2]string{
				{"Name", info.Name},
				{"Symbol", ui.ChainName(info.Symbol)},
				{"Address", ui.Addr(info.Address)},
				{"Total supply", info.TotalSupply + " " + info.Symbol},
			}) + "\n"
		})
	},
}
