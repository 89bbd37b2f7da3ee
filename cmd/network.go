package cmd

import (
	"fmt"
	"os"

	"github.com/Mohsinsiddi/tokendesk/internal/chain"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/spf13/cobra"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Manage networks",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported networks",
	RunE: func(cmd *cobra.Command, args []string) error {
		chains := chain.NewRegistry().All()
		return ui.Render(os.Stdout, outputFormat, chains, func() string {
			t := ui.NewTable([]ui.Column{
				{Title: "Name", Width: 12},
				{Title: "Display", Width: 18},
				{Title: "Chain ID", Width: 10, Right: true},
				{Title: "Testnet", Width: 18},
				{Title: "Testnet ID", Width: 10, Right: true},
				{Title: "Currency", Width: 8},
			})
			for _, c := range chains {
				name := ui.ChainName(c.Name)
				if c.Name == cfg.DefaultNetwork {
					name += " " + ui.StyleSuccess.Render("✓")
				}
				t.AddRow(ui.Row{
					name,
					c.DisplayName,
					fmt.Sprintf("%d", c.ChainID),
					c.TestnetName,
					fmt.Sprintf("%d", c.TestnetChainID),
					c.NativeCurrency,
				})
			}
			return t.Render() + "\n" + ui.Meta(fmt.Sprintf("%d networks, mode %s", len(chains), cfg.NetworkMode)) + "\n"
		})
	},
}

var networkUseCmd = &cobra.Command{
	Use:   "use <network>",
	Short: "Set the default network",
	Long: `Set the default network and persist it to config.

Combined with --testnet or --mainnet the network mode is persisted too.

Examples:
  tokendesk network use base              # keep current mode
  tokendesk network use base --testnet    # Base Sepolia from now on
  tokendesk network use polygon --mainnet`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := chain.NewRegistry().GetByName(args[0])
		if err != nil {
			return fmt.Errorf("%w (run `tokendesk network list` to see all networks)", err)
		}
		cfg.DefaultNetwork = c.Name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success("Default network set to " + ui.ChainName(c.Label(cfg.NetworkMode))))
		return nil
	},
}

func init() {
	networkCmd.AddCommand(networkListCmd, networkUseCmd)
}
