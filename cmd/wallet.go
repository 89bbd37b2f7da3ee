package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/Mohsinsiddi/tokendesk/internal/token"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/Mohsinsiddi/tokendesk/internal/wallet"
	"github.com/spf13/cobra"
)

var (
	walletKeyFlag string
	walletYes     bool
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallets",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a wallet",
	Long: `Add a watch-only wallet by address, or a signing wallet with --key.

Signing keys are kept in the OS keychain (or $` + wallet.KeyEnvVar + `), never in the
wallet file.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr := newWalletManager()

		if walletKeyFlag != "" {
			w, err := mgr.AddWithKey(name, walletKeyFlag)
			if err != nil {
				return err
			}
			fmt.Println(ui.Success(fmt.Sprintf("Signing wallet %q added: %s", name, ui.Addr(w.Address))))
			fmt.Println(ui.Hint("Set as default with: tokendesk wallet use " + name))
			return nil
		}

		address := ""
		if len(args) == 2 {
			address = args[1]
		} else {
			var err error
			if address, err = ui.PromptInput("Address", ""); err != nil {
				return errors.New("address required for a watch-only wallet (or pass --key)")
			}
		}
		addr, err := token.ParseAddress(address)
		if err != nil {
			return err
		}
		if err := mgr.Add(name, &wallet.Wallet{Address: addr.Hex(), Type: wallet.TypeWatchOnly}); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(addr.Hex()))))
		fmt.Println(ui.Hint("Set as default with: tokendesk wallet use " + name))
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		wallets := newWalletManager().List()
		return ui.Render(os.Stdout, outputFormat, wallets, func() string {
			if len(wallets) == 0 {
				return ui.Info("No wallets configured yet.") + "\n" +
					ui.Hint("Add one with: tokendesk wallet add alice 0xYourAddress") + "\n"
			}
			t := ui.NewTable([]ui.Column{
				{Title: "Name", Width: 16},
				{Title: "Address", Width: 44},
				{Title: "Type", Width: 12},
				{Title: "Default", Width: 8},
			})
			for _, w := range wallets {
				def := ""
				if w.IsDefault {
					def = ui.StyleSuccess.Render("✓")
				}
				t.AddRow(ui.Row{ui.Val(w.Name), ui.Addr(w.Address), ui.Meta(walletTypeLabel(w.Type)), def})
			}
			return t.Render() + "\n" + ui.Meta(fmt.Sprintf("%d wallet(s) configured", len(wallets))) + "\n"
		})
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !walletYes && !ui.Confirm(fmt.Sprintf("Remove wallet %q?", name)) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}
		if err := newWalletManager().Remove(name); err != nil {
			return err
		}
		if cfg.DefaultWallet == name {
			cfg.DefaultWallet = ""
			if err := cfg.Save(); err != nil {
				return err
			}
		}
		fmt.Println(ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the default wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := newWalletManager().SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Default wallet set to %q.", name)))
		return nil
	},
}

var walletGenerateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Generate a new signing wallet",
	Long: `Generate a fresh EVM key pair and store the private key in the OS keychain.

The private key is displayed once. Copy it to a password manager.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, hexKey, err := newWalletManager().Generate(args[0])
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(ui.KeyValueBlock("New wallet", [][2]string{
			{"Name", w.Name},
			{"Address", w.Address},
		}))
		fmt.Println(ui.StyleBorder.BorderForeground(ui.ColorError).Render(
			ui.Warn("PRIVATE KEY, shown only once. Never share it.") + "\n\n" + ui.Val(hexKey),
		))
		fmt.Println()
		return nil
	},
}

func init() {
	walletAddCmd.Flags().StringVar(&walletKeyFlag, "key", "", "private key for a signing wallet (stored in the OS keychain)")
	walletRemoveCmd.Flags().BoolVarP(&walletYes, "yes", "y", false, "skip confirmation")
	walletCmd.AddCommand(walletAddCmd, walletListCmd, walletRemoveCmd, walletUseCmd, walletGenerateCmd)
}

// walletTypeLabel converts a wallet type to a user-facing label.
func walletTypeLabel(t string) string {
	switch t {
	case wallet.TypeSigning:
		return "read-write"
	default:
		return t
	}
}
