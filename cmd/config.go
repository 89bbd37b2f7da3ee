package cmd

import (
	"fmt"
	"os"

	"github.com/Mohsinsiddi/tokendesk/internal/rpc"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return ui.Render(os.Stdout, outputFormat, cfg, func() string {
			signer := cfg.SignerURL
			if signer == "" {
				signer = "(local wallets)"
			}
			pairs := [][2]string{
				{"Network", cfg.DefaultNetwork},
				{"Mode", cfg.NetworkMode},
				{"RPC algorithm", cfg.RPCAlgorithm},
				{"Wallet", cfg.DefaultWallet},
				{"Signer", signer},
				{"Log level", cfg.LogLevel},
				{"Log format", cfg.LogFormat},
			}
			for name, urls := range cfg.CustomRPCs {
				pairs = append(pairs, [2]string{"RPCs " + name, fmt.Sprintf("%d custom", len(urls))})
			}
			return ui.KeyValueBlock("Configuration", pairs) + "\n" + ui.Meta("Config directory: "+cfg.Dir()) + "\n"
		})
	},
}

var configSetRPCCmd = &cobra.Command{
	Use:   "set-rpc <network> <url>",
	Short: "Add a custom RPC for a network",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return addRPC(args[0], args[1])
	},
}

var configSetSignerCmd = &cobra.Command{
	Use:   "set-signer <endpoint|none>",
	Short: "Sign through an external signer such as Clef",
	Long: `Route account access and signing through an external signer instead of
local wallets. The endpoint is anything go-ethereum can dial: an IPC path,
http(s) or ws(s) URL. Pass "none" to go back to local wallets.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := args[0]
		if endpoint == "none" {
			endpoint = ""
		}
		cfg.SignerURL = endpoint
		if err := cfg.Save(); err != nil {
			return err
		}
		if endpoint == "" {
			fmt.Println(ui.Success("Signing with local wallets."))
		} else {
			fmt.Println(ui.Success("Signing through " + endpoint))
		}
		return nil
	},
}

var configSetLogLevelCmd = &cobra.Command{
	Use:   "set-log-level <trace|debug|info|warn|error>",
	Short: "Set the log level",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.SetLogLevel(args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Log level set to %q", cfg.LogLevel)))
		return nil
	},
}

var configSetLogFormatCmd = &cobra.Command{
	Use:   "set-log-format <text|json>",
	Short: "Set the log format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.SetLogFormat(args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Log format set to %q", cfg.LogFormat)))
		return nil
	},
}

var configSetAlgorithmCmd = &cobra.Command{
	Use:   "set-algorithm <fastest|round-robin|failover>",
	Short: "Set the RPC selection algorithm",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAlgorithm(args[0])
	},
}

func init() {
	configCmd.AddCommand(
		configListCmd,
		configSetRPCCmd,
		configSetSignerCmd,
		configSetLogLevelCmd,
		configSetLogFormatCmd,
		configSetAlgorithmCmd,
	)
}

func setAlgorithm(name string) error {
	algo, err := rpc.ParseAlgorithm(name)
	if err != nil {
		return err
	}
	cfg.RPCAlgorithm = string(algo)
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Println(ui.Success(fmt.Sprintf("RPC algorithm set to %q", algo)))
	return nil
}
