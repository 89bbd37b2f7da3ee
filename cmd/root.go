package cmd

import (
	"fmt"
	"os"

	"github.com/Mohsinsiddi/tokendesk/internal/config"
	"github.com/Mohsinsiddi/tokendesk/internal/logging"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/tokendesk/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir       string
	cfg          *config.Config
	log          logrus.FieldLogger = logging.Discard()
	outputFormat ui.Format

	networkFlag  string
	rpcFlag      string
	walletFlag   string
	signerFlag   string
	logLevelFlag string
	outputFlag   string
	verbose      bool
	testnet      bool
	mainnet      bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "tokendesk",
	Short: "Read, send and watch ERC20 tokens",
	Long: `tokendesk: a terminal desk for one ERC20 token at a time.

  Read a token's name, symbol and supply, check your balance, send a
  transfer through your wallet and watch Transfer events as they land.

Global flags --testnet and --mainnet override the configured network mode
for a single invocation. Without either flag the persisted mode is used
(default: mainnet).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config (skip for commands that don't need it).
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if testnet {
			cfg.NetworkMode = "testnet"
		}
		if mainnet {
			cfg.NetworkMode = "mainnet"
		}

		level := cfg.LogLevel
		if logLevelFlag != "" {
			if _, err := logging.ParseLevel(logLevelFlag); err != nil {
				return err
			}
			level = logLevelFlag
		}
		if verbose {
			level = "debug"
		}
		log = logging.Config{Level: level, Format: cfg.LogFormat}.Build().
			WithField("cmd", cmd.Name())

		outputFormat, err = ui.ParseFormat(outputFlag)
		return err
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(describeError(err)))
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, ui.Hint(hint))
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: $"+config.DirEnvVar+" or ~/.tokendesk)")
	rootCmd.PersistentFlags().StringVarP(&networkFlag, "network", "n", "", "network name (default from config)")
	rootCmd.PersistentFlags().StringVar(&rpcFlag, "rpc", "", "RPC URL, skips endpoint selection")
	rootCmd.PersistentFlags().StringVarP(&walletFlag, "wallet", "w", "", "wallet name (default from config)")
	rootCmd.PersistentFlags().StringVar(&signerFlag, "signer", "", "external signer endpoint, e.g. Clef's IPC path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: trace|debug|info|warn|error")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "table", "output format: table|json|yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&testnet, "testnet", false, "use testnet instead of mainnet")
	rootCmd.PersistentFlags().BoolVar(&mainnet, "mainnet", false, "use mainnet instead of testnet")
	rootCmd.MarkFlagsMutuallyExclusive("testnet", "mainnet")

	rootCmd.AddCommand(
		infoCmd,
		balanceCmd,
		transferCmd,
		watchCmd,
		eventsCmd,
		consoleCmd,
		walletCmd,
		networkCmd,
		rpcCmd,
		configCmd,
	)
}
