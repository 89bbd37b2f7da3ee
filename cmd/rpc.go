package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/Mohsinsiddi/tokendesk/internal/chain"
	"github.com/Mohsinsiddi/tokendesk/internal/config"
	"github.com/Mohsinsiddi/tokendesk/internal/rpc"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/spf13/cobra"
)

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage RPC endpoints",
}

var rpcAddCmd = &cobra.Command{
	Use:   "add <network> <url>",
	Short: "Add a custom RPC URL for a network",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return addRPC(args[0], args[1])
	},
}

var rpcRemoveCmd = &cobra.Command{
	Use:   "remove <network> <url>",
	Short: "Remove a custom RPC URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, u := args[0], args[1]
		if err := cfg.RemoveRPC(name, u); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Removed RPC for %s: %s", name, u)))
		return nil
	},
}

type rpcView struct {
	URL    string `json:"url" yaml:"url"`
	Source string `json:"source" yaml:"source"`
}

var rpcListCmd = &cobra.Command{
	Use:   "list [network]",
	Short: "List the RPCs tried for a network",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := networkArg(args)
		if err != nil {
			return err
		}
		mode := cfg.NetworkMode
		var views []rpcView
		for _, u := range cfg.GetRPCs(c.Name) {
			views = append(views, rpcView{URL: u, Source: "custom"})
		}
		for _, u := range c.RPCs(mode) {
			views = append(views, rpcView{URL: u, Source: "built-in"})
		}
		return ui.Render(os.Stdout, outputFormat, views, func() string {
			t := ui.NewTable([]ui.Column{
				{Title: "RPC URL", Width: 48},
				{Title: "Source", Width: 10},
			})
			for _, v := range views {
				t.AddRow(ui.Row{v.URL, ui.Meta(v.Source)})
			}
			return ui.StyleTitle.Render("RPCs for "+c.Label(mode)) + "\n" + t.Render() + "\n"
		})
	},
}

type benchmarkView struct {
	URL       string `json:"url" yaml:"url"`
	LatencyMS int64  `json:"latencyMs" yaml:"latencyMs"`
	Block     uint64 `json:"block" yaml:"block"`
	Healthy   bool   `json:"healthy" yaml:"healthy"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

var rpcBenchmarkCmd = &cobra.Command{
	Use:   "benchmark [network]",
	Short: "Probe every RPC of a network for latency, head block and chain id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := networkArg(args)
		if err != nil {
			return err
		}
		mode := cfg.NetworkMode
		urls := append(append([]string(nil), cfg.GetRPCs(c.Name)...), c.RPCs(mode)...)

		ctx, cancel := context.WithTimeout(cmd.Context(), config.RPCSelectTimeout)
		defer cancel()

		spin := ui.NewSpinner(fmt.Sprintf("Benchmarking %d %s RPCs…", len(urls), c.Label(mode)))
		spin.Start()
		results := rpc.Benchmark(ctx, urls, c.ID(mode))
		spin.Stop()

		views := benchmarkViews(results)
		return ui.Render(os.Stdout, outputFormat, views, func() string {
			t := ui.NewTable([]ui.Column{
				{Title: "RPC URL", Width: 40},
				{Title: "Latency", Width: 10, Right: true},
				{Title: "Block #", Width: 12, Right: true},
				{Title: "Status", Width: 24},
			})
			for _, v := range views {
				latency, block, status := "-", "-", ui.Success("healthy")
				if v.Healthy {
					latency = fmt.Sprintf("%dms", v.LatencyMS)
					block = fmt.Sprintf("%d", v.Block)
				} else {
					status = ui.Err(v.Error)
				}
				t.AddRow(ui.Row{v.URL, latency, block, status})
			}
			return t.Render() + "\n"
		})
	},
}

func benchmarkViews(results []rpc.BenchmarkResult) []benchmarkView {
	views := make([]benchmarkView, 0, len(results))
	for _, r := range results {
		v := benchmarkView{
			URL:       r.Endpoint.URL,
			LatencyMS: r.Endpoint.Latency.Milliseconds(),
			Block:     r.Endpoint.BlockNumber,
			Healthy:   r.Err == nil && r.Endpoint.Healthy,
		}
		if r.Err != nil {
			v.Error = r.Err.Error()
		} else if !v.Healthy {
			v.Error = "unhealthy"
		}
		views = append(views, v)
	}
	return views
}

var rpcAlgorithmCmd = &cobra.Command{
	Use:   "algorithm",
	Short: "Show or set the RPC selection algorithm",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(ui.Val(cfg.RPCAlgorithm))
		return nil
	},
}

var rpcAlgorithmSetCmd = &cobra.Command{
	Use:   "set <fastest|round-robin|failover>",
	Short: "Set the RPC selection algorithm",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAlgorithm(args[0])
	},
}

func init() {
	rpcAlgorithmCmd.AddCommand(rpcAlgorithmSetCmd)
	rpcCmd.AddCommand(rpcAddCmd, rpcRemoveCmd, rpcListCmd, rpcBenchmarkCmd, rpcAlgorithmCmd)
}

// networkArg returns the named network, or the active one without args.
func networkArg(args []string) (*chain.Chain, error) {
	if len(args) == 0 {
		c, _, err := resolveNetwork()
		return c, err
	}
	c, err := chain.NewRegistry().GetByName(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w (run `tokendesk network list` to see all networks)", err)
	}
	return c, nil
}

func addRPC(network, rawURL string) error {
	c, err := chain.NewRegistry().GetByName(network)
	if err != nil {
		return err
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid RPC URL %q", rawURL)
	}
	if err := cfg.AddRPC(c.Name, rawURL); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Println(ui.Success(fmt.Sprintf("Added RPC for %s: %s", ui.ChainName(c.Name), rawURL)))
	return nil
}
