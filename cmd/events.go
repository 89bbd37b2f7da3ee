package cmd

import (
	"fmt"
	"os"

	"github.com/Mohsinsiddi/tokendesk/internal/token"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/spf13/cobra"
)

var (
	eventsBlocks uint64
	eventsCount  int
)

// eventView is one Transfer in machine-readable output.
type eventView struct {
	TxHash      string `json:"txHash" yaml:"txHash"`
	BlockNumber uint64 `json:"blockNumber" yaml:"blockNumber"`
	From        string `json:"from" yaml:"from"`
	To          string `json:"to" yaml:"to"`
	Amount      string `json:"amount" yaml:"amount"`
	Raw         string `json:"raw" yaml:"raw"`
	ExplorerURL string `json:"explorerUrl,omitempty" yaml:"explorerUrl,omitempty"`
}

var eventsCmd = &cobra.Command{
	Use:   "events <token>",
	Short: "List recent Transfer events of a token",
	Long: `Fetch and decode the Transfer events a token emitted recently.

By default queries the last 1000 blocks and shows the newest 20 transfers.

Examples:
  tokendesk events 0x5FbD...0aa3 --network local
  tokendesk events 0xA0b8...eB48 --blocks 200 --count 50 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := connect(ctx, nil)
		if err != nil {
			return err
		}
		defer c.Close()

		info, err := c.session.LoadMetadata(ctx, args[0])
		if err != nil {
			return err
		}

		spin := ui.NewSpinner(fmt.Sprintf("Fetching transfers on %s...", c.label()))
		spin.Start()
		events, err := c.session.RecentTransfers(ctx, info.Address, eventsBlocks)
		spin.Stop()
		if err != nil {
			return err
		}
		views := eventViews(lastN(events, eventsCount), c.session.Decimals(), c.txURL)

		return ui.Render(os.Stdout, outputFormat, views, func() string {
			if len(views) == 0 {
				return ui.Info(fmt.Sprintf("No transfers of %s in the last %d blocks", info.Symbol, eventsBlocks)) + "\n"
			}
			t := ui.NewTable([]ui.Column{
				{Title: "Block", Width: 10},
				{Title: "Tx", Width: 14},
				{Title: "From", Width: 14},
				{Title: "To", Width: 14},
				{Title: "Amount (" + info.Symbol + ")", Width: 20, Right: true},
			})
			for _, v := range views {
				t.AddRow(ui.Row{
					fmt.Sprintf("#%d", v.BlockNumber),
					token.TruncateAddr(v.TxHash),
					token.TruncateAddr(v.From),
					token.TruncateAddr(v.To),
					v.Amount,
				})
			}
			return t.Render() + ui.Meta(fmt.Sprintf("%d of %d transfer(s) shown", len(views), len(events))) + "\n"
		})
	},
}

// lastN keeps the newest n events; n <= 0 keeps all.
func lastN(events []token.TransferEvent, n int) []token.TransferEvent {
	if n <= 0 || len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}

func eventViews(events []token.TransferEvent, decimals int32, txURL func(string) string) []eventView {
	views := make([]eventView, 0, len(events))
	for _, ev := range events {
		hash := ev.TxHash.Hex()
		views = append(views, eventView{
			TxHash:      hash,
			BlockNumber: ev.BlockNumber,
			From:        ev.From.Hex(),
			To:          ev.To.Hex(),
			Amount:      token.FormatUnits(ev.Amount, decimals),
			Raw:         ev.Amount.String(),
			ExplorerURL: txURL(hash),
		})
	}
	return views
}

func init() {
	eventsCmd.Flags().Uint64Var(&eventsBlocks, "blocks", token.DefaultHistoryBlocks, "how many recent blocks to search")
	eventsCmd.Flags().IntVar(&eventsCount, "count", 20, "show at most this many transfers (0 = all)")
}
