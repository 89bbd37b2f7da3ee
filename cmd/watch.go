package cmd

import (
	"fmt"
	"os"

	"github.com/Mohsinsiddi/tokendesk/internal/token"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <token>",
	Short: "Stream live Transfer events of a token",
	Long: `Follow a token's Transfer events in a live TUI table.

WebSocket and IPC endpoints push new logs; plain HTTP endpoints are polled
with eth_getLogs.

Direction legend (relative to your wallet, when one is configured):
  ←  incoming
  →  outgoing

Keyboard controls:
  ↑↓ / j k   navigate rows
  o           open selected tx in explorer
  c           copy selected tx hash
  q           quit

Examples:
  tokendesk watch 0x5FbD...0aa3 --network local
  tokendesk watch 0xA0b8...eB48 --rpc wss://ethereum-rpc.publicnode.com`,
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
		// The account only colours directions; watching works without one.
		account, err := c.session.Account(ctx)
		if err != nil {
			log.WithError(err).Debug("watching without an account")
		}

		model := ui.NewFeedModel(token.TruncateAddr(info.Address), info.Symbol, c.label())
		p := tea.NewProgram(model, tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout), tea.WithAltScreen())

		sub, err := c.session.SubscribeTransfers(ctx, info.Address, func(ev token.TransferEvent) {
			p.Send(feedRow(ev, account, c.session.Decimals(), c.txURL))
		})
		if err != nil {
			return err
		}
		go func() {
			p.Send(ui.FeedStatusMsg{Mode: sub.Mode()})
			<-sub.Done()
			if err := sub.Err(); err != nil {
				p.Send(ui.FeedStatusMsg{ErrMsg: err.Error()})
			}
		}()

		_, err = p.Run()
		c.session.Unsubscribe()
		if err != nil {
			return fmt.Errorf("running watch: %w", err)
		}
		return nil
	},
}

// feedRow converts an event for the live table. account may be zero.
func feedRow(ev token.TransferEvent, account common.Address, decimals int32, txURL func(string) string) ui.FeedTransferMsg {
	dir := ui.DirOther
	switch {
	case account == (common.Address{}):
	case ev.To == account:
		dir = ui.DirIn
	case ev.From == account:
		dir = ui.DirOut
	}
	hash := ev.TxHash.Hex()
	return ui.FeedTransferMsg{
		Hash:        hash,
		From:        token.TruncateAddr(ev.From.Hex()),
		To:          token.TruncateAddr(ev.To.Hex()),
		Amount:      token.FormatUnits(ev.Amount, decimals),
		Direction:   dir,
		BlockNum:    ev.BlockNumber,
		ExplorerURL: txURL(hash),
	}
}
