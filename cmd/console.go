package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/Mohsinsiddi/tokendesk/internal/desk"
	"github.com/Mohsinsiddi/tokendesk/internal/token"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/spf13/cobra"
)

var consoleCmd = &cobra.Command{
	Use:   "console [token]",
	Short: "Interactive desk: load a token, check balance, send and watch transfers",
	Long: `Open an interactive session on one token at a time.

Commands:
  load <address>            load a token and follow its Transfer events
  balance                   read your balance of the loaded token
  transfer <to> <amount>    send tokens and wait for confirmation
  history                   transfers seen since the token was loaded
  info                      the loaded token, balance and last error
  help                      this list
  quit                      leave

Transfers of the loaded token are printed as they arrive.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		prompter := ui.StdPrompter()
		sign := newSignPrompt(prompter, false)
		c, err := connect(ctx, sign.approve)
		if err != nil {
			return err
		}
		defer c.Close()

		d := desk.New(c.session, desk.WithExplorer(c.txURL), desk.WithLogger(log))
		defer d.Close()

		con := newConsole(d, prompter, os.Stdout, sign)
		con.printf("%s\n%s\n\n", ui.Banner(Version), ui.Meta("Connected to "+c.label()+". Type help for commands."))
		if len(args) == 1 {
			con.exec(ctx, "load "+args[0])
		}
		return con.run(ctx)
	},
}

// console is the read-eval loop over a Desk.
type console struct {
	desk *desk.Desk
	in   *ui.Prompter
	sign *signPrompt

	mu    sync.Mutex // guards out and the fields below
	out   io.Writer
	shown string // token whose history is being printed
	seen  int    // history records already printed
}

func newConsole(d *desk.Desk, in *ui.Prompter, out io.Writer, sign *signPrompt) *console {
	c := &console{desk: d, in: in, out: out, sign: sign}
	if sign != nil {
		sign.decimals = d.Decimals()
	}
	d.OnChange(c.onChange)
	return c
}

var errQuit = errors.New("quit")

// run reads commands until quit or end of input.
func (c *console) run(ctx context.Context) error {
	for {
		line, err := c.in.Line(c.promptText())
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.printf("\n")
				return nil
			}
			return err
		}
		if err := c.exec(ctx, line); errors.Is(err, errQuit) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *console) promptText() string {
	if st := c.desk.Snapshot(); st.Token != nil {
		return st.Token.Symbol + ">"
	}
	return "tokendesk>"
}

// exec runs one command line. Failures are printed, not returned; only
// quit ends the loop.
func (c *console) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch name {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		c.printf("%s\n", consoleHelp())
	case "load":
		err = c.load(ctx, args)
	case "balance", "bal":
		err = c.balance(ctx)
	case "transfer", "send":
		err = c.transfer(ctx, args)
	case "history":
		c.history()
	case "info", "state":
		c.info()
	default:
		err = fmt.Errorf("unknown command %q (type help)", name)
	}
	if err != nil {
		c.printf("%s\n", ui.Err(describeError(err)))
		if hint := errorHint(err); hint != "" {
			c.printf("%s\n", ui.Hint(hint))
		}
	}
	return nil
}

func (c *console) load(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: load <address>")
	}
	info, err := c.desk.Load(ctx, args[0])
	if info == nil {
		return err
	}
	if c.sign != nil {
		c.sign.symbol = info.Symbol
	}
	c.printf("%s\n", ui.KeyValueBlock("Token", [][2]string{
		{"Name", info.Name},
		{"Symbol", info.Symbol},
		{"Address", info.Address},
		{"Total supply", info.TotalSupply + " " + info.Symbol},
	}))
	if err != nil {
		c.printf("%s\n", ui.Warn("live transfers unavailable: "+describeError(err)))
	}
	return nil
}

func (c *console) balance(ctx context.Context) error {
	bal, err := c.desk.RefreshBalance(ctx)
	if err != nil {
		return err
	}
	c.printf("%s %s %s\n", ui.Addr(bal.Address), ui.Val(bal.Balance), c.symbol())
	return nil
}

func (c *console) transfer(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: transfer <to> <amount>")
	}
	receipt, err := c.desk.Transfer(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	hash := receipt.TxHash.Hex()
	c.printf("%s\n", ui.Success(fmt.Sprintf("Sent %s %s to %s in block #%d", args[1], c.symbol(), args[0], receipt.BlockNumber.Uint64())))
	if url := c.desk.TxURL(hash); url != "" {
		c.printf("  %s\n", ui.Meta(url))
	} else {
		c.printf("  %s\n", ui.Meta(hash))
	}
	if st := c.desk.Snapshot(); st.Balance != nil {
		c.printf("  %s %s %s\n", ui.Meta("balance"), ui.Val(st.Balance.Balance), c.symbol())
	}
	return nil
}

func (c *console) history() {
	st := c.desk.Snapshot()
	if st.Token == nil {
		c.printf("%s\n", ui.Info("No token loaded."))
		return
	}
	if len(st.History) == 0 {
		c.printf("%s\n", ui.Info("No transfers seen yet."))
		return
	}
	t := ui.NewTable([]ui.Column{
		{Title: "Block", Width: 10},
		{Title: "Tx", Width: 14},
		{Title: "From", Width: 14},
		{Title: "To", Width: 14},
		{Title: "Amount (" + st.Token.Symbol + ")", Width: 20, Right: true},
	})
	for _, r := range st.History {
		t.AddRow(ui.Row{fmt.Sprintf("#%d", r.BlockNumber), token.TruncateAddr(r.TxHash), r.From, r.To, rawToUnits(r.Amount, c.desk.Decimals())})
	}
	c.printf("%s", t.Render())
}

func (c *console) info() {
	st := c.desk.Snapshot()
	if st.Token == nil {
		c.printf("%s\n", ui.Info("No token loaded."))
		return
	}
	pairs := [][2]string{
		{"Token", st.Token.Name + " (" + st.Token.Symbol + ")"},
		{"Address", st.Token.Address},
		{"Total supply", st.Token.TotalSupply},
	}
	if st.Balance != nil {
		pairs = append(pairs, [2]string{"Balance", st.Balance.Balance + " @ " + st.Balance.Address})
	}
	pairs = append(pairs, [2]string{"Transfers seen", fmt.Sprintf("%d", len(st.History))})
	for _, a := range []desk.Action{desk.ActionLoad, desk.ActionBalance, desk.ActionTransfer} {
		if st.Busy(a) {
			pairs = append(pairs, [2]string{"Pending", string(a)})
		}
	}
	if st.LastError != "" {
		pairs = append(pairs, [2]string{"Last error", st.LastError})
	}
	c.printf("%s\n", ui.KeyValueBlock("Desk", pairs))
}

// onChange prints history records as they arrive.
func (c *console) onChange(st desk.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	addr := ""
	if st.Token != nil {
		addr = st.Token.Address
	}
	if addr != c.shown {
		c.shown, c.seen = addr, 0
	}
	if len(st.History) < c.seen {
		c.seen = len(st.History)
	}
	if len(st.History) == c.seen {
		return
	}
	for _, r := range st.History[c.seen:] {
		fmt.Fprintf(c.out, "%s %s %s %s → %s %s\n",
			ui.StyleInfo.Render("⇄"),
			ui.Val(rawToUnits(r.Amount, c.desk.Decimals())), st.Token.Symbol,
			ui.Addr(r.From), ui.Addr(r.To),
			ui.Meta(fmt.Sprintf("#%d %s", r.BlockNumber, token.TruncateAddr(r.TxHash))),
		)
	}
	c.seen = len(st.History)
}

func (c *console) symbol() string {
	if st := c.desk.Snapshot(); st.Token != nil {
		return st.Token.Symbol
	}
	return ""
}

func (c *console) printf(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, a...)
}

// rawToUnits formats a smallest-unit decimal string.
func rawToUnits(raw string, decimals int32) string {
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return raw
	}
	return token.FormatUnits(n, decimals)
}

func consoleHelp() string {
	rows := [][2]string{
		{"load <address>", "load a token and follow its transfers"},
		{"balance", "read your balance"},
		{"transfer <to> <amount>", "send tokens"},
		{"history", "transfers seen since load"},
		{"info", "token, balance, pending actions"},
		{"quit", "leave"},
	}
	var sb strings.Builder
	for _, r := range rows {
		sb.WriteString("  " + ui.Val(fmt.Sprintf("%-24s", r[0])) + ui.Meta(r[1]) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
