package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// maxFeedRows caps the live feed.
const maxFeedRows = 200

// Transfer directions relative to the watching account.
const (
	DirIn    = "←"
	DirOut   = "→"
	DirOther = "·"
)

// FeedTransferMsg is sent for each Transfer event that arrives.
type FeedTransferMsg struct {
	Hash        string // full 0x... hash (for copy)
	From        string // display-truncated
	To          string // display-truncated
	Amount      string // human-scaled
	Direction   string
	BlockNum    uint64
	ExplorerURL string
}

// FeedStatusMsg updates the status bar.
type FeedStatusMsg struct {
	Mode   string // "push" or "poll"
	ErrMsg string
}

// FeedModel is the Bubble Tea model for the live Transfer feed of one token.
type FeedModel struct {
	Token    string
	Symbol   string
	Network  string
	Rows     []FeedTransferMsg
	Status   FeedStatusMsg
	Frame    int
	Quitting bool

	cursor int
	flash  string
	open   func(url string) error
	copy   func(text string) error
}

// NewFeedModel creates the feed for token (display string) on network.
func NewFeedModel(token, symbol, network string) FeedModel {
	return FeedModel{
		Token:   token,
		Symbol:  symbol,
		Network: network,
		open:    openBrowser,
		copy:    copyToClipboard,
	}
}

type feedTickMsg struct{}

func feedSpinTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return feedTickMsg{}
	})
}

func (m FeedModel) Init() tea.Cmd { return feedSpinTick() }

func (m FeedModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		m.flash = ""
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < len(m.Rows)-1 {
				m.cursor++
			}

		case "o":
			if m.cursor < len(m.Rows) {
				url := m.Rows[m.cursor].ExplorerURL
				switch {
				case url == "":
					m.flash = "No explorer URL available"
				case m.open(url) != nil:
					m.flash = "Could not open browser"
				default:
					m.flash = "Opening in browser…"
				}
			}

		case "c":
			if m.cursor < len(m.Rows) {
				hash := m.Rows[m.cursor].Hash
				if len(hash) < 10 {
					m.flash = "No hash available"
					break
				}
				if err := m.copy(hash); err == nil {
					m.flash = "Copied: " + hash[:10] + "…"
				} else {
					m.flash = "Copy failed"
				}
			}
		}

	case feedTickMsg:
		m.Frame = (m.Frame + 1) % len(spinnerFrames)
		return m, feedSpinTick()

	case FeedTransferMsg:
		// Newest first; the cursor stays on the row it pointed at.
		m.Rows = append([]FeedTransferMsg{msg}, m.Rows...)
		if len(m.Rows) > 1 {
			m.cursor++
		}
		if len(m.Rows) > maxFeedRows {
			m.Rows = m.Rows[:maxFeedRows]
		}
		if m.cursor >= len(m.Rows) {
			m.cursor = len(m.Rows) - 1
		}

	case FeedStatusMsg:
		m.Status = msg
	}

	return m, nil
}

func (m FeedModel) View() string {
	if m.Quitting {
		return ""
	}

	var sb strings.Builder
	spin := spinnerFrames[m.Frame]

	title := fmt.Sprintf("Live Transfers  ·  %s (%s)  ·  %s", m.Token, m.Symbol, m.Network)
	sb.WriteString(StyleTitle.Render(title) + "\n")

	switch {
	case m.Status.ErrMsg != "":
		sb.WriteString(StyleError.Render("✗ "+trimErr(m.Status.ErrMsg)) + "\n\n")
	case m.Status.Mode != "":
		sb.WriteString(StyleInfo.Render(fmt.Sprintf("%s listening (%s)…", spin, m.Status.Mode)) + "\n\n")
	default:
		sb.WriteString(StyleMeta.Render("  connecting…") + "\n\n")
	}

	const (
		wHash = 14
		wDir  = 2
		wAddr = 14
		wVal  = 18
	)
	sep := StyleMeta.Render(strings.Repeat("─", wHash+wDir+2*wAddr+wVal+20))

	sb.WriteString(
		padR(StyleDim.Render("HASH"), wHash) + "  " +
			padR(StyleDim.Render("DR"), wDir) + "  " +
			padR(StyleDim.Render("FROM"), wAddr) + "  " +
			padR(StyleDim.Render("TO"), wAddr) + "  " +
			padR(StyleDim.Render("AMOUNT"), wVal) + "  " +
			StyleDim.Render("BLOCK") + "\n",
	)
	sb.WriteString(sep + "\n")

	if len(m.Rows) == 0 {
		sb.WriteString(StyleMeta.Render("  Waiting for transfers…") + "\n")
	} else {
		for i, row := range m.Rows {
			var dirStr string
			switch row.Direction {
			case DirIn:
				dirStr = StyleSuccess.Render(DirIn)
			case DirOut:
				dirStr = StyleWarning.Render(DirOut)
			default:
				dirStr = StyleMeta.Render(DirOther)
			}

			line := padR(StyleAddress.Render(fit(row.Hash, wHash, false)), wHash) + "  " +
				padR(dirStr, wDir) + "  " +
				padR(StyleAddress.Render(row.From), wAddr) + "  " +
				padR(StyleAddress.Render(row.To), wAddr) + "  " +
				padR(StyleValue.Render(row.Amount)+" "+StyleDim.Render(m.Symbol), wVal) + "  " +
				StyleMeta.Render(fmt.Sprintf("#%d", row.BlockNum))

			if i == m.cursor {
				sb.WriteString(StyleSelected.Render(line) + "\n")
			} else {
				sb.WriteString(line + "\n")
			}
		}
		sb.WriteString(sep + "\n")
		sb.WriteString(StyleMeta.Render(fmt.Sprintf("  %d transfer(s) seen", len(m.Rows))) + "\n")
	}

	sb.WriteString("\n")
	if m.flash != "" {
		sb.WriteString(StyleSuccess.Render("  ✓ " + m.flash))
	} else {
		sb.WriteString(feedControls())
	}
	sb.WriteString("\n")

	return sb.String()
}

func feedControls() string {
	sep := StyleMeta.Render("   ")
	var sb strings.Builder
	sb.WriteString(StyleMeta.Render("[ ↑↓ ]"))
	sb.WriteString(StyleMeta.Render(" navigate"))
	sb.WriteString(sep)
	sb.WriteString(StyleInfo.Render("[ o ]"))
	sb.WriteString(StyleMeta.Render(" open in explorer"))
	sb.WriteString(sep)
	sb.WriteString(StyleWarning.Render("[ c ]"))
	sb.WriteString(StyleMeta.Render(" copy hash"))
	sb.WriteString(sep)
	sb.WriteString(StyleMeta.Render("[ q ]"))
	sb.WriteString(StyleMeta.Render(" quit"))
	return sb.String()
}

// trimErr shortens noisy RPC errors for the status bar.
func trimErr(s string) string {
	for _, prefix := range []string{"dial tcp", "connection refused", "context deadline"} {
		if idx := strings.Index(s, prefix); idx >= 0 {
			s = s[idx:]
			break
		}
	}
	if r := []rune(s); len(r) > 60 {
		return string(r[:60]) + "…"
	}
	return s
}
