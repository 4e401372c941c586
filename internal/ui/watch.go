package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/tokendesk/internal/dispatch"
	"github.com/Mohsinsiddi/tokendesk/internal/tokenstate"
)

// maxWatchRows caps the operation log.
const maxWatchRows = 200

// StateMsg carries a published token snapshot into the watch view.
type StateMsg tokenstate.TokenState

// TransitionMsg carries a dispatcher state change into the watch view.
type TransitionMsg dispatch.Transition

// ChainMsg replaces the chain label after the node changes.
type ChainMsg string

// WatchErrMsg shows a refresh or subscription error in the status bar.
type WatchErrMsg struct{ Err error }

// opRow is one operation in the log, updated in place as it transitions.
type opRow struct {
	id     uint64
	kind   string
	to     common.Address
	amount string
	index  int
	state  dispatch.State
	tx     common.Hash
	err    string
}

// WatchModel is the Bubble Tea model for the live token view: the current
// snapshot on top, the operation log below.
type WatchModel struct {
	Token   common.Address
	Chain   string
	State   tokenstate.TokenState
	Refresh func() tea.Msg // run on "r"; nil disables the key
	Switch  func() tea.Msg // run on "a" to move to the next account

	rows     []opRow
	cursor   int
	errMsg   string
	frame    int
	Quitting bool
}

// NewWatchModel creates a watch view for token seeded with the current snapshot.
func NewWatchModel(token common.Address, chain string, st tokenstate.TokenState) WatchModel {
	return WatchModel{Token: token, Chain: chain, State: st}
}

type watchTickMsg struct{}

func watchSpinTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return watchTickMsg{}
	})
}

func (m WatchModel) Init() tea.Cmd { return watchSpinTick() }

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case "r":
			if m.Refresh != nil {
				return m, m.Refresh
			}
		case "a":
			if m.Switch != nil {
				return m, m.Switch
			}
		}

	case watchTickMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, watchSpinTick()

	case StateMsg:
		m.State = tokenstate.TokenState(msg)
		m.errMsg = ""

	case TransitionMsg:
		m.apply(dispatch.Transition(msg))

	case ChainMsg:
		m.Chain = string(msg)

	case WatchErrMsg:
		if msg.Err != nil {
			m.errMsg = msg.Err.Error()
		}
	}
	return m, nil
}

// apply records a transition, newest operation first.
func (m *WatchModel) apply(tr dispatch.Transition) {
	for i := range m.rows {
		if m.rows[i].id != tr.Op.ID || m.rows[i].index != tr.Op.Index {
			continue
		}
		m.rows[i].state = tr.State
		if tr.Tx != (common.Hash{}) {
			m.rows[i].tx = tr.Tx
		}
		if tr.Err != nil {
			m.rows[i].err = tr.Err.Error()
		}
		return
	}
	row := opRow{
		id:     tr.Op.ID,
		kind:   tr.Op.Kind.String(),
		to:     tr.Op.To,
		amount: tr.Op.Amount,
		index:  tr.Op.Index,
		state:  tr.State,
		tx:     tr.Tx,
	}
	if tr.Err != nil {
		row.err = tr.Err.Error()
	}
	m.rows = append([]opRow{row}, m.rows...)
	if len(m.rows) > maxWatchRows {
		m.rows = m.rows[:maxWatchRows]
	}
}

// Pending reports how many logged operations have not yet settled.
func (m WatchModel) Pending() int {
	n := 0
	for _, r := range m.rows {
		if r.state == dispatch.Validating || r.state == dispatch.Submitted {
			n++
		}
	}
	return n
}

func (m WatchModel) View() string {
	if m.Quitting {
		return ""
	}

	var sb strings.Builder
	spin := spinnerFrames[m.frame]

	// ── Title ─────────────────────────────────────────────────────────────
	name := m.State.Name
	if name == "" {
		name = "token"
	}
	title := fmt.Sprintf("◆  %s  ·  %s  ·  %s", name, TruncateAddr(m.Token.Hex()), m.Chain)
	sb.WriteString(StyleTitle.Render(title) + "\n")

	// ── Snapshot ──────────────────────────────────────────────────────────
	if m.State.IsZero() {
		sb.WriteString(StyleMeta.Render("  not connected") + "\n")
	} else {
		sb.WriteString(fmt.Sprintf("  %s %s   %s %s   %s %s\n",
			StyleMeta.Render("account"), Addr(TruncateAddr(m.State.Account.Hex())),
			StyleMeta.Render("supply"), Val(m.State.SupplyString()),
			StyleMeta.Render("balance"), Val(m.State.BalanceString()),
		))
		sb.WriteString(StyleMeta.Render(fmt.Sprintf("  decimals %d · block #%d", m.State.Decimals, m.State.Block)) + "\n")
	}

	// ── Status bar ────────────────────────────────────────────────────────
	switch {
	case m.errMsg != "":
		sb.WriteString(StyleError.Render("  ✗ "+m.errMsg) + "\n\n")
	case m.Pending() > 0:
		sb.WriteString(StyleInfo.Render(fmt.Sprintf("  %s %d operation(s) pending…", spin, m.Pending())) + "\n\n")
	default:
		sb.WriteString("\n")
	}

	// ── Operation log ─────────────────────────────────────────────────────
	const (
		wKind  = 10
		wTo    = 14
		wAmt   = 18
		wState = 11
	)
	sep := StyleMeta.Render(strings.Repeat("─", wKind+wTo+wAmt+wState+22))

	sb.WriteString(
		padR(StyleDim.Render("OP"), wKind) + "  " +
			padR(StyleDim.Render("TO"), wTo) + "  " +
			padR(StyleDim.Render("AMOUNT"), wAmt) + "  " +
			padR(StyleDim.Render("STATE"), wState) + "  " +
			StyleDim.Render("TX") + "\n",
	)
	sb.WriteString(sep + "\n")

	if len(m.rows) == 0 {
		sb.WriteString(StyleMeta.Render("  No operations yet…") + "\n")
	}
	for i, row := range m.rows {
		kind := row.kind
		if row.index >= 0 {
			kind = fmt.Sprintf("%s[%d]", kind, row.index)
		}
		to := ""
		if row.to != (common.Address{}) {
			to = TruncateAddr(row.to.Hex())
		}
		tx := ""
		if row.tx != (common.Hash{}) {
			tx = TruncateAddr(row.tx.Hex())
		}
		line := padR(StyleToken.Render(kind), wKind) + "  " +
			padR(StyleAddress.Render(to), wTo) + "  " +
			padR(StyleValue.Render(row.amount), wAmt) + "  " +
			padR(stateStyle(row.state), wState) + "  " +
			StyleAddress.Render(tx)
		if i == m.cursor {
			sb.WriteString(StyleSelected.Render(line) + "\n")
		} else {
			sb.WriteString(line + "\n")
		}
		if row.err != "" {
			sb.WriteString(StyleError.Render("    "+row.err) + "\n")
		}
	}

	// ── Controls ─────────────────────────────────────────────────────────
	sb.WriteString("\n" + watchControls(m.Refresh != nil, m.Switch != nil) + "\n")
	return sb.String()
}

func stateStyle(s dispatch.State) string {
	switch s {
	case dispatch.Confirmed:
		return StyleSuccess.Render(s.String())
	case dispatch.Failed:
		return StyleError.Render(s.String())
	case dispatch.Submitted:
		return StyleWarning.Render(s.String())
	}
	return StyleMeta.Render(s.String())
}

func watchControls(refresh, switchAccount bool) string {
	sep := StyleMeta.Render("   ")
	var sb strings.Builder
	sb.WriteString(StyleMeta.Render("[ ↑↓ ]"))
	sb.WriteString(StyleMeta.Render(" navigate"))
	if refresh {
		sb.WriteString(sep)
		sb.WriteString(StyleInfo.Render("[ r ]"))
		sb.WriteString(StyleMeta.Render(" refresh"))
	}
	if switchAccount {
		sb.WriteString(sep)
		sb.WriteString(StyleWarning.Render("[ a ]"))
		sb.WriteString(StyleMeta.Render(" next account"))
	}
	sb.WriteString(sep)
	sb.WriteString(StyleMeta.Render("[ q ]"))
	sb.WriteString(StyleMeta.Render(" quit"))
	return sb.String()
}
