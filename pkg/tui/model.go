package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rwa-tokenizer/pkg/controller"
	"github.com/rwa-tokenizer/pkg/view"
)

const (
	fieldWallet = iota
	fieldDescription
	fieldEmail
	focusList
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Width(13).Foreground(lipgloss.Color("#6C757D"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	activePanel = panelStyle.BorderForeground(lipgloss.Color("#7D56F4"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0DCAF0"))
)

// boardMsg reports that the notice board changed (publish, dismiss, expiry).
type boardMsg struct{}

// opDoneMsg is delivered when a controller call returns.
type opDoneMsg struct {
	op  string
	err error
}

// Model binds one controller and its notice board to the terminal.
type Model struct {
	ctx   context.Context
	ctrl  *controller.Controller
	board *view.Board
	unit  string

	inputs  []textinput.Model
	focus   int
	cursor  int
	spinner spinner.Model
	help    help.Model
	width   int

	quitting bool
}

func New(ctx context.Context, ctrl *controller.Controller, board *view.Board, unit string) Model {
	form := ctrl.Form()
	inputs := make([]textinput.Model, 3)
	for i := range inputs {
		ti := textinput.New()
		ti.CharLimit = 500
		ti.Width = 60
		inputs[i] = ti
	}
	inputs[fieldWallet].Placeholder = "0x..."
	inputs[fieldWallet].CharLimit = 64
	inputs[fieldWallet].SetValue(form.Wallet)
	inputs[fieldDescription].Placeholder = "e.g. 2BHK flat in Bandra, Mumbai worth ₹1.5 crore"
	inputs[fieldEmail].Placeholder = "optional"
	inputs[fieldDescription].Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		board:   board,
		unit:    unit,
		inputs:  inputs,
		focus:   fieldDescription,
		spinner: sp,
		help:    help.New(),
	}
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, ctrl *controller.Controller, board *view.Board, unit string) error {
	p := tea.NewProgram(New(ctx, ctrl, board, unit), tea.WithAltScreen(), tea.WithContext(ctx))
	board.OnChange(func() { go p.Send(boardMsg{}) })
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.bootstrap())
}

func (m Model) call(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func (m Model) bootstrap() tea.Cmd {
	wallet := m.inputs[fieldWallet].Value()
	return m.call("bootstrap", func(ctx context.Context) error {
		m.ctrl.Bootstrap(ctx, wallet)
		return nil
	})
}

func (m Model) refresh() tea.Cmd {
	wallet := strings.TrimSpace(m.inputs[fieldWallet].Value())
	return tea.Batch(
		m.call("assets", func(ctx context.Context) error {
			_, err := m.ctrl.RefreshAssets(ctx, wallet)
			return err
		}),
		m.call("stats", func(ctx context.Context) error {
			_, err := m.ctrl.RefreshStats(ctx)
			return err
		}),
	)
}

func (m Model) submit() tea.Cmd {
	wallet := strings.TrimSpace(m.inputs[fieldWallet].Value())
	desc := strings.TrimSpace(m.inputs[fieldDescription].Value())
	email := strings.TrimSpace(m.inputs[fieldEmail].Value())
	return m.call("submit", func(ctx context.Context) error {
		_, err := m.ctrl.SubmitAsset(ctx, wallet, desc, email)
		return err
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case boardMsg:
		return m, nil

	case opDoneMsg:
		if msg.op == "submit" && msg.err == nil {
			f := m.ctrl.Form()
			m.inputs[fieldDescription].SetValue(f.Description)
			m.inputs[fieldEmail].SetValue(f.Email)
		}
		m.clampCursor()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if key.Matches(msg, keys.Focus) {
			return m.cycleFocus(msg.String() == "shift+tab"), textinput.Blink
		}
		if m.focus == focusList {
			return m.updateList(msg)
		}
		return m.updateForm(msg)
	}

	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Submit):
		if m.ctrl.Snapshot().Submitting {
			return m, nil
		}
		return m, m.submit()
	case key.Matches(msg, keys.Close):
		return m.setFocus(focusList), nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.ctrl.Snapshot()
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Refresh):
		return m, m.refresh()

	case key.Matches(msg, keys.Dismiss):
		m.board.Dismiss()
		return m, nil

	case key.Matches(msg, keys.Close):
		if snap.DetailOpen {
			m.ctrl.CloseDetail()
		}
		return m, nil

	case snap.DetailOpen && key.Matches(msg, keys.Verify):
		if !snap.Actions.Verify {
			return m, nil
		}
		return m, m.call("verify", func(ctx context.Context) error {
			_, err := m.ctrl.VerifyCurrentAsset(ctx)
			return err
		})

	case snap.DetailOpen && key.Matches(msg, keys.Tokenize):
		if !snap.Actions.Tokenize {
			return m, nil
		}
		return m, m.call("tokenize", func(ctx context.Context) error {
			_, err := m.ctrl.TokenizeCurrentAsset(ctx)
			return err
		})

	case snap.DetailOpen:
		return m, nil

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, keys.Down):
		if m.cursor < len(snap.Assets)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, keys.Open):
		if m.cursor >= len(snap.Assets) {
			return m, nil
		}
		id := snap.Assets[m.cursor].ID
		return m, m.call("select", func(ctx context.Context) error {
			_, err := m.ctrl.SelectAsset(ctx, id)
			return err
		})
	}
	return m, nil
}

func (m Model) cycleFocus(back bool) Model {
	next := (m.focus + 1) % (focusList + 1)
	if back {
		next = (m.focus + focusList) % (focusList + 1)
	}
	return m.setFocus(next)
}

func (m Model) setFocus(f int) Model {
	m.focus = f
	for i := range m.inputs {
		if i == f {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return m
}

func (m *Model) clampCursor() {
	n := len(m.ctrl.Snapshot().Assets)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	snap := m.ctrl.Snapshot()
	var b strings.Builder

	b.WriteString(headerStyle.Render("🏦 RWA Tokenizer  " + view.ShortWallet(snap.Wallet)))
	b.WriteString("\n")
	view.RenderStats(&b, &snap.Stats)

	if n, ok := m.board.Current(); ok {
		b.WriteString("\n" + n.Render() + "\n")
	}
	if qs := m.board.FollowUps(); len(qs) > 0 {
		b.WriteString("\n" + promptStyle.Render(strings.Join(view.FollowUpLines(qs), "\n")) + "\n")
	}

	b.WriteString("\n" + m.formView(snap) + "\n\n")

	if snap.DetailOpen && snap.Asset != nil {
		b.WriteString(view.RenderDetail(view.Detail{
			Asset:        *snap.Asset,
			Transactions: snap.Transactions,
			Verification: snap.Verification,
			CanVerify:    snap.Actions.Verify,
			CanTokenize:  snap.Actions.Tokenize,
			Busy:         snap.Busy,
		}, m.unit))
		b.WriteString("\n")
	} else {
		var list strings.Builder
		selected := -1
		if m.focus == focusList {
			selected = m.cursor
		}
		view.RenderAssetList(&list, snap.Assets, m.unit, selected)
		style := panelStyle
		if m.focus == focusList {
			style = activePanel
		}
		b.WriteString(style.Render("📋 Your Assets\n" + strings.TrimRight(list.String(), "\n")))
		b.WriteString("\n")
	}

	b.WriteString("\n" + m.help.View(keys))
	return b.String()
}

func (m Model) formView(snap controller.Snapshot) string {
	labels := []string{"Wallet", "Description", "Email"}
	rows := make([]string, 0, len(labels)+1)
	for i, l := range labels {
		rows = append(rows, labelStyle.Render(l)+m.inputs[i].View())
	}
	if snap.Submitting {
		rows = append(rows, m.spinner.View()+" Submitting...")
	} else {
		rows = append(rows, view.ColorPrimary.Style().Render("enter: Submit Asset"))
	}
	style := panelStyle
	if m.focus != focusList {
		style = activePanel
	}
	return style.Render("📝 Submit Asset\n" + strings.Join(rows, "\n"))
}
