package models

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/allbin/serialport"
	"github.com/allbin/serialport/internal/tui/components"
	"github.com/allbin/serialport/internal/tui/keys"
	"github.com/allbin/serialport/internal/tui/styles"
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	if m == InputModeInsert {
		return "INSERT"
	}
	return "NORMAL"
}

type (
	openedMsg struct{ err error }
	tickMsg   time.Time
	remoteMsg struct {
		status serialport.RemoteStatus
		err    error
	}
)

// ListenOptions tune the listen view
type ListenOptions struct {
	Display     components.DisplayMode
	SendingMode components.SendingMode
	AppendCRLF  bool
	Logger      zerolog.Logger
}

// ListenModel is the bubbletea model behind the listen command
type ListenModel struct {
	ctx     context.Context
	port    *serialport.Port
	session *Session
	logger  zerolog.Logger

	terminal  *components.Terminal
	input     *components.Input
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.ListenKeys

	mode    InputMode
	nextID  int
	rts     bool
	dtr     bool
	noModem bool
	width   int
	height  int
	now     time.Time
}

func NewListenModel(ctx context.Context, port *serialport.Port, opts ListenOptions) *ListenModel {
	cfg := port.Config()
	return &ListenModel{
		ctx:       ctx,
		port:      port,
		logger:    opts.Logger,
		terminal:  components.NewTerminal(80, 20, opts.Display),
		input:     components.NewInput(opts.SendingMode, opts.AppendCRLF),
		statusBar: components.NewStatusBar(port.Path(), cfg),
		help:      help.New(),
		keys:      keys.NewListenKeys(),
		rts:       cfg.RTS,
		dtr:       cfg.DTR,
		now:       time.Now(),
	}
}

// Terminal exposes the traffic log, mainly for tests
func (m *ListenModel) Terminal() *components.Terminal { return m.terminal }

func (m *ListenModel) StatusBar() *components.StatusBar { return m.statusBar }

func (m *ListenModel) Mode() InputMode { return m.mode }

func (m *ListenModel) Init() tea.Cmd {
	return tea.Batch(m.open(), tick())
}

func (m *ListenModel) open() tea.Cmd {
	return func() tea.Msg {
		return openedMsg{err: m.port.Open(m.ctx)}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *ListenModel) waitForEvent() tea.Cmd {
	events := m.session.Events()
	return func() tea.Msg { return <-events }
}

func (m *ListenModel) pollRemote() tea.Cmd {
	if m.session == nil || m.noModem {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, 500*time.Millisecond)
		defer cancel()
		status, err := m.port.Get(ctx)
		return remoteMsg{status: status, err: err}
	}
}

func (m *ListenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.statusBar.SetStatus(styles.StatusError, msg.err.Error())
			return m, nil
		}
		m.session = StartSession(m.ctx, m.port)
		m.statusBar.SetStatus(styles.StatusConnected, "")
		return m, tea.Batch(m.waitForEvent(), m.pollRemote())

	case DataMsg:
		m.terminal.Add(components.Traffic{Timestamp: time.Now(), Direction: components.RX, Data: msg.Data})
		return m, m.waitForEvent()

	case WriteResultMsg:
		m.terminal.Resolve(msg.ID, msg.Err)
		return m, m.waitForEvent()

	case ClosedMsg:
		if msg.Err != nil {
			m.logger.Warn().Err(msg.Err).Str("path", m.port.Path()).Msg("listen session ended")
			m.statusBar.SetStatus(styles.StatusError, msg.Err.Error())
		} else {
			m.statusBar.SetStatus(styles.StatusDisconnected, "closed")
		}
		return m, m.waitForEvent()

	case tickMsg:
		m.now = time.Time(msg)
		return m, tea.Batch(tick(), m.pollRemote())

	case remoteMsg:
		if msg.err != nil {
			// Pseudo terminals and some adapters have no modem lines
			m.noModem = true
			m.logger.Debug().Err(msg.err).Msg("modem status unavailable")
		} else {
			m.statusBar.SetRemote(msg.status)
		}
		return m, nil

	case tea.MouseMsg:
		return m, m.terminal.Update(msg)

	case tea.KeyMsg:
		if m.mode == InputModeInsert {
			return m, m.updateInsert(msg)
		}
		return m, m.updateNormal(msg)
	}
	return m, nil
}

func (m *ListenModel) updateNormal(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize(m.width, m.height)
	case key.Matches(msg, m.keys.InsertMode):
		m.mode = InputModeInsert
		return m.input.Focus()
	case key.Matches(msg, m.keys.Clear):
		m.terminal.Clear()
	case key.Matches(msg, m.keys.ToggleHex):
		m.terminal.ToggleHex()
	case key.Matches(msg, m.keys.ToggleASCII):
		m.terminal.ToggleASCII()
	case key.Matches(msg, m.keys.ToggleTime):
		m.terminal.ToggleTime()
	case key.Matches(msg, m.keys.Follow):
		m.terminal.Follow()
	case key.Matches(msg, m.keys.HistoryUp), msg.String() == "k":
		m.terminal.ScrollUp(1)
	case key.Matches(msg, m.keys.HistoryDown), msg.String() == "j":
		m.terminal.ScrollDown(1)
	case key.Matches(msg, m.keys.RTS):
		return m.setLine(serialport.ControlLines{RTS: serialport.Line(!m.rts)}, func() { m.rts = !m.rts })
	case key.Matches(msg, m.keys.DTR):
		return m.setLine(serialport.ControlLines{DTR: serialport.Line(!m.dtr)}, func() { m.dtr = !m.dtr })
	}
	return nil
}

func (m *ListenModel) updateInsert(msg tea.KeyMsg) tea.Cmd {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m.quit()
	case key.Matches(msg, m.keys.Escape):
		m.mode = InputModeNormal
		m.input.Blur()
		return nil
	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleSendingMode()
		return nil
	case key.Matches(msg, m.keys.HistoryUp):
		m.input.HistoryUp()
		return nil
	case key.Matches(msg, m.keys.HistoryDown):
		m.input.HistoryDown()
		return nil
	case key.Matches(msg, m.keys.Enter):
		m.send()
		return nil
	}
	return m.input.Update(msg)
}

func (m *ListenModel) send() {
	line := m.input.Value()
	data, err := m.input.Payload()
	if err != nil {
		m.statusBar.SetStatus(m.statusBar.Status(), err.Error())
		return
	}
	m.nextID++
	entry := components.Traffic{ID: m.nextID, Timestamp: time.Now(), Direction: components.TX, Data: data}
	m.terminal.Add(entry)
	m.input.AddToHistory(line)
	m.input.SetValue("")

	if m.session == nil {
		m.terminal.Resolve(entry.ID, serialport.ErrNotOpen)
		return
	}
	if err := m.session.Send(entry.ID, data); err != nil {
		m.terminal.Resolve(entry.ID, err)
	}
}

// setLine changes one control line and flips the local state on success
func (m *ListenModel) setLine(lines serialport.ControlLines, flip func()) tea.Cmd {
	if m.session == nil {
		return nil
	}
	if err := m.port.Set(m.ctx, lines); err != nil {
		m.statusBar.SetStatus(m.statusBar.Status(), err.Error())
		return nil
	}
	flip()
	return nil
}

func (m *ListenModel) quit() tea.Cmd {
	if m.session != nil {
		if err := m.session.Stop(); err != nil {
			m.logger.Debug().Err(err).Msg("stopping listen session")
		}
	}
	return tea.Quit
}

func (m *ListenModel) resize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width
	m.statusBar.SetWidth(width)
	m.input.SetWidth(width)

	// title, border, input box, status bar and help
	reserved := 1 + 1 + 3 + 1 + lipgloss.Height(m.help.View(m.keys))
	m.terminal.SetSize(width, max(height-reserved, 3))
}

func (m *ListenModel) View() string {
	title := styles.TitleStyle.Render("serialport listen " + m.port.Path())
	lines := lipgloss.JoinHorizontal(lipgloss.Left, " ",
		styles.Signal("RTS", m.rts), " ", styles.Signal("DTR", m.dtr))
	if !m.terminal.Following() {
		lines += styles.MutedStyle.Render("  (scrolled, f to follow)")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Left, title, lines),
		styles.ContentBorderStyle.Width(m.width).Render(m.terminal.View()),
		m.input.View(m.mode == InputModeInsert),
		m.statusBar.View(m.mode.String(), m.input.SendingMode(), m.now.Format("15:04:05")),
		m.help.View(m.keys),
	)
}
