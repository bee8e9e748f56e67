package models

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"

	"github.com/allbin/serialport"
	"github.com/allbin/serialport/internal/tui/components"
	"github.com/allbin/serialport/internal/tui/keys"
	"github.com/allbin/serialport/internal/tui/styles"
)

// Lister is the discovery half of a binding
type Lister interface {
	List(ctx context.Context) ([]serialport.PortDescriptor, error)
}

type portsMsg struct {
	ports []serialport.PortDescriptor
	err   error
}

// PortsModel is an interactive port picker
type PortsModel struct {
	ctx      context.Context
	lister   Lister
	table    table.Model
	keys     keys.PortsKeys
	help     help.Model
	count    int
	err      error
	width    int
	selected string
}

func NewPortsModel(ctx context.Context, lister Lister) *PortsModel {
	return &PortsModel{
		ctx:    ctx,
		lister: lister,
		table:  components.PortsTable(nil, 80),
		keys:   keys.NewPortsKeys(),
		help:   help.New(),
		width:  80,
	}
}

// Selected is the path chosen with enter, empty when the user quit
func (m *PortsModel) Selected() string { return m.selected }

func (m *PortsModel) Init() tea.Cmd { return m.refresh() }

func (m *PortsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		ports, err := m.lister.List(m.ctx)
		return portsMsg{ports: ports, err: err}
	}
}

func (m *PortsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.table = m.table.WithTargetWidth(msg.Width)
		return m, nil

	case portsMsg:
		m.err = msg.err
		m.count = len(msg.ports)
		m.table = m.table.WithRows(components.PortRows(msg.ports))
		return m, nil

	case tea.KeyMsg:
		// Filter input owns the keyboard while it is active
		if !m.table.GetIsFilterInputFocused() {
			switch {
			case key.Matches(msg, m.keys.Quit):
				return m, tea.Quit
			case key.Matches(msg, m.keys.Help):
				m.help.ShowAll = !m.help.ShowAll
				return m, nil
			case key.Matches(msg, m.keys.Refresh):
				return m, m.refresh()
			case key.Matches(msg, m.keys.Select):
				if m.count > 0 {
					m.selected = components.SelectedPath(m.table)
					return m, tea.Quit
				}
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *PortsModel) View() string {
	header := styles.TitleStyle.Render("Serial ports")
	var body string
	switch {
	case m.err != nil:
		body = styles.ErrorStyle.Render("Error: " + m.err.Error())
	case m.count == 0:
		body = styles.MutedStyle.Render("No serial ports found. Press r to refresh.")
	default:
		body = m.table.View()
	}
	footer := styles.MutedStyle.Render("/ to filter") + "  " + m.help.View(m.keys)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
