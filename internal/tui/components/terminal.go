package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// maxTraffic bounds the scrollback so long sessions do not grow unbounded
const maxTraffic = 5000

// Terminal is a scrolling log of port traffic
type Terminal struct {
	viewport  viewport.Model
	formatter *Formatter
	traffic   []Traffic
	follow    bool
}

func NewTerminal(width, height int, mode DisplayMode) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewFormatter(mode),
		follow:    true,
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
	t.refresh()
}

// Add appends a chunk of traffic
func (t *Terminal) Add(entry Traffic) {
	t.traffic = append(t.traffic, entry)
	if len(t.traffic) > maxTraffic {
		t.traffic = t.traffic[len(t.traffic)-maxTraffic:]
	}
	t.refresh()
}

// Resolve updates the write state of a queued TX entry
func (t *Terminal) Resolve(id int, err error) {
	for i := len(t.traffic) - 1; i >= 0; i-- {
		e := &t.traffic[i]
		if e.Direction != TX || e.ID != id {
			continue
		}
		if err != nil {
			e.State = WriteFailed
			e.Err = err
		} else {
			e.State = WriteDone
		}
		break
	}
	t.refresh()
}

func (t *Terminal) Traffic() []Traffic { return t.traffic }

func (t *Terminal) Clear() {
	t.traffic = nil
	t.refresh()
}

func (t *Terminal) ToggleHex()   { t.formatter.ToggleHex(); t.refresh() }
func (t *Terminal) ToggleASCII() { t.formatter.ToggleASCII(); t.refresh() }
func (t *Terminal) ToggleTime()  { t.formatter.ToggleTime(); t.refresh() }

func (t *Terminal) Mode() DisplayMode { return t.formatter.Mode() }

// Following reports whether the view sticks to the newest traffic
func (t *Terminal) Following() bool { return t.follow }

func (t *Terminal) Follow() {
	t.follow = true
	t.viewport.GotoBottom()
}

// ScrollUp leaves follow mode
func (t *Terminal) ScrollUp(lines int) {
	t.follow = false
	t.viewport.ScrollUp(lines)
}

func (t *Terminal) ScrollDown(lines int) {
	t.viewport.ScrollDown(lines)
	if t.viewport.AtBottom() {
		t.follow = true
	}
}

func (t *Terminal) refresh() {
	lines := make([]string, len(t.traffic))
	for i, entry := range t.traffic {
		lines[i] = t.formatter.Format(entry)
	}
	t.viewport.SetContent(strings.Join(lines, "\n"))
	if t.follow {
		t.viewport.GotoBottom()
	}
}

func (t *Terminal) Update(msg tea.Msg) tea.Cmd {
	// Key handling stays with the owning model
	if _, ok := msg.(tea.MouseMsg); ok {
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		t.follow = t.viewport.AtBottom()
		return cmd
	}
	return nil
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
