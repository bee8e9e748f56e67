package keys

import "github.com/charmbracelet/bubbles/key"

// Common key bindings used across TUI commands
type CommonKeys struct {
	Quit key.Binding
	Help key.Binding
}

func NewCommonKeys() CommonKeys {
	return CommonKeys{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

// ListenKeys drive the listen view: a scrolling receive log with an input
// line for sending
type ListenKeys struct {
	CommonKeys
	InsertMode     key.Binding
	Escape         key.Binding
	Enter          key.Binding
	ToggleSendMode key.Binding
	HistoryUp      key.Binding
	HistoryDown    key.Binding
	Clear          key.Binding
	ToggleHex      key.Binding
	ToggleASCII    key.Binding
	ToggleTime     key.Binding
	Follow         key.Binding
	RTS            key.Binding
	DTR            key.Binding
}

func NewListenKeys() ListenKeys {
	return ListenKeys{
		CommonKeys: NewCommonKeys(),
		InsertMode: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "insert mode"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "normal mode"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		ToggleSendMode: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "ascii/hex input"),
		),
		HistoryUp: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "previous"),
		),
		HistoryDown: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "next"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear"),
		),
		ToggleHex: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "toggle hex"),
		),
		ToggleASCII: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle ascii"),
		),
		ToggleTime: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "timestamps"),
		),
		Follow: key.NewBinding(
			key.WithKeys("f", "G"),
			key.WithHelp("f", "follow"),
		),
		RTS: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "toggle RTS"),
		),
		DTR: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "toggle DTR"),
		),
	}
}

func (k ListenKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.InsertMode, k.Clear, k.Quit}
}

func (k ListenKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.InsertMode, k.Escape, k.Enter, k.ToggleSendMode},
		{k.HistoryUp, k.HistoryDown, k.Follow, k.Clear},
		{k.ToggleHex, k.ToggleASCII, k.ToggleTime},
		{k.RTS, k.DTR, k.Help, k.Quit},
	}
}

// PortsKeys drive the interactive port table
type PortsKeys struct {
	CommonKeys
	Select  key.Binding
	Refresh key.Binding
}

func NewPortsKeys() PortsKeys {
	return PortsKeys{
		CommonKeys: NewCommonKeys(),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
	}
}

func (k PortsKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Refresh, k.Quit}
}

func (k PortsKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Select, k.Refresh}, {k.Help, k.Quit}}
}
