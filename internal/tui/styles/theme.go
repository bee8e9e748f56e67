package styles

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha, limited to the shades the terminal views use
var (
	surface0 = lipgloss.Color("#313244")
	surface1 = lipgloss.Color("#45475a")
	surface2 = lipgloss.Color("#585b70")
	overlay0 = lipgloss.Color("#6c7086")
	subtext0 = lipgloss.Color("#a6adc8")
	text     = lipgloss.Color("#cdd6f4")
	blue     = lipgloss.Color("#89b4fa")
	teal     = lipgloss.Color("#94e2d5")
	green    = lipgloss.Color("#a6e3a1")
	yellow   = lipgloss.Color("#f9e2af")
	peach    = lipgloss.Color("#fab387")
	red      = lipgloss.Color("#f38ba8")
	mauve    = lipgloss.Color("#cba6f7")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(mauve).
			Background(surface0).
			Padding(0, 1)

	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(surface1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(surface2).
			Padding(0, 1)

	FocusedInputStyle = InputStyle.BorderForeground(mauve)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(red)

	InfoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(mauve)

	MutedStyle = lipgloss.NewStyle().Foreground(overlay0)
	LabelStyle = lipgloss.NewStyle().Foreground(subtext0)
	ValueStyle = lipgloss.NewStyle().Foreground(text)

	// Traffic direction markers
	TXStyle = lipgloss.NewStyle().Foreground(peach).Bold(true)
	RXStyle = lipgloss.NewStyle().Foreground(teal).Bold(true)

	SignalOnStyle  = lipgloss.NewStyle().Foreground(green).Bold(true)
	SignalOffStyle = lipgloss.NewStyle().Foreground(surface2)

	TableHeaderStyle    = lipgloss.NewStyle().Bold(true).Foreground(blue)
	TableHighlightStyle = lipgloss.NewStyle().Foreground(mauve).Background(surface0)
	TableBorderColor    = surface1

	StatusBarStyle = lipgloss.NewStyle().Background(surface0).Foreground(text)
	ModeStyle      = lipgloss.NewStyle().Bold(true).Foreground(surface0).Padding(0, 1)
)

type StatusType int

const (
	StatusConnected StatusType = iota
	StatusDisconnected
	StatusConnecting
	StatusError
)

func (s StatusType) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusConnecting:
		return "connecting"
	case StatusError:
		return "error"
	default:
		return "disconnected"
	}
}

func GetStatusStyle(status StatusType) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch status {
	case StatusConnected:
		return style.Foreground(green)
	case StatusConnecting:
		return style.Foreground(yellow)
	default:
		return style.Foreground(red)
	}
}

// ModeColor colors the mode badge of the status bar
func ModeColor(mode string) lipgloss.Style {
	switch mode {
	case "INSERT":
		return ModeStyle.Background(green)
	case "VISUAL":
		return ModeStyle.Background(peach)
	default:
		return ModeStyle.Background(blue)
	}
}

// Signal renders a modem line name colored by its state
func Signal(name string, on bool) string {
	if on {
		return SignalOnStyle.Render("●" + name)
	}
	return SignalOffStyle.Render("○" + name)
}
