package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/serialport"
	"github.com/allbin/serialport/internal/tui/styles"
)

// StatusBar is the bottom line of the listen view
type StatusBar struct {
	portPath string
	config   serialport.Config
	status   styles.StatusType
	remote   *serialport.RemoteStatus
	message  string
	width    int
}

func NewStatusBar(portPath string, config serialport.Config) *StatusBar {
	return &StatusBar{portPath: portPath, config: config, status: styles.StatusConnecting}
}

func (sb *StatusBar) SetWidth(width int) { sb.width = width }

func (sb *StatusBar) SetConfig(config serialport.Config) { sb.config = config }

func (sb *StatusBar) SetStatus(status styles.StatusType, message string) {
	sb.status = status
	sb.message = message
}

func (sb *StatusBar) SetRemote(remote serialport.RemoteStatus) { sb.remote = &remote }

func (sb *StatusBar) Status() styles.StatusType { return sb.status }
func (sb *StatusBar) Message() string           { return sb.message }

// FrameString renders the line settings as in 115200 8N1
func FrameString(cfg serialport.Config) string {
	s := fmt.Sprintf("%d %d%s%s", cfg.BaudRate, cfg.DataBits,
		strings.ToUpper(cfg.Parity.String()[:1]), cfg.StopBits)
	if cfg.RTSCTS {
		s += " RTS/CTS"
	}
	if cfg.XOn || cfg.XOff {
		s += " XON/XOFF"
	}
	return s
}

func (sb *StatusBar) View(mode string, sending SendingMode, clock string) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}

	divider := styles.MutedStyle.Padding(0, 1).Render("│")
	left := []string{
		styles.ModeColor(mode).Render(mode),
		styles.InfoStyle.Padding(0, 1).Render(sb.portPath),
		styles.GetStatusStyle(sb.status).Render(statusGlyph(sb.status)),
	}
	if mode == "INSERT" {
		left = append(left, styles.TXStyle.Padding(0, 1).Render(fmt.Sprintf("[%s] Tab to toggle", sending)))
	}
	if sb.message != "" {
		left = append(left, styles.LabelStyle.Padding(0, 1).Render(sb.message))
	}
	left = append(left, divider)

	details := "⚡ " + FrameString(sb.config)
	if sb.remote != nil {
		details += " " + strings.Join([]string{
			styles.Signal("CTS", sb.remote.CTS),
			styles.Signal("DSR", sb.remote.DSR),
			styles.Signal("DCD", sb.remote.DCD),
		}, " ")
	}
	right := lipgloss.JoinHorizontal(lipgloss.Left,
		styles.LabelStyle.Padding(0, 1).Render(details), divider,
		styles.LabelStyle.Padding(0, 1).Render(clock))

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)
	spacer := lipgloss.NewStyle().
		Width(max(width-lipgloss.Width(leftSide)-lipgloss.Width(right), 1)).
		Render("")

	return styles.StatusBarStyle.Width(width).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, right))
}

func statusGlyph(s styles.StatusType) string {
	switch s {
	case styles.StatusConnected:
		return "●"
	case styles.StatusError:
		return "✗"
	default:
		return "○"
	}
}
