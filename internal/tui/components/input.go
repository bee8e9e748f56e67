package components

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/serialport/internal/tui/styles"
)

const historyLimit = 100

type SendingMode int

const (
	SendingModeASCII SendingMode = iota
	SendingModeHex
)

func (s SendingMode) String() string {
	if s == SendingModeHex {
		return "HEX"
	}
	return "ASCII"
}

// Input is the send line of the listen view with per-session history
type Input struct {
	textInput    textinput.Model
	sendingMode  SendingMode
	appendCRLF   bool
	history      []string
	historyIndex int
	draft        string
	width        int
}

func NewInput(mode SendingMode, appendCRLF bool) *Input {
	ti := textinput.New()
	ti.CharLimit = 512
	ti.Prompt = ""
	i := &Input{
		textInput:    ti,
		sendingMode:  mode,
		appendCRLF:   appendCRLF,
		historyIndex: -1,
	}
	i.setPlaceholder()
	return i
}

func (i *Input) setPlaceholder() {
	if i.sendingMode == SendingModeHex {
		i.textInput.Placeholder = "Enter hex (e.g. 48656C6C6F or 48 65 6C 6C 6F)..."
	} else {
		i.textInput.Placeholder = "Type message and press Enter to send..."
	}
}

func (i *Input) SetWidth(width int) {
	i.width = width
	// border, padding, prompt and a space
	i.textInput.Width = max(width-6, 20)
}

func (i *Input) Focus() tea.Cmd { return i.textInput.Focus() }
func (i *Input) Blur()          { i.textInput.Blur() }

func (i *Input) Value() string         { return i.textInput.Value() }
func (i *Input) SetValue(value string) { i.textInput.SetValue(value) }

func (i *Input) SendingMode() SendingMode { return i.sendingMode }

func (i *Input) ToggleSendingMode() {
	if i.sendingMode == SendingModeASCII {
		i.sendingMode = SendingModeHex
	} else {
		i.sendingMode = SendingModeASCII
	}
	i.setPlaceholder()
}

// Payload converts the current line into the bytes to transmit
func (i *Input) Payload() ([]byte, error) {
	value := i.textInput.Value()
	if i.sendingMode == SendingModeHex {
		return ParseHex(value)
	}
	data := []byte(value)
	if i.appendCRLF {
		data = append(data, '\r', '\n')
	}
	return data, nil
}

// ParseHex decodes hex digits, ignoring whitespace, colons and 0x prefixes
func ParseHex(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, "0x", "")
	s = strings.ReplaceAll(s, "0X", "")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', ':', ',', '\r', '\n':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, fmt.Errorf("empty hex string")
	}
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even number of characters")
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %w", err)
	}
	return data, nil
}

func (i *Input) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return cmd
}

func (i *Input) View(insertMode bool) string {
	prompt := styles.RXStyle.Render(">")
	if i.sendingMode == SendingModeHex {
		prompt = styles.TXStyle.Render("#")
	}

	var body string
	if insertMode {
		body = i.textInput.View()
	} else {
		body = styles.MutedStyle.Render("Press 'i' to enter insert mode")
	}

	style := styles.InputStyle
	if insertMode {
		style = styles.FocusedInputStyle
	}
	return style.Width(max(i.width-4, 10)).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", body))
}

// AddToHistory records a sent line unless it is blank or repeats the last one
func (i *Input) AddToHistory(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if n := len(i.history); n == 0 || i.history[n-1] != line {
		i.history = append(i.history, line)
		if len(i.history) > historyLimit {
			i.history = i.history[1:]
		}
	}
	i.historyIndex = -1
	i.draft = ""
}

func (i *Input) HistoryUp() {
	if len(i.history) == 0 {
		return
	}
	if i.historyIndex == -1 {
		i.draft = i.textInput.Value()
		i.historyIndex = len(i.history) - 1
	} else if i.historyIndex > 0 {
		i.historyIndex--
	}
	i.textInput.SetValue(i.history[i.historyIndex])
}

func (i *Input) HistoryDown() {
	if i.historyIndex == -1 {
		return
	}
	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.textInput.SetValue(i.history[i.historyIndex])
		return
	}
	i.historyIndex = -1
	i.textInput.SetValue(i.draft)
	i.draft = ""
}
