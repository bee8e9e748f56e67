package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/serialport/internal/tui/styles"
)

// Direction of a chunk of traffic as seen from this end of the line
type Direction int

const (
	RX Direction = iota
	TX
)

// WriteState tracks a transmitted chunk through the write queue
type WriteState int

const (
	WritePending WriteState = iota
	WriteDone
	WriteFailed
)

// Traffic is one chunk of bytes read from or queued to the port
type Traffic struct {
	ID        int
	Timestamp time.Time
	Direction Direction
	Data      []byte
	State     WriteState // TX only
	Err       error
}

type DisplayMode struct {
	ShowHex   bool
	ShowASCII bool
	ShowTime  bool
}

// Formatter renders traffic lines for the terminal view
type Formatter struct {
	mode DisplayMode
}

func NewFormatter(mode DisplayMode) *Formatter {
	return &Formatter{mode: mode}
}

func (f *Formatter) Mode() DisplayMode { return f.mode }

func (f *Formatter) ToggleHex()   { f.mode.ShowHex = !f.mode.ShowHex }
func (f *Formatter) ToggleASCII() { f.mode.ShowASCII = !f.mode.ShowASCII }
func (f *Formatter) ToggleTime()  { f.mode.ShowTime = !f.mode.ShowTime }

func (f *Formatter) Format(t Traffic) string {
	var b strings.Builder
	if f.mode.ShowTime {
		b.WriteString(styles.MutedStyle.Render(t.Timestamp.Format("[15:04:05.000]")))
		b.WriteByte(' ')
	}
	b.WriteString(indicator(t))
	b.WriteString(": ")

	var parts []string
	if f.mode.ShowHex {
		parts = append(parts, "HEX: "+HexString(t.Data))
	}
	if f.mode.ShowASCII {
		parts = append(parts, "ASCII: "+PrintableASCII(t.Data))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(t.Data)))
	}
	b.WriteString(strings.Join(parts, "  "))

	if t.Err != nil {
		b.WriteString("  ")
		b.WriteString(styles.ErrorStyle.Render(t.Err.Error()))
	}
	return b.String()
}

func indicator(t Traffic) string {
	if t.Direction == RX {
		return styles.RXStyle.Render("↙ RX")
	}
	switch t.State {
	case WritePending:
		return styles.MutedStyle.Render("↗ TX ○")
	case WriteFailed:
		return styles.ErrorStyle.Render("↗ TX ✗")
	default:
		return styles.TXStyle.Render("↗ TX ✓")
	}
}

// HexString renders bytes as space separated upper case hex pairs
func HexString(data []byte) string {
	return fmt.Sprintf("% X", data)
}

// PrintableASCII replaces everything outside printable ASCII with a dot so
// device output can never inject terminal control sequences
func PrintableASCII(data []byte) string {
	out := make([]byte, len(data))
	for i, c := range data {
		if c >= 32 && c <= 126 {
			out[i] = c
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
