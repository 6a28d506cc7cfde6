package console

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/devwatch/internal/device"
	"github.com/muurk/devwatch/internal/logging"
)

// Format selects how devices are printed
type Format string

const (
	FormatDetailed Format = "detailed"
	FormatCompact  Format = "compact"
	FormatJSON     Format = "json"
)

// Formats lists the supported formats
var Formats = []Format{FormatDetailed, FormatCompact, FormatJSON}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want detailed, compact or json)", s)
}

// Printer renders devices as text on a writer. It implements device.View.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
	styles styles
	width  int
}

// NewPrinter creates a Printer. An unknown format falls back to detailed.
func NewPrinter(w io.Writer, format Format) *Printer {
	if _, err := ParseFormat(string(format)); err != nil {
		format = FormatDetailed
	}
	return &Printer{
		w:      w,
		format: format,
		styles: newStyles(lipgloss.NewRenderer(w)),
		width:  terminalWidth(w),
	}
}

// DisplayDevices prints each device in the batch. Write errors are logged
// and otherwise ignored.
func (p *Printer) DisplayDevices(devices []device.Device) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, d := range devices {
		var err error
		switch p.format {
		case FormatJSON:
			err = json.NewEncoder(p.w).Encode(d)
		case FormatCompact:
			_, err = fmt.Fprintln(p.w, formatCompact(d))
		default:
			_, err = io.WriteString(p.w, p.formatDetailed(d))
		}
		if err != nil {
			logging.Debug("Failed to write device", zap.String("sn", d.SN), zap.Error(err))
			return
		}
	}
}

func (p *Printer) formatDetailed(d device.Device) string {
	var b strings.Builder
	s := p.styles

	b.WriteString(s.rule.Render(strings.Repeat("─", p.width)))
	b.WriteString("\n")
	b.WriteString(s.title.Render("Device " + orDash(d.SN)))
	b.WriteString("\n")

	row := func(label, value string, vs lipgloss.Style) {
		b.WriteString(s.label.Render(label + ":"))
		b.WriteString(vs.Render(value))
		b.WriteString("\n")
	}
	row("Hardware", orDash(d.HW), s.value)
	row("Version", orDash(d.Version), s.value)
	row("Uptime", d.Uptime().String(), s.value)
	row("Observed", d.ObservedAt().UTC().Format(time.RFC3339), s.value)
	if d.Custom != "" {
		row("Custom", d.Custom, s.custom)
	}
	return b.String()
}

func formatCompact(d device.Device) string {
	return fmt.Sprintf("%s hw=%s version=%s uptime=%ds ts=%d custom=%q",
		orDash(d.SN), orDash(d.HW), orDash(d.Version), d.UptimeSeconds, d.UnixEpoch, d.Custom)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// terminalWidth returns the separator width for w
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return DefaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

var _ device.View = (*Printer)(nil)
