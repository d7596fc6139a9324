package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muurk/onvifprobe/internal/discovery"
)

// Printer writes discovery output to a writer in one of the CLI formats.
// This is the primary way commands should output styled content.
type Printer struct {
	out    io.Writer
	width  int
	format string
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used. An empty format means "detailed".
func NewPrinter(w io.Writer, format string) *Printer {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "detailed"
	}
	return &Printer{
		out:    w,
		width:  GetTerminalWidth(),
		format: format,
	}
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Format returns the output format
func (p *Printer) Format() string {
	return p.format
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints the run banner. Suppressed for json output.
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	if p.format == "json" {
		return
	}
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
}

// PrintDevice prints one device as it is discovered
func (p *Printer) PrintDevice(d *discovery.Device) {
	switch p.format {
	case "json":
		return
	case "compact":
		p.Println(RenderDeviceLine(d))
	default:
		p.Println(RenderDevice(d, p.width))
	}
}

// PrintErrorEvent prints one bad reply
func (p *Printer) PrintErrorEvent(ev discovery.ErrorEvent) {
	if p.format == "json" {
		return
	}
	p.Println(RenderErrorLine(ev))
}

// PrintResult prints the end of a run: a summary box, or the JSON document
func (p *Printer) PrintResult(messageID string, devices []*discovery.Device, err error, elapsed time.Duration) error {
	if p.format == "json" {
		var errs []string
		if err != nil {
			errs = append(errs, errorMessages(err)...)
		}
		return WriteJSON(p.out, messageID, devices, errs)
	}
	p.Println(NewSummary(devices, err, elapsed).SetWidth(p.width).Render())
	return nil
}

// errorMessages flattens a session error into one message per bad reply
func errorMessages(err error) []string {
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		var msgs []string
		for _, e := range multi.Unwrap() {
			msgs = append(msgs, errorMessages(e)...)
		}
		return msgs
	}
	return []string{err.Error()}
}
