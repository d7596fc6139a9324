package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/muurk/onvifprobe/internal/discovery"
)

// ResultType indicates how a discovery run ended
type ResultType int

const (
	ResultSuccess ResultType = iota // Devices found, no bad replies
	ResultWarning                   // Bad replies or no devices
	ResultFailure                   // Socket failure
)

// Summary is the box printed after a discovery run
type Summary struct {
	Type            ResultType
	Title           string
	Details         []Param
	Error           error
	Troubleshooting []string
	Width           int
}

// NewSummary classifies the outcome of a session
func NewSummary(devices []*discovery.Device, err error, elapsed time.Duration) *Summary {
	s := &Summary{
		Width: GetTerminalWidth(),
		Details: []Param{
			{Key: "Devices", Value: fmt.Sprintf("%d", len(devices))},
			{Key: "Elapsed", Value: elapsed.Round(time.Millisecond).String()},
		},
	}

	var pe *discovery.ProbeError
	var respErr *discovery.ResponseErrors
	switch {
	case errors.As(err, &pe) && pe.IsFatal():
		s.Type = ResultFailure
		s.Title = "Discovery failed"
		s.Error = err
		s.Troubleshooting = []string{
			"Check that the network interface is up and supports multicast",
			"Use --interface to pick the interface facing the cameras",
			"Set ONVIFPROBE_LOG_LEVEL=debug for socket details",
		}
	case errors.As(err, &respErr):
		s.Type = ResultWarning
		s.Title = fmt.Sprintf("Discovery finished with %d bad replies", len(respErr.Errors))
		s.Error = err
	case err != nil:
		s.Type = ResultWarning
		s.Title = "Discovery interrupted"
		s.Error = err
	case len(devices) == 0:
		s.Type = ResultWarning
		s.Title = "No devices found"
		s.Troubleshooting = []string{
			"Cameras must be on the same network segment",
			"Firewalls must allow UDP replies to the probe socket",
			"Try a longer --timeout",
		}
	default:
		s.Type = ResultSuccess
		s.Title = "Discovery complete"
	}
	return s
}

// SetWidth sets the terminal width for responsive rendering
func (s *Summary) SetWidth(width int) *Summary {
	s.Width = width
	return s
}

// Render returns the styled summary box
func (s *Summary) Render() string {
	width := s.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var title string
	color := SuccessColor
	switch s.Type {
	case ResultFailure:
		title = ErrorTitleStyle.Render(fmt.Sprintf("%s  FAILED  ─  %s", FailureMarker, s.Title))
		color = ErrorColor
	case ResultWarning:
		title = WarningTitleStyle.Render(fmt.Sprintf("%s  WARNING  ─  %s", WarningMarker, s.Title))
		color = WarningColor
	default:
		title = SuccessTitleStyle.Render(fmt.Sprintf("%s  SUCCESS  ─  %s", SuccessMarker, s.Title))
	}

	lines := []string{"", title, ""}
	for _, d := range s.Details {
		lines = append(lines, FieldKeyStyle.Render(d.Key+":")+" "+FieldValueStyle.Render(d.Value))
	}

	if s.Error != nil {
		lines = append(lines, "", ErrorMessageStyle.Render("Error: "+s.Error.Error()))
	}

	if len(s.Troubleshooting) > 0 {
		lines = append(lines, "", TroubleshootingTitleStyle.Render("Troubleshooting:"))
		for _, tip := range s.Troubleshooting {
			lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
		}
	}
	lines = append(lines, "")

	return boxStyle(color, width).Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (s *Summary) String() string {
	return s.Render()
}
