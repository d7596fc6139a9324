package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/onvifprobe/internal/discovery"
)

// DeviceMsg carries a device event into the watch view.
// Bus subscribers deliver it through tea.Program.Send.
type DeviceMsg struct{ Device *discovery.Device }

// ErrorMsg carries an error event into the watch view
type ErrorMsg struct{ Event discovery.ErrorEvent }

// DoneMsg reports the end of a session
type DoneMsg struct {
	Devices []*discovery.Device
	Err     error
}

type scanStartedMsg struct{ session *discovery.Session }

type tickMsg time.Time

// Scanner starts one discovery session for the watch view
type Scanner func() *discovery.Session

// watchKeyMap defines key bindings for the watch view
type watchKeyMap struct {
	Rescan key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Rescan, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Rescan, k.Quit}}
}

// WatchModel is a Bubble Tea model showing devices as they are discovered
type WatchModel struct {
	scan    Scanner
	spinner spinner.Model
	bar     progress.Model
	help    help.Model
	keys    watchKeyMap

	startedAt time.Time
	deadline  time.Time
	now       time.Time
	rounds    int

	devices  []*discovery.Device
	errors   []discovery.ErrorEvent
	scanErr  error
	scanning bool
	width    int
}

// NewWatchModel creates a watch view that runs scan on start and on rescan
func NewWatchModel(scan Scanner) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	return WatchModel{
		scan:    scan,
		spinner: s,
		bar:     bar,
		help:    help.New(),
		keys: watchKeyMap{
			Rescan: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "rescan"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "ctrl+c", "esc"),
				key.WithHelp("q", "quit"),
			),
		},
		width: GetTerminalWidth(),
	}
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startScan())
}

func (m WatchModel) startScan() tea.Cmd {
	scan := m.scan
	return func() tea.Msg {
		return scanStartedMsg{session: scan()}
	}
}

func waitForSession(s *discovery.Session) tea.Cmd {
	return func() tea.Msg {
		devices, err := s.Wait()
		return DoneMsg{Devices: devices, Err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Rescan) && !m.scanning:
			// Events from the new session can arrive before scanStartedMsg
			m.devices = nil
			m.errors = nil
			m.scanErr = nil
			m.scanning = true
			return m, m.startScan()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width, nil)
		m.bar.Width = m.width - 30
		return m, nil

	case scanStartedMsg:
		m.rounds++
		m.scanning = true
		m.startedAt = time.Now()
		m.now = m.startedAt
		m.deadline = msg.session.Deadline()
		return m, tea.Batch(waitForSession(msg.session), tick())

	case DeviceMsg:
		m.devices = append(m.devices, msg.Device)
		return m, nil

	case ErrorMsg:
		m.errors = append(m.errors, msg.Event)
		return m, nil

	case DoneMsg:
		m.scanning = false
		m.scanErr = msg.Err
		// The session result is authoritative if events were missed
		if len(msg.Devices) > len(m.devices) {
			m.devices = msg.Devices
		}
		return m, nil

	case tickMsg:
		if !m.scanning {
			return m, nil
		}
		m.now = time.Time(msg)
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// Percent returns how much of the current session's timeout has elapsed
func (m WatchModel) Percent() float64 {
	if !m.scanning {
		return 1
	}
	total := m.deadline.Sub(m.startedAt)
	if total <= 0 {
		return 1
	}
	p := float64(m.now.Sub(m.startedAt)) / float64(total)
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

// Devices returns the devices shown by the view
func (m WatchModel) Devices() []*discovery.Device {
	return m.devices
}

// Scanning reports whether a session is in progress
func (m WatchModel) Scanning() bool {
	return m.scanning
}

// View implements tea.Model
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(HeaderTitleStyle.Render("ONVIF DISCOVERY"))
	b.WriteString(MutedStyle.Render(fmt.Sprintf("  round %d", m.rounds)))
	b.WriteString("\n\n")

	if m.scanning {
		fmt.Fprintf(&b, "  %s Probing... %s\n\n", m.spinner.View(), m.bar.ViewAs(m.Percent()))
	} else {
		status := SuccessTitleStyle.Render(fmt.Sprintf("%s %d devices", SuccessMarker, len(m.devices)))
		if m.scanErr != nil {
			status = WarningTitleStyle.Render(fmt.Sprintf("%s %d devices, %s", WarningMarker, len(m.devices), m.scanErr))
		}
		b.WriteString("  " + status + "\n\n")
	}

	for _, d := range m.devices {
		b.WriteString("  " + RenderDeviceLine(d) + "\n")
	}
	for _, ev := range m.errors {
		b.WriteString("  " + RenderErrorLine(ev) + "\n")
	}
	if len(m.devices) == 0 && len(m.errors) == 0 && !m.scanning {
		b.WriteString(MutedStyle.Render("  No devices answered.") + "\n")
	}

	b.WriteString("\n  " + m.help.View(m.keys) + "\n")
	return b.String()
}
