package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/onvifprobe/internal/discovery"
	"github.com/muurk/onvifprobe/internal/protocol"
)

func resolvedDevice(t *testing.T) *discovery.Device {
	t.Helper()
	m := protocol.ProbeMatch{
		EndpointAddress: "urn:uuid:cam-1",
		Types:           []string{protocol.TypeNetworkVideoTransmitter},
		Scopes:          []string{discovery.ScopeURI("name", "Lobby"), discovery.ScopeURI("hardware", "M1054")},
		XAddrs:          []string{"http://10.0.0.5/onvif/device_service"},
	}
	h, err := discovery.Resolve(&m)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return &discovery.Device{Kind: discovery.KindHandle, Match: m, Handle: h, Source: "10.0.0.5:3702"}
}

func infoDevice() *discovery.Device {
	return &discovery.Device{
		Kind:   discovery.KindInfo,
		Match:  protocol.ProbeMatch{EndpointAddress: "urn:uuid:cam-2", XAddrs: []string{"http://10.0.0.6/svc"}},
		Source: "10.0.0.6:3702",
	}
}

func TestRenderDevice(t *testing.T) {
	out := RenderDevice(resolvedDevice(t), 80)
	for _, want := range []string{"Lobby", "10.0.0.5", "M1054", "urn:uuid:cam-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderDevice() missing %q:\n%s", want, out)
		}
	}

	out = RenderDevice(infoDevice(), 80)
	if !strings.Contains(out, "urn:uuid:cam-2") || !strings.Contains(out, "XAddrs") {
		t.Errorf("RenderDevice(info) missing fields:\n%s", out)
	}
}

func TestRenderDeviceLine(t *testing.T) {
	line := RenderDeviceLine(resolvedDevice(t))
	if strings.Contains(line, "\n") {
		t.Error("RenderDeviceLine() should be a single line")
	}
	if !strings.Contains(line, "http://10.0.0.5:80/onvif/device_service") {
		t.Errorf("RenderDeviceLine() = %q", line)
	}
}

func TestRenderErrorLine(t *testing.T) {
	line := RenderErrorLine(discovery.ErrorEvent{
		Message: "Wrong SOAP message from 10.0.0.9:3702: not well-formed XML",
		Payload: "lollipop",
	})
	if !strings.Contains(line, "Wrong SOAP message") || !strings.Contains(line, `"lollipop"`) {
		t.Errorf("RenderErrorLine() = %q", line)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, "e7707", []*discovery.Device{resolvedDevice(t), infoDevice()}, []string{"bad"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var doc ResultJSON
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if doc.MessageID != "e7707" || len(doc.Devices) != 2 || len(doc.Errors) != 1 {
		t.Fatalf("doc = %+v", doc)
	}
	if doc.Devices[0].Handle == nil || doc.Devices[0].Handle.Port != 80 {
		t.Errorf("handle = %+v", doc.Devices[0].Handle)
	}
	if doc.Devices[1].Kind != "info" || doc.Devices[1].Handle != nil {
		t.Errorf("info device = %+v", doc.Devices[1])
	}
}

func TestNewSummary(t *testing.T) {
	devices := []*discovery.Device{infoDevice()}

	tests := []struct {
		name    string
		devices []*discovery.Device
		err     error
		want    ResultType
	}{
		{"clean", devices, nil, ResultSuccess},
		{"none found", nil, nil, ResultWarning},
		{"bad replies", devices, &discovery.ResponseErrors{Errors: []*discovery.ProbeError{{Type: discovery.ErrTypeMalformedPayload}}}, ResultWarning},
		{"transport", nil, &discovery.ProbeError{Type: discovery.ErrTypeTransport, Op: "send"}, ResultFailure},
		{"cancelled", devices, context.Canceled, ResultWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSummary(tt.devices, tt.err, time.Second)
			if s.Type != tt.want {
				t.Errorf("Type = %v, want %v", s.Type, tt.want)
			}
			if out := s.SetWidth(80).Render(); !strings.Contains(out, s.Title) {
				t.Errorf("Render() missing title %q", s.Title)
			}
		})
	}
}

func TestPrinter_JSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "json")

	p.PrintHeader("ONVIF Discovery", "onvif-probe probe")
	p.PrintDevice(infoDevice())
	p.PrintErrorEvent(discovery.ErrorEvent{Message: "x"})
	if buf.Len() != 0 {
		t.Fatalf("json printer wrote before the result: %q", buf.String())
	}

	err := errors.Join(context.Canceled, &discovery.ResponseErrors{Errors: []*discovery.ProbeError{
		{Type: discovery.ErrTypeMalformedPayload, Message: "a"},
		{Type: discovery.ErrTypeMalformedPayload, Message: "b"},
	}})
	if err := p.PrintResult("id", []*discovery.Device{infoDevice()}, err, time.Second); err != nil {
		t.Fatalf("PrintResult() error = %v", err)
	}

	var doc ResultJSON
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(doc.Errors) != 3 {
		t.Errorf("errors = %v, want cancel plus two bad replies", doc.Errors)
	}
}

func TestPrinter_Compact(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "compact").SetWidth(80)
	p.PrintDevice(infoDevice())

	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("compact output = %q, want one line", buf.String())
	}
}

func TestWatchModel_Flow(t *testing.T) {
	var m tea.Model = NewWatchModel(func() *discovery.Session { return nil })

	session := discovery.Start(context.Background(),
		discovery.WithTarget("127.0.0.1:9"),
		discovery.WithBus(discovery.NewBus()),
		discovery.WithTimeout(50*time.Millisecond),
	)
	defer session.Wait()

	m, _ = m.Update(scanStartedMsg{session: session})
	if !m.(WatchModel).Scanning() {
		t.Fatal("model should be scanning after a session starts")
	}

	m, _ = m.Update(DeviceMsg{Device: infoDevice()})
	m, _ = m.Update(ErrorMsg{Event: discovery.ErrorEvent{Message: "Wrong SOAP message", Payload: "lollipop"}})

	view := m.View()
	if !strings.Contains(view, "urn:uuid:cam-2") || !strings.Contains(view, "lollipop") {
		t.Errorf("View() missing events:\n%s", view)
	}

	m, _ = m.Update(DoneMsg{Devices: []*discovery.Device{infoDevice()}})
	wm := m.(WatchModel)
	if wm.Scanning() {
		t.Error("model should stop scanning on DoneMsg")
	}
	if wm.Percent() != 1 {
		t.Errorf("Percent() = %v after done, want 1", wm.Percent())
	}
	if len(wm.Devices()) != 1 {
		t.Errorf("Devices() = %d, want 1", len(wm.Devices()))
	}
}

func TestWatchModel_Keys(t *testing.T) {
	started := 0
	m := NewWatchModel(func() *discovery.Session {
		started++
		return nil
	})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatal("rescan key should start a scan")
	}
	if _, ok := cmd().(scanStartedMsg); !ok || started != 1 {
		t.Errorf("rescan command did not start a session")
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("quit key returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit key should return tea.Quit")
	}
}

func TestWatchModel_EventsBeforeSessionStart(t *testing.T) {
	var m tea.Model = NewWatchModel(func() *discovery.Session { return nil })
	m, _ = m.Update(DeviceMsg{Device: infoDevice()})
	m, _ = m.Update(ErrorMsg{Event: discovery.ErrorEvent{Message: "Wrong SOAP message", Payload: "lollipop"}})

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatal("rescan key should start a scan")
	}
	if len(m.(WatchModel).Devices()) != 0 {
		t.Fatal("rescan should clear the previous round")
	}

	// The new session replies before its start message is handled
	m, _ = m.Update(DeviceMsg{Device: infoDevice()})
	m, _ = m.Update(ErrorMsg{Event: discovery.ErrorEvent{Message: "Wrong SOAP message", Payload: "early"}})

	session := discovery.Start(context.Background(),
		discovery.WithTarget("127.0.0.1:9"),
		discovery.WithBus(discovery.NewBus()),
		discovery.WithTimeout(50*time.Millisecond),
	)
	defer session.Wait()

	m, _ = m.Update(scanStartedMsg{session: session})
	if len(m.(WatchModel).Devices()) != 1 {
		t.Errorf("Devices() = %d after start message, want 1", len(m.(WatchModel).Devices()))
	}
	view := m.View()
	if !strings.Contains(view, "early") {
		t.Errorf("View() lost the error event received before the start message:\n%s", view)
	}
	if strings.Contains(view, "lollipop") {
		t.Errorf("View() still shows the previous round:\n%s", view)
	}
}
