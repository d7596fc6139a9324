package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/onvifprobe/internal/discovery"
)

// RenderDevice renders one device as a detailed box
func RenderDevice(d *discovery.Device, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	title := DeviceTitleStyle.Render(SuccessMarker + " " + deviceLabel(d))
	border := SuccessColor
	if !d.IsResolved() {
		title = DeviceInfoTitleStyle.Render(InfoMarker + " " + deviceLabel(d))
		border = WarningColor
	}

	lines := []string{title}
	for _, f := range deviceFields(d) {
		lines = append(lines, FieldKeyStyle.Render(f.Key+":")+" "+FieldValueStyle.Render(f.Value))
	}

	return boxStyle(border, width).Render(strings.Join(lines, "\n"))
}

// RenderDeviceLine renders one device on a single line
func RenderDeviceLine(d *discovery.Device) string {
	address := d.Key()
	marker := DeviceInfoTitleStyle.Render(InfoMarker)
	if d.IsResolved() {
		address = d.Handle.ServiceURL()
		marker = DeviceTitleStyle.Render(SuccessMarker)
	}
	return fmt.Sprintf("%s %-24s %s %s", marker, deviceLabel(d), address, MutedStyle.Render("("+d.Source+")"))
}

// RenderErrorLine renders one bad reply on a single line
func RenderErrorLine(ev discovery.ErrorEvent) string {
	payload := ev.Payload
	if len(payload) > 60 {
		payload = payload[:60] + "…"
	}
	return ErrorTitleStyle.Render(FailureMarker) + " " +
		ErrorMessageStyle.Render(ev.Message) + " " +
		MutedStyle.Render(strconv.Quote(payload))
}

func deviceLabel(d *discovery.Device) string {
	if name := d.Name(); name != "" {
		return name
	}
	if d.Match.EndpointAddress != "" {
		return d.Match.EndpointAddress
	}
	return "unnamed device"
}

func deviceFields(d *discovery.Device) []Param {
	var fields []Param
	add := func(key, value string) {
		if value != "" {
			fields = append(fields, Param{Key: key, Value: value})
		}
	}

	if d.IsResolved() {
		add("Service", d.Handle.ServiceURL())
		add("Hostname", d.Handle.Hostname)
		add("Port", strconv.Itoa(d.Handle.Port))
		add("Path", d.Handle.Path)
	} else {
		add("XAddrs", strings.Join(d.Match.XAddrs, " "))
	}
	add("URN", d.Match.EndpointAddress)
	add("Hardware", d.Hardware())
	add("Location", d.Location())
	add("Types", strings.Join(d.Match.Types, " "))
	add("Source", d.Source)
	return fields
}

// DeviceJSON is the machine-readable form of a device
type DeviceJSON struct {
	Kind            string      `json:"kind"`
	URN             string      `json:"urn"`
	Name            string      `json:"name,omitempty"`
	Hardware        string      `json:"hardware,omitempty"`
	Location        string      `json:"location,omitempty"`
	XAddrs          []string    `json:"xaddrs"`
	Types           []string    `json:"types,omitempty"`
	Scopes          []string    `json:"scopes,omitempty"`
	MetadataVersion uint        `json:"metadata_version"`
	Source          string      `json:"source"`
	DiscoveredAt    time.Time   `json:"discovered_at"`
	Handle          *HandleJSON `json:"handle,omitempty"`
}

// HandleJSON is the machine-readable form of a connection handle
type HandleJSON struct {
	Hostname  string `json:"hostname"`
	Port      int    `json:"port"`
	Path      string `json:"path"`
	Scheme    string `json:"scheme"`
	Transport string `json:"transport"`
	URL       string `json:"url"`
}

// ResultJSON is the document written by the json output format
type ResultJSON struct {
	MessageID string       `json:"message_id"`
	Devices   []DeviceJSON `json:"devices"`
	Errors    []string     `json:"errors,omitempty"`
}

// NewDeviceJSON converts a device for JSON output
func NewDeviceJSON(d *discovery.Device) DeviceJSON {
	out := DeviceJSON{
		Kind:            d.Kind.String(),
		URN:             d.Match.EndpointAddress,
		Name:            d.Name(),
		Hardware:        d.Hardware(),
		Location:        d.Location(),
		XAddrs:          d.Match.XAddrs,
		Types:           d.Match.Types,
		Scopes:          d.Match.Scopes,
		MetadataVersion: d.Match.MetadataVersion,
		Source:          d.Source,
		DiscoveredAt:    d.DiscoveredAt,
	}
	if d.IsResolved() {
		h := d.Handle
		out.Handle = &HandleJSON{
			Hostname:  h.Hostname,
			Port:      h.Port,
			Path:      h.Path,
			Scheme:    h.Scheme,
			Transport: h.Transport,
			URL:       h.ServiceURL(),
		}
	}
	return out
}

// WriteJSON writes the session result as indented JSON
func WriteJSON(w io.Writer, messageID string, devices []*discovery.Device, errs []string) error {
	doc := ResultJSON{
		MessageID: messageID,
		Devices:   make([]DeviceJSON, 0, len(devices)),
		Errors:    errs,
	}
	for _, d := range devices {
		doc.Devices = append(doc.Devices, NewDeviceJSON(d))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
