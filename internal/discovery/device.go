package discovery

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/onvifprobe/internal/protocol"
)

// onvifScopePrefix is the ONVIF scope namespace (e.g. onvif://www.onvif.org/name/Cam1)
const onvifScopePrefix = "onvif://www.onvif.org/"

// Kind tells which shape a Device carries
type Kind int

const (
	// KindInfo is the raw probe match, surfaced when resolution is disabled
	KindInfo Kind = iota
	// KindHandle is a probe match plus a resolved connection Handle
	KindHandle
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindInfo:
		return "info"
	case KindHandle:
		return "handle"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Handle holds the connection parameters a device client needs
type Handle struct {
	// Hostname is the host part of the bound XAddr (IP or DNS name)
	Hostname string

	// Port is the service port, defaulted from the scheme when absent
	Port int

	// Path is the request URI of the device service (e.g. "/onvif/device_service")
	Path string

	// Scheme is "http" or "https"
	Scheme string

	// Transport is the network the service is reached over ("tcp")
	Transport string

	// URN is the responder's endpoint reference address
	URN string

	// XAddr is the service address this handle was built from
	XAddr string
}

// Address returns host:port suitable for net.Dial
func (h *Handle) Address() string {
	return net.JoinHostPort(h.Hostname, strconv.Itoa(h.Port))
}

// ServiceURL returns the device service URL with an explicit port
func (h *Handle) ServiceURL() string {
	return fmt.Sprintf("%s://%s%s", h.Scheme, h.Address(), h.Path)
}

// Device is one responder found by a discovery session.
// Kind is the discriminant: Handle is non-nil only for KindHandle.
type Device struct {
	Kind Kind

	// Match is the parsed probe match the device was built from
	Match protocol.ProbeMatch

	// Handle is set when the session resolved the match
	Handle *Handle

	// Source is the address the datagram came from
	Source string

	// Raw is the datagram payload that described the device
	Raw []byte

	// DiscoveredAt is when the datagram was received
	DiscoveredAt time.Time
}

// Key returns the identity key used for deduplication
func (d *Device) Key() string {
	return IdentityKey(&d.Match)
}

// IsResolved reports whether the device carries a connection handle
func (d *Device) IsResolved() bool {
	return d.Kind == KindHandle && d.Handle != nil
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	name := d.Name()
	if name == "" {
		name = d.Match.EndpointAddress
	}
	if d.IsResolved() {
		return fmt.Sprintf("ONVIF Device %s at %s", name, d.Handle.Address())
	}
	return fmt.Sprintf("ONVIF Device %s at %s", name, d.Key())
}

// Scope returns the unescaped value of the first ONVIF scope in the given
// category ("name", "hardware", "location", ...), or "" if not advertised.
func (d *Device) Scope(category string) string {
	prefix := onvifScopePrefix + category + "/"
	for _, s := range d.Match.Scopes {
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		v := strings.TrimPrefix(s, prefix)
		if unescaped, err := url.PathUnescape(v); err == nil {
			return unescaped
		}
		return v
	}
	return ""
}

// Name returns the advertised ONVIF name scope
func (d *Device) Name() string {
	return d.Scope("name")
}

// Hardware returns the advertised ONVIF hardware scope
func (d *Device) Hardware() string {
	return d.Scope("hardware")
}

// Location returns the advertised ONVIF location scope
func (d *Device) Location() string {
	return d.Scope("location")
}

// ScopeURI builds an ONVIF scope URI, escaping the value
func ScopeURI(category, value string) string {
	return onvifScopePrefix + category + "/" + url.PathEscape(value)
}
