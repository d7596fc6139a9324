package discovery

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/muurk/onvifprobe/internal/protocol"
)

// Resolve binds a probe match to its first usable service address.
// No network I/O is performed; the handshake is left to the device client.
func Resolve(m *protocol.ProbeMatch) (*Handle, error) {
	var reasons []string
	for _, xaddr := range m.XAddrs {
		h, err := handleFromXAddr(xaddr)
		if err != nil {
			reasons = append(reasons, err.Error())
			continue
		}
		h.URN = m.EndpointAddress
		return h, nil
	}

	return nil, &ProbeError{
		Type:    ErrTypeUnresolvable,
		Message: fmt.Sprintf("no usable service address (%s)", strings.Join(reasons, "; ")),
	}
}

func handleFromXAddr(xaddr string) (*Handle, error) {
	u, err := url.Parse(xaddr)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", xaddr, err)
	}

	scheme := strings.ToLower(u.Scheme)
	var defaultPort int
	switch scheme {
	case "http":
		defaultPort = 80
	case "https":
		defaultPort = 443
	default:
		return nil, fmt.Errorf("%q: unsupported scheme %q", xaddr, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%q: missing host", xaddr)
	}

	port := defaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("%q: invalid port %q", xaddr, p)
		}
	}

	return &Handle{
		Hostname:  host,
		Port:      port,
		Path:      u.RequestURI(),
		Scheme:    scheme,
		Transport: "tcp",
		XAddr:     xaddr,
	}, nil
}

// resolveDevice upgrades an info device to a handle in place
func resolveDevice(d *Device) error {
	h, err := Resolve(&d.Match)
	if err != nil {
		return err
	}
	d.Kind = KindHandle
	d.Handle = h
	return nil
}
