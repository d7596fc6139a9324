package discovery

import (
	"net"
	"time"

	"github.com/muurk/onvifprobe/internal/protocol"
)

const (
	// DefaultTimeout is how long a session collects replies
	DefaultTimeout = 5 * time.Second

	// DefaultMulticastTTL keeps probes on the local segment
	DefaultMulticastTTL = 1
)

// Option configures a discovery session
type Option func(*options)

type options struct {
	timeout   time.Duration
	resolve   bool
	messageID string
	types     []string
	scopes    []string
	target    string
	iface     string
	ttl       int
	bus       *Bus

	listen func(network, address string) (net.PacketConn, error)
}

func defaultOptions() options {
	return options{
		timeout: DefaultTimeout,
		resolve: true,
		types:   []string{protocol.TypeNetworkVideoTransmitter},
		target:  protocol.MulticastAddress,
		ttl:     DefaultMulticastTTL,
		bus:     DefaultBus,
		listen:  net.ListenPacket,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithTimeout sets how long replies are collected. Values <= 0 keep the default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithResolve controls whether devices are upgraded to connection handles
// (true, the default) or surfaced as raw probe matches.
func WithResolve(resolve bool) Option {
	return func(o *options) { o.resolve = resolve }
}

// WithMessageID fixes the probe message id instead of generating one
func WithMessageID(id string) Option {
	return func(o *options) { o.messageID = id }
}

// WithTypes overrides the probed device types. No arguments probes for any type.
func WithTypes(types ...string) Option {
	return func(o *options) { o.types = types }
}

// WithScopes restricts the probe to devices advertising the given scopes
func WithScopes(scopes ...string) Option {
	return func(o *options) { o.scopes = scopes }
}

// WithTarget sends the probe to addr (host:port) instead of the
// WS-Discovery multicast group.
func WithTarget(addr string) Option {
	return func(o *options) {
		if addr != "" {
			o.target = addr
		}
	}
}

// WithInterface sends multicast probes out of the named interface
func WithInterface(name string) Option {
	return func(o *options) { o.iface = name }
}

// WithMulticastTTL sets the IP TTL of multicast probes
func WithMulticastTTL(ttl int) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithBus delivers the session's events to bus instead of DefaultBus
func WithBus(bus *Bus) Option {
	return func(o *options) {
		if bus != nil {
			o.bus = bus
		}
	}
}
