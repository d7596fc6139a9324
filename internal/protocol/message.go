package protocol

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// WS-Discovery endpoint and XML namespace constants
const (
	// MulticastAddress is the IPv4 WS-Discovery group and port
	MulticastAddress = "239.255.255.250:3702"

	NamespaceSOAP12       = "http://www.w3.org/2003/05/soap-envelope"
	NamespaceSOAP11       = "http://schemas.xmlsoap.org/soap/envelope/"
	NamespaceAddressing   = "http://schemas.xmlsoap.org/ws/2004/08/addressing"
	NamespaceDiscovery    = "http://schemas.xmlsoap.org/ws/2005/04/discovery"
	NamespaceONVIFNetwork = "http://www.onvif.org/ver10/network/wsdl"

	// DiscoveryTo is the well-known To header for multicast probes
	DiscoveryTo = "urn:schemas-xmlsoap-org:ws:2005:04:discovery"

	// AddressAnonymous is the To header used on unicast probe matches
	AddressAnonymous = NamespaceAddressing + "/role/anonymous"

	ActionProbe        = NamespaceDiscovery + "/Probe"
	ActionProbeMatches = NamespaceDiscovery + "/ProbeMatches"

	// TypeNetworkVideoTransmitter is the ONVIF device type probed for by default
	TypeNetworkVideoTransmitter = "dn:NetworkVideoTransmitter"

	// MaxDatagramSize is the largest UDP payload read from the socket
	MaxDatagramSize = 65535
)

// ProbeRequest identifies one discovery cycle. It is not modified after
// it has been encoded and sent.
type ProbeRequest struct {
	// MessageID is the correlation token, without the "urn:uuid:" prefix
	MessageID string

	// Types restricts the probe to responders of these QNames
	Types []string

	// Scopes restricts the probe to responders advertising these scopes
	Scopes []string

	// Timestamp is when the request was created
	Timestamp time.Time
}

// NewProbeRequest creates a probe for ONVIF network video transmitters.
// An empty messageID is replaced with a random UUID.
func NewProbeRequest(messageID string) ProbeRequest {
	if messageID == "" {
		messageID = uuid.NewString()
	}
	return ProbeRequest{
		MessageID: messageID,
		Types:     []string{TypeNetworkVideoTransmitter},
		Timestamp: time.Now(),
	}
}

// MessageURI returns the MessageID header value for the request
func (r ProbeRequest) MessageURI() string {
	return messageURI(r.MessageID)
}

// ProbeMatch is the parsed form of one ProbeMatch block
type ProbeMatch struct {
	// XAddrs are the advertised service endpoints, in document order
	XAddrs []string

	// EndpointAddress is the responder's stable identifier (usually urn:uuid:...)
	EndpointAddress string

	Types           []string
	Scopes          []string
	MetadataVersion uint
}

// PrimaryXAddr returns the first advertised service address
func (m *ProbeMatch) PrimaryXAddr() string {
	if m == nil || len(m.XAddrs) == 0 {
		return ""
	}
	return m.XAddrs[0]
}

// HasScope reports whether the match advertises the given scope URI
func (m *ProbeMatch) HasScope(scope string) bool {
	for _, s := range m.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Response is a decoded ProbeMatches envelope
type Response struct {
	MessageID string
	RelatesTo string
	Action    string
	Matches   []ProbeMatch

	// Rejected describes ProbeMatch blocks that were left out of Matches
	Rejected []string
}

func messageURI(id string) string {
	if strings.HasPrefix(id, "urn:") || strings.HasPrefix(id, "uuid:") {
		return id
	}
	return "urn:uuid:" + id
}

func messageToken(uri string) string {
	return strings.TrimPrefix(uri, "urn:uuid:")
}
