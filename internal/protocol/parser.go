package protocol

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// Decoding matches elements by local name only, so any namespace prefix
// binding is accepted. Only the fields needed for identity and address
// extraction are read; the rest of the document is skipped.

type envelopeXML struct {
	XMLName xml.Name
	Header  headerXML `xml:"Header"`
	Body    bodyXML   `xml:"Body"`
}

type headerXML struct {
	MessageID string `xml:"MessageID"`
	RelatesTo string `xml:"RelatesTo"`
	Action    string `xml:"Action"`
}

type bodyXML struct {
	ProbeMatches *probeMatchesXML `xml:"ProbeMatches"`
	Probe        *probeXML        `xml:"Probe"`
}

type probeMatchesXML struct {
	Matches []probeMatchXML `xml:"ProbeMatch"`
}

type probeMatchXML struct {
	EndpointReference struct {
		Address string `xml:"Address"`
	} `xml:"EndpointReference"`
	Types           string `xml:"Types"`
	Scopes          string `xml:"Scopes"`
	XAddrs          string `xml:"XAddrs"`
	MetadataVersion string `xml:"MetadataVersion"`
}

type probeXML struct {
	Types  string `xml:"Types"`
	Scopes string `xml:"Scopes"`
}

// DecodeResponse parses a probe match datagram and returns its first
// ProbeMatch. It never panics; every failure is a *MalformedPayloadError
// carrying the raw payload.
func DecodeResponse(raw []byte) (*ProbeMatch, error) {
	resp, err := DecodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	return &resp.Matches[0], nil
}

// DecodeEnvelope parses a ProbeMatches envelope with all of its matches.
// A successful result always holds at least one match, and every match has
// at least one XAddr. Blocks without XAddrs are left out and listed in
// Rejected; the envelope fails only when no block is usable.
func DecodeEnvelope(raw []byte) (*Response, error) {
	env, mErr := decodeSOAP(raw)
	if mErr != nil {
		return nil, mErr
	}

	if env.Body.ProbeMatches == nil {
		return nil, malformed(raw, nil, "missing ProbeMatches body")
	}
	if len(env.Body.ProbeMatches.Matches) == 0 {
		return nil, malformed(raw, nil, "ProbeMatches body has no ProbeMatch")
	}

	resp := &Response{
		MessageID: messageToken(strings.TrimSpace(env.Header.MessageID)),
		RelatesTo: messageToken(strings.TrimSpace(env.Header.RelatesTo)),
		Action:    strings.TrimSpace(env.Header.Action),
		Matches:   make([]ProbeMatch, 0, len(env.Body.ProbeMatches.Matches)),
	}

	for i, pm := range env.Body.ProbeMatches.Matches {
		xaddrs := strings.Fields(pm.XAddrs)
		if len(xaddrs) == 0 {
			resp.Rejected = append(resp.Rejected, fmt.Sprintf("probe match %d has no XAddrs", i))
			continue
		}
		resp.Matches = append(resp.Matches, ProbeMatch{
			XAddrs:          xaddrs,
			EndpointAddress: strings.TrimSpace(pm.EndpointReference.Address),
			Types:           strings.Fields(pm.Types),
			Scopes:          strings.Fields(pm.Scopes),
			MetadataVersion: parseMetadataVersion(pm.MetadataVersion),
		})
	}

	if len(resp.Matches) == 0 {
		return nil, malformed(raw, nil, "%s", resp.Rejected[0])
	}
	return resp, nil
}

// DecodeProbe parses a Probe envelope, as received by a responder
func DecodeProbe(raw []byte) (*ProbeRequest, error) {
	env, mErr := decodeSOAP(raw)
	if mErr != nil {
		return nil, mErr
	}
	if env.Body.Probe == nil {
		return nil, malformed(raw, nil, "missing Probe body")
	}

	return &ProbeRequest{
		MessageID: messageToken(strings.TrimSpace(env.Header.MessageID)),
		Types:     strings.Fields(env.Body.Probe.Types),
		Scopes:    strings.Fields(env.Body.Probe.Scopes),
	}, nil
}

// decodeSOAP checks that raw is a well-formed SOAP envelope
func decodeSOAP(raw []byte) (*envelopeXML, *MalformedPayloadError) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, malformed(raw, nil, "empty payload")
	}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel

	start, err := readProlog(dec)
	if err != nil {
		return nil, malformed(raw, err, "not well-formed XML")
	}

	var env envelopeXML
	if err := dec.DecodeElement(&env, start); err != nil {
		return nil, malformed(raw, err, "not well-formed XML")
	}
	if err := checkTrailing(dec); err != nil {
		return nil, malformed(raw, err, "not well-formed XML")
	}

	if env.XMLName.Local != "Envelope" {
		return nil, malformed(raw, nil, "unexpected root element %q", env.XMLName.Local)
	}
	if env.XMLName.Space != NamespaceSOAP12 && env.XMLName.Space != NamespaceSOAP11 {
		return nil, malformed(raw, nil, "root element namespace %q is not a SOAP envelope", env.XMLName.Space)
	}

	return &env, nil
}

// readProlog reads up to the root element. Only whitespace, comments,
// processing instructions and a DOCTYPE may precede it.
func readProlog(dec *xml.Decoder) (*xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no root element")
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			return &t, nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return nil, errors.New("text before root element")
			}
		case xml.Comment, xml.ProcInst, xml.Directive:
		default:
			return nil, fmt.Errorf("unexpected %T before root element", tok)
		}
	}
}

// checkTrailing reads past the root element. Only whitespace, comments
// and processing instructions may follow it.
func checkTrailing(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return errors.New("text after root element")
			}
		case xml.Comment, xml.ProcInst:
		case xml.StartElement:
			return fmt.Errorf("second root element <%s>", t.Name.Local)
		default:
			return fmt.Errorf("unexpected %T after root element", tok)
		}
	}
}

// parseMetadataVersion returns 0 for missing or non-numeric values
func parseMetadataVersion(s string) uint {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}
