package protocol

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Envelope builders for WS-Discovery messages.
// Prefixes: s = SOAP 1.2, a = WS-Addressing, d = WS-Discovery, dn = ONVIF network.

// EncodeProbe builds the SOAP Probe envelope for a request.
// The output depends only on the request fields.
//
// Structure:
//
//	<s:Envelope>
//	  <s:Header>
//	    <a:MessageID>urn:uuid:{id}</a:MessageID>
//	    <a:To>urn:schemas-xmlsoap-org:ws:2005:04:discovery</a:To>
//	    <a:Action>.../discovery/Probe</a:Action>
//	  </s:Header>
//	  <s:Body><d:Probe><d:Types>dn:NetworkVideoTransmitter</d:Types></d:Probe></s:Body>
//	</s:Envelope>
func EncodeProbe(req ProbeRequest) []byte {
	var b bytes.Buffer
	writeEnvelopeOpen(&b)

	b.WriteString("<s:Header>")
	writeElement(&b, "a:MessageID", req.MessageURI())
	writeElement(&b, "a:To", DiscoveryTo)
	writeElement(&b, "a:Action", ActionProbe)
	b.WriteString("</s:Header>")

	b.WriteString("<s:Body><d:Probe>")
	if len(req.Types) > 0 {
		writeElement(&b, "d:Types", strings.Join(req.Types, " "))
	}
	if len(req.Scopes) > 0 {
		writeElement(&b, "d:Scopes", strings.Join(req.Scopes, " "))
	}
	b.WriteString("</d:Probe></s:Body>")

	b.WriteString("</s:Envelope>")
	return b.Bytes()
}

// EncodeProbeMatches builds a ProbeMatches envelope answering a probe.
// A fresh MessageID is generated when resp.MessageID is empty.
func EncodeProbeMatches(resp Response) []byte {
	messageID := resp.MessageID
	if messageID == "" {
		messageID = uuid.NewString()
	}

	var b bytes.Buffer
	writeEnvelopeOpen(&b)

	b.WriteString("<s:Header>")
	writeElement(&b, "a:MessageID", messageURI(messageID))
	if resp.RelatesTo != "" {
		writeElement(&b, "a:RelatesTo", messageURI(resp.RelatesTo))
	}
	writeElement(&b, "a:To", AddressAnonymous)
	writeElement(&b, "a:Action", ActionProbeMatches)
	b.WriteString("</s:Header>")

	b.WriteString("<s:Body><d:ProbeMatches>")
	for _, m := range resp.Matches {
		b.WriteString("<d:ProbeMatch>")
		b.WriteString("<a:EndpointReference>")
		writeElement(&b, "a:Address", m.EndpointAddress)
		b.WriteString("</a:EndpointReference>")
		writeElement(&b, "d:Types", strings.Join(m.Types, " "))
		writeElement(&b, "d:Scopes", strings.Join(m.Scopes, " "))
		writeElement(&b, "d:XAddrs", strings.Join(m.XAddrs, " "))
		writeElement(&b, "d:MetadataVersion", strconv.FormatUint(uint64(m.MetadataVersion), 10))
		b.WriteString("</d:ProbeMatch>")
	}
	b.WriteString("</d:ProbeMatches></s:Body>")

	b.WriteString("</s:Envelope>")
	return b.Bytes()
}

func writeEnvelopeOpen(b *bytes.Buffer) {
	b.WriteString(xml.Header)
	fmt.Fprintf(b, `<s:Envelope xmlns:s="%s" xmlns:a="%s" xmlns:d="%s" xmlns:dn="%s">`,
		NamespaceSOAP12, NamespaceAddressing, NamespaceDiscovery, NamespaceONVIFNetwork)
}

func writeElement(b *bytes.Buffer, name, value string) {
	b.WriteString("<" + name + ">")
	_ = xml.EscapeText(b, []byte(value))
	b.WriteString("</" + name + ">")
}
