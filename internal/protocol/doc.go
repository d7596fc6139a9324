// Package protocol implements the WS-Discovery SOAP messages used to find
// ONVIF cameras.
//
// This package builds the outbound Probe envelope and parses inbound
// ProbeMatches envelopes into structured records. It performs no I/O.
//
// # Message Overview
//
// A discovery cycle consists of one multicast Probe and any number of
// unicast ProbeMatches replies:
//   - Probe: SOAP 1.2 envelope with a WS-Addressing MessageID, the
//     well-known discovery To header, and the device Types being searched
//   - ProbeMatches: one or more ProbeMatch blocks, each carrying the
//     responder's EndpointReference, Types, Scopes, XAddrs and
//     MetadataVersion
//
// # Usage Example - Encoding
//
//	req := protocol.NewProbeRequest("")
//	payload := protocol.EncodeProbe(req)
//	conn.WriteTo(payload, groupAddr)
//
// # Usage Example - Decoding
//
//	match, err := protocol.DecodeResponse(datagram)
//	if err != nil {
//	    var mpe *protocol.MalformedPayloadError
//	    if errors.As(err, &mpe) {
//	        log.Printf("bad reply: %s (%q)", mpe.Reason, mpe.Payload())
//	    }
//	    return
//	}
//	fmt.Println(match.PrimaryXAddr())
//
// # Namespace Handling
//
// Elements are matched by local name, so replies using any prefix (or a
// default namespace) decode the same way. The root element must be a
// SOAP 1.2 or SOAP 1.1 Envelope. Full schema validation is not performed.
//
// # Error Handling
//
// Decoding never panics. Every failure is returned as a
// *MalformedPayloadError whose Raw field holds a copy of the datagram
// exactly as received.
package protocol
