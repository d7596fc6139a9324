package protocol

import (
	"errors"
	"strings"
	"testing"
)

// probeMatchFromCamera is a trimmed reply captured from an ONVIF camera.
// It uses different prefixes than EncodeProbeMatches.
const probeMatchFromCamera = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope
    xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:wsa="http://schemas.xmlsoap.org/ws/2004/08/addressing"
    xmlns:wsdd="http://schemas.xmlsoap.org/ws/2005/04/discovery"
    xmlns:dn="http://www.onvif.org/ver10/network/wsdl"
    xmlns:tds="http://www.onvif.org/ver10/device/wsdl">
  <SOAP-ENV:Header>
    <wsa:MessageID>uuid:7a4e2f1c-0000-4000-8000-00408ce1a2b3</wsa:MessageID>
    <wsa:RelatesTo>urn:uuid:d0-61e</wsa:RelatesTo>
    <wsa:To SOAP-ENV:mustUnderstand="true">http://schemas.xmlsoap.org/ws/2004/08/addressing/role/anonymous</wsa:To>
    <wsa:Action SOAP-ENV:mustUnderstand="true">http://schemas.xmlsoap.org/ws/2005/04/discovery/ProbeMatches</wsa:Action>
    <wsdd:AppSequence InstanceId="1" MessageNumber="4"/>
  </SOAP-ENV:Header>
  <SOAP-ENV:Body>
    <wsdd:ProbeMatches>
      <wsdd:ProbeMatch>
        <wsa:EndpointReference>
          <wsa:Address>urn:uuid:4d454930-0000-1000-8000-00408ce1a2b3</wsa:Address>
        </wsa:EndpointReference>
        <wsdd:Types>tds:Device dn:NetworkVideoTransmitter</wsdd:Types>
        <wsdd:Scopes MatchBy="">
          onvif://www.onvif.org/type/video_encoder
          onvif://www.onvif.org/name/AXIS%20M1054
          onvif://www.onvif.org/location/
        </wsdd:Scopes>
        <wsdd:XAddrs>
          http://192.168.1.90:80/onvif/device_service http://[fe80::240:8cff:fee1:a2b3]/onvif/device_service
        </wsdd:XAddrs>
        <wsdd:MetadataVersion>10</wsdd:MetadataVersion>
      </wsdd:ProbeMatch>
    </wsdd:ProbeMatches>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

func TestDecodeResponse_CameraReply(t *testing.T) {
	m, err := DecodeResponse([]byte(probeMatchFromCamera))
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}

	if got, want := m.PrimaryXAddr(), "http://192.168.1.90:80/onvif/device_service"; got != want {
		t.Errorf("PrimaryXAddr() = %q, want %q", got, want)
	}
	if len(m.XAddrs) != 2 {
		t.Errorf("len(XAddrs) = %d, want 2", len(m.XAddrs))
	}
	if m.EndpointAddress != "urn:uuid:4d454930-0000-1000-8000-00408ce1a2b3" {
		t.Errorf("EndpointAddress = %q", m.EndpointAddress)
	}
	if len(m.Types) != 2 || m.Types[1] != "dn:NetworkVideoTransmitter" {
		t.Errorf("Types = %v", m.Types)
	}
	if len(m.Scopes) != 3 {
		t.Errorf("len(Scopes) = %d, want 3 (%v)", len(m.Scopes), m.Scopes)
	}
	if m.MetadataVersion != 10 {
		t.Errorf("MetadataVersion = %d, want 10", m.MetadataVersion)
	}
}

func TestDecodeEnvelope_Header(t *testing.T) {
	resp, err := DecodeEnvelope([]byte(probeMatchFromCamera))
	if err != nil {
		t.Fatalf("DecodeEnvelope() error = %v", err)
	}

	if resp.RelatesTo != "d0-61e" {
		t.Errorf("RelatesTo = %q, want d0-61e", resp.RelatesTo)
	}
	if resp.MessageID != "uuid:7a4e2f1c-0000-4000-8000-00408ce1a2b3" {
		t.Errorf("MessageID = %q", resp.MessageID)
	}
	if resp.Action != ActionProbeMatches {
		t.Errorf("Action = %q", resp.Action)
	}
}

func TestDecodeResponse_SOAP11(t *testing.T) {
	raw := `<e:Envelope xmlns:e="http://schemas.xmlsoap.org/soap/envelope/" xmlns:d="http://schemas.xmlsoap.org/ws/2005/04/discovery">
<e:Body><d:ProbeMatches><d:ProbeMatch><d:XAddrs>http://10.1.1.1/onvif/device_service</d:XAddrs></d:ProbeMatch></d:ProbeMatches></e:Body>
</e:Envelope>`

	m, err := DecodeResponse([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if m.PrimaryXAddr() != "http://10.1.1.1/onvif/device_service" {
		t.Errorf("PrimaryXAddr() = %q", m.PrimaryXAddr())
	}
	if m.MetadataVersion != 0 {
		t.Errorf("MetadataVersion = %d, want 0 when absent", m.MetadataVersion)
	}
}

func TestDecodeResponse_DefaultNamespace(t *testing.T) {
	raw := `<Envelope xmlns="http://www.w3.org/2003/05/soap-envelope"><Body>
<ProbeMatches xmlns="http://schemas.xmlsoap.org/ws/2005/04/discovery"><ProbeMatch><XAddrs>http://10.1.1.2/onvif/device_service</XAddrs></ProbeMatch></ProbeMatches>
</Body></Envelope>`

	m, err := DecodeResponse([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if m.PrimaryXAddr() != "http://10.1.1.2/onvif/device_service" {
		t.Errorf("PrimaryXAddr() = %q", m.PrimaryXAddr())
	}
}

func TestDecodeResponse_Latin1(t *testing.T) {
	raw := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>" +
		`<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><d:ProbeMatches xmlns:d="http://schemas.xmlsoap.org/ws/2005/04/discovery">` +
		"<d:ProbeMatch><d:Scopes>onvif://www.onvif.org/location/Z\xfcrich</d:Scopes><d:XAddrs>http://10.1.1.3/onvif/device_service</d:XAddrs></d:ProbeMatch>" +
		`</d:ProbeMatches></s:Body></s:Envelope>`

	m, err := DecodeResponse([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if len(m.Scopes) != 1 || m.Scopes[0] != "onvif://www.onvif.org/location/Zürich" {
		t.Errorf("Scopes = %v", m.Scopes)
	}
}

func TestDecodeResponse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"plain text", "lollipop"},
		{"empty", ""},
		{"whitespace", "  \n\t "},
		{"truncated xml", `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body>`},
		{"wrong root", `<Probe xmlns="http://schemas.xmlsoap.org/ws/2005/04/discovery"/>`},
		{"root outside soap namespace", `<Envelope xmlns="urn:example"><Body><ProbeMatches><ProbeMatch><XAddrs>http://x/</XAddrs></ProbeMatch></ProbeMatches></Body></Envelope>`},
		{"no body", `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"/>`},
		{"probe instead of match", string(EncodeProbe(ProbeRequest{MessageID: "x"}))},
		{"empty ProbeMatches", `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><ProbeMatches/></s:Body></s:Envelope>`},
		{"no XAddrs", `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><ProbeMatches><ProbeMatch><Types>dn:NetworkVideoTransmitter</Types></ProbeMatch></ProbeMatches></s:Body></s:Envelope>`},
		{"binary", "\x00\x01\x02\xff\xfe"},
		{"garbage after envelope", probeMatchFromCamera + "<<<not xml &&& </unclosed>"},
		{"second root element", probeMatchFromCamera + "<extra/>"},
		{"text after envelope", probeMatchFromCamera + "trailing"},
		{"text before envelope", "lollipop " + strings.TrimPrefix(probeMatchFromCamera, `<?xml version="1.0" encoding="UTF-8"?>`)},
		{"comment only", "<!-- nothing here -->"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeResponse([]byte(tt.raw))
			if err == nil {
				t.Fatalf("DecodeResponse() = %+v, want error", m)
			}

			var mpe *MalformedPayloadError
			if !errors.As(err, &mpe) {
				t.Fatalf("error type = %T, want *MalformedPayloadError", err)
			}
			if mpe.Payload() != tt.raw {
				t.Errorf("Payload() = %q, want verbatim %q", mpe.Payload(), tt.raw)
			}
			if !errors.Is(err, ErrMalformedPayload) {
				t.Error("errors.Is(err, ErrMalformedPayload) = false")
			}
		})
	}
}

func TestDecodeResponse_TrailingMisc(t *testing.T) {
	raw := probeMatchFromCamera + "\n<!-- relayed -->\n<?relay hop=\"1\"?>\n"
	if _, err := DecodeResponse([]byte(raw)); err != nil {
		t.Fatalf("DecodeResponse() error = %v, want nil for trailing comment and whitespace", err)
	}
}

func TestDecodeResponse_LeadingMisc(t *testing.T) {
	body := strings.TrimPrefix(probeMatchFromCamera, `<?xml version="1.0" encoding="UTF-8"?>`)
	raw := "\n  <!-- relayed -->\n" + body
	if _, err := DecodeResponse([]byte(raw)); err != nil {
		t.Fatalf("DecodeResponse() error = %v, want nil for leading comment and whitespace", err)
	}
}

func TestDecodeEnvelope_KeepsUsableMatches(t *testing.T) {
	raw := `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><ProbeMatches>` +
		`<ProbeMatch><Types>dn:NetworkVideoTransmitter</Types></ProbeMatch>` +
		`<ProbeMatch><XAddrs>http://10.1.1.4/onvif/device_service</XAddrs></ProbeMatch>` +
		`</ProbeMatches></s:Body></s:Envelope>`

	resp, err := DecodeEnvelope([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeEnvelope() error = %v", err)
	}
	if len(resp.Matches) != 1 {
		t.Fatalf("len(Matches) = %d, want 1", len(resp.Matches))
	}
	if got := resp.Matches[0].PrimaryXAddr(); got != "http://10.1.1.4/onvif/device_service" {
		t.Errorf("PrimaryXAddr() = %q", got)
	}
	if len(resp.Rejected) != 1 || resp.Rejected[0] != "probe match 0 has no XAddrs" {
		t.Errorf("Rejected = %q, want one entry for match 0", resp.Rejected)
	}
}

func TestDecodeResponse_RawIsCopied(t *testing.T) {
	raw := []byte("lollipop")
	_, err := DecodeResponse(raw)

	raw[0] = 'X'

	var mpe *MalformedPayloadError
	if !errors.As(err, &mpe) {
		t.Fatalf("error type = %T", err)
	}
	if mpe.Payload() != "lollipop" {
		t.Errorf("Payload() = %q, want lollipop after caller reused buffer", mpe.Payload())
	}
}

func TestDecodeProbe_RejectsProbeMatches(t *testing.T) {
	if _, err := DecodeProbe([]byte(probeMatchFromCamera)); err == nil {
		t.Error("DecodeProbe() accepted a ProbeMatches envelope")
	}
}

func FuzzDecodeResponse(f *testing.F) {
	f.Add([]byte(probeMatchFromCamera))
	f.Add([]byte("lollipop"))
	f.Add([]byte(`<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><ProbeMatches><ProbeMatch><XAddrs> </XAddrs></ProbeMatch></ProbeMatches></s:Body></s:Envelope>`))

	f.Fuzz(func(t *testing.T, raw []byte) {
		m, err := DecodeResponse(raw)
		if err != nil {
			var mpe *MalformedPayloadError
			if !errors.As(err, &mpe) {
				t.Fatalf("error type = %T, want *MalformedPayloadError", err)
			}
			return
		}
		if m.PrimaryXAddr() == "" {
			t.Fatal("successful decode without an XAddr")
		}
	})
}
