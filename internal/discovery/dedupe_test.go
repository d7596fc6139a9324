package discovery

import (
	"testing"

	"github.com/muurk/onvifprobe/internal/protocol"
)

func TestDeduplicator_Admit(t *testing.T) {
	d := NewDeduplicator()

	a := &protocol.ProbeMatch{XAddrs: []string{"http://10.0.0.1/onvif/device_service"}}
	sameFirst := &protocol.ProbeMatch{
		EndpointAddress: "urn:uuid:other",
		XAddrs:          []string{"http://10.0.0.1/onvif/device_service", "http://[fe80::1]/onvif/device_service"},
	}
	b := &protocol.ProbeMatch{XAddrs: []string{"http://10.0.0.2/onvif/device_service"}}

	steps := []struct {
		name  string
		match *protocol.ProbeMatch
		want  bool
	}{
		{"first a", a, true},
		{"repeat a", a, false},
		{"same primary xaddr", sameFirst, false},
		{"first b", b, true},
		{"repeat b", b, false},
	}

	for _, s := range steps {
		if got := d.Admit(s.match); got != s.want {
			t.Errorf("%s: Admit() = %v, want %v", s.name, got, s.want)
		}
	}

	if d.Len() != 2 {
		t.Errorf("Len() = %d, want 2", d.Len())
	}
}

func TestDeduplicator_Independent(t *testing.T) {
	m := &protocol.ProbeMatch{XAddrs: []string{"http://10.0.0.1/"}}

	first, second := NewDeduplicator(), NewDeduplicator()
	if !first.Admit(m) {
		t.Fatal("first Admit() = false")
	}
	if !second.Admit(m) {
		t.Error("a fresh deduplicator must not remember another session's keys")
	}
}

func TestIdentityKey(t *testing.T) {
	if got := IdentityKey(&protocol.ProbeMatch{XAddrs: []string{"http://a/", "http://b/"}}); got != "http://a/" {
		t.Errorf("IdentityKey() = %q, want first XAddr", got)
	}
	if got := IdentityKey(nil); got != "" {
		t.Errorf("IdentityKey(nil) = %q, want empty", got)
	}
}
