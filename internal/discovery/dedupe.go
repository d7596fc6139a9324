package discovery

import "github.com/muurk/onvifprobe/internal/protocol"

// IdentityKey returns the value that identifies a responder within one
// session: its primary (first) XAddr.
func IdentityKey(m *protocol.ProbeMatch) string {
	return m.PrimaryXAddr()
}

// Deduplicator admits each identity key once. It belongs to a single
// session and is not safe for concurrent use.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator creates an empty deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Admit returns true the first time the match's identity key is seen
// and false for every later match with the same key.
func (d *Deduplicator) Admit(m *protocol.ProbeMatch) bool {
	key := IdentityKey(m)
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Len returns the number of distinct keys admitted
func (d *Deduplicator) Len() int {
	return len(d.seen)
}
