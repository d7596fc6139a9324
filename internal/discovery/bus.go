package discovery

import (
	"sync"
	"sync/atomic"
)

// DeviceHandler receives each newly admitted device
type DeviceHandler func(*Device)

// ErrorHandler receives each bad reply
type ErrorHandler func(ErrorEvent)

// ErrorEvent describes one reply that could not be used
type ErrorEvent struct {
	// Message starts with WrongMessagePrefix for malformed payloads
	Message string

	// Payload is the datagram exactly as received
	Payload string

	// Source is the remote address of the datagram
	Source string

	Err *ProbeError
}

// DefaultBus is the process-wide notification channel used by sessions
// that were not given a bus of their own.
var DefaultBus = NewBus()

// OnDevice subscribes to device events on DefaultBus
func OnDevice(fn DeviceHandler) (unsubscribe func()) {
	return DefaultBus.OnDevice(fn)
}

// OnceDevice subscribes to the next device event on DefaultBus
func OnceDevice(fn DeviceHandler) (unsubscribe func()) {
	return DefaultBus.OnceDevice(fn)
}

// OnError subscribes to error events on DefaultBus
func OnError(fn ErrorHandler) (unsubscribe func()) {
	return DefaultBus.OnError(fn)
}

// OnceError subscribes to the next error event on DefaultBus
func OnceError(fn ErrorHandler) (unsubscribe func()) {
	return DefaultBus.OnceError(fn)
}

// Bus fans device and error events out to subscribers.
// Subscribing and unsubscribing are safe at any time, including from
// inside a handler. Each emit delivers to the listeners registered when
// it started.
type Bus struct {
	devices topic[*Device]
	errors  topic[ErrorEvent]
}

// NewBus creates a bus with no subscribers
func NewBus() *Bus {
	return &Bus{}
}

// OnDevice registers fn for every device event
func (b *Bus) OnDevice(fn DeviceHandler) (unsubscribe func()) {
	return b.devices.subscribe(fn, false)
}

// OnceDevice registers fn for the next device event only
func (b *Bus) OnceDevice(fn DeviceHandler) (unsubscribe func()) {
	return b.devices.subscribe(fn, true)
}

// OnError registers fn for every error event
func (b *Bus) OnError(fn ErrorHandler) (unsubscribe func()) {
	return b.errors.subscribe(fn, false)
}

// OnceError registers fn for the next error event only
func (b *Bus) OnceError(fn ErrorHandler) (unsubscribe func()) {
	return b.errors.subscribe(fn, true)
}

// ListenerCount returns the number of device and error subscribers
func (b *Bus) ListenerCount() (devices, errors int) {
	return b.devices.len(), b.errors.len()
}

func (b *Bus) emitDevice(d *Device) {
	b.devices.emit(d)
}

func (b *Bus) emitError(ev ErrorEvent) {
	b.errors.emit(ev)
}

type subscription[T any] struct {
	id    uint64
	fn    func(T)
	once  bool
	fired atomic.Bool
}

// topic is a copy-on-write listener list. Emitters read an immutable
// snapshot, so removals never disturb a delivery already in progress.
type topic[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []*subscription[T]
}

func (t *topic[T]) subscribe(fn func(T), once bool) func() {
	t.mu.Lock()
	t.nextID++
	sub := &subscription[T]{id: t.nextID, fn: fn, once: once}
	next := make([]*subscription[T], len(t.subs), len(t.subs)+1)
	copy(next, t.subs)
	t.subs = append(next, sub)
	t.mu.Unlock()

	var removeOnce sync.Once
	return func() {
		removeOnce.Do(func() { t.remove(sub.id) })
	}
}

func (t *topic[T]) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := make([]*subscription[T], 0, len(t.subs))
	for _, s := range t.subs {
		if s.id != id {
			next = append(next, s)
		}
	}
	t.subs = next
}

func (t *topic[T]) snapshot() []*subscription[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subs
}

func (t *topic[T]) len() int {
	return len(t.snapshot())
}

func (t *topic[T]) emit(v T) {
	for _, s := range t.snapshot() {
		if s.once {
			if !s.fired.CompareAndSwap(false, true) {
				continue
			}
			t.remove(s.id)
		}
		s.fn(v)
	}
}
