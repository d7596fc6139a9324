package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/muurk/onvifprobe/internal/logging"
	"github.com/muurk/onvifprobe/internal/protocol"
)

// State is the lifecycle stage of a Session
type State int32

const (
	// StateIdle means no socket is open yet
	StateIdle State = iota
	// StateProbing means the probe was sent and replies are being collected
	StateProbing
	// StateClosed means the socket is released and the result is final
	StateClosed
)

// String returns a human-readable name for the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProbing:
		return "probing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Callback receives the final result of a session exactly once
type Callback func(devices []*Device, err error)

// Session is one probe cycle. All mutable discovery state (socket,
// deduplication set, results) is private to the session, so overlapping
// sessions never interfere. Only the Bus is shared.
type Session struct {
	opts    options
	request protocol.ProbeRequest
	conn    net.PacketConn
	dedupe  *Deduplicator
	state   atomic.Int32

	startedAt time.Time
	deadline  time.Time

	// Owned by the run goroutine until done is closed
	results []*Device
	errs    []*ProbeError
	err     error

	done chan struct{}
}

type datagram struct {
	from net.Addr
	data []byte
	at   time.Time
}

// Start opens a socket, sends one probe and returns without waiting for
// replies. Device and error events are emitted on the session's bus as
// replies arrive; the final result is available from Wait once Done is
// closed. A socket or send failure closes the session immediately with a
// transport *ProbeError and no devices.
//
// The session ends when the timeout expires or ctx is cancelled,
// whichever comes first.
func Start(ctx context.Context, opts ...Option) *Session {
	if ctx == nil {
		ctx = context.Background()
	}

	o := buildOptions(opts)
	req := protocol.NewProbeRequest(o.messageID)
	req.Types = o.types
	req.Scopes = o.scopes

	s := &Session{
		opts:    o,
		request: req,
		dedupe:  NewDeduplicator(),
		done:    make(chan struct{}),
	}

	if err := s.open(); err != nil {
		s.fail(err)
		return s
	}

	go s.run(ctx)
	return s
}

// Probe starts a session and, if callback is non-nil, calls it with the
// final result once the session closes. Every device and error event has
// been emitted before callback runs.
func Probe(ctx context.Context, callback Callback, opts ...Option) *Session {
	s := Start(ctx, opts...)
	if callback != nil {
		go func() {
			callback(s.Wait())
		}()
	}
	return s
}

// Discover runs a session to completion and returns its devices.
// A non-nil error with non-nil devices means some replies were bad
// (see *ResponseErrors); a transport error comes with no devices.
func Discover(ctx context.Context, opts ...Option) ([]*Device, error) {
	return Start(ctx, opts...).Wait()
}

// MessageID returns the correlation token of the session's probe
func (s *Session) MessageID() string {
	return s.request.MessageID
}

// Request returns the probe that was sent
func (s *Session) Request() protocol.ProbeRequest {
	return s.request
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return State(s.state.Load())
}

// Deadline returns when the session stops collecting replies
func (s *Session) Deadline() time.Time {
	return s.deadline
}

// Done is closed when the session reaches StateClosed
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session closes and returns its result
func (s *Session) Wait() ([]*Device, error) {
	<-s.done
	return s.results, s.err
}

// open binds the socket and sends the probe (Idle -> Probing)
func (s *Session) open() error {
	target, err := net.ResolveUDPAddr("udp4", s.opts.target)
	if err != nil {
		return transportError("resolve", s.opts.target, err)
	}

	conn, err := s.opts.listen("udp4", ":0")
	if err != nil {
		return transportError("listen", target.String(), err)
	}

	if target.IP.IsMulticast() {
		if err := s.configureMulticast(conn); err != nil {
			conn.Close()
			return err
		}
	}

	s.conn = conn
	s.startedAt = time.Now()
	s.deadline = s.startedAt.Add(s.opts.timeout)
	s.state.Store(int32(StateProbing))

	payload := protocol.EncodeProbe(s.request)
	if _, err := conn.WriteTo(payload, target); err != nil {
		conn.Close()
		return transportError("send", target.String(), err)
	}
	logging.LogDatagram("sent", target.String(), payload)

	logging.Info("Probe sent",
		zap.String("message_id", s.request.MessageID),
		zap.String("target", target.String()),
		zap.String("local_addr", conn.LocalAddr().String()),
		zap.Duration("timeout", s.opts.timeout),
		zap.Bool("resolve", s.opts.resolve),
	)
	return nil
}

// configureMulticast sets the outbound interface, TTL and loopback.
// Only an explicitly requested interface that cannot be used is fatal.
func (s *Session) configureMulticast(conn net.PacketConn) error {
	pc := ipv4.NewPacketConn(conn)

	if s.opts.iface != "" {
		ifi, err := net.InterfaceByName(s.opts.iface)
		if err != nil {
			return transportError("interface", s.opts.iface, err)
		}
		if err := pc.SetMulticastInterface(ifi); err != nil {
			return transportError("interface", s.opts.iface, err)
		}
	}

	if err := pc.SetMulticastTTL(s.opts.ttl); err != nil {
		logging.Warn("Failed to set multicast TTL", zap.Int("ttl", s.opts.ttl), zap.Error(err))
	}
	// Responders on this host (simulators) must see the probe too
	if err := pc.SetMulticastLoopback(true); err != nil {
		logging.Warn("Failed to enable multicast loopback", zap.Error(err))
	}
	return nil
}

// run is the session event loop. Datagrams, the timer and ctx are all
// handled on this goroutine, in arrival order.
func (s *Session) run(ctx context.Context) {
	packets := make(chan datagram)
	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go s.read(packets, stop, readerDone)

	timer := time.NewTimer(s.opts.timeout)
	defer timer.Stop()

	var cause error
loop:
	for {
		select {
		case dg := <-packets:
			s.handle(dg)
		case <-timer.C:
			break loop
		case <-ctx.Done():
			cause = ctx.Err()
			break loop
		}
	}

	close(stop)
	_ = s.conn.Close()
	<-readerDone

	s.finish(cause)
}

// read forwards datagrams to the event loop until the socket is closed
func (s *Session) read(out chan<- datagram, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, protocol.MaxDatagramSize)
	for {
		n, from, err := s.conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				logging.Warn("Probe socket read failed", zap.String("message_id", s.request.MessageID), zap.Error(err))
			}
			return
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case out <- datagram{from: from, data: data, at: time.Now()}:
		case <-stop:
			return
		}
	}
}

// handle runs one datagram through decode -> dedupe -> resolve -> emit
func (s *Session) handle(dg datagram) {
	source := dg.from.String()
	logging.LogDatagram("received", source, dg.data)

	resp, err := protocol.DecodeEnvelope(dg.data)
	if err != nil {
		reason := err.Error()
		var mpe *protocol.MalformedPayloadError
		if errors.As(err, &mpe) {
			reason = mpe.Reason
		}
		s.reject(&ProbeError{
			Type:    ErrTypeMalformedPayload,
			Source:  source,
			Message: reason,
			Payload: dg.data,
			Err:     err,
		})
		return
	}

	for _, reason := range resp.Rejected {
		s.reject(&ProbeError{
			Type:    ErrTypeMalformedPayload,
			Source:  source,
			Message: reason,
			Payload: dg.data,
			Err:     protocol.ErrMalformedPayload,
		})
	}

	for i := range resp.Matches {
		match := resp.Matches[i]
		if !s.dedupe.Admit(&match) {
			logging.Debug("Duplicate probe match suppressed",
				zap.String("key", IdentityKey(&match)),
				zap.String("source", source),
			)
			continue
		}

		device := &Device{
			Kind:         KindInfo,
			Match:        match,
			Source:       source,
			Raw:          dg.data,
			DiscoveredAt: dg.at,
		}

		if s.opts.resolve {
			if err := resolveDevice(device); err != nil {
				var pe *ProbeError
				if !errors.As(err, &pe) {
					pe = &ProbeError{Type: ErrTypeUnresolvable, Message: err.Error()}
				}
				pe.Source = source
				pe.Payload = dg.data
				s.reject(pe)
				continue
			}
		}

		s.results = append(s.results, device)
		logging.Info("Device discovered",
			zap.String("key", device.Key()),
			zap.String("urn", match.EndpointAddress),
			zap.String("source", source),
			zap.Stringer("kind", device.Kind),
		)
		s.opts.bus.emitDevice(device)
	}
}

// reject records a non-fatal reply error and notifies subscribers
func (s *Session) reject(pe *ProbeError) {
	s.errs = append(s.errs, pe)
	logging.Warn("Rejected probe reply",
		zap.String("source", pe.Source),
		zap.Stringer("type", pe.Type),
		zap.String("reason", pe.Message),
	)
	s.opts.bus.emitError(ErrorEvent{
		Message: pe.Error(),
		Payload: pe.RawPayload(),
		Source:  pe.Source,
		Err:     pe,
	})
}

// finish publishes the result (Probing -> Closed)
func (s *Session) finish(cause error) {
	var respErr error
	if len(s.errs) > 0 {
		respErr = &ResponseErrors{Errors: s.errs}
	}

	switch {
	case cause != nil && respErr != nil:
		s.err = errors.Join(cause, respErr)
	case cause != nil:
		s.err = cause
	default:
		s.err = respErr
	}

	s.state.Store(int32(StateClosed))
	logging.Info("Probe session closed",
		zap.String("message_id", s.request.MessageID),
		zap.Int("devices", len(s.results)),
		zap.Int("errors", len(s.errs)),
		zap.Duration("elapsed", time.Since(s.startedAt)),
	)
	close(s.done)
}

// fail closes a session that never got past sending its probe
func (s *Session) fail(err error) {
	logging.Error("Probe failed",
		zap.String("message_id", s.request.MessageID),
		zap.Error(err),
	)
	s.err = err
	s.state.Store(int32(StateClosed))
	close(s.done)
}
