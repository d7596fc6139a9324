package responder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/muurk/onvifprobe/internal/logging"
	"github.com/muurk/onvifprobe/internal/protocol"
)

// Config controls what the responder listens on and how it answers
type Config struct {
	// Addr is the UDP address to listen on (unicast host:port or a multicast group)
	Addr string

	// Interface restricts the multicast group join to one interface
	Interface string

	// Devices are answered with one ProbeMatches datagram each
	Devices []protocol.ProbeMatch

	// Replies maps probe message ids to raw payloads sent instead of Devices
	Replies map[string][]string

	// Repeat sends every reply this many times (simulates multiple network paths)
	Repeat int

	// Delay waits before each reply
	Delay time.Duration
}

// Responder answers WS-Discovery probes
type Responder struct {
	cfg    Config
	conn   net.PacketConn
	wg     sync.WaitGroup
	probes atomic.Int64

	closing   chan struct{}
	watchDone chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// New creates a responder; call Start to begin answering probes
func New(cfg Config) *Responder {
	if cfg.Repeat < 1 {
		cfg.Repeat = 1
	}
	return &Responder{
		cfg:       cfg,
		closing:   make(chan struct{}),
		watchDone: make(chan struct{}),
	}
}

// Start binds the socket and serves probes until Close or ctx is done
func (r *Responder) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp4", r.cfg.Addr)
	if err != nil {
		return fmt.Errorf("invalid responder address %q: %w", r.cfg.Addr, err)
	}

	listenAddr := addr.String()
	if addr.IP.IsMulticast() {
		listenAddr = net.JoinHostPort("0.0.0.0", strconv.Itoa(addr.Port))
	}

	conn, err := net.ListenPacket("udp4", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listenAddr, err)
	}

	if addr.IP.IsMulticast() {
		if err := r.joinGroup(conn, addr.IP); err != nil {
			conn.Close()
			return err
		}
	}

	r.conn = conn
	logging.Info("Responder listening",
		zap.String("addr", conn.LocalAddr().String()),
		zap.Int("devices", len(r.cfg.Devices)),
		zap.Int("scripted", len(r.cfg.Replies)),
	)

	r.wg.Add(1)
	go r.serve()

	if ctx.Done() != nil {
		go r.watch(ctx)
	} else {
		close(r.watchDone)
	}

	return nil
}

// Addr returns the bound local address
func (r *Responder) Addr() net.Addr {
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// ProbeCount returns how many valid probes have been answered
func (r *Responder) ProbeCount() int64 {
	return r.probes.Load()
}

// Close stops serving and releases the socket
func (r *Responder) Close() error {
	r.closeOnce.Do(func() {
		close(r.closing)
		if r.conn != nil {
			r.closeErr = r.conn.Close()
		}
		r.wg.Wait()
	})
	return r.closeErr
}

// watch closes the responder when ctx ends; it also exits on a direct Close
func (r *Responder) watch(ctx context.Context) {
	defer close(r.watchDone)
	select {
	case <-ctx.Done():
		r.Close()
	case <-r.closing:
	}
}

func (r *Responder) joinGroup(conn net.PacketConn, group net.IP) error {
	var ifaces []net.Interface
	if r.cfg.Interface != "" {
		ifi, err := net.InterfaceByName(r.cfg.Interface)
		if err != nil {
			return fmt.Errorf("interface %s not found: %w", r.cfg.Interface, err)
		}
		ifaces = []net.Interface{*ifi}
	} else {
		all, err := net.Interfaces()
		if err != nil {
			return fmt.Errorf("failed to list interfaces: %w", err)
		}
		for _, ifi := range all {
			if ifi.Flags&net.FlagUp != 0 && ifi.Flags&net.FlagMulticast != 0 {
				ifaces = append(ifaces, ifi)
			}
		}
	}

	pc := ipv4.NewPacketConn(conn)
	joined := 0
	for i := range ifaces {
		if err := pc.JoinGroup(&ifaces[i], &net.UDPAddr{IP: group}); err != nil {
			logging.Debug("Multicast join failed", zap.String("interface", ifaces[i].Name), zap.Error(err))
			continue
		}
		logging.Debug("Multicast join succeeded", zap.String("interface", ifaces[i].Name))
		joined++
	}

	if joined == 0 {
		return errors.New("no multicast interfaces available")
	}
	return nil
}

func (r *Responder) serve() {
	defer r.wg.Done()

	buf := make([]byte, protocol.MaxDatagramSize)
	for {
		n, from, err := r.conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				logging.Warn("Responder read failed", zap.Error(err))
			}
			return
		}
		logging.LogDatagram("received", from.String(), buf[:n])

		req, err := protocol.DecodeProbe(buf[:n])
		if err != nil {
			logging.Debug("Ignoring non-probe datagram", zap.String("from", from.String()), zap.Error(err))
			continue
		}

		r.probes.Add(1)
		r.answer(from, req)
	}
}

// answer sends scripted payloads or the matching device replies
func (r *Responder) answer(to net.Addr, req *protocol.ProbeRequest) {
	var replies [][]byte
	if scripted, ok := r.cfg.Replies[req.MessageID]; ok {
		for _, payload := range scripted {
			replies = append(replies, []byte(payload))
		}
	} else {
		for _, device := range r.cfg.Devices {
			if !MatchesProbe(req, device) {
				continue
			}
			replies = append(replies, protocol.EncodeProbeMatches(protocol.Response{
				RelatesTo: req.MessageID,
				Matches:   []protocol.ProbeMatch{device},
			}))
		}
	}

	logging.Debug("Answering probe",
		zap.String("message_id", req.MessageID),
		zap.String("to", to.String()),
		zap.Int("replies", len(replies)),
	)

	for i := 0; i < r.cfg.Repeat; i++ {
		for _, payload := range replies {
			if r.cfg.Delay > 0 {
				time.Sleep(r.cfg.Delay)
			}
			if _, err := r.conn.WriteTo(payload, to); err != nil {
				logging.Warn("Responder write failed", zap.String("to", to.String()), zap.Error(err))
				return
			}
			logging.LogDatagram("sent", to.String(), payload)
		}
	}
}

// MatchesProbe reports whether device satisfies the probe's Types and
// Scopes. QNames are compared by local part, so prefixes need not agree.
// A device without types matches any type filter.
func MatchesProbe(req *protocol.ProbeRequest, device protocol.ProbeMatch) bool {
	if len(device.Types) > 0 {
		for _, want := range req.Types {
			if !containsLocal(device.Types, want) {
				return false
			}
		}
	}
	for _, scope := range req.Scopes {
		if !hasScopePrefix(device.Scopes, scope) {
			return false
		}
	}
	return true
}

func containsLocal(qnames []string, want string) bool {
	w := localName(want)
	for _, q := range qnames {
		if localName(q) == w {
			return true
		}
	}
	return false
}

func localName(qname string) string {
	if i := strings.LastIndex(qname, ":"); i >= 0 {
		return qname[i+1:]
	}
	return qname
}

// hasScopePrefix implements the default RFC 3986 prefix matching rule
func hasScopePrefix(scopes []string, want string) bool {
	want = strings.TrimSuffix(want, "/")
	for _, s := range scopes {
		s = strings.TrimSuffix(s, "/")
		if s == want || strings.HasPrefix(s, want+"/") {
			return true
		}
	}
	return false
}
