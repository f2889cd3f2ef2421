// Package aun implements the plain AUN encapsulation: Econet packets carried
// in UDP datagrams, with unicast acknowledgement and retransmission.
package aun

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/pkg/transport"
)

// Echo reply contents: machine model, make, software version minor/major.
const (
	machineModel   = 0x0e
	machineMake    = 0x00
	swVersionMinor = 0x01
	swVersionMajor = 0x00
)

// echoFlag marks an immediate packet as a machine-type (echo) request.
const echoFlag = 8

const (
	defaultRetryInterval = 100 * time.Millisecond
	inboundQueueSize     = 64
	ackQueueSize         = 16
)

// Config holds configuration for the AUN transport.
type Config struct {
	// ListenAddr is the UDP address to bind (default ":32768").
	ListenAddr string

	// ReplyPort is the UDP port packets are sent to. AUN stations always
	// listen on 32768; tests point this elsewhere. Zero means PortAUN.
	ReplyPort uint16

	// RetryInterval is the unicast retransmission period (default 100ms).
	RetryInterval time.Duration

	// MaxRetries bounds retransmissions of an unacknowledged unicast.
	// Zero retries forever.
	MaxRetries int

	// Metrics receives retransmit and packet counters. May be nil.
	Metrics transport.Metrics
}

type inbound struct {
	pkt  *transport.Packet
	from transport.AUNAddr
}

type ackEvent struct {
	from netip.Addr
	seq  uint32
}

// Transport is an AUN-over-UDP transport.
//
// A reader goroutine owns the socket's receive side. It answers echo
// requests, acknowledges unicasts and routes acks to whichever Transmit
// call is waiting, so payload packets that arrive during a retransmit
// wait are queued rather than lost.
type Transport struct {
	cfg  Config
	conn *net.UDPConn

	packets chan inbound
	acks    chan ackEvent

	seqMu sync.Mutex
	seq   uint32

	lastMu  sync.Mutex
	lastSeq map[netip.Addr]uint32

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// New creates an AUN transport. Call Setup to bind it.
func New(cfg Config) *Transport {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = fmt.Sprintf(":%d", transport.PortAUN)
	}
	if cfg.ReplyPort == 0 {
		cfg.ReplyPort = transport.PortAUN
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	return &Transport{
		cfg:      cfg,
		packets:  make(chan inbound, inboundQueueSize),
		acks:     make(chan ackEvent, ackQueueSize),
		seq:      2,
		lastSeq:  make(map[netip.Addr]uint32),
		shutdown: make(chan struct{}),
	}
}

// Setup binds the UDP socket and starts the reader.
func (t *Transport) Setup() error {
	addr, err := net.ResolveUDPAddr("udp4", t.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", t.cfg.ListenAddr, err)
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", t.cfg.ListenAddr, err)
	}
	t.conn = conn

	logger.Info("AUN transport listening", "address", conn.LocalAddr().String())

	t.wg.Add(1)
	go t.readLoop()
	return nil
}

// LocalAddr returns the bound address, or nil before Setup.
func (t *Transport) LocalAddr() net.Addr {
	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

// Receive returns the next broadcast or unicast payload packet.
func (t *Transport) Receive(ctx context.Context) (*transport.Packet, transport.Addr, error) {
	select {
	case in := <-t.packets:
		return in.pkt, in.from, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-t.shutdown:
		return nil, nil, transport.ErrClosed
	}
}

// Transmit sends pkt to dst, stamping the next sequence number. Unicast
// packets are resent every RetryInterval until an ack with the same
// sequence number arrives from the destination's IP.
func (t *Transport) Transmit(ctx context.Context, pkt *transport.Packet, dst transport.Addr) error {
	a, ok := dst.(transport.AUNAddr)
	if !ok {
		return fmt.Errorf("aun: cannot send to %T", dst)
	}
	if t.conn == nil {
		return transport.ErrClosed
	}

	pkt.Retrans = 0
	pkt.Seq = t.nextSeq()
	buf := pkt.Encode()
	to := netip.AddrPortFrom(a.IP, t.cfg.ReplyPort)

	for attempt := 0; ; attempt++ {
		if _, err := t.conn.WriteToUDPAddrPort(buf, to); err != nil {
			return fmt.Errorf("aun: send to %s: %w", to, err)
		}
		t.recordPacket(pkt.Type.String(), "tx", len(buf))
		if pkt.Type != transport.TypeUnicast {
			return nil
		}

		acked, err := t.waitAck(ctx, a.IP, pkt.Seq)
		if err != nil {
			return err
		}
		if acked {
			return nil
		}

		if t.cfg.MaxRetries > 0 && attempt+1 >= t.cfg.MaxRetries {
			if t.cfg.Metrics != nil {
				t.cfg.Metrics.RecordAckTimeout("aun")
			}
			return fmt.Errorf("%w: %s seq %d after %d attempts", transport.ErrNoAck, a, pkt.Seq, attempt+1)
		}
		if t.cfg.Metrics != nil {
			t.cfg.Metrics.RecordRetransmit("aun")
		}
		logger.Debug("AUN retransmit", "to", a.String(), "seq", pkt.Seq, "attempt", attempt+1)
	}
}

// waitAck waits one retry interval for a matching ack. Acks for other
// packets (late duplicates) are discarded.
func (t *Transport) waitAck(ctx context.Context, from netip.Addr, seq uint32) (bool, error) {
	timer := time.NewTimer(t.cfg.RetryInterval)
	defer timer.Stop()

	for {
		select {
		case ack := <-t.acks:
			if ack.from == from && ack.seq == seq {
				return true, nil
			}
		case <-timer.C:
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		case <-t.shutdown:
			return false, transport.ErrClosed
		}
	}
}

func (t *Transport) nextSeq() uint32 {
	t.seqMu.Lock()
	defer t.seqMu.Unlock()
	s := t.seq
	t.seq += 4
	return s
}

// AddressString renders an AUN address as its dotted IP.
func (t *Transport) AddressString(addr transport.Addr) string {
	if addr == nil {
		return "<nil>"
	}
	return addr.String()
}

// MaxBlock returns the AUN bulk-transfer block size.
func (t *Transport) MaxBlock() int {
	return transport.MaxBlockAUN
}

// Close stops the reader and closes the socket.
func (t *Transport) Close() error {
	var err error
	t.shutdownOnce.Do(func() {
		close(t.shutdown)
		if t.conn != nil {
			err = t.conn.Close()
		}
	})
	t.wg.Wait()
	return err
}

// readLoop demultiplexes everything arriving on the socket.
func (t *Transport) readLoop() {
	defer t.wg.Done()

	buf := make([]byte, 65536)
	for {
		n, from, err := t.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			select {
			case <-t.shutdown:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Debug("AUN read error", "error", err)
			continue
		}

		pkt, err := transport.Decode(buf[:n])
		if err != nil {
			logger.Debug("AUN dropped runt packet", "from", from.String(), "bytes", n)
			continue
		}
		t.recordPacket(pkt.Type.String(), "rx", n)
		t.dispatch(pkt, from.Addr().Unmap())
	}
}

func (t *Transport) dispatch(pkt *transport.Packet, ip netip.Addr) {
	src := transport.AUNAddr{IP: ip}

	switch pkt.Type {
	case transport.TypeImmediate:
		if pkt.Flag == echoFlag {
			t.sendEcho(pkt, ip)
		}

	case transport.TypeAck:
		select {
		case t.acks <- ackEvent{from: ip, seq: pkt.Seq}:
		default:
			logger.Debug("AUN ack queue full, dropping ack", "from", src.String(), "seq", pkt.Seq)
		}

	case transport.TypeUnicast:
		if t.isDuplicate(ip, pkt.Seq) {
			// Our ack was lost; acknowledge again but deliver once.
			t.sendAck(pkt, ip)
			return
		}
		select {
		case t.packets <- inbound{pkt: pkt, from: src}:
			t.markSeen(ip, pkt.Seq)
			t.sendAck(pkt, ip)
		default:
			// Leave it unacknowledged; the peer will retransmit.
			logger.Warn("AUN inbound queue full, dropping unicast", "from", src.String(), "port", pkt.DestPort)
		}

	case transport.TypeBroadcast:
		select {
		case t.packets <- inbound{pkt: pkt, from: src}:
		default:
			logger.Warn("AUN inbound queue full, dropping broadcast", "from", src.String(), "port", pkt.DestPort)
		}
	}
}

// isDuplicate reports whether seq repeats the last unicast delivered from ip.
func (t *Transport) isDuplicate(ip netip.Addr, seq uint32) bool {
	t.lastMu.Lock()
	defer t.lastMu.Unlock()
	last, ok := t.lastSeq[ip]
	return ok && last == seq
}

func (t *Transport) markSeen(ip netip.Addr, seq uint32) {
	t.lastMu.Lock()
	t.lastSeq[ip] = seq
	t.lastMu.Unlock()
}

func (t *Transport) sendAck(pkt *transport.Packet, ip netip.Addr) {
	ack := transport.Packet{Type: transport.TypeAck, Seq: pkt.Seq}
	t.send(ack.Encode(), ip, "ack")
}

func (t *Transport) sendEcho(pkt *transport.Packet, ip netip.Addr) {
	reply := transport.Packet{
		Type:     transport.TypeImmReply,
		DestPort: pkt.DestPort,
		Flag:     pkt.Flag,
		Retrans:  pkt.Retrans,
		Seq:      pkt.Seq,
		Data:     []byte{machineModel, machineMake, swVersionMinor, swVersionMajor},
	}
	t.send(reply.Encode(), ip, "echo reply")
	logger.Debug("AUN echo request answered", "from", ip.String())
}

func (t *Transport) send(b []byte, ip netip.Addr, what string) {
	to := netip.AddrPortFrom(ip, t.cfg.ReplyPort)
	if _, err := t.conn.WriteToUDPAddrPort(b, to); err != nil {
		logger.Warn("AUN send failed", "what", what, "to", to.String(), "error", err)
		return
	}
	t.recordPacket(what, "tx", len(b))
}

func (t *Transport) recordPacket(kind, direction string, n int) {
	if t.cfg.Metrics != nil {
		t.cfg.Metrics.RecordPacket(kind, direction, n)
	}
}

var _ transport.Transport = (*Transport)(nil)
