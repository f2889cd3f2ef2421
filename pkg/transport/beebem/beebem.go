// Package beebem implements the BeebEm emulator's Econet-over-UDP
// encapsulation.
//
// Every frame starts with a 4-byte Econet header (destination station and
// network, source station and network). A transfer is a four-way
// handshake: scout, ack, payload, ack. The medium is emulated as a bus, so
// every frame is sent to every listed station except ourselves. The
// handshake ties up the transport until it completes, the way a real
// Econet transaction holds the wire.
package beebem

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync/atomic"
	"time"

	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/pkg/transport"
)

const (
	// MaxBlock is the bulk-transfer block size BeebEm clients expect.
	MaxBlock = 512

	// DefaultStation is the file server's own Econet address (0.254).
	DefaultStation = 254

	econetHeaderSize = 4
	scoutSize        = 6
	scoutControl     = 0x80
	machineTypeFS    = 254

	defaultPollInterval = 100 * time.Millisecond
)

// Config holds configuration for the BeebEm transport.
type Config struct {
	// ConfigFile is the BeebEm Econet station table.
	ConfigFile string

	// Network and Station are our own Econet address (default 0.254).
	Network uint8
	Station uint8

	// PollInterval is how long each handshake step waits before
	// resending (default 100ms).
	PollInterval time.Duration

	// MaxRetries bounds resends within a handshake. Zero retries forever.
	MaxRetries int

	// Metrics may be nil.
	Metrics transport.Metrics
}

// Transport is a BeebEm Econet transport. It is synchronous: Receive and
// Transmit must not be called concurrently.
type Transport struct {
	cfg      Config
	self     uint16
	stations []StationEntry
	conn     *net.UDPConn
	buf      []byte
	closed   atomic.Bool
}

// New creates a BeebEm transport. Call Setup to read the station table and
// bind.
func New(cfg Config) *Transport {
	if cfg.Station == 0 {
		cfg.Station = DefaultStation
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Transport{
		cfg:  cfg,
		self: uint16(cfg.Network)<<8 | uint16(cfg.Station),
		buf:  make([]byte, 65536),
	}
}

// Setup reads the station table and binds to our own listed endpoint.
func (t *Transport) Setup() error {
	stations, err := LoadStations(t.cfg.ConfigFile)
	if err != nil {
		return err
	}
	t.stations = stations

	var self *StationEntry
	for i := range stations {
		if stations[i].Addr() == t.self {
			self = &stations[i]
			break
		}
	}
	if self == nil {
		return fmt.Errorf("fileserver address %d.%d not listed in %s",
			t.cfg.Network, t.cfg.Station, t.cfg.ConfigFile)
	}

	conn, err := net.ListenUDP("udp4", net.UDPAddrFromAddrPort(self.AddrPort))
	if err != nil {
		return fmt.Errorf("bind %s: %w", self.AddrPort, err)
	}
	t.conn = conn

	logger.Info("BeebEm transport listening",
		"address", self.AddrPort.String(),
		"station", fmt.Sprintf("%d.%d", t.cfg.Network, t.cfg.Station),
		"stations", len(stations))
	return nil
}

// Receive waits for a scout, completes the handshake and returns the
// payload as a unicast packet with sequence number 0.
func (t *Transport) Receive(ctx context.Context) (*transport.Packet, transport.Addr, error) {
scout:
	for {
		frame, scoutAddr, from, err := t.listen(ctx, true)
		if err != nil {
			return nil, nil, err
		}

		ack := []byte{byte(scoutAddr), byte(scoutAddr >> 8), byte(t.self), byte(t.self >> 8)}

		if len(frame) > scoutSize && frame[5] == 0 {
			// Machine type query: claim to be a file server.
			t.broadcast(append(ack, machineTypeFS, 0, 0, 0))
			continue
		}
		if len(frame) != scoutSize {
			logger.Debug("BeebEm wrong-size scout",
				"bytes", len(frame), "from", stationString(scoutAddr))
			continue
		}
		port := frame[5]

		var payload []byte
		var mainAddr uint16
		var from2 netip.AddrPort
		for attempt := 0; payload == nil; attempt++ {
			if t.cfg.MaxRetries > 0 && attempt >= t.cfg.MaxRetries {
				logger.Debug("BeebEm payload never arrived", "from", stationString(scoutAddr))
				t.recordAckTimeout()
				continue scout
			}
			t.broadcast(ack)
			payload, mainAddr, from2, err = t.listen(ctx, false)
			if err != nil {
				return nil, nil, err
			}
		}

		if mainAddr != scoutAddr {
			logger.Debug("BeebEm payload from wrong station",
				"expected", stationString(scoutAddr), "got", stationString(mainAddr))
			continue
		}
		if from2 != from {
			logger.Debug("BeebEm sender endpoint switched mid-handshake",
				"was", from.String(), "now", from2.String())
			continue
		}

		t.broadcast(ack)

		data := make([]byte, len(payload)-econetHeaderSize)
		copy(data, payload[econetHeaderSize:])
		pkt := &transport.Packet{
			Type:     transport.TypeUnicast,
			DestPort: port,
			Data:     data,
		}
		src := transport.EconetAddr{
			Network:  uint8(scoutAddr >> 8),
			Num:      uint8(scoutAddr),
			AddrPort: from,
		}
		t.recordPacket("unicast", "rx", len(payload))
		return pkt, src, nil
	}
}

// Transmit runs the sending half of the four-way handshake.
func (t *Transport) Transmit(ctx context.Context, pkt *transport.Packet, dst transport.Addr) error {
	a, ok := dst.(transport.EconetAddr)
	if !ok {
		return fmt.Errorf("beebem: cannot send to %T", dst)
	}
	if t.conn == nil || t.closed.Load() {
		return transport.ErrClosed
	}
	if len(pkt.Data)+econetHeaderSize > len(t.buf) {
		return fmt.Errorf("%w: %d bytes", transport.ErrTooLarge, len(pkt.Data))
	}

	target := uint16(a.Network)<<8 | uint16(a.Num)
	hdr := []byte{a.Num, a.Network, byte(t.self), byte(t.self >> 8)}

	scout := append(append([]byte{}, hdr...), scoutControl, pkt.DestPort)
	if err := t.handshake(ctx, scout, target); err != nil {
		return err
	}

	frame := append(append(make([]byte, 0, len(hdr)+len(pkt.Data)), hdr...), pkt.Data...)
	if err := t.handshake(ctx, frame, target); err != nil {
		return err
	}
	t.recordPacket(pkt.Type.String(), "tx", len(frame))
	return nil
}

// handshake sends frame until something addressed to us comes back, and
// checks that it is a 4-byte ack from target.
func (t *Transport) handshake(ctx context.Context, frame []byte, target uint16) error {
	for attempt := 0; ; attempt++ {
		if t.cfg.MaxRetries > 0 && attempt >= t.cfg.MaxRetries {
			t.recordAckTimeout()
			return fmt.Errorf("%w: %s", transport.ErrNoAck, stationString(target))
		}
		if attempt > 0 && t.cfg.Metrics != nil {
			t.cfg.Metrics.RecordRetransmit("beebem")
		}

		t.broadcast(frame)
		reply, from, _, err := t.listen(ctx, false)
		if err != nil {
			return err
		}
		if reply == nil {
			continue
		}
		if from != target {
			return fmt.Errorf("%w: expected ack from %s, got %s",
				transport.ErrBadHandshake, stationString(target), stationString(from))
		}
		if len(reply) != econetHeaderSize {
			return fmt.Errorf("%w: %d-byte ack from %s",
				transport.ErrBadHandshake, len(reply), stationString(target))
		}
		return nil
	}
}

// listen reads the next frame addressed to us. With forever unset it gives
// up after one poll interval and returns a nil frame. The returned frame
// aliases the receive buffer until the next call.
func (t *Transport) listen(ctx context.Context, forever bool) ([]byte, uint16, netip.AddrPort, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, netip.AddrPort{}, err
		}
		if t.closed.Load() {
			return nil, 0, netip.AddrPort{}, transport.ErrClosed
		}

		if err := t.conn.SetReadDeadline(time.Now().Add(t.cfg.PollInterval)); err != nil {
			return nil, 0, netip.AddrPort{}, err
		}
		n, from, err := t.conn.ReadFromUDPAddrPort(t.buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				if forever {
					continue
				}
				return nil, 0, netip.AddrPort{}, nil
			}
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil, 0, netip.AddrPort{}, transport.ErrClosed
			}
			return nil, 0, netip.AddrPort{}, fmt.Errorf("beebem: read: %w", err)
		}

		if n < econetHeaderSize {
			continue
		}
		frame := t.buf[:n]
		if uint16(frame[1])<<8|uint16(frame[0]) != t.self {
			continue
		}
		src := uint16(frame[3])<<8 | uint16(frame[2])
		return frame, src, netip.AddrPortFrom(from.Addr().Unmap(), from.Port()), nil
	}
}

// broadcast sends b to every listed station except ourselves.
func (t *Transport) broadcast(b []byte) {
	for _, s := range t.stations {
		if s.Addr() == t.self {
			continue
		}
		if _, err := t.conn.WriteToUDPAddrPort(b, s.AddrPort); err != nil {
			logger.Warn("BeebEm send failed", "to", s.AddrPort.String(), "error", err)
		}
	}
}

// AddressString renders an Econet address as "station N.S".
func (t *Transport) AddressString(addr transport.Addr) string {
	if addr == nil {
		return "<nil>"
	}
	return addr.String()
}

// MaxBlock returns the BeebEm bulk-transfer block size.
func (t *Transport) MaxBlock() int {
	return MaxBlock
}

// Close closes the socket.
func (t *Transport) Close() error {
	if t.closed.Swap(true) || t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

func (t *Transport) recordPacket(kind, direction string, n int) {
	if t.cfg.Metrics != nil {
		t.cfg.Metrics.RecordPacket(kind, direction, n)
	}
}

func (t *Transport) recordAckTimeout() {
	if t.cfg.Metrics != nil {
		t.cfg.Metrics.RecordAckTimeout("beebem")
	}
}

func stationString(addr uint16) string {
	return fmt.Sprintf("%d.%d", addr>>8, addr&0xff)
}

var _ transport.Transport = (*Transport)(nil)
