// Package transporttest provides an in-memory Transport for exercising the
// protocol engines without sockets.
package transporttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/aund/pkg/transport"
)

// Sent is one packet handed to Transmit.
type Sent struct {
	Packet transport.Packet
	To     transport.Addr
}

type inbound struct {
	pkt  *transport.Packet
	from transport.Addr
}

// Fake is an in-memory transport. Packets queued with Inject are returned
// by Receive in order; everything passed to Transmit is recorded.
type Fake struct {
	mu       sync.Mutex
	inbox    chan inbound
	sent     []Sent
	maxBlock int
	seq      uint32
	closed   chan struct{}
	once     sync.Once

	// OnTransmit, when set, runs after each packet is recorded. A non-nil
	// error is returned from Transmit.
	OnTransmit func(pkt *transport.Packet, to transport.Addr) error
}

// New creates a Fake advertising the given block size.
func New(maxBlock int) *Fake {
	return &Fake{
		inbox:    make(chan inbound, 1024),
		maxBlock: maxBlock,
		seq:      2,
		closed:   make(chan struct{}),
	}
}

// Station returns a BeebEm-style address for tests.
func Station(network, station uint8) transport.EconetAddr {
	return transport.EconetAddr{Network: network, Num: station}
}

// Inject queues a packet for Receive.
func (f *Fake) Inject(pkt *transport.Packet, from transport.Addr) {
	f.inbox <- inbound{pkt: pkt, from: from}
}

// Pending reports how many injected packets have not been received yet.
func (f *Fake) Pending() int {
	return len(f.inbox)
}

// Sent returns a copy of everything transmitted so far.
func (f *Fake) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Sent, len(f.sent))
	copy(out, f.sent)
	return out
}

// Last returns the most recent transmitted packet.
func (f *Fake) Last() (Sent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return Sent{}, false
	}
	return f.sent[len(f.sent)-1], true
}

// Reset forgets transmitted packets.
func (f *Fake) Reset() {
	f.mu.Lock()
	f.sent = nil
	f.mu.Unlock()
}

func (f *Fake) Setup() error { return nil }

func (f *Fake) Receive(ctx context.Context) (*transport.Packet, transport.Addr, error) {
	select {
	case in := <-f.inbox:
		return in.pkt, in.from, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-f.closed:
		return nil, nil, transport.ErrClosed
	}
}

func (f *Fake) Transmit(ctx context.Context, pkt *transport.Packet, to transport.Addr) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	pkt.Seq = f.seq
	f.seq += 4
	cp := *pkt
	cp.Data = append([]byte(nil), pkt.Data...)
	f.sent = append(f.sent, Sent{Packet: cp, To: to})
	hook := f.OnTransmit
	f.mu.Unlock()

	if hook != nil {
		return hook(&cp, to)
	}
	return nil
}

func (f *Fake) AddressString(addr transport.Addr) string {
	if addr == nil {
		return "<nil>"
	}
	return fmt.Sprint(addr)
}

func (f *Fake) MaxBlock() int { return f.maxBlock }

func (f *Fake) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

var _ transport.Transport = (*Fake)(nil)
