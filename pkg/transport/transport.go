// Package transport defines how Econet frames reach the protocol engines.
//
// A Transport hides the physical encapsulation (plain AUN over UDP, or the
// BeebEm emulator's Econet-over-UDP scout/ack handshake) behind a common
// interface. Receive only ever yields payload-bearing packets: acks,
// immediate probes and handshake chatter are consumed inside the transport.
package transport

import (
	"context"
	"errors"
)

// Well-known Econet ports and limits.
const (
	// PortAUN is the UDP port AUN stations listen on. Replies always go here.
	PortAUN = 32768

	// PortFileServer is the Econet port of the file server.
	PortFileServer = 0x99

	// PortPrintStatusEnquiry, PortPrintStatusReply and PortPrintJob are
	// the print server ports.
	PortPrintStatusEnquiry = 0x9f
	PortPrintStatusReply   = 0x9e
	PortPrintJob           = 0xd1

	// MaxBlockAUN is the largest bulk-transfer payload carried in one AUN packet.
	MaxBlockAUN = 4096
)

var (
	// ErrNoAck is returned by Transmit when the peer never acknowledged a
	// reliable unicast within the configured retry budget.
	ErrNoAck = errors.New("transport: no acknowledgement from peer")

	// ErrClosed is returned once the transport has been closed.
	ErrClosed = errors.New("transport: closed")

	// ErrTooLarge is returned when a packet does not fit the encapsulation.
	ErrTooLarge = errors.New("transport: packet too large")

	// ErrBadHandshake is returned when a BeebEm handshake is answered by
	// the wrong station or with a malformed frame.
	ErrBadHandshake = errors.New("transport: bad handshake")
)

// Transport sends and receives Econet packets.
//
// Implementations are not required to support concurrent Transmit calls;
// the server is strictly sequential.
type Transport interface {
	// Setup binds the listening socket. Failure is fatal for the caller.
	Setup() error

	// Receive blocks until a payload-bearing packet arrives or ctx is done.
	Receive(ctx context.Context) (*Packet, Addr, error)

	// Transmit sends pkt to dst. Unicast packets are retransmitted until
	// acknowledged, the retry budget runs out (ErrNoAck) or ctx is done.
	Transmit(ctx context.Context, pkt *Packet, dst Addr) error

	// AddressString renders addr for logs.
	AddressString(addr Addr) string

	// MaxBlock is the largest bulk-transfer payload per packet.
	MaxBlock() int

	// Close releases the socket. Pending Receive calls return ErrClosed.
	Close() error
}

// Metrics receives transport-level events. A nil Metrics is valid.
type Metrics interface {
	RecordRetransmit(kind string)
	RecordAckTimeout(kind string)
	RecordPacket(kind string, direction string, bytes int)
}
