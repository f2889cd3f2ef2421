// Package station runs the receive loop of an Econet station: packets
// are read from one transport and handed to the service bound to their
// destination port.
package station

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/internal/telemetry"
	"github.com/marmos91/aund/pkg/transport"
)

// Handler serves packets for one or more ports.
type Handler interface {
	ServePacket(ctx context.Context, pkt *transport.Packet, from transport.Addr)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, pkt *transport.Packet, from transport.Addr)

func (f HandlerFunc) ServePacket(ctx context.Context, pkt *transport.Packet, from transport.Addr) {
	f(ctx, pkt, from)
}

// Station dispatches packets by port. Packets are handled one at a time
// in arrival order.
type Station struct {
	tr       transport.Transport
	handlers map[uint8]Handler

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
	wg           sync.WaitGroup
}

// New creates a station reading from tr.
func New(tr transport.Transport) *Station {
	return &Station{
		tr:       tr,
		handlers: make(map[uint8]Handler),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Handle binds h to port. It must be called before Serve.
func (s *Station) Handle(port uint8, h Handler) {
	if _, dup := s.handlers[port]; dup {
		panic(fmt.Sprintf("station: port 0x%02x bound twice", port))
	}
	s.handlers[port] = h
}

// Ports returns the bound ports.
func (s *Station) Ports() []uint8 {
	ports := make([]uint8, 0, len(s.handlers))
	for p := range s.handlers {
		ports = append(ports, p)
	}
	return ports
}

// Serve receives packets until ctx is cancelled, Stop is called or the
// transport is closed. A stopped station returns nil.
func (s *Station) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.wg.Add(1)
	defer s.wg.Done()
	defer close(s.done)

	go func() {
		select {
		case <-ctx.Done():
		case <-s.shutdown:
			cancel()
		}
	}()

	logger.Info("Station serving", "ports", len(s.handlers))
	for {
		pkt, from, err := s.tr.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, transport.ErrClosed) {
				logger.Debug("Station receive loop stopped", logger.Err(err))
				return nil
			}
			logger.Debug("Station receive error", logger.Err(err))
			continue
		}
		s.dispatch(ctx, pkt, from)
	}
}

func (s *Station) dispatch(ctx context.Context, pkt *transport.Packet, from transport.Addr) {
	h, ok := s.handlers[pkt.DestPort]
	if !ok {
		logger.Debug("No service on port",
			logger.Port(pkt.DestPort), logger.Client(s.tr.AddressString(from)))
		return
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPacket)
	span.SetAttributes(
		telemetry.Port(pkt.DestPort),
		telemetry.ClientAddr(s.tr.AddressString(from)),
		telemetry.Bytes(len(pkt.Data)),
	)
	defer span.End()

	h.ServePacket(ctx, pkt, from)
}

// Stop ends Serve and waits for the packet in progress to be handled.
func (s *Station) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
	})
	s.wg.Wait()
}

// Done is closed when Serve returns.
func (s *Station) Done() <-chan struct{} { return s.done }
