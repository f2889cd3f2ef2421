package station

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/aund/pkg/transport"
	"github.com/marmos91/aund/pkg/transport/transporttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	ports []uint8
	seen  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{seen: make(chan struct{}, 16)}
}

func (r *recorder) ServePacket(_ context.Context, pkt *transport.Packet, _ transport.Addr) {
	r.mu.Lock()
	r.ports = append(r.ports, pkt.DestPort)
	r.mu.Unlock()
	r.seen <- struct{}{}
}

func (r *recorder) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for packet %d", i+1)
		}
	}
}

func TestDispatchByPort(t *testing.T) {
	tr := transporttest.New(1024)
	fs, ps := newRecorder(), newRecorder()

	st := New(tr)
	st.Handle(transport.PortFileServer, fs)
	st.Handle(transport.PortPrintJob, ps)
	st.Handle(transport.PortPrintStatusEnquiry, ps)
	assert.Len(t, st.Ports(), 3)

	from := transporttest.Station(0, 1)
	tr.Inject(&transport.Packet{DestPort: transport.PortFileServer}, from)
	tr.Inject(&transport.Packet{DestPort: 0x42}, from)
	tr.Inject(&transport.Packet{DestPort: transport.PortPrintJob}, from)
	tr.Inject(&transport.Packet{DestPort: transport.PortPrintStatusEnquiry}, from)

	errc := make(chan error, 1)
	go func() { errc <- st.Serve(context.Background()) }()

	fs.wait(t, 1)
	ps.wait(t, 2)
	st.Stop()
	require.NoError(t, <-errc)

	assert.Equal(t, []uint8{transport.PortFileServer}, fs.ports)
	assert.Equal(t, []uint8{transport.PortPrintJob, transport.PortPrintStatusEnquiry}, ps.ports)
	assert.Equal(t, 0, tr.Pending())
}

func TestServeStopsOnCancel(t *testing.T) {
	st := New(transporttest.New(1024))
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- st.Serve(ctx) }()
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	<-st.Done()
}

func TestServeStopsOnTransportClose(t *testing.T) {
	tr := transporttest.New(1024)
	st := New(tr)

	errc := make(chan error, 1)
	go func() { errc <- st.Serve(context.Background()) }()
	require.NoError(t, tr.Close())
	assert.NoError(t, <-errc)
}

func TestHandleTwicePanics(t *testing.T) {
	st := New(transporttest.New(1024))
	st.Handle(0x99, HandlerFunc(func(context.Context, *transport.Packet, transport.Addr) {}))
	assert.Panics(t, func() {
		st.Handle(0x99, HandlerFunc(func(context.Context, *transport.Packet, transport.Addr) {}))
	})
}
