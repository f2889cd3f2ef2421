// Package printserver implements the Econet print server protocol.
//
// Clients find a printer with a status enquiry on port 0x9F and send job
// data to port 0xD1. Each job is spooled to its own file; a job is
// complete once the client sends its CLOSE block.
package printserver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/internal/protocol/econet"
	"github.com/marmos91/aund/internal/telemetry"
	"github.com/marmos91/aund/pkg/metrics"
	"github.com/marmos91/aund/pkg/transport"
)

// Status enquiry reasons.
const (
	ReasonStatus uint8 = 1
	ReasonName   uint8 = 6
)

// Printer states reported by a status reply.
const (
	StatusReady   uint8 = 0
	StatusBusy    uint8 = 1
	StatusJammed  uint8 = 2
	StatusOffline uint8 = 6
)

// Job flag byte.
const (
	flagSeq       uint8 = 0x01
	modeMask      uint8 = 0x06
	modeOpen      uint8 = 0x00
	modeSBlk      uint8 = 0x02
	modeLBlk      uint8 = 0x04
	modeClose     uint8 = 0x06
	taskIDMask    uint8 = 0x74
	taskIDNew     uint8 = 0x40
	endOfTransmit byte  = 0x03
)

// nameLen is the width of printer names on the wire.
const nameLen = 6

// DefaultName is used when no printer name is configured.
const DefaultName = "PRINT"

// defaultNames are answered whatever the printer is called.
var defaultNames = []string{"PRINT", "SPOOL"}

// Config configures a Server.
type Config struct {
	// Name is the printer name, at most six characters.
	Name string

	// SpoolDir receives one file per completed job.
	SpoolDir string
}

// Server is a print server bound to one transport.
type Server struct {
	cfg     Config
	tr      transport.Transport
	metrics metrics.PrintServerMetrics

	mu   sync.Mutex
	jobs map[transport.Addr]*job
	now  func() time.Time
}

// job is a print job being spooled for one client.
type job struct {
	file     *os.File
	started  time.Time
	sequence int
	bytes    uint64
}

// New creates a print server and makes sure the spool directory exists.
// m may be nil.
func New(cfg Config, tr transport.Transport, m metrics.PrintServerMetrics) (*Server, error) {
	if cfg.SpoolDir == "" {
		return nil, errors.New("printserver: spool directory is required")
	}
	if err := os.MkdirAll(cfg.SpoolDir, 0o755); err != nil {
		return nil, fmt.Errorf("printserver: spool directory: %w", err)
	}
	cfg.Name = strings.ToUpper(strings.TrimSpace(cfg.Name))
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if len(cfg.Name) > nameLen {
		cfg.Name = cfg.Name[:nameLen]
	}

	return &Server{
		cfg:     cfg,
		tr:      tr,
		metrics: m,
		jobs:    make(map[transport.Addr]*job),
		now:     time.Now,
	}, nil
}

// Name returns the printer name.
func (s *Server) Name() string { return s.cfg.Name }

// ServePacket handles one packet addressed to a print server port.
func (s *Server) ServePacket(ctx context.Context, pkt *transport.Packet, from transport.Addr) {
	switch pkt.DestPort {
	case transport.PortPrintStatusEnquiry:
		s.handleEnquiry(ctx, pkt, from)
	case transport.PortPrintJob:
		s.handleJob(ctx, pkt, from)
	default:
		logger.Debug("Print server ignoring packet", logger.Port(pkt.DestPort))
	}
}

// answersTo reports whether an enquiry for name is meant for this printer.
func (s *Server) answersTo(name string) bool {
	name = strings.TrimRight(name, " \x00")
	if strings.EqualFold(name, s.cfg.Name) {
		return true
	}
	for _, n := range defaultNames {
		if strings.EqualFold(name, n) {
			return true
		}
	}
	return false
}

// handleEnquiry answers a status or name enquiry. Enquiries for other
// printers and unknown reasons go unanswered: the protocol has no way to
// report them.
func (s *Server) handleEnquiry(ctx context.Context, pkt *transport.Packet, from transport.Addr) {
	client := s.tr.AddressString(from)
	r := econet.NewReader(pkt.Data)
	name := string(r.ReadBytes(nameLen))
	reason := r.ReadUint8()
	if r.Err() != nil {
		logger.Debug("Dropping short print enquiry", logger.Client(client), logger.Bytes(len(pkt.Data)))
		return
	}

	ctx, span := telemetry.StartPrintSpan(ctx, telemetry.SpanPrintEnquiry, client,
		telemetry.Printer(strings.TrimRight(name, " ")))
	defer span.End()

	if !s.answersTo(name) {
		logger.Debug("Enquiry for another printer", logger.Client(client), "printer", name)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordEnquiry(reason)
	}

	w := econet.NewWriter(nameLen)
	switch reason {
	case ReasonStatus:
		status, net, stn := s.status(from)
		w.WriteUint8(status)
		w.WriteUint8(stn)
		w.WriteUint8(net)
	case ReasonName:
		w.WritePadded(s.cfg.Name, nameLen)
	default:
		logger.Debug("Unknown print enquiry reason", logger.Client(client), "reason", reason)
		return
	}

	reply := &transport.Packet{
		Type:     transport.TypeUnicast,
		DestPort: transport.PortPrintStatusReply,
		Flag:     pkt.Flag,
		Data:     w.Bytes(),
	}
	if err := s.tr.Transmit(ctx, reply, from); err != nil {
		telemetry.Fail(span, err)
		logger.Warn("Failed to answer print enquiry", logger.Client(client), logger.Err(err))
	}
}

// status reports the printer as busy with the station of another client's
// job in progress, ready otherwise.
func (s *Server) status(from transport.Addr) (status, net, stn uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr := range s.jobs {
		if addr != from {
			net, stn = addr.Station()
			return StatusBusy, net, stn
		}
	}
	return StatusReady, 0, 0
}

// handleJob spools one block of job data and acknowledges it with a
// one-byte reply carrying the negotiated flag.
func (s *Server) handleJob(ctx context.Context, pkt *transport.Packet, from transport.Addr) {
	client := s.tr.AddressString(from)
	ctx, span := telemetry.StartPrintSpan(ctx, telemetry.SpanPrintJob, client,
		telemetry.Bytes(len(pkt.Data)))
	defer span.End()
	ctx = logger.WithContext(ctx, logger.NewLogContext(client).
		WithFunction("PRINT").
		WithPort(pkt.DestPort).
		WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx)))

	flag := pkt.Flag
	replyFlag, err := s.spool(ctx, client, flag, pkt.Data, from)
	if err != nil {
		telemetry.Fail(span, err)
		logger.WarnCtx(ctx, "Print job failed", logger.Err(err))
		return
	}

	reply := &transport.Packet{
		Type:     transport.TypeUnicast,
		DestPort: transport.PortPrintJob,
		Flag:     replyFlag,
		Data:     []byte{0},
	}
	if err := s.tr.Transmit(ctx, reply, from); err != nil {
		logger.WarnCtx(ctx, "Failed to acknowledge print data", logger.Err(err))
	}
}

func (s *Server) spool(ctx context.Context, client string, flag uint8, data []byte, from transport.Addr) (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode := flag & modeMask
	j := s.jobs[from]

	if mode == modeOpen {
		if j != nil {
			logger.Info("Client restarted print job", logger.Client(client))
			s.abandon(from, j)
		}
		var err error
		if j, err = s.open(from); err != nil {
			return 0, err
		}
		logger.Info("Print job started", logger.Client(client), logger.Path(j.file.Name()))

		if flag&taskIDMask == taskIDNew {
			flag = flag&^modeMask | modeLBlk
		} else {
			flag = flag&^modeMask | modeSBlk
		}
	} else if j == nil {
		var err error
		if j, err = s.open(from); err != nil {
			return 0, err
		}
		logger.Debug("Print data without open, starting job", logger.Client(client))
	}

	seq := int(flag & flagSeq)
	if seq == j.sequence {
		logger.Debug("Duplicate print block", logger.Client(client))
		return flag, nil
	}
	j.sequence = seq

	if mode == modeClose {
		data = trimEOT(data)
	}
	if len(data) > 0 {
		if _, err := j.file.Write(data); err != nil {
			s.abandon(from, j)
			return 0, err
		}
		j.bytes += uint64(len(data))
	}

	if mode == modeClose {
		return flag, s.finish(ctx, from, j)
	}
	return flag, nil
}

// trimEOT drops the end-of-transmission byte clients end a job with.
func trimEOT(data []byte) []byte {
	if n := len(data); n > 0 && data[n-1] == endOfTransmit {
		return data[:n-1]
	}
	return data
}

// open starts a job for from. Data is written to a ".part" file that is
// renamed once the job completes.
func (s *Server) open(from transport.Addr) (*job, error) {
	net, stn := from.Station()
	pattern := fmt.Sprintf("%s-%d.%d-%s-*.part",
		strings.ToLower(s.cfg.Name), net, stn, s.now().Format("20060102T150405"))
	f, err := os.CreateTemp(s.cfg.SpoolDir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	j := &job{file: f, started: s.now(), sequence: -1}
	s.jobs[from] = j
	s.updateGauge()
	return j, nil
}

func (s *Server) finish(ctx context.Context, from transport.Addr, j *job) error {
	delete(s.jobs, from)
	s.updateGauge()

	part := j.file.Name()
	err := j.file.Close()
	if err == nil {
		err = os.Rename(part, strings.TrimSuffix(part, ".part")+".prn")
	}
	if s.metrics != nil {
		s.metrics.RecordJob(j.bytes, err == nil)
	}
	if err != nil {
		_ = os.Remove(part)
		return fmt.Errorf("finish spool file: %w", err)
	}
	logger.InfoCtx(ctx, "Print job spooled",
		logger.Client(s.tr.AddressString(from)),
		logger.Path(filepath.Base(part)),
		logger.Size(j.bytes),
		logger.DurationMs(float64(s.now().Sub(j.started).Microseconds())/1000))
	return nil
}

// abandon drops an unfinished job and its spool file.
func (s *Server) abandon(from transport.Addr, j *job) {
	delete(s.jobs, from)
	s.updateGauge()
	_ = j.file.Close()
	_ = os.Remove(j.file.Name())
	if s.metrics != nil {
		s.metrics.RecordJob(j.bytes, false)
	}
}

// ActiveJobs returns the number of jobs being spooled.
func (s *Server) ActiveJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Server) updateGauge() {
	if s.metrics != nil {
		s.metrics.SetActiveJobs(len(s.jobs))
	}
}

// Close abandons every unfinished job.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for from, j := range s.jobs {
		logger.Warn("Abandoning unfinished print job", logger.Path(j.file.Name()))
		s.abandon(from, j)
	}
	return nil
}
