package fileserver

import (
	"context"
	"errors"
	"io"

	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/internal/telemetry"
	"github.com/marmos91/aund/pkg/bufpool"
)

// dataSend streams up to size bytes from r to the client's data port, in
// chunks no larger than the transport's block size. The data port is the
// request's first slot.
//
// When r runs dry the transfer ends early: a short chunk, or a
// zero-length chunk if nothing was left, tells the client where the data
// stopped. With PadShortReads the legacy behaviour applies instead and
// zero-filled chunks are sent until size is accounted for.
//
// It returns the number of real bytes sent.
func (s *Server) dataSend(req *request, r io.Reader, size int64) (int64, error) {
	ctx, span := telemetry.StartSpan(req.ctx, telemetry.SpanDataSend)
	defer span.End()

	port := req.raw[0]
	flag := req.flag & 1
	block := int64(s.tr.MaxBlock())
	buf := bufpool.Get(int(min(size, block)))
	defer bufpool.Put(buf)

	var done int64
	var chunks int
	eof := false
	for size > 0 {
		n := min(size, block)
		chunk := buf[:n]
		if eof {
			clear(chunk)
		} else {
			got, err := io.ReadFull(r, chunk)
			switch {
			case err == nil:
			case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
				eof = true
				if s.cfg.PadShortReads {
					clear(chunk[got:])
				} else {
					chunk = chunk[:got]
				}
			default:
				return done, err
			}
			done += int64(got)
		}

		data := make([]byte, len(chunk))
		copy(data, chunk)
		if err := s.send(ctx, req, port, flag, data); err != nil {
			return done, err
		}
		chunks++
		size -= int64(len(chunk))
		if eof && !s.cfg.PadShortReads {
			break
		}
	}

	span.SetAttributes(telemetry.Bytes(int(done)), telemetry.EOF(eof))
	logger.DebugCtx(req.ctx, "Data sent",
		logger.Bytes(int(done)), logger.EOF(eof), "chunks", chunks)
	if s.metrics != nil && req.fn != nil {
		s.metrics.RecordBytesTransferred(req.fn.Name, "send", uint64(done))
	}
	return done, nil
}

// dataRecv reads size bytes from the client on DataPort and writes them
// to w. After every chunk but the last an acknowledgement is sent to
// ackPort so that the client sends the next one. Each chunk must arrive
// within the transfer timeout and from the requesting station.
func (s *Server) dataRecv(req *request, w io.Writer, size int64, ackPort uint8) (int64, error) {
	ctx, span := telemetry.StartSpan(req.ctx, telemetry.SpanDataRecv)
	defer span.End()

	var done int64
	for done < size {
		rctx, cancel := context.WithTimeout(ctx, s.cfg.TransferTimeout)
		pkt, from, err := s.tr.Receive(rctx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				logger.WarnCtx(req.ctx, "Bulk receive timed out",
					logger.Bytes(int(done)), logger.Size(uint64(size)))
				return done, ErrTimedOut
			}
			return done, err
		}
		if pkt.DestPort != DataPort || from != req.from {
			logger.WarnCtx(req.ctx, "Unexpected packet during bulk receive",
				logger.Client(s.tr.AddressString(from)), logger.Port(pkt.DestPort))
			return done, ErrConfused
		}

		data := pkt.Data
		if rest := size - done; int64(len(data)) > rest {
			data = data[:rest]
		}
		if _, err := w.Write(data); err != nil {
			return done, err
		}
		done += int64(len(data))

		if done < size {
			if err := s.send(ctx, req, ackPort, 0, []byte{0}); err != nil {
				return done, err
			}
		}
	}

	span.SetAttributes(telemetry.Bytes(int(done)))
	if s.metrics != nil && req.fn != nil {
		s.metrics.RecordBytesTransferred(req.fn.Name, "receive", uint64(done))
	}
	return done, nil
}
