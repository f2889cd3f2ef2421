package fileserver

import (
	"errors"
	"io"

	"github.com/marmos91/aund/internal/logger"
)

// GETBYTE reply flags.
const (
	flagLast uint8 = 0x80
	flagEOF  uint8 = 0xC0

	// eofByte is returned by GETBYTE when reading past the end.
	eofByte uint8 = 0xFE
)

// GET_ARGS and SET_ARGS arguments.
const (
	argPtr  uint8 = 0
	argExt  uint8 = 1
	argSize uint8 = 2
)

func (s *Server) handleOpen(req *request) error {
	rd := req.reader()
	mustExist := rd.ReadUint8() != 0
	readOnly := rd.ReadUint8() != 0
	acorn := req.path(2)

	rel, _, err := s.translate(req, acorn)
	if err != nil {
		return err
	}
	id, err := req.session.openHandle(s.cfg.Root, rel, mustExist, readOnly)
	if err != nil {
		return err
	}

	logger.DebugCtx(req.ctx, "Opened",
		logger.Acorn(acorn), logger.Path(rel), logger.Handle(id),
		"must_exist", mustExist, "read_only", readOnly)

	w := newReply(ccDone, 1)
	w.WriteUint8(id)
	return s.reply(req, w.Bytes())
}

// handleClose closes one handle, or with handle 0 every file the session
// has open. Directory handles survive a close-all since they back the
// standing directories. A failure in a close-all is logged, does not stop
// the sweep and does not change the reply.
func (s *Server) handleClose(req *request) error {
	id := req.reader().ReadUint8()
	sess := req.session

	if id == 0 {
		var first error
		closed := 0
		for i := 1; i < len(sess.handles); i++ {
			h := sess.handles[i]
			if h == nil || h.file == nil {
				continue
			}
			if err := s.flushAndClose(sess, uint8(i)); err != nil && first == nil {
				first = err
			}
			closed++
		}
		// Every slot is already freed, so the client is told OK and a
		// sync failure is only logged.
		if err := s.replyDone(req); err != nil {
			return err
		}
		if first != nil {
			logger.WarnCtx(req.ctx, "Error closing files", logger.Count(uint32(closed)), logger.Err(first))
		}
		return nil
	}

	if sess.Handle(id) == nil {
		return s.replyDone(req)
	}
	if err := s.flushAndClose(sess, id); err != nil {
		return err
	}
	return s.replyDone(req)
}

// flushAndClose syncs a file handle to disc and frees its slot. The slot is
// freed even when the sync fails.
func (s *Server) flushAndClose(sess *Session, id uint8) error {
	h := sess.Handle(id)
	var syncErr error
	if h != nil && h.file != nil {
		syncErr = s.syncFile(h.file)
	}
	if err := sess.closeHandle(id); err != nil {
		return err
	}
	return syncErr
}

func (s *Server) handleGetByte(req *request) error {
	h, err := req.session.fileHandle(req.raw[0])
	if err != nil {
		return err
	}

	if h.duplicate(req.flag) {
		return s.reply(req, []byte{ccDone, 0, h.lastByte, h.lastFlag})
	}

	var b [1]byte
	n, err := h.file.Read(b[:])
	switch {
	case n == 1:
		h.lastByte, h.lastFlag = b[0], 0
		if atEnd, err := fileAtEnd(h); err == nil && atEnd {
			h.lastFlag = flagLast
		}
	case err == nil || errors.Is(err, io.EOF):
		h.lastByte, h.lastFlag = eofByte, flagEOF
	default:
		return err
	}
	return s.reply(req, []byte{ccDone, 0, h.lastByte, h.lastFlag})
}

func (s *Server) handlePutByte(req *request) error {
	h, err := req.session.fileHandle(req.raw[0])
	if err != nil {
		return err
	}
	if !h.duplicate(req.flag) {
		if _, err := h.file.Write([]byte{req.raw[1]}); err != nil {
			return err
		}
	}
	return s.replyDone(req)
}

// fileAtEnd reports whether the file pointer is at or past the extent.
func fileAtEnd(h *Handle) (bool, error) {
	pos, err := h.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, err
	}
	st, err := h.file.Stat()
	if err != nil {
		return false, err
	}
	return pos >= st.Size(), nil
}

// bulkRequest is the common part of GETBYTES and PUTBYTES.
type bulkRequest struct {
	handle *Handle
	usePtr bool
	size   int64
	offset int64
	saved  int64
}

// prepareBulk positions the file for a GETBYTES or PUTBYTES. With use_ptr
// the transfer starts at the file pointer, rewound to where the previous
// transfer started if this request is a retransmission. Otherwise it starts
// at the given offset and the file pointer is restored afterwards.
func (s *Server) prepareBulk(req *request) (*bulkRequest, error) {
	h, err := req.session.fileHandle(req.csd)
	if err != nil {
		return nil, err
	}

	rd := req.reader()
	b := &bulkRequest{
		handle: h,
		usePtr: req.raw[2] != 0,
		size:   int64(rd.ReadVal(3)),
		offset: int64(rd.ReadVal(3)),
	}

	dup := h.duplicate(req.flag)
	cur, err := h.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	b.saved = cur

	start := cur
	switch {
	case !b.usePtr:
		start = b.offset
	case dup:
		start = h.lastStart
	}
	if start != cur {
		if _, err := h.file.Seek(start, io.SeekStart); err != nil {
			return nil, err
		}
	}
	h.lastStart = start

	logger.DebugCtx(req.ctx, "Bulk transfer",
		logger.Handle(req.csd), logger.Size(uint64(b.size)),
		logger.Offset(uint64(start)), "use_ptr", b.usePtr, "retransmit", dup)
	return b, nil
}

// finish restores the file pointer of an explicit-offset transfer.
func (b *bulkRequest) finish() error {
	if b.usePtr {
		return nil
	}
	_, err := b.handle.file.Seek(b.saved, io.SeekStart)
	return err
}

func (s *Server) handleGetBytes(req *request) error {
	b, err := s.prepareBulk(req)
	if err != nil {
		return err
	}
	if err := s.replyDone(req); err != nil {
		return err
	}

	got, sendErr := s.dataSend(req, b.handle.file, b.size)
	if err := b.finish(); err != nil {
		return err
	}
	if sendErr != nil {
		return sendErr
	}

	w := newReply(ccDone, 4)
	if got == b.size {
		w.WriteUint8(0)
	} else {
		w.WriteUint8(flagLast)
	}
	w.WriteVal(uint64(got), 3)
	return s.reply(req, w.Bytes())
}

func (s *Server) handlePutBytes(req *request) error {
	b, err := s.prepareBulk(req)
	if err != nil {
		return err
	}

	w := newReply(ccDone, 3)
	w.WriteUint8(DataPort)
	w.WriteVal(uint64(s.tr.MaxBlock()), 2)
	if err := s.reply(req, w.Bytes()); err != nil {
		return err
	}

	got, recvErr := s.dataRecv(req, b.handle.file, b.size, req.raw[0])
	if err := b.finish(); err != nil {
		return err
	}
	if recvErr != nil {
		return recvErr
	}

	w = newReply(ccDone, 4)
	w.WriteUint8(0)
	w.WriteVal(uint64(got), 3)
	return s.reply(req, w.Bytes())
}

func (s *Server) handleGetArgs(req *request) error {
	rd := req.reader()
	h, err := req.session.fileHandle(rd.ReadUint8())
	if err != nil {
		return err
	}

	var val int64
	switch arg := rd.ReadUint8(); arg {
	case argPtr:
		if val, err = h.file.Seek(0, io.SeekCurrent); err != nil {
			return err
		}
	case argExt, argSize:
		st, err := h.file.Stat()
		if err != nil {
			return err
		}
		val = st.Size()
		if arg == argSize {
			val = allocatedSize(st)
		}
	default:
		return ErrBadArgs
	}

	w := newReply(ccDone, 3)
	w.WriteVal(uint64(val), 3)
	return s.reply(req, w.Bytes())
}

func (s *Server) handleSetArgs(req *request) error {
	rd := req.reader()
	h, err := req.session.fileHandle(rd.ReadUint8())
	if err != nil {
		return err
	}
	arg := rd.ReadUint8()
	val := int64(rd.ReadVal(3))

	if h.sequence >= 0 {
		h.sequence ^= 1
	}

	switch arg {
	case argPtr:
		if _, err := h.file.Seek(val, io.SeekStart); err != nil {
			return err
		}
	case argExt:
		if err := h.file.Truncate(val); err != nil {
			return err
		}
	}
	return s.replyDone(req)
}

func (s *Server) handleGetEOF(req *request) error {
	h, err := req.session.fileHandle(req.reader().ReadUint8())
	if err != nil {
		return err
	}
	atEnd, err := fileAtEnd(h)
	if err != nil {
		return err
	}
	w := newReply(ccDone, 1)
	if atEnd {
		w.WriteUint8(0xFF)
	} else {
		w.WriteUint8(0)
	}
	return s.reply(req, w.Bytes())
}
