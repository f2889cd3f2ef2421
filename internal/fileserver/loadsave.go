package fileserver

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/pkg/metadata"
)

func (s *Server) handleLoad(req *request) error {
	acorn := req.path(0)
	_, host, err := s.translate(req, acorn)
	if err != nil {
		return err
	}
	return s.load(req, acorn, host)
}

// handleLoadCommand loads a file to run as a command. A name that is not
// found in the current directory is looked for in the library.
func (s *Server) handleLoadCommand(req *request) error {
	acorn := req.path(0)
	_, host, err := s.translate(req, acorn)
	if err != nil {
		return err
	}
	if _, err := os.Stat(host); errors.Is(err, fs.ErrNotExist) && !hasSelector(acorn) {
		if _, libHost, err := s.translate(req, "%."+acorn); err == nil {
			host = libHost
		}
	}
	return s.load(req, acorn, host)
}

// hasSelector reports whether an Acorn path names its own base directory.
func hasSelector(acorn string) bool {
	return acorn != "" && strings.IndexByte(":$&@%", acorn[0]) >= 0
}

// load sends a whole file: a reply describing it, the data on the data
// port, then a final reply once the data is through.
func (s *Server) load(req *request, acorn, host string) error {
	f, err := os.Open(host)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.IsDir() {
		return ErrNoAccess
	}
	o := s.describeInfo(req.ctx, host, st)

	w := newReply(ccDone, 14)
	writeMeta(w, o.meta)
	w.WriteVal(uint64(o.size), 3)
	w.WriteUint8(o.access())
	w.WriteDate(o.ctime)
	if err := s.reply(req, w.Bytes()); err != nil {
		return err
	}

	sent, err := s.dataSend(req, f, o.size)
	if err != nil {
		return err
	}
	logger.DebugCtx(req.ctx, "Loaded",
		logger.Acorn(acorn), logger.Path(host), logger.Size(uint64(sent)))
	return s.replyDone(req)
}

// handleSave receives a whole file. The load and exec addresses come
// with the request and are recorded once the data is in.
func (s *Server) handleSave(req *request) error {
	rd := req.reader()
	meta := metadata.FromBytes(padMeta(rd.ReadBytes(8)))
	size := int64(rd.ReadVal(3))
	acorn := req.path(11)

	if s.cfg.MaxSaveSize > 0 && size > s.cfg.MaxSaveSize {
		return ErrTooBig
	}

	_, host, err := s.translate(req, acorn)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(host, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o666)
	if err != nil {
		return err
	}

	w := newReply(ccDone, 3)
	w.WriteUint8(DataPort)
	w.WriteVal(uint64(s.tr.MaxBlock()), 2)
	if err := s.reply(req, w.Bytes()); err != nil {
		_ = f.Close()
		return err
	}

	got, recvErr := s.dataRecv(req, f, size, req.raw[0])
	closeErr := f.Close()
	if recvErr != nil {
		return recvErr
	}
	if closeErr != nil {
		return closeErr
	}

	if err := s.meta.Set(req.ctx, host, meta); err != nil {
		logger.WarnCtx(req.ctx, "Failed to record metadata", logger.Path(host), logger.Err(err))
	}
	st, err := os.Stat(host)
	if err != nil {
		return err
	}
	logger.DebugCtx(req.ctx, "Saved",
		logger.Acorn(acorn), logger.Path(host), logger.Size(uint64(got)),
		logger.FileType(meta.FileType()))

	w = newReply(ccDone, 3)
	w.WriteUint8(modeToAccess(st.Mode()))
	w.WriteDate(changeTime(st))
	return s.reply(req, w.Bytes())
}

// padMeta extends a short metadata field with zeros.
func padMeta(b []byte) []byte {
	if len(b) >= 8 {
		return b
	}
	out := make([]byte, 8)
	copy(out, b)
	return out
}
