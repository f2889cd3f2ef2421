package fileserver

import (
	"os"

	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/internal/protocol/econet"
	"github.com/marmos91/aund/pkg/metadata"
)

// GET_INFO arguments.
const (
	infoCTime  uint8 = 1
	infoMeta   uint8 = 2
	infoSize   uint8 = 3
	infoAccess uint8 = 4
	infoAll    uint8 = 5
	infoDir    uint8 = 6
	infoUID    uint8 = 7
)

// SET_INFO arguments.
const (
	setInfoAll    uint8 = 1
	setInfoLoad   uint8 = 2
	setInfoExec   uint8 = 3
	setInfoAccess uint8 = 4
)

// dirAccessPublic is the directory ownership byte of GET_INFO DIR.
const dirAccessPublic uint8 = 0xFF

// handleGetInfo reports one attribute of an object. An object that cannot
// be stat'ed is reported with type 0 rather than an error, except by the
// DIR form.
func (s *Server) handleGetInfo(req *request) error {
	arg := req.reader().ReadUint8()
	acorn := req.path(1)

	rel, host, err := s.translate(req, acorn)
	if err != nil {
		return err
	}
	o, statErr := s.describe(req.ctx, host)

	w := newReply(ccDone, 20)
	switch arg {
	case infoCTime:
		w.WriteUint8(o.objType())
		w.WriteDate(o.ctime)
	case infoMeta:
		w.WriteUint8(o.objType())
		writeMeta(w, o.meta)
	case infoSize:
		w.WriteUint8(o.objType())
		w.WriteVal(uint64(o.size), 3)
	case infoAccess:
		if statErr != nil {
			w.WriteUint8(0xFF)
		} else {
			w.WriteUint8(o.objType())
		}
		w.WriteUint8(o.access())
	case infoAll:
		w.WriteUint8(o.objType())
		writeMeta(w, o.meta)
		w.WriteVal(uint64(o.size), 3)
		w.WriteUint8(o.access())
		w.WriteDate(o.ctime)
	case infoDir:
		if statErr != nil {
			return statErr
		}
		w.WriteUint8(0)
		w.WriteUint8(0)
		w.WriteUint8(10)
		w.WritePadded(acornLeaf(rel), 10)
		w.WriteUint8(dirAccessPublic)
		w.WriteUint8(0)
	case infoUID:
		w.WriteUint8(o.objType())
		w.WriteVal(0, 3)
		w.WriteUint8(0)
		w.WriteVal(0, 2)
	default:
		return ErrBadInfo
	}

	if statErr != nil {
		logger.DebugCtx(req.ctx, "Get info on unreadable object",
			logger.Acorn(acorn), logger.Err(statErr))
	}
	return s.reply(req, w.Bytes())
}

func writeMeta(w *econet.Writer, m metadata.Meta) {
	b := m.Bytes()
	w.WriteBytes(b[:])
}

// handleSetInfo changes load/exec addresses or access bits. Access cannot
// be set on directories.
func (s *Server) handleSetInfo(req *request) error {
	rd := req.reader()
	arg := rd.ReadUint8()

	var (
		load, exec *uint32
		access     uint8
		offset     int
	)
	switch arg {
	case setInfoAll:
		l, e := rd.ReadUint32(), rd.ReadUint32()
		load, exec = &l, &e
		offset = 9
	case setInfoLoad:
		l := rd.ReadUint32()
		load = &l
		offset = 5
	case setInfoExec:
		e := rd.ReadUint32()
		exec = &e
		offset = 5
	case setInfoAccess:
		access = rd.ReadUint8()
		offset = 2
	default:
		return ErrBadInfo
	}
	if err := rd.Err(); err != nil {
		return ErrBadInfo
	}
	acorn := req.path(offset)

	_, host, err := s.translate(req, acorn)
	if err != nil {
		return err
	}
	st, err := os.Stat(host)
	if err != nil {
		return err
	}

	if arg == setInfoAccess {
		if st.IsDir() {
			return ErrNoAccess
		}
		mode := accessToMode(access, s.cfg.UserGroup)
		logger.DebugCtx(req.ctx, "Set access",
			logger.Acorn(acorn), "access", accessString(access), "mode", mode)
		if err := os.Chmod(host, mode); err != nil {
			return err
		}
		return s.replyDone(req)
	}

	m := s.objectMeta(req.ctx, host, st)
	if load != nil {
		m.Load = *load
	}
	if exec != nil {
		m.Exec = *exec
	}
	if err := s.meta.Set(req.ctx, host, m); err != nil {
		return err
	}
	logger.DebugCtx(req.ctx, "Set metadata",
		logger.Acorn(acorn), "load", m.Load, "exec", m.Exec)
	return s.replyDone(req)
}
