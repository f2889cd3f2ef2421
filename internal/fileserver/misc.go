package fileserver

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/pkg/metadata"
)

// discNameLen is the width of disc name fields.
const discNameLen = 16

// freeBlockSize is the unit of GET_FREE replies.
const freeBlockSize = 256

// handleGetDiscs lists the single disc this server has.
func (s *Server) handleGetDiscs(req *request) error {
	rd := req.reader()
	first := rd.ReadUint8()
	count := rd.ReadUint8()

	w := newReply(ccDiscs, 1+1+discNameLen)
	if first == 0 && count > 0 {
		w.WriteUint8(1)
		w.WriteUint8(0)
		w.WritePadded(s.cfg.DiscName, discNameLen)
	} else {
		w.WriteUint8(0)
	}
	return s.reply(req, w.Bytes())
}

// handleGetUsersOn lists logged-in users from index start.
func (s *Server) handleGetUsersOn(req *request) error {
	rd := req.reader()
	start := int(rd.ReadUint8())
	count := int(rd.ReadUint8())

	var users []*Session
	for _, sess := range s.registry.sessions() {
		if sess.LoggedIn() {
			users = append(users, sess)
		}
	}
	if start > len(users) {
		start = len(users)
	}
	users = users[start:]
	users = users[:min(count, len(users))]

	w := newReply(ccDone, 1+len(users)*13)
	w.WriteUint8(uint8(len(users)))
	for _, u := range users {
		net, stn := u.Addr.Station()
		w.WriteUint8(stn)
		w.WriteUint8(net)
		w.WritePadded(u.Login, 10)
		w.WriteUint8(0)
	}
	return s.reply(req, w.Bytes())
}

func (s *Server) handleGetTime(req *request) error {
	now := s.now().Local()
	w := newReply(ccDone, 5)
	w.WriteDate(now)
	w.WriteUint8(uint8(now.Hour()))
	w.WriteUint8(uint8(now.Minute()))
	w.WriteUint8(uint8(now.Second()))
	return s.reply(req, w.Bytes())
}

// handleGetUEnv reports the disc name and the leaf names of the current
// and library directories. A missing directory is reported as blanks.
func (s *Server) handleGetUEnv(req *request) error {
	leaf := func(id uint8) string {
		if h := req.session.Handle(id); h != nil {
			return acornLeaf(h.Path)
		}
		return ""
	}

	w := newReply(ccDone, 1+discNameLen+20)
	w.WriteUint8(discNameLen)
	w.WritePadded(s.cfg.DiscName, discNameLen)
	w.WritePadded(leaf(req.csd), 10)
	w.WritePadded(leaf(req.lib), 10)
	return s.reply(req, w.Bytes())
}

// handleSetOpt4 changes the boot option. It is remembered for the session
// and, with a password file, for future logins.
func (s *Server) handleSetOpt4(req *request) error {
	opt4 := req.reader().ReadUint8() & 0x0F
	sess := req.session
	if s.cfg.Passwords != nil {
		if err := s.cfg.Passwords.SetOpt4(sess.Login, opt4); err != nil {
			return err
		}
	}
	sess.Opt4 = opt4
	logger.DebugCtx(req.ctx, "Boot option changed", "opt4", opt4)
	return s.replyDone(req)
}

func (s *Server) handleLogoff(req *request) error {
	if req.session != nil {
		logger.InfoCtx(req.ctx, "Logged off", logger.User(req.session.Login))
		s.registry.Destroy(req.session)
		req.session = nil
	}
	return s.replyDone(req)
}

// handleGetUser reports the station a user is logged in at.
func (s *Server) handleGetUser(req *request) error {
	user := req.path(0)
	for _, sess := range s.registry.sessions() {
		if !sess.LoggedIn() || !strings.EqualFold(sess.Login, user) {
			continue
		}
		net, stn := sess.Addr.Station()
		w := newReply(ccDone, 3)
		w.WriteUint8(0)
		w.WriteUint8(stn)
		w.WriteUint8(net)
		return s.reply(req, w.Bytes())
	}
	return ErrNotFound
}

func (s *Server) handleGetVersion(req *request) error {
	w := newReply(ccDone, len(s.cfg.Version)+1)
	w.WriteString(s.cfg.Version)
	return s.reply(req, w.Bytes())
}

// handleGetFree reports free space in 256-byte blocks.
func (s *Server) handleGetFree(req *request) error {
	free, err := freeSpace(s.cfg.Root)
	if err != nil {
		return err
	}
	w := newReply(ccDone, 3)
	w.WriteVal(free/freeBlockSize, 3)
	return s.reply(req, w.Bytes())
}

func (s *Server) handleWhoAmI(req *request) error {
	w := newReply(ccDone, len(req.session.Login)+1)
	w.WriteString(req.session.Login)
	return s.reply(req, w.Bytes())
}

// handleDelete removes a file or an empty directory and replies with what
// it was.
func (s *Server) handleDelete(req *request) error {
	acorn := req.path(0)
	_, host, err := s.translate(req, acorn)
	if err != nil {
		return err
	}
	o, err := s.remove(req, host)
	if err != nil {
		return err
	}
	logger.DebugCtx(req.ctx, "Deleted", logger.Acorn(acorn), logger.Path(host))

	w := newReply(ccDone, 11)
	writeMeta(w, o.meta)
	w.WriteVal(uint64(o.size), 3)
	return s.reply(req, w.Bytes())
}

// remove deletes host along with any metadata recorded for it.
func (s *Server) remove(req *request, host string) (objectInfo, error) {
	o, err := s.describe(req.ctx, host)
	if err != nil {
		return o, err
	}
	if o.mode.IsDir() {
		// Metadata of the children must survive a refused delete, so the
		// store is only cleared once nothing visible is left inside.
		entries, err := s.scanDir(req.ctx, host)
		if err != nil {
			return o, err
		}
		if len(entries) > 0 {
			return o, ErrDirNotEmpty
		}
		if err := s.meta.RemoveDir(req.ctx, host); err != nil {
			return o, err
		}
	}
	if err := os.Remove(host); err != nil {
		return o, err
	}
	if err := s.meta.Delete(req.ctx, host); err != nil {
		logger.WarnCtx(req.ctx, "Failed to forget metadata", logger.Path(host), logger.Err(err))
	}
	return o, nil
}

// handleCDirN creates a directory. The leading size hint byte is ignored.
func (s *Server) handleCDirN(req *request) error {
	if err := s.mkdir(req, req.path(1)); err != nil {
		return err
	}
	return s.replyDone(req)
}

func (s *Server) mkdir(req *request, acorn string) error {
	_, host, err := s.translate(req, acorn)
	if err != nil {
		return err
	}
	if err := os.Mkdir(host, 0o777); err != nil {
		return err
	}
	logger.DebugCtx(req.ctx, "Created directory", logger.Acorn(acorn), logger.Path(host))
	return nil
}

// handleCreate makes a zero-filled file of the requested size without a
// data transfer, recording the addresses given.
func (s *Server) handleCreate(req *request) error {
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
	if st, err := os.Stat(host); err == nil && st.IsDir() {
		return ErrNoAccess
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	f, err := os.OpenFile(host, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o666)
	if err != nil {
		return err
	}
	truncErr := f.Truncate(size)
	closeErr := f.Close()
	if truncErr != nil {
		return truncErr
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
	w := newReply(ccDone, 3)
	w.WriteUint8(modeToAccess(st.Mode()))
	w.WriteDate(changeTime(st))
	return s.reply(req, w.Bytes())
}
