package fileserver

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/pkg/passwd"
)

// cliCommand is one star command the server interprets itself.
type cliCommand struct {
	// full is the command name. min is the shortest abbreviation accepted
	// when the client ends the word with a dot.
	full string
	min  string

	needsLogin bool
	run        func(s *Server, req *request, tail string) error
}

var cliCommands []cliCommand

func init() {
	cliCommands = []cliCommand{
		{full: "I", min: "I", run: (*Server).cmdIAm},
		{full: "INFO", min: "INF", needsLogin: true, run: (*Server).cmdInfo},
		{full: "LIB", min: "LIB", needsLogin: true, run: (*Server).cmdLib},
		{full: "DIR", min: "DIR", needsLogin: true, run: (*Server).cmdDir},
		{full: "PASS", min: "PASS", needsLogin: true, run: (*Server).cmdPass},
		{full: "SDISC", min: "SDIS", needsLogin: true, run: (*Server).cmdSDisc},
		{full: "LOGOFF", min: "LOGOFF", run: (*Server).cmdLogoff},
		{full: "BYE", min: "BYE", run: (*Server).cmdLogoff},
		{full: "RENAME", min: "REN", needsLogin: true, run: (*Server).cmdRename},
		{full: "CDIR", min: "CDIR", needsLogin: true, run: (*Server).cmdCDir},
		{full: "DELETE", min: "DEL", needsLogin: true, run: (*Server).cmdDelete},
		{full: "ACCESS", min: "ACC", needsLogin: true, run: (*Server).cmdAccess},
		{full: "LOAD", min: "LOAD", needsLogin: true, run: (*Server).cmdLoad},
		{full: "SAVE", min: "SAVE", needsLogin: true, run: (*Server).cmdSave},
	}
}

// handleCLI interprets a command line. Commands the server does not know
// are handed back for the client to deal with.
func (s *Server) handleCLI(req *request) error {
	line := req.path(0)
	tail := strings.TrimPrefix(line, "*")
	word, tail := getArg(tail)

	for _, cmd := range cliCommands {
		if !cmd.matches(word) {
			continue
		}
		logger.DebugCtx(req.ctx, "CLI command", "command", cmd.full)
		if cmd.needsLogin && !req.session.LoggedIn() {
			return ErrWhoAreYou
		}
		return cmd.run(s, req, tail)
	}
	return s.unrecognised(req, line)
}

// matches reports whether word names the command: exactly, or as an
// abbreviation ending in a dot that is at least min long.
func (c cliCommand) matches(word string) bool {
	word = strings.ToUpper(word)
	if abbrev, ok := strings.CutSuffix(word, "."); ok {
		return strings.HasPrefix(c.full, abbrev) && strings.HasPrefix(abbrev, c.min)
	}
	return word == c.full
}

// getArg splits the first argument off a command tail. A double-quoted
// argument runs to the next quote, or to the end if there is none.
func getArg(s string) (arg, rest string) {
	s = strings.TrimLeft(s, " ")
	if strings.HasPrefix(s, `"`) {
		s = s[1:]
		if i := strings.IndexByte(s, '"'); i >= 0 {
			return s[:i], s[i+1:]
		}
		return s, ""
	}
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

func (s *Server) unrecognised(req *request, line string) error {
	w := newReply(ccUnrec, len(line)+1)
	w.WriteString(line)
	return s.reply(req, w.Bytes())
}

// cmdIAm logs a user on. Any session the station had is replaced, so
// handles from an earlier login do not survive.
func (s *Server) cmdIAm(req *request, tail string) error {
	am, tail := getArg(tail)
	if !strings.EqualFold(am, "AM") {
		return s.unrecognised(req, req.path(0))
	}
	login, tail := getArg(tail)
	password, _ := getArg(tail)

	urd, opt4 := s.cfg.URD, s.cfg.DefaultOpt4
	if s.cfg.Passwords != nil {
		acct, err := s.cfg.Passwords.Validate(login, password)
		if err != nil {
			s.recordLogin(false)
			logger.InfoCtx(req.ctx, "Login refused", logger.User(login), logger.Err(err))
			if errors.Is(err, passwd.ErrBadPassword) || errors.Is(err, passwd.ErrNoSuchUser) {
				return ErrBadPassword
			}
			return err
		}
		login = acct.User
		opt4 = acct.Opt4
		if urd, err = cleanRel(acct.URD); err != nil {
			return ErrNoAccess
		}
	}

	sess := s.registry.New(req.from)
	sess.Login = login
	sess.URD = urd
	sess.Opt4 = opt4
	req.session = sess
	s.recordLogin(true)

	urdH := s.openDir(req, urd)
	csdH := s.openDir(req, urd)
	libH := s.openDir(req, s.cfg.Lib)

	logger.InfoCtx(req.ctx, "Logged on",
		logger.User(login), logger.SessionID(sess.ID.String()),
		"urd", urd, "opt4", opt4)

	w := newReply(ccLogon, 4)
	w.WriteUint8(urdH)
	w.WriteUint8(csdH)
	w.WriteUint8(libH)
	w.WriteUint8(opt4)
	return s.reply(req, w.Bytes())
}

// openDir opens a standing directory handle, returning 0 on failure.
func (s *Server) openDir(req *request, rel string) uint8 {
	id, err := req.session.openHandle(s.cfg.Root, rel, true, true)
	if err != nil {
		logger.WarnCtx(req.ctx, "Cannot open directory", logger.Path(rel), logger.Err(err))
		return 0
	}
	return id
}

func (s *Server) recordLogin(ok bool) {
	if s.metrics != nil {
		s.metrics.RecordLogin(ok)
	}
}

func (s *Server) cmdPass(req *request, tail string) error {
	oldPW, tail := getArg(tail)
	newPW, _ := getArg(tail)

	if s.cfg.Passwords == nil {
		return ErrLocked
	}
	if err := s.cfg.Passwords.Change(req.session.Login, oldPW, newPW); err != nil {
		if errors.Is(err, passwd.ErrBadPassword) || errors.Is(err, passwd.ErrNoSuchUser) {
			return ErrBadPassword
		}
		return err
	}
	logger.InfoCtx(req.ctx, "Password changed", logger.User(req.session.Login))
	return s.replyDone(req)
}

// cmdSDisc resets the user environment to the state after logon.
func (s *Server) cmdSDisc(req *request, _ string) error {
	sess := req.session
	for _, id := range []uint8{req.urd, req.csd, req.lib} {
		if err := sess.closeHandle(id); err != nil {
			logger.DebugCtx(req.ctx, "Close on SDISC", logger.Handle(id), logger.Err(err))
		}
	}

	w := newReply(ccSDisc, 3)
	w.WriteUint8(s.openDir(req, sess.URD))
	w.WriteUint8(s.openDir(req, sess.URD))
	w.WriteUint8(s.openDir(req, s.cfg.Lib))
	return s.reply(req, w.Bytes())
}

func (s *Server) cmdDir(req *request, tail string) error {
	return s.changeDir(req, tail, req.csd, ccDir)
}

func (s *Server) cmdLib(req *request, tail string) error {
	return s.changeDir(req, tail, req.lib, ccLib)
}

// changeDir replaces the directory handle old with one for the directory
// named in tail and tells the client the new handle with code cc. With
// no argument *DIR goes back to the user root.
func (s *Server) changeDir(req *request, tail string, old, cc uint8) error {
	acorn, _ := getArg(tail)
	if acorn == "" {
		acorn = "&"
	}
	rel, host, err := s.translate(req, acorn)
	if err != nil {
		return err
	}
	st, err := os.Stat(host)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return ErrNotDir
	}

	sess := req.session
	if err := sess.closeHandle(old); err != nil {
		logger.DebugCtx(req.ctx, "Close of old directory", logger.Handle(old), logger.Err(err))
	}
	id, err := sess.openHandle(s.cfg.Root, rel, true, true)
	if err != nil {
		return err
	}

	w := newReply(cc, 1)
	w.WriteUint8(id)
	return s.reply(req, w.Bytes())
}

func (s *Server) cmdInfo(req *request, tail string) error {
	acorn, _ := getArg(tail)
	rel, host, err := s.translate(req, acorn)
	if err != nil {
		return err
	}
	o, err := s.describe(req.ctx, host)
	if err != nil {
		return err
	}
	text := infoText(acornLeaf(rel), o)

	w := newReply(ccInfo, len(text)+1)
	w.WriteBytes([]byte(text))
	w.WriteUint8(textEnd)
	return s.reply(req, w.Bytes())
}

func (s *Server) cmdLogoff(req *request, _ string) error {
	return s.handleLogoff(req)
}

// cmdRename renames an object. It refuses to replace an existing one.
func (s *Server) cmdRename(req *request, tail string) error {
	from, tail := getArg(tail)
	to, _ := getArg(tail)
	if from == "" || to == "" {
		return ErrBadRename
	}

	_, fromHost, err := s.translate(req, from)
	if err != nil {
		return err
	}
	_, toHost, err := s.translate(req, to)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(fromHost); err != nil {
		return err
	}
	if _, err := os.Lstat(toHost); err == nil {
		return ErrExists
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := os.Rename(fromHost, toHost); err != nil {
		return err
	}
	if err := s.meta.Rename(req.ctx, fromHost, toHost); err != nil {
		if rerr := os.Rename(toHost, fromHost); rerr != nil {
			logger.ErrorCtx(req.ctx, "Failed to undo rename", logger.Path(toHost), logger.Err(rerr))
		}
		return err
	}
	logger.DebugCtx(req.ctx, "Renamed", logger.Acorn(from), "to", to)
	return s.replyDone(req)
}

func (s *Server) cmdCDir(req *request, tail string) error {
	acorn, _ := getArg(tail)
	if acorn == "" {
		return ErrBadName
	}
	if err := s.mkdir(req, acorn); err != nil {
		return err
	}
	return s.replyDone(req)
}

func (s *Server) cmdDelete(req *request, tail string) error {
	acorn, _ := getArg(tail)
	_, host, err := s.translate(req, acorn)
	if err != nil {
		return err
	}
	if _, err := s.remove(req, host); err != nil {
		return err
	}
	return s.replyDone(req)
}

// cmdAccess sets access from its text form, e.g. "WR/R".
func (s *Server) cmdAccess(req *request, tail string) error {
	acorn, tail := getArg(tail)
	spec, _ := getArg(tail)
	access, err := parseAccess(spec)
	if err != nil {
		return err
	}

	_, host, err := s.translate(req, acorn)
	if err != nil {
		return err
	}
	st, err := os.Stat(host)
	if err != nil {
		return err
	}
	if st.IsDir() {
		return ErrNoAccess
	}
	if err := os.Chmod(host, accessToMode(access, s.cfg.UserGroup)); err != nil {
		return err
	}
	return s.replyDone(req)
}

// parseAccess reads owner attributes, then public attributes after a
// slash. L is accepted and ignored: locking is not supported.
func parseAccess(spec string) (uint8, error) {
	var access uint8
	public := false
	for _, c := range strings.ToUpper(spec) {
		switch {
		case c == '/' && !public:
			public = true
		case c == 'R' && public:
			access |= AccessOR
		case c == 'W' && public:
			access |= AccessOW
		case c == 'R':
			access |= AccessUR
		case c == 'W':
			access |= AccessUW
		case c == 'L' && !public:
		default:
			return 0, ErrBadAttribute
		}
	}
	return access, nil
}

// cmdLoad and cmdSave hand the transfer back to the client, which sends
// a LOAD or SAVE request of its own.
func (s *Server) cmdLoad(req *request, _ string) error {
	return s.reply(req, []byte{ccLoad, 0})
}

func (s *Server) cmdSave(req *request, _ string) error {
	return s.reply(req, []byte{ccSave, 0})
}
