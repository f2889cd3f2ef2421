// Package fileserver implements the Acorn Econet file server protocol on
// top of a host directory tree.
//
// The server is strictly sequential: one request, including any bulk data
// transfer it starts, is handled to completion before the next packet is
// read. Sessions are keyed by the transport's source address and carry a
// small table of open handles that clients refer to by number.
package fileserver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/aund/pkg/metadata"
	"github.com/marmos91/aund/pkg/metadata/store/symlink"
	"github.com/marmos91/aund/pkg/metrics"
	"github.com/marmos91/aund/pkg/passwd"
	"github.com/marmos91/aund/pkg/transport"
)

// Defaults applied by New.
const (
	DefaultTransferTimeout = 30 * time.Second
	DefaultLib             = "Library"
	maxDiscNameLen         = 16
)

// Config configures a Server.
type Config struct {
	// Root is the host directory served as "$".
	Root string

	// URD is the user root directory, relative to Root, given to every
	// user when no password file is configured.
	URD string

	// Lib is the library directory, relative to Root.
	Lib string

	// Passwords validates logins. Nil accepts any user with any password.
	Passwords *passwd.File

	// DefaultOpt4 is the boot option of users without a password file.
	DefaultOpt4 uint8

	// DiscName is reported by GET_DISCS. Defaults to the host name.
	DiscName string

	// UserGroup makes group permissions follow owner permissions when a
	// client sets access bits. Otherwise they follow public permissions.
	UserGroup bool

	// TransferTimeout bounds the wait for each chunk of a bulk receive.
	TransferTimeout time.Duration

	// PadShortReads sends zero-length chunks until the requested length is
	// reached when a read hits end of file, instead of one terminating
	// chunk.
	PadShortReads bool

	// MaxSaveSize rejects SAVE requests larger than this. 0 disables the check.
	MaxSaveSize int64

	// Typemap guesses file types for files without recorded metadata.
	Typemap *Typemap

	// Metadata stores load and exec addresses. Defaults to the symlink store.
	Metadata metadata.Store

	// Version is the text returned by GET_VERSION.
	Version string
}

// Server is a file server bound to one transport.
type Server struct {
	cfg      Config
	tr       transport.Transport
	meta     metadata.Store
	registry *Registry
	metrics  metrics.FileServerMetrics

	// mu serialises request handling with administrative actions.
	mu sync.Mutex

	now      func() time.Time
	syncFile func(*os.File) error
	onScan   func(path string)
}

// New creates a file server. m may be nil.
func New(cfg Config, tr transport.Transport, m metrics.FileServerMetrics) (*Server, error) {
	if cfg.Root == "" {
		return nil, errors.New("fileserver: root directory is required")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("fileserver: resolve root: %w", err)
	}
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("fileserver: root: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("fileserver: root %s is not a directory", root)
	}
	cfg.Root = root

	if cfg.URD, err = cleanRel(cfg.URD); err != nil {
		return nil, fmt.Errorf("fileserver: urd: %w", err)
	}
	if cfg.Lib == "" {
		cfg.Lib = DefaultLib
	}
	if cfg.Lib, err = cleanRel(cfg.Lib); err != nil {
		return nil, fmt.Errorf("fileserver: lib: %w", err)
	}
	if cfg.DiscName == "" {
		cfg.DiscName = hostDiscName()
	}
	if len(cfg.DiscName) > maxDiscNameLen {
		cfg.DiscName = cfg.DiscName[:maxDiscNameLen]
	}
	if cfg.TransferTimeout <= 0 {
		cfg.TransferTimeout = DefaultTransferTimeout
	}
	if cfg.Version == "" {
		cfg.Version = "aund"
	}
	if cfg.Metadata == nil {
		cfg.Metadata = symlink.New()
	}

	return &Server{
		cfg:      cfg,
		tr:       tr,
		meta:     cfg.Metadata,
		registry: NewRegistry(),
		metrics:  m,
		now:      time.Now,
		syncFile: syncFile,
	}, nil
}

// hostDiscName is the host name up to the first dot.
func hostDiscName() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "aund"
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return name
}

// cleanRel normalises a root-relative directory. "", "$" and "/" mean
// the root. Paths may not climb out of the root.
func cleanRel(p string) (string, error) {
	p = strings.TrimPrefix(strings.TrimSpace(p), "$")
	p = strings.Trim(filepath.ToSlash(p), "/")
	if p == "" {
		return ".", nil
	}
	p = filepath.ToSlash(filepath.Clean(p))
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("%q is outside the root", p)
	}
	return p, nil
}

// Root returns the served directory.
func (s *Server) Root() string { return s.cfg.Root }

// DiscName returns the name reported to clients.
func (s *Server) DiscName() string { return s.cfg.DiscName }

// Sessions returns a snapshot of the live sessions.
func (s *Server) Sessions() []SessionInfo {
	return s.registry.List()
}

// Logoff ends the session with the given id, as if the client had logged
// off. It waits for any request in progress.
func (s *Server) Logoff(id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSessionID, id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.registry.Get(uid)
	if sess == nil {
		return ErrSessionNotFound
	}
	s.registry.Destroy(sess)
	s.updateGauges()
	return nil
}

// Errors returned by Logoff.
var (
	ErrSessionNotFound  = errors.New("fileserver: session not found")
	ErrInvalidSessionID = errors.New("fileserver: invalid session id")
)

// DiscInfo describes the served disc.
type DiscInfo struct {
	Name      string `json:"name"`
	Root      string `json:"root"`
	FreeBytes uint64 `json:"free_bytes"`
}

// Disc reports the disc name, its host directory and the free space
// beneath it.
func (s *Server) Disc() (DiscInfo, error) {
	free, err := freeSpace(s.cfg.Root)
	if err != nil {
		return DiscInfo{}, err
	}
	return DiscInfo{Name: s.cfg.DiscName, Root: s.cfg.Root, FreeBytes: free}, nil
}

// Healthcheck reports whether the root and the metadata store are usable.
func (s *Server) Healthcheck(ctx context.Context) error {
	if _, err := os.Stat(s.cfg.Root); err != nil {
		return fmt.Errorf("root: %w", err)
	}
	if err := s.meta.Healthcheck(ctx); err != nil {
		return fmt.Errorf("metadata store: %w", err)
	}
	return nil
}

// Close ends every session.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.registry.sessions() {
		s.registry.Destroy(sess)
	}
	return nil
}

func (s *Server) updateGauges() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetActiveSessions(s.registry.Count())
	s.metrics.SetOpenHandles(s.registry.OpenHandles())
}

// send transmits a unicast packet to the requesting station.
func (s *Server) send(ctx context.Context, req *request, port, flag uint8, data []byte) error {
	pkt := &transport.Packet{
		Type:     transport.TypeUnicast,
		DestPort: port,
		Flag:     flag,
		Data:     data,
	}
	return s.tr.Transmit(ctx, pkt, req.from)
}

// reply sends a reply payload to the request's reply port.
func (s *Server) reply(req *request, data []byte) error {
	return s.send(req.ctx, req, req.replyPort, req.flag, data)
}

// replyDone sends a bare success reply.
func (s *Server) replyDone(req *request) error {
	return s.reply(req, []byte{ccDone, 0})
}

// translate resolves an Acorn path for req. It returns the root-relative
// and host forms.
func (s *Server) translate(req *request, acorn string) (string, string, error) {
	pc := pathContext{root: s.cfg.Root, urd: ".", csd: ".", lib: "."}
	if sess := req.session; sess != nil {
		pc.urd = sess.URD
		if h := sess.Handle(req.csd); h != nil {
			pc.csd = h.Path
		}
		if h := sess.Handle(req.lib); h != nil {
			pc.lib = h.Path
		}
	}
	rel, err := pc.resolve(acorn)
	if err != nil {
		return "", "", err
	}
	return rel, hostPath(s.cfg.Root, rel), nil
}
