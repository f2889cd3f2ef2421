package fileserver

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/aund/pkg/transport"
)

// Session is the server's state for one client station. A session exists
// from the first packet a station sends; Login stays empty until *I AM.
type Session struct {
	ID      uuid.UUID
	Addr    transport.Addr
	Created time.Time

	// Login is the user name, empty while anonymous.
	Login string

	// URD is the user root directory relative to the server root.
	URD string

	// Opt4 is the boot option reported at login.
	Opt4 uint8

	lastSeen time.Time

	mu      sync.Mutex
	handles []*Handle

	dirCache dirCache
}

// dirCache keeps the remainder of the last directory listing so that a
// follow-up EXAMINE at the next offset does not rescan the directory.
type dirCache struct {
	path    string
	start   int
	entries []dirEntry
}

func (c *dirCache) clear() {
	*c = dirCache{}
}

func newSession(addr transport.Addr, now time.Time) *Session {
	return &Session{
		ID:       uuid.New(),
		Addr:     addr,
		Created:  now,
		URD:      ".",
		lastSeen: now,
		handles:  make([]*Handle, initialHandles),
	}
}

// LoggedIn reports whether *I AM has succeeded for this session.
func (s *Session) LoggedIn() bool {
	return s != nil && s.Login != ""
}

// SessionInfo is a point-in-time view of a session for the admin API.
type SessionInfo struct {
	ID          string    `json:"id"`
	Address     string    `json:"address"`
	Network     uint8     `json:"network"`
	Station     uint8     `json:"station"`
	User        string    `json:"user,omitempty"`
	URD         string    `json:"urd"`
	OpenHandles int       `json:"open_handles"`
	Created     time.Time `json:"created"`
	LastSeen    time.Time `json:"last_seen"`
}

func (s *Session) info() SessionInfo {
	net, stn := s.Addr.Station()
	s.mu.Lock()
	lastSeen := s.lastSeen
	s.mu.Unlock()
	return SessionInfo{
		ID:          s.ID.String(),
		Address:     s.Addr.String(),
		Network:     net,
		Station:     stn,
		User:        s.Login,
		URD:         s.URD,
		OpenHandles: s.OpenHandles(),
		Created:     s.Created,
		LastSeen:    lastSeen,
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}
