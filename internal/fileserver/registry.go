package fileserver

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/pkg/transport"
)

// Registry maps source addresses to sessions. It is owned by one Server
// and safe for concurrent use by the admin API.
type Registry struct {
	mu     sync.RWMutex
	byAddr map[transport.Addr]*Session
	byID   map[uuid.UUID]*Session
	now    func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byAddr: make(map[transport.Addr]*Session),
		byID:   make(map[uuid.UUID]*Session),
		now:    time.Now,
	}
}

// Find returns the session for addr, or nil.
func (r *Registry) Find(addr transport.Addr) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byAddr[addr]
}

// New creates a session for addr, destroying any previous one.
func (r *Registry) New(addr transport.Addr) *Session {
	s := newSession(addr, r.now())

	r.mu.Lock()
	old := r.byAddr[addr]
	if old != nil {
		delete(r.byID, old.ID)
	}
	r.byAddr[addr] = s
	r.byID[s.ID] = s
	r.mu.Unlock()

	if old != nil {
		r.release(old, "replaced")
	}
	logger.Debug("Session created",
		logger.Client(addr.String()), logger.SessionID(s.ID.String()))
	return s
}

// Destroy removes s and closes all its handles. Destroying a session that
// is no longer registered only closes its handles.
func (r *Registry) Destroy(s *Session) {
	if s == nil {
		return
	}

	r.mu.Lock()
	if cur, ok := r.byAddr[s.Addr]; ok && cur == s {
		delete(r.byAddr, s.Addr)
	}
	delete(r.byID, s.ID)
	r.mu.Unlock()

	r.release(s, "destroyed")
}

func (r *Registry) release(s *Session, why string) {
	if err := s.closeAll(); err != nil {
		logger.Warn("Error closing handles of session",
			logger.SessionID(s.ID.String()), logger.Err(err))
	}
	logger.Info("Session "+why,
		logger.Client(s.Addr.String()),
		logger.SessionID(s.ID.String()),
		logger.User(s.Login))
}

// Get returns the session with the given id, or nil.
func (r *Registry) Get(id uuid.UUID) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAddr)
}

// List returns a snapshot of every live session.
func (r *Registry) List() []SessionInfo {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.byAddr))
	for _, s := range r.byAddr {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	out := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.info())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out
}

// sessions returns the live sessions themselves in creation order, for
// callers on the server goroutine.
func (r *Registry) sessions() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.byAddr))
	for _, s := range r.byAddr {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out
}

// OpenHandles counts handles across all sessions.
func (r *Registry) OpenHandles() int {
	n := 0
	for _, s := range r.sessions() {
		n += s.OpenHandles()
	}
	return n
}
