// Package identity tracks the client identifiers that currently own a live
// session on the server.
//
// An identifier is in the registry if and only if exactly one connection
// handler serves it. Registration is a single atomic test-and-insert, so two
// concurrent CONNECT attempts for the same identifier can never both succeed.
package identity

import (
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Session describes the connection that owns an identifier.
type Session struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Registry is the set of active identities. It is safe for concurrent use.
type Registry struct {
	sessions *xsync.MapOf[string, Session]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: xsync.NewMapOf[string, Session](),
	}
}

// Register claims id for the given session.
// It returns false, leaving the existing session untouched, if id is already active.
func (r *Registry) Register(id, remoteAddr string) bool {
	_, loaded := r.sessions.LoadOrStore(id, Session{
		ID:          id,
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now(),
	})
	return !loaded
}

// Release frees id so it can be claimed again.
func (r *Registry) Release(id string) {
	r.sessions.Delete(id)
}

// Has reports whether id is currently active.
func (r *Registry) Has(id string) bool {
	_, ok := r.sessions.Load(id)
	return ok
}

// Len returns the number of active identities.
func (r *Registry) Len() int {
	return r.sessions.Size()
}

// List returns a snapshot of all active sessions sorted by identifier.
func (r *Registry) List() []Session {
	list := make([]Session, 0, r.sessions.Size())
	r.sessions.Range(func(_ string, s Session) bool {
		list = append(list, s)
		return true
	})
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}
