// Package session tracks per-connection state: identity, current room and
// the transport endpoint used to push responses.
package session

// Handler is the transport-level endpoint bound to a session. Push must
// not block the caller; slow or dead endpoints are the transport's
// problem, not the registry's.
type Handler interface {
	Push(frame []byte)
}

// Session is one live connection. Username stays empty until the
// connection authenticates; ChatName is empty while the user is not in a
// room. PrevChatName holds the room most recently left and is used only
// as a short-lived routing hint.
type Session struct {
	Username     string
	ChatName     string
	PrevChatName string
	Handler      Handler
}

// EnterRoom moves the session into a room, remembering where it came
// from.
func (s *Session) EnterRoom(name string) {
	s.PrevChatName = s.ChatName
	s.ChatName = name
}

// LeaveRoom clears the session's room, remembering it as the previous
// room so the confirming response still reaches this session.
func (s *Session) LeaveRoom() {
	s.PrevChatName = s.ChatName
	s.ChatName = ""
}

// Registry is the ordered table of connected sessions. It is shared
// mutable state and must only be touched from the hub's single execution
// context; it deliberately carries no lock.
type Registry struct {
	sessions []*Session
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a fresh session for a newly accepted connection.
func (r *Registry) Add(h Handler) *Session {
	s := &Session{Handler: h}
	r.sessions = append(r.sessions, s)
	return s
}

// Bind sets the username on the session owning h, completing
// authentication. Returns nil if h has no session.
func (r *Registry) Bind(h Handler, username string) *Session {
	s := r.ByHandler(h)
	if s != nil {
		s.Username = username
	}
	return s
}

// Find returns the first session authenticated as username, or nil.
func (r *Registry) Find(username string) *Session {
	if username == "" {
		return nil
	}
	for _, s := range r.sessions {
		if s.Username == username {
			return s
		}
	}
	return nil
}

// FindAll returns every session authenticated as username, in
// registration order. A user logged in on several connections has one
// session per connection.
func (r *Registry) FindAll(username string) []*Session {
	if username == "" {
		return nil
	}
	var out []*Session
	for _, s := range r.sessions {
		if s.Username == username {
			out = append(out, s)
		}
	}
	return out
}

// ByHandler returns the session owning the given endpoint, or nil.
func (r *Registry) ByHandler(h Handler) *Session {
	for _, s := range r.sessions {
		if s.Handler == h {
			return s
		}
	}
	return nil
}

// All returns the sessions in registration order. The router iterates
// this directly; callers must not retain the slice across mutations.
func (r *Registry) All() []*Session {
	return r.sessions
}

// Remove drops the session owning h, if any. Called on disconnect so no
// stale handler is ever routed to.
func (r *Registry) Remove(h Handler) *Session {
	for i, s := range r.sessions {
		if s.Handler == h {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			return s
		}
	}
	return nil
}

func (r *Registry) Len() int {
	return len(r.sessions)
}
