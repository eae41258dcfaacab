package domain

// SessionStatus is the lifecycle state of the client session.
type SessionStatus string

const (
	SessionLoading       SessionStatus = "loading"
	SessionAnonymous     SessionStatus = "anonymous"
	SessionAuthenticated SessionStatus = "authenticated"
)

// SessionState is a point-in-time copy of the client session.
// Authentication is derived from Token and never stored separately.
type SessionState struct {
	Token   string
	User    *User
	Loading bool
}

// IsAuthenticated reports whether a token is held.
func (s SessionState) IsAuthenticated() bool {
	return s.Token != ""
}

func (s SessionState) Status() SessionStatus {
	switch {
	case s.Loading:
		return SessionLoading
	case s.IsAuthenticated():
		return SessionAuthenticated
	default:
		return SessionAnonymous
	}
}

// Can resolves a capability from the cached user's role. A session without a
// user projection grants nothing.
func (s SessionState) Can(c Capability) bool {
	if !s.IsAuthenticated() || s.User == nil {
		return false
	}
	return s.User.Role.Can(c)
}

// PersistedSession is the single record kept in on-device storage.
type PersistedSession struct {
	Token string
	User  *User
}
