package session

import "time"

// Kind tags the authentication state a session is in.
type Kind uint8

const (
	KindAnonymous Kind = iota
	KindAuthenticated
	KindRecoveryPending
)

func (k Kind) String() string {
	switch k {
	case KindAnonymous:
		return "anonymous"
	case KindAuthenticated:
		return "authenticated"
	case KindRecoveryPending:
		return "recovery_pending"
	default:
		return "unknown"
	}
}

// State is one of Anonymous, Authenticated or RecoveryPending. No other
// implementations exist.
type State interface {
	Kind() Kind
	isState()
}

// Anonymous carries no identity.
type Anonymous struct{}

// Authenticated binds a user to the session until ExpiresAt.
type Authenticated struct {
	UserID    string
	Identity  string
	Email     string
	ExpiresAt time.Time
}

// RecoveryPending stages the account being recovered. It grants no access.
type RecoveryPending struct {
	Email string
}

func (Anonymous) Kind() Kind       { return KindAnonymous }
func (Authenticated) Kind() Kind   { return KindAuthenticated }
func (RecoveryPending) Kind() Kind { return KindRecoveryPending }

func (Anonymous) isState()       {}
func (Authenticated) isState()   {}
func (RecoveryPending) isState() {}

// Session is the per-request handle on a server-side session record. It is
// not safe for concurrent use; each request owns its handle.
type Session struct {
	token     string
	state     State
	createdAt time.Time

	stored bool
	dirty  bool
}

// New mints an anonymous, unsaved session with a fresh token.
func New(now time.Time) (*Session, error) {
	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	return &Session{
		token:     token,
		state:     Anonymous{},
		createdAt: now,
	}, nil
}

// Token is the opaque session token. It is only ever sent to the client
// inside a signed cookie.
func (s *Session) Token() string {
	return s.token
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// State never returns nil.
func (s *Session) State() State {
	if s.state == nil {
		return Anonymous{}
	}
	return s.state
}

// Transition replaces the session state and marks the handle for saving.
func (s *Session) Transition(next State) {
	if next == nil {
		next = Anonymous{}
	}
	s.state = next
	s.dirty = true
}

// Revert undoes a Transition whose save failed. The handle is clean again
// if it was clean before.
func (s *Session) Revert(prev State, wasDirty bool) {
	if prev == nil {
		prev = Anonymous{}
	}
	s.state = prev
	s.dirty = wasDirty
}

// Authenticated returns the authenticated state, if that is the current one.
func (s *Session) Authenticated() (Authenticated, bool) {
	a, ok := s.state.(Authenticated)
	return a, ok
}

// RecoveryPending returns the staged recovery, if that is the current state.
func (s *Session) RecoveryPending() (RecoveryPending, bool) {
	r, ok := s.state.(RecoveryPending)
	return r, ok
}

// Rotate mints a new token for the same state and returns the old one so
// the caller can delete its record.
func (s *Session) Rotate() (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	prev := s.token
	s.token = token
	s.stored = false
	s.dirty = true
	return prev, nil
}

// Dirty reports whether the state changed since the last save or load.
func (s *Session) Dirty() bool {
	return s.dirty
}

// Stored reports whether a record for this token exists in the store as far
// as this handle knows.
func (s *Session) Stored() bool {
	return s.stored
}

// Reset discards the current token and state and leaves the handle as a
// fresh anonymous session that was never saved.
func (s *Session) Reset(now time.Time) error {
	token, err := NewToken()
	if err != nil {
		return err
	}
	s.token = token
	s.state = Anonymous{}
	s.createdAt = now
	s.stored = false
	s.dirty = false
	return nil
}
