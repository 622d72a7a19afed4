// Package authstate tracks who is signed in for one browser, whether that
// user is an admin, whether that is still being determined, and whether the
// browser is in a password-recovery flow.
//
// State changes go through Transition, a pure function over typed events.
// Manager feeds it events from the backend's auth stream, from the initial
// session snapshot and from its own operations, and runs the role lookups
// the transitions request.
package authstate

import (
	"net/url"

	"sephira/internal/backend"
)

// Phase is the coarse state of the machine.
type Phase int

const (
	// PhaseUnknown is the initial loading state.
	PhaseUnknown Phase = iota
	// PhaseAnonymous means no session exists.
	PhaseAnonymous
	// PhaseAuthenticated means a session exists; the admin check may
	// still be pending.
	PhaseAuthenticated
	// PhaseRecoveryPending means a password reset link was followed and
	// the password has not been updated yet.
	PhaseRecoveryPending
)

func (p Phase) String() string {
	switch p {
	case PhaseUnknown:
		return "unknown"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseRecoveryPending:
		return "recovery_pending"
	default:
		return "invalid"
	}
}

// View is the derived state exposed to the rest of the application.
type View struct {
	User           *backend.User
	IsAdmin        bool
	IsLoading      bool
	IsRecoveryMode bool
	Phase          Phase
}

// EventKind enumerates the inputs of Transition.
type EventKind int

const (
	// EventRecoveryMarker: the landing URL carried the recovery marker.
	EventRecoveryMarker EventKind = iota
	// EventAuth: the backend pushed Auth with Session.
	EventAuth
	// EventSnapshot: the initial session fetch finished with Session or Err.
	EventSnapshot
	// EventRoleResolved: the lookup Seq for UserID finished with IsAdmin or Err.
	EventRoleResolved
	// EventLocalSignOut: SignOut returned Err (nil on success).
	EventLocalSignOut
	// EventPasswordUpdated: UpdatePassword succeeded.
	EventPasswordUpdated
)

// Event is one input of Transition. Only the fields of its Kind are read.
type Event struct {
	Kind    EventKind
	Auth    backend.AuthEvent
	Session *backend.Session
	Seq     uint64
	UserID  string
	IsAdmin bool
	Err     error
}

// Command is an effect requested by Transition. The only command is a role
// lookup for UserID tagged with Seq.
type Command struct {
	UserID string
	Seq    uint64
}

// State is the machine's full state. The zero value is the initial state.
type State struct {
	session  *backend.Session
	recovery bool

	isAdmin  bool
	adminFor string // user whose lookup produced isAdmin

	seq        uint64 // last issued lookup
	pending    uint64 // lookup being waited on, 0 when none
	pendingFor string

	resolved  bool // a settling input has been seen
	sawStream bool // an auth event arrived before or after the snapshot
}

// View derives the public view. IsAdmin is only true when the resolved
// lookup belongs to the current user and no newer lookup is pending.
func (s State) View() View {
	v := View{
		IsRecoveryMode: s.recovery,
		IsLoading:      !s.resolved || s.pending != 0,
	}
	if s.session != nil {
		u := s.session.User
		v.User = &u
		v.IsAdmin = s.isAdmin && s.pending == 0 && s.adminFor == u.ID
	}
	switch {
	case s.recovery:
		v.Phase = PhaseRecoveryPending
	case s.session != nil:
		v.Phase = PhaseAuthenticated
	case !s.resolved:
		v.Phase = PhaseUnknown
	default:
		v.Phase = PhaseAnonymous
	}
	return v
}

// Transition applies e to s and returns the next state with the commands
// the caller must run.
func Transition(s State, e Event) (State, []Command) {
	switch e.Kind {
	case EventRecoveryMarker:
		s.recovery = true
		return s, nil

	case EventAuth:
		s.sawStream = true
		return onAuth(s, e)

	case EventSnapshot:
		return onSnapshot(s, e)

	case EventRoleResolved:
		if e.Seq == 0 || e.Seq != s.pending || e.UserID != s.pendingFor {
			return s, nil
		}
		s.pending, s.pendingFor = 0, ""
		s.isAdmin = e.Err == nil && e.IsAdmin
		s.adminFor = e.UserID
		s.resolved = true
		return s, nil

	case EventLocalSignOut:
		s.isAdmin, s.adminFor = false, ""
		s.pending, s.pendingFor = 0, ""
		s.recovery = false
		if e.Err == nil {
			s.session = nil
		}
		s.resolved = true
		return s, nil

	case EventPasswordUpdated:
		s.recovery = false
		return s, nil
	}
	return s, nil
}

func onAuth(s State, e Event) (State, []Command) {
	switch e.Auth {
	case backend.EventSignedOut:
		return signedOut(s), nil
	case backend.EventSignedIn:
		if e.Session == nil {
			return signedOut(s), nil
		}
		return lookup(s, e.Session, true)
	case backend.EventPasswordRecovery:
		s.recovery = true
	}
	if e.Session == nil {
		return signedOut(s), nil
	}
	return lookup(s, e.Session, false)
}

func onSnapshot(s State, e Event) (State, []Command) {
	if s.sawStream {
		// The stream is at least as fresh as the snapshot. Only a snapshot
		// for the same user is acted on.
		if e.Session != nil && s.session != nil && e.Session.User.ID == s.session.User.ID {
			return lookup(s, s.session, true)
		}
		if s.pending == 0 {
			s.resolved = true
		}
		return s, nil
	}
	if e.Session == nil {
		s.session = nil
		s.isAdmin, s.adminFor = false, ""
		s.resolved = true
		return s, nil
	}
	return lookup(s, e.Session, true)
}

func signedOut(s State) State {
	s.session = nil
	s.isAdmin, s.adminFor = false, ""
	s.pending, s.pendingFor = 0, ""
	s.recovery = false
	s.resolved = true
	return s
}

// lookup installs session and requests a role lookup unless the admin
// status of that user is already known or being fetched. force always
// issues a new lookup and invalidates the previous one.
func lookup(s State, session *backend.Session, force bool) (State, []Command) {
	s.session = session
	id := session.User.ID
	if !force {
		if s.pending != 0 && s.pendingFor == id {
			return s, nil
		}
		if s.pending == 0 && s.adminFor == id {
			s.resolved = true
			return s, nil
		}
	}
	s.seq++
	s.pending, s.pendingFor = s.seq, id
	s.isAdmin, s.adminFor = false, ""
	return s, []Command{{UserID: id, Seq: s.seq}}
}

// RecoveryMarker reports whether u is a password reset landing URL. The
// marker is type=recovery in the fragment or the query string.
func RecoveryMarker(u *url.URL) bool {
	if u == nil {
		return false
	}
	if frag, err := url.ParseQuery(u.Fragment); err == nil && frag.Get("type") == "recovery" {
		return true
	}
	return u.Query().Get("type") == "recovery"
}
