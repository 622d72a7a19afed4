package authstate_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"sephira/internal/authstate"
	"sephira/internal/backend"
)

// fakeClient mimics the backend client: it emits events synchronously while
// holding its own lock.
type fakeClient struct {
	mu        sync.Mutex
	session   *backend.Session
	listeners map[int]backend.AuthListener
	nextID    int
	calls     []string

	users       map[string]string // email -> user id
	signOutErr  error
	updateErr   error
	beforeFetch func(c *fakeClient) // runs inside GetSession, under the lock
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		listeners: make(map[int]backend.AuthListener),
		users:     map[string]string{"admin@example.com": "u-admin", "reader@example.com": "u-reader"},
	}
}

func (c *fakeClient) record(call string) {
	c.calls = append(c.calls, call)
}

func (c *fakeClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeClient) ListenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

func (c *fakeClient) emitLocked(event backend.AuthEvent) {
	for _, l := range c.listeners {
		var s *backend.Session
		if c.session != nil {
			cp := *c.session
			s = &cp
		}
		l(event, s)
	}
}

// Emit pushes an event as if the backend had produced it.
func (c *fakeClient) Emit(event backend.AuthEvent, session *backend.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
	c.emitLocked(event)
}

func sessionFor(email, id string) *backend.Session {
	return &backend.Session{
		AccessToken: "token-" + id,
		User:        backend.User{ID: id, Email: email},
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func (c *fakeClient) SignInWithPassword(_ context.Context, email, password string) (*backend.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("signIn")
	id, ok := c.users[email]
	if !ok || password != "secret" {
		return nil, backend.ErrInvalidCredentials
	}
	c.session = sessionFor(email, id)
	c.emitLocked(backend.EventSignedIn)
	return c.session, nil
}

func (c *fakeClient) SignUp(_ context.Context, email, _, redirectTo string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("signUp " + email + " " + redirectTo)
	return nil
}

func (c *fakeClient) SignOut(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("signOut")
	c.session = nil
	c.emitLocked(backend.EventSignedOut)
	return c.signOutErr
}

func (c *fakeClient) UpdatePassword(context.Context, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("updatePassword")
	if c.updateErr != nil {
		return c.updateErr
	}
	c.emitLocked(backend.EventUserUpdated)
	return nil
}

func (c *fakeClient) GetSession(context.Context) (*backend.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getSession")
	if c.beforeFetch != nil {
		c.beforeFetch(c)
	}
	if c.session == nil {
		return nil, nil
	}
	cp := *c.session
	return &cp, nil
}

func (c *fakeClient) VerifyRecovery(_ context.Context, token string) (*backend.Session, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("verifyRecovery")
	if token != "good" {
		return nil, "", backend.ErrInvalidToken
	}
	c.session = sessionFor("admin@example.com", "u-admin")
	c.emitLocked(backend.EventPasswordRecovery)
	return c.session, "http://localhost/admin/login?type=recovery", nil
}

func (c *fakeClient) CurrentSession() *backend.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	cp := *c.session
	return &cp
}

func (c *fakeClient) OnAuthStateChange(listener backend.AuthListener) backend.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("subscribe")
	id := c.nextID
	c.nextID++
	c.listeners[id] = listener
	return fakeSub(func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	})
}

type fakeSub func()

func (f fakeSub) Unsubscribe() { f() }

// fakeRoles answers role lookups. When gate is set every lookup blocks until
// a value is sent on it.
type fakeRoles struct {
	mu     sync.Mutex
	admins map[string]bool
	err    error
	gate   chan struct{}
	calls  int
	called chan string
	onCall func()
}

func newFakeRoles(admins ...string) *fakeRoles {
	r := &fakeRoles{admins: make(map[string]bool), called: make(chan string, 16)}
	for _, id := range admins {
		r.admins[id] = true
	}
	return r
}

func (r *fakeRoles) HasRole(ctx context.Context, userID, role string) (bool, error) {
	r.mu.Lock()
	r.calls++
	gate, err, onCall := r.gate, r.err, r.onCall
	isAdmin := r.admins[userID] && role == backend.RoleAdmin
	r.mu.Unlock()

	if onCall != nil {
		onCall()
	}
	select {
	case r.called <- userID:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if err != nil {
		return false, err
	}
	return isAdmin, nil
}

func (r *fakeRoles) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// waitFor polls m until cond holds or the deadline passes.
func waitFor(t testing.TB, m *authstate.Manager, cond func(authstate.View) bool) authstate.View {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		v := m.View()
		if cond(v) {
			return v
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met, last view: %+v", v)
		}
		time.Sleep(time.Millisecond)
	}
}

func settled(v authstate.View) bool { return !v.IsLoading }
