package authstate

import (
	"context"
	"errors"
	"log"
	"net/url"
	"sync"

	"sephira/internal/backend"
)

// ErrClosed is returned by operations on a closed Manager.
var ErrClosed = errors.New("auth state manager is closed")

// Options configures a Manager.
type Options struct {
	// SignUpRedirect is where confirmation links land after sign-up.
	SignUpRedirect string
}

// task is one entry of the manager's queue: an event to apply, a role
// lookup to start, or a barrier closed once everything before it ran.
type task struct {
	event   *Event
	lookup  *Command
	barrier chan struct{}
}

// Manager owns the auth state of one browser. Once started, every event,
// backend-pushed or local, is applied in order by a single loop goroutine.
// Operations and WaitSettled return only after the work queued before them
// has been applied, so they must not be called from a Subscribe callback.
type Manager struct {
	client backend.AuthClient
	roles  backend.RoleChecker
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	done   chan struct{}

	mu        sync.Mutex
	state     State
	queue     []task
	changed   chan struct{}
	listeners map[int]func(View)
	nextID    int
	sub       backend.Subscription
	starting  bool
	started   bool // the loop goroutine is running
	closed    bool
}

// NewManager creates a Manager. Call Start to begin tracking.
func NewManager(client backend.AuthClient, roles backend.RoleChecker, opts Options) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		client:    client,
		roles:     roles,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		changed:   make(chan struct{}),
		listeners: make(map[int]func(View)),
	}
}

// Start reads the recovery marker from landing, subscribes to the auth
// stream and then requests the session snapshot. Subscribing first means
// an event fired between the two calls is not lost.
func (m *Manager) Start(landing *url.URL) {
	m.mu.Lock()
	if m.starting || m.closed {
		m.mu.Unlock()
		return
	}
	m.starting = true
	m.mu.Unlock()

	if RecoveryMarker(landing) {
		m.apply(Event{Kind: EventRecoveryMarker})
	}

	sub := m.client.OnAuthStateChange(func(event backend.AuthEvent, session *backend.Session) {
		email := ""
		if session != nil {
			email = session.User.Email
		}
		log.Printf("auth state changed: %s %s", event, email)
		// Called under the client's lock: only enqueue here.
		m.post(task{event: &Event{Kind: EventAuth, Auth: event, Session: session}})
	})

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	m.sub = sub
	m.started = true
	m.mu.Unlock()

	go m.run()

	go func() {
		session, err := m.client.GetSession(m.ctx)
		if err != nil {
			log.Printf("Error fetching session: %v", err)
		}
		m.post(task{event: &Event{Kind: EventSnapshot, Session: session, Err: err}})
	}()
}

func (m *Manager) run() {
	defer close(m.done)
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.wake:
		}
		for {
			t, ok := m.pop()
			if !ok {
				break
			}
			if t.event != nil {
				m.apply(*t.event)
			}
			if t.lookup != nil {
				m.startLookup(*t.lookup)
			}
			if t.barrier != nil {
				close(t.barrier)
			}
		}
	}
}

func (m *Manager) pop() (task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || len(m.queue) == 0 {
		return task{}, false
	}
	t := m.queue[0]
	m.queue = m.queue[1:]
	return t, true
}

// post appends t to the queue and wakes the loop. Work posted after Close
// is dropped.
func (m *Manager) post(t task) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, t)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// submit queues a local event behind the backend events already pending.
// Before Start there is no loop and the event is applied directly.
func (m *Manager) submit(e Event) {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if !started {
		m.apply(e)
		return
	}
	m.post(task{event: &e})
}

// flush waits until every task queued before the call has run.
func (m *Manager) flush(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	done := make(chan struct{})
	m.queue = append(m.queue, task{barrier: done})
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return ErrClosed
	}
}

// apply runs Transition and notifies subscribers when the view changed.
// Lookups requested by the transition are queued behind the work already
// pending rather than started here: apply can run inside a backend auth
// callback, and the role lookup goes back through the backend.
func (m *Manager) apply(e Event) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	before := m.state.View()
	next, cmds := Transition(m.state, e)
	m.state = next
	after := next.View()

	var notify []func(View)
	if !sameView(before, after) {
		close(m.changed)
		m.changed = make(chan struct{})
		for _, fn := range m.listeners {
			notify = append(notify, fn)
		}
	}
	m.mu.Unlock()

	for i := range cmds {
		cmd := cmds[i]
		m.post(task{lookup: &cmd})
	}
	for _, fn := range notify {
		fn(after)
	}
}

func (m *Manager) startLookup(cmd Command) {
	go func() {
		isAdmin, err := m.roles.HasRole(m.ctx, cmd.UserID, backend.RoleAdmin)
		if err != nil {
			// Fail closed: a failed lookup settles as not admin.
			log.Printf("Error checking admin role: %v", err)
		}
		m.post(task{event: &Event{
			Kind:    EventRoleResolved,
			Seq:     cmd.Seq,
			UserID:  cmd.UserID,
			IsAdmin: isAdmin,
			Err:     err,
		}})
	}()
}

func sameView(a, b View) bool {
	if a.IsAdmin != b.IsAdmin || a.IsLoading != b.IsLoading ||
		a.IsRecoveryMode != b.IsRecoveryMode || a.Phase != b.Phase {
		return false
	}
	if (a.User == nil) != (b.User == nil) {
		return false
	}
	return a.User == nil || *a.User == *b.User
}

// View returns the current view.
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.View()
}

// Subscribe calls fn with every changed view until the returned function is
// called or the manager is closed.
func (m *Manager) Subscribe(fn func(View)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// WaitSettled blocks until the events queued before the call are applied
// and the view is no longer loading, ctx is done or the manager is closed.
// It returns the last view seen.
func (m *Manager) WaitSettled(ctx context.Context) (View, error) {
	if err := m.flush(ctx); err != nil {
		return m.View(), err
	}
	for {
		m.mu.Lock()
		v := m.state.View()
		changed := m.changed
		closed := m.closed
		m.mu.Unlock()

		if !v.IsLoading {
			return v, nil
		}
		if closed {
			return v, ErrClosed
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return v, ctx.Err()
		case <-m.ctx.Done():
			return v, ErrClosed
		}
	}
}

// SignIn delegates to the backend. State changes arrive through the auth
// stream only; SignIn returns once the events it caused are applied.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if m.isClosed() {
		return ErrClosed
	}
	if _, err := m.client.SignInWithPassword(ctx, email, password); err != nil {
		return err
	}
	return m.flush(ctx)
}

// SignUp delegates to the backend with the configured landing redirect.
func (m *Manager) SignUp(ctx context.Context, email, password string) error {
	if m.isClosed() {
		return ErrClosed
	}
	return m.client.SignUp(ctx, email, password, m.opts.SignUpRedirect)
}

// SignOut delegates to the backend and clears admin and recovery state
// without waiting for the signed-out event.
func (m *Manager) SignOut(ctx context.Context) error {
	if m.isClosed() {
		return ErrClosed
	}
	err := m.client.SignOut(ctx)
	m.submit(Event{Kind: EventLocalSignOut, Err: err})
	if ferr := m.flush(ctx); err == nil {
		err = ferr
	}
	return err
}

// UpdatePassword delegates to the backend and leaves recovery mode on
// success.
func (m *Manager) UpdatePassword(ctx context.Context, password string) error {
	if m.isClosed() {
		return ErrClosed
	}
	if err := m.client.UpdatePassword(ctx, password); err != nil {
		return err
	}
	m.submit(Event{Kind: EventPasswordUpdated})
	return m.flush(ctx)
}

// VerifyRecovery exchanges a mailed recovery token for a session and
// returns the landing URL stored with the token. The backend announces it
// with a password-recovery event; recovery mode is also entered here so the
// caller sees it on return.
func (m *Manager) VerifyRecovery(ctx context.Context, token string) (string, error) {
	if m.isClosed() {
		return "", ErrClosed
	}
	_, redirectTo, err := m.client.VerifyRecovery(ctx, token)
	if err != nil {
		return "", err
	}
	m.submit(Event{Kind: EventRecoveryMarker})
	return redirectTo, m.flush(ctx)
}

// AccessToken returns the token the backend client currently holds, for
// persisting in the browser. It is empty when signed out.
func (m *Manager) AccessToken() string {
	if s := m.client.CurrentSession(); s != nil {
		return s.AccessToken
	}
	return ""
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close unsubscribes from the auth stream and stops the loop. In-flight
// lookups are cancelled and their results discarded. Close must not be
// called from a Subscribe callback.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.queue = nil
	sub := m.sub
	started := m.started
	m.listeners = map[int]func(View){}
	m.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	m.cancel()
	if started {
		<-m.done
	}
}
