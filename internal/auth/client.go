package auth

import (
	"context"
	"errors"
	"sync"

	"sephira/internal/backend"
)

// Client is one browser's handle on the auth backend. It caches the
// current session and pushes auth events to its listeners.
//
// Every operation runs under the client's lock and listeners are invoked
// before the lock is released. A listener that calls back into the client
// deadlocks.
type Client struct {
	svc *Service

	mu        sync.Mutex
	session   *backend.Session
	listeners map[int]backend.AuthListener
	nextID    int
}

var _ backend.AuthClient = (*Client)(nil)

// SignInWithPassword implements backend.AuthClient.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, err := c.svc.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.session = session
	c.emit(backend.EventSignedIn)
	return copySession(session), nil
}

// SignUp implements backend.AuthClient. Without required confirmation the
// new user is signed in right away.
func (c *Client) SignUp(ctx context.Context, email, password, redirectTo string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.svc.SignUp(ctx, email, password, redirectTo); err != nil {
		return err
	}
	if c.svc.opts.RequireConfirmation {
		return nil
	}
	session, err := c.svc.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	c.session = session
	c.emit(backend.EventSignedIn)
	return nil
}

// SignOut implements backend.AuthClient. The local session is dropped even
// when revoking the token fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.session != nil {
		err = c.svc.SignOut(ctx, c.session.AccessToken)
	}
	c.session = nil
	c.emit(backend.EventSignedOut)
	return err
}

// UpdatePassword implements backend.AuthClient.
func (c *Client) UpdatePassword(ctx context.Context, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return backend.ErrNoSession
	}
	if err := c.svc.UpdatePassword(ctx, c.session.AccessToken, password); err != nil {
		return err
	}
	c.emit(backend.EventUserUpdated)
	return nil
}

// GetSession implements backend.AuthClient. A restored token is resolved
// against the backend; a stale one is dropped and nil is returned.
func (c *Client) GetSession(ctx context.Context) (*backend.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, nil
	}
	session, err := c.svc.Session(ctx, c.session.AccessToken)
	if errors.Is(err, backend.ErrNoSession) {
		c.session = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if c.svc.needsRefresh(session) {
		refreshed, err := c.svc.Refresh(ctx, session.AccessToken)
		if err != nil {
			return nil, err
		}
		c.session = refreshed
		c.emit(backend.EventTokenRefreshed)
		return copySession(refreshed), nil
	}

	c.session = session
	return copySession(session), nil
}

// VerifyRecovery implements backend.AuthClient.
func (c *Client) VerifyRecovery(ctx context.Context, token string) (*backend.Session, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, redirectTo, err := c.svc.VerifyRecovery(ctx, token)
	if err != nil {
		return nil, "", err
	}
	c.session = session
	c.emit(backend.EventPasswordRecovery)
	return copySession(session), redirectTo, nil
}

// CurrentSession implements backend.AuthClient.
func (c *Client) CurrentSession() *backend.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copySession(c.session)
}

// OnAuthStateChange implements backend.AuthClient.
func (c *Client) OnAuthStateChange(listener backend.AuthListener) backend.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = listener
	return &subscription{client: c, id: id}
}

// emit must be called with c.mu held.
func (c *Client) emit(event backend.AuthEvent) {
	for _, l := range c.listeners {
		l(event, copySession(c.session))
	}
}

type subscription struct {
	client *Client
	id     int
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.client.mu.Lock()
		delete(s.client.listeners, s.id)
		s.client.mu.Unlock()
	})
}

func copySession(s *backend.Session) *backend.Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
