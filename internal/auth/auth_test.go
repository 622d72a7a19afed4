package auth_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"

	"sephira/internal/auth"
	"sephira/internal/backend"
	"sephira/internal/database"
)

type recordingMailer struct {
	mu     sync.Mutex
	bodies []string
}

func (m *recordingMailer) Send(_ context.Context, _, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = append(m.bodies, body)
	return nil
}

// lastToken extracts the token query parameter of the last mailed link.
func (m *recordingMailer) lastToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.bodies) == 0 {
		return ""
	}
	body := m.bodies[len(m.bodies)-1]
	i := strings.Index(body, "token=")
	if i < 0 {
		return ""
	}
	return body[i+len("token="):]
}

func newTestService(t *testing.T, requireConfirmation bool) (*auth.Service, *recordingMailer) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	mailer := &recordingMailer{}
	svc := auth.NewService(auth.NewRepository(db), mailer, auth.Options{
		BaseURL:             "http://localhost:8080",
		RequireConfirmation: requireConfirmation,
	})
	return svc, mailer
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

func TestSignUp_RequiresConfirmation(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc, mailer := newTestService(t, true)

	c.Assert(svc.SignUp(ctx, "Reader@Example.com", "secret1", "/admin"), qt.IsNil)

	_, err := svc.SignIn(ctx, "reader@example.com", "secret1")
	c.Assert(err, qt.ErrorIs, backend.ErrEmailNotConfirmed)

	redirect, err := svc.Confirm(ctx, mailer.lastToken())
	c.Assert(err, qt.IsNil)
	c.Assert(redirect, qt.Equals, "/admin")

	session, err := svc.SignIn(ctx, "reader@example.com", "secret1")
	c.Assert(err, qt.IsNil)
	c.Assert(session.User.Email, qt.Equals, "reader@example.com")

	c.Run("tokens are single use", func(c *qt.C) {
		_, err := svc.Confirm(ctx, mailer.lastToken())
		c.Assert(err, qt.ErrorIs, backend.ErrInvalidToken)
	})
}

func TestSignUp_Errors(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc, _ := newTestService(t, false)

	c.Assert(svc.SignUp(ctx, "a@example.com", "123", ""), qt.ErrorIs, backend.ErrWeakPassword)
	c.Assert(svc.SignUp(ctx, "a@example.com", "123456", ""), qt.IsNil)
	c.Assert(svc.SignUp(ctx, "A@example.com", "123456", ""), qt.ErrorIs, backend.ErrUserExists)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc, _ := newTestService(t, false)
	_, err := svc.CreateConfirmedUser(ctx, "a@example.com", "123456")
	c.Assert(err, qt.IsNil)

	_, err = svc.SignIn(ctx, "a@example.com", "wrong-password")
	c.Assert(err, qt.ErrorIs, backend.ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "nobody@example.com", "123456")
	c.Assert(err, qt.ErrorIs, backend.ErrInvalidCredentials)
}

func TestRoles(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc, _ := newTestService(t, false)
	user, err := svc.CreateConfirmedUser(ctx, "admin@example.com", "123456")
	c.Assert(err, qt.IsNil)

	ok, err := svc.HasRole(ctx, user.ID, backend.RoleAdmin)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	c.Assert(svc.GrantRole(ctx, "admin@example.com", backend.RoleAdmin), qt.IsNil)
	c.Assert(svc.GrantRole(ctx, "admin@example.com", backend.RoleAdmin), qt.IsNil)
	ok, err = svc.HasRole(ctx, user.ID, backend.RoleAdmin)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	c.Assert(svc.RevokeRole(ctx, "admin@example.com", backend.RoleAdmin), qt.IsNil)
	ok, err = svc.HasRole(ctx, user.ID, backend.RoleAdmin)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	c.Assert(svc.GrantRole(ctx, "ghost@example.com", backend.RoleAdmin), qt.ErrorIs, backend.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

type eventLog struct {
	mu     sync.Mutex
	events []backend.AuthEvent
}

func (l *eventLog) listener(event backend.AuthEvent, _ *backend.Session) {
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

func (l *eventLog) all() []backend.AuthEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]backend.AuthEvent(nil), l.events...)
}

func TestClient_EmitsEvents(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc, _ := newTestService(t, false)
	_, err := svc.CreateConfirmedUser(ctx, "a@example.com", "123456")
	c.Assert(err, qt.IsNil)

	client := svc.NewClient("")
	log := &eventLog{}
	sub := client.OnAuthStateChange(log.listener)

	session, err := client.SignInWithPassword(ctx, "a@example.com", "123456")
	c.Assert(err, qt.IsNil)
	c.Assert(client.CurrentSession().AccessToken, qt.Equals, session.AccessToken)

	c.Assert(client.UpdatePassword(ctx, "654321"), qt.IsNil)
	c.Assert(client.SignOut(ctx), qt.IsNil)
	c.Assert(client.CurrentSession(), qt.IsNil)

	c.Assert(log.all(), qt.DeepEquals, []backend.AuthEvent{
		backend.EventSignedIn, backend.EventUserUpdated, backend.EventSignedOut,
	})

	sub.Unsubscribe()
	_, err = client.SignInWithPassword(ctx, "a@example.com", "654321")
	c.Assert(err, qt.IsNil)
	c.Assert(log.all(), qt.HasLen, 3)
}

func TestClient_RestoresToken(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc, _ := newTestService(t, false)
	_, err := svc.CreateConfirmedUser(ctx, "a@example.com", "123456")
	c.Assert(err, qt.IsNil)
	session, err := svc.SignIn(ctx, "a@example.com", "123456")
	c.Assert(err, qt.IsNil)

	restored, err := svc.NewClient(session.AccessToken).GetSession(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(restored.User.Email, qt.Equals, "a@example.com")

	stale, err := svc.NewClient("not-a-token").GetSession(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(stale, qt.IsNil)
}

func TestClient_RecoveryFlow(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc, mailer := newTestService(t, true)
	_, err := svc.CreateConfirmedUser(ctx, "a@example.com", "123456")
	c.Assert(err, qt.IsNil)

	c.Assert(svc.RequestRecovery(ctx, "a@example.com", "/admin/login"), qt.IsNil)
	c.Assert(svc.RequestRecovery(ctx, "unknown@example.com", "/admin/login"), qt.IsNil)

	client := svc.NewClient("")
	log := &eventLog{}
	client.OnAuthStateChange(log.listener)

	session, redirectTo, err := client.VerifyRecovery(ctx, mailer.lastToken())
	c.Assert(err, qt.IsNil)
	c.Assert(session.User.Email, qt.Equals, "a@example.com")
	c.Assert(redirectTo, qt.Equals, "/admin/login")
	c.Assert(log.all(), qt.DeepEquals, []backend.AuthEvent{backend.EventPasswordRecovery})

	c.Assert(client.UpdatePassword(ctx, "brand-new"), qt.IsNil)
	_, err = svc.SignIn(ctx, "a@example.com", "brand-new")
	c.Assert(err, qt.IsNil)
}
