package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"sephira/internal/authstate"
)

// SessionName is the gorilla session that carries the browser id, the
// persisted access token and flash notifications.
const SessionName = "sephira"

const (
	browserIDKey   = "browser_id"
	accessTokenKey = "access_token"
)

type contextKey int

const (
	managerKey contextKey = iota
	sessionKey
	viewKey
)

// Auth attaches a browser's auth state manager to every request.
type Auth struct {
	Store    sessions.Store
	Registry *authstate.Registry
}

// WithSession loads the cookie session into the request context.
func (a *Auth) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := a.session(r)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, session)))
	})
}

func (a *Auth) session(r *http.Request) *sessions.Session {
	if s := Session(r.Context()); s != nil {
		return s
	}
	// A tampered or undecodable cookie yields a fresh session.
	session, err := a.Store.Get(r, SessionName)
	if err != nil {
		log.Printf("Error decoding session cookie: %v", err)
	}
	return session
}

// WithAuth resolves the browser id from the session cookie, minting one on
// the first request, and puts the browser's Manager and session into the
// request context.
func (a *Auth) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := a.session(r)

		id, _ := session.Values[browserIDKey].(string)
		if id == "" {
			id = uuid.NewString()
			session.Values[browserIDKey] = id
			if err := session.Save(r, w); err != nil {
				log.Printf("Error saving session: %v", err)
			}
		}
		token, _ := session.Values[accessTokenKey].(string)

		m := a.Registry.Acquire(id, token, r.URL)

		ctx := context.WithValue(r.Context(), managerKey, m)
		ctx = context.WithValue(ctx, sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Manager returns the auth state manager of the request's browser.
func Manager(ctx context.Context) *authstate.Manager {
	m, _ := ctx.Value(managerKey).(*authstate.Manager)
	return m
}

// Session returns the request's cookie session.
func Session(ctx context.Context) *sessions.Session {
	s, _ := ctx.Value(sessionKey).(*sessions.Session)
	return s
}

// View returns the auth view the gate admitted the request with. Outside the
// admin area it is the manager's current view, and the zero View on pages
// served without one.
func View(ctx context.Context) authstate.View {
	if v, ok := ctx.Value(viewKey).(authstate.View); ok {
		return v
	}
	if m := Manager(ctx); m != nil {
		return m.View()
	}
	return authstate.View{}
}

// PersistToken stores the manager's current access token in the session
// cookie, or removes it when signed out. Call it before writing the body.
func PersistToken(w http.ResponseWriter, r *http.Request) error {
	session := Session(r.Context())
	m := Manager(r.Context())
	if session == nil || m == nil {
		return errors.New("request has no auth context")
	}
	if token := m.AccessToken(); token != "" {
		session.Values[accessTokenKey] = token
	} else {
		delete(session.Values, accessTokenKey)
	}
	return session.Save(r, w)
}

// LoginPath is the sign-in entry point of the admin area.
const LoginPath = "/admin/login"

// RequireAdmin gates the admin area. It waits up to wait for the browser's
// auth state to settle. While it is still loading the loading handler is
// served; that is never a redirect. A resolved non-admin, or a browser in
// password recovery, is sent to the sign-in page.
func RequireAdmin(wait time.Duration, loading http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := Manager(r.Context())
			if m == nil {
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), wait)
			v, err := m.WaitSettled(ctx)
			cancel()
			if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
				log.Printf("Error waiting for auth state: %v", err)
			}

			switch {
			case v.IsLoading:
				w.Header().Set("Cache-Control", "no-store")
				w.Header().Set("Refresh", "1")
				loading.ServeHTTP(w, r)
			case v.IsRecoveryMode, !v.IsAdmin:
				http.Redirect(w, r, LoginPath, http.StatusFound)
			default:
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), viewKey, v)))
			}
		})
	}
}
