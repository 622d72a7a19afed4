package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"sephira/internal/backend"
	"sephira/internal/models"
)

const (
	purposeConfirm  = "confirm"
	purposeRecovery = "recovery"
)

// NewCookieStore creates the cookie store that carries the browser id and
// the persisted access token.
func NewCookieStore(sessionKey string) (*sessions.CookieStore, error) {
	if len(sessionKey) < 32 {
		return nil, errors.New("session key must be at least 32 characters long")
	}
	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options.HttpOnly = true
	store.Options.Path = "/"
	store.Options.MaxAge = 86400 * 30
	store.Options.SameSite = http.SameSiteLaxMode // Protect against CSRF
	return store, nil
}

// Options tunes the embedded auth backend.
type Options struct {
	// BaseURL is prefixed to the links sent by mail.
	BaseURL             string
	RequireConfirmation bool
	SessionTTL          time.Duration
	TokenTTL            time.Duration
	MinPasswordLength   int
}

// Service is the embedded auth backend. It owns users, access tokens,
// mailed tokens and role assertions.
type Service struct {
	Repo   *Repository
	Mailer Mailer
	opts   Options
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(repo *Repository, mailer Mailer, opts Options) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = 6
	}
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &Service{Repo: repo, Mailer: mailer, opts: opts, now: time.Now}
}

// NewClient returns a browser-scoped client, restoring accessToken when the
// browser already carries one.
func (s *Service) NewClient(accessToken string) *Client {
	c := &Client{svc: s, listeners: make(map[int]backend.AuthListener)}
	if accessToken != "" {
		c.session = &backend.Session{AccessToken: accessToken}
	}
	return c
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) hashPassword(password string) (string, error) {
	if len(password) < s.opts.MinPasswordLength {
		return "", backend.ErrWeakPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// SignUp registers a user and mails a confirmation link that lands on
// redirectTo once followed.
func (s *Service) SignUp(ctx context.Context, email, password, redirectTo string) error {
	email = normalizeEmail(email)
	if email == "" {
		return backend.ErrInvalidCredentials
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if !s.opts.RequireConfirmation {
		user.ConfirmedAt = &now
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		return err
	}

	if !s.opts.RequireConfirmation {
		return nil
	}
	token, err := s.issueToken(ctx, user.ID, purposeConfirm, redirectTo)
	if err != nil {
		return err
	}
	link := s.link("/auth/confirm", token)
	return s.Mailer.Send(ctx, email, "Confirm your account", "Follow this link to confirm your account: "+link)
}

// Confirm consumes a confirmation token and returns its redirect target.
func (s *Service) Confirm(ctx context.Context, token string) (string, error) {
	t, err := s.consume(ctx, token, purposeConfirm)
	if err != nil {
		return "", err
	}
	if err := s.Repo.Confirm(ctx, t.UserID, s.now()); err != nil {
		return "", fmt.Errorf("error confirming user: %w", err)
	}
	return t.RedirectTo, nil
}

// SignIn checks the credentials and issues a new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	user, err := s.Repo.FindUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, backend.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, backend.ErrInvalidCredentials
	}
	if s.opts.RequireConfirmation && user.ConfirmedAt == nil {
		return nil, backend.ErrEmailNotConfirmed
	}

	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user *models.User) (*backend.Session, error) {
	session := &backend.Session{
		AccessToken: uuid.NewString(),
		User:        backend.User{ID: user.ID, Email: user.Email},
		ExpiresAt:   s.now().Add(s.opts.SessionTTL),
	}
	if err := s.Repo.CreateSession(ctx, session.AccessToken, user.ID, session.ExpiresAt); err != nil {
		return nil, err
	}
	return session, nil
}

// Session resolves an access token.
func (s *Service) Session(ctx context.Context, token string) (*backend.Session, error) {
	userID, expiresAt, err := s.Repo.FindSession(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, backend.ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	if !s.now().Before(expiresAt) {
		_ = s.Repo.DeleteSession(ctx, token)
		return nil, backend.ErrNoSession
	}

	user, err := s.Repo.FindUserByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, backend.ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	return &backend.Session{
		AccessToken: token,
		User:        backend.User{ID: user.ID, Email: user.Email},
		ExpiresAt:   expiresAt,
	}, nil
}

// Refresh extends a live session by the session TTL.
func (s *Service) Refresh(ctx context.Context, token string) (*backend.Session, error) {
	session, err := s.Session(ctx, token)
	if err != nil {
		return nil, err
	}
	session.ExpiresAt = s.now().Add(s.opts.SessionTTL)
	if err := s.Repo.ExtendSession(ctx, token, session.ExpiresAt); err != nil {
		return nil, err
	}
	return session, nil
}

// needsRefresh reports whether a session is in the last quarter of its life.
func (s *Service) needsRefresh(session *backend.Session) bool {
	return session.ExpiresAt.Sub(s.now()) < s.opts.SessionTTL/4
}

// SignOut revokes an access token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.Repo.DeleteSession(ctx, token)
}

// RequestRecovery mails a password reset link. Unknown addresses are
// accepted silently so the form does not reveal which emails exist.
func (s *Service) RequestRecovery(ctx context.Context, email, redirectTo string) error {
	user, err := s.Repo.FindUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	token, err := s.issueToken(ctx, user.ID, purposeRecovery, redirectTo)
	if err != nil {
		return err
	}
	link := s.link("/auth/recover", token)
	return s.Mailer.Send(ctx, user.Email, "Reset your password", "Follow this link to choose a new password: "+link)
}

// VerifyRecovery consumes a recovery token and signs its owner in.
func (s *Service) VerifyRecovery(ctx context.Context, token string) (*backend.Session, string, error) {
	t, err := s.consume(ctx, token, purposeRecovery)
	if err != nil {
		return nil, "", err
	}
	user, err := s.Repo.FindUserByID(ctx, t.UserID)
	if err != nil {
		return nil, "", backend.ErrInvalidToken
	}
	// Following a mailed link proves ownership of the address.
	if user.ConfirmedAt == nil {
		_ = s.Repo.Confirm(ctx, user.ID, s.now())
	}
	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return session, t.RedirectTo, nil
}

// UpdatePassword sets a new password for the owner of accessToken.
func (s *Service) UpdatePassword(ctx context.Context, accessToken, password string) error {
	session, err := s.Session(ctx, accessToken)
	if err != nil {
		return err
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	return s.Repo.SetPassword(ctx, session.User.ID, hash)
}

// HasRole implements backend.RoleChecker.
func (s *Service) HasRole(ctx context.Context, userID, role string) (bool, error) {
	return s.Repo.HasRole(ctx, userID, role)
}

// GrantRole grants role to the user registered under email.
func (s *Service) GrantRole(ctx context.Context, email, role string) error {
	user, err := s.Repo.FindUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return backend.ErrNotFound
	}
	if err != nil {
		return err
	}
	return s.Repo.GrantRole(ctx, user.ID, role)
}

// RevokeRole removes role from the user registered under email.
func (s *Service) RevokeRole(ctx context.Context, email, role string) error {
	user, err := s.Repo.FindUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return backend.ErrNotFound
	}
	if err != nil {
		return err
	}
	return s.Repo.RevokeRole(ctx, user.ID, role)
}

// CreateConfirmedUser registers a user that can sign in immediately.
func (s *Service) CreateConfirmedUser(ctx context.Context, email, password string) (*models.User, error) {
	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		ConfirmedAt:  &now,
		CreatedAt:    now,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// PurgeExpired deletes sessions past their expiry.
func (s *Service) PurgeExpired(ctx context.Context) {
	n, err := s.Repo.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		log.Printf("Error purging expired sessions: %v", err)
		return
	}
	if n > 0 {
		log.Printf("purged %d expired sessions", n)
	}
}

func (s *Service) issueToken(ctx context.Context, userID, purpose, redirectTo string) (string, error) {
	t := &models.AuthToken{
		Token:      uuid.NewString(),
		UserID:     userID,
		Purpose:    purpose,
		RedirectTo: redirectTo,
		ExpiresAt:  s.now().Add(s.opts.TokenTTL),
	}
	if err := s.Repo.CreateToken(ctx, t); err != nil {
		return "", err
	}
	return t.Token, nil
}

func (s *Service) consume(ctx context.Context, token, purpose string) (*models.AuthToken, error) {
	t, err := s.Repo.ConsumeToken(ctx, token, purpose)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, backend.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !s.now().Before(t.ExpiresAt) {
		return nil, backend.ErrInvalidToken
	}
	return t, nil
}

func (s *Service) link(path, token string) string {
	return strings.TrimRight(s.opts.BaseURL, "/") + path + "?token=" + url.QueryEscape(token)
}
