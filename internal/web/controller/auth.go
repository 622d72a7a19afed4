package controller

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"sephira/internal/auth"
	"sephira/internal/authstate"
	"sephira/internal/backend"
	"sephira/internal/web/middleware"
	"sephira/internal/web/viewmodels"
)

// Login form modes.
const (
	modeSignIn = "signin"
	modeSignUp = "signup"
	modeForgot = "forgot"
	modeReset  = "reset"
)

// Auth provides auth handlers
type Auth struct {
	AuthService       *auth.Service
	Templates         map[string]*template.Template
	BaseURL           string
	GateWait          time.Duration
	MinPasswordLength int
}

// Register registers the auth routes
func (a *Auth) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/login", a.loginGet)
	mux.HandleFunc("POST /admin/login", a.loginPost)
	mux.HandleFunc("POST /admin/logout", a.logout)
	mux.HandleFunc("GET /auth/confirm", a.confirm)
	mux.HandleFunc("GET /auth/recover", a.recoverPassword)
}

func (a *Auth) settledView(r *http.Request) authstate.View {
	m := middleware.Manager(r.Context())
	if m == nil {
		return authstate.View{}
	}
	ctx, cancel := context.WithTimeout(r.Context(), a.GateWait)
	defer cancel()
	v, _ := m.WaitSettled(ctx)
	return v
}

func (a *Auth) loginGet(w http.ResponseWriter, r *http.Request) {
	v := a.settledView(r)
	if !v.IsLoading && v.IsAdmin && !v.IsRecoveryMode {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}
	a.renderLogin(w, r, http.StatusOK, v, r.URL.Query().Get("mode"), nil)
}

func (a *Auth) renderLogin(w http.ResponseWriter, r *http.Request, status int, v authstate.View, mode string, data *viewmodels.PageData) {
	if data == nil {
		data = &viewmodels.PageData{}
	}
	switch {
	case v.IsRecoveryMode:
		mode = modeReset
	case mode != modeSignUp && mode != modeForgot:
		mode = modeSignIn
	}
	data.Mode = mode
	switch mode {
	case modeReset:
		data.Title = "Redefinir Senha"
	case modeSignUp:
		data.Title = "Criar Conta"
	case modeForgot:
		data.Title = "Recuperar Senha"
	default:
		data.Title = "Área Administrativa"
	}
	renderStatus(w, r, a.Templates, "login.html", status, data)
}

// formError re-renders the login form with message and the submitted email.
func (a *Auth) formError(w http.ResponseWriter, r *http.Request, mode, message string) {
	a.renderLogin(w, r, http.StatusUnprocessableEntity, middleware.Manager(r.Context()).View(), mode, &viewmodels.PageData{
		Flashes: []viewmodels.Flash{{Kind: flashError, Message: message}},
		Values:  map[string]string{"email": strings.TrimSpace(r.FormValue("email"))},
	})
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// validateCredentials checks the form before anything is sent.
func (a *Auth) validateCredentials(email, password string) string {
	if !validEmail(email) {
		return "Email inválido"
	}
	if len(password) < a.MinPasswordLength {
		return a.passwordTooShort()
	}
	return ""
}

func (a *Auth) passwordTooShort() string {
	return fmt.Sprintf("Senha deve ter pelo menos %d caracteres", a.MinPasswordLength)
}

func (a *Auth) loginPost(w http.ResponseWriter, r *http.Request) {
	m := middleware.Manager(r.Context())
	if m == nil {
		http.Error(w, "Internal Server Error", 500)
		return
	}
	switch r.FormValue("action") {
	case modeSignUp:
		a.signUp(w, r, m)
	case modeForgot:
		a.forgot(w, r)
	case modeReset:
		a.reset(w, r, m)
	default:
		a.signIn(w, r, m)
	}
}

func (a *Auth) signIn(w http.ResponseWriter, r *http.Request, m *authstate.Manager) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if msg := a.validateCredentials(email, password); msg != "" {
		a.formError(w, r, modeSignIn, msg)
		return
	}

	err := m.SignIn(r.Context(), email, password)
	switch {
	case errors.Is(err, backend.ErrInvalidCredentials):
		a.formError(w, r, modeSignIn, "Email ou senha incorretos")
		return
	case errors.Is(err, backend.ErrEmailNotConfirmed):
		a.formError(w, r, modeSignIn, "Email ainda não confirmado. Verifique sua caixa de entrada.")
		return
	case err != nil:
		log.Printf("Error signing in: %v", err)
		a.formError(w, r, modeSignIn, "Erro inesperado")
		return
	}

	if err := middleware.PersistToken(w, r); err != nil {
		log.Printf("Error saving session: %v", err)
	}
	flash(w, r, flashSuccess, "Login realizado com sucesso!")
	redirect(w, r, "/admin")
}

func (a *Auth) signUp(w http.ResponseWriter, r *http.Request, m *authstate.Manager) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if msg := a.validateCredentials(email, password); msg != "" {
		a.formError(w, r, modeSignUp, msg)
		return
	}
	if password != r.FormValue("confirm_password") {
		a.formError(w, r, modeSignUp, "As senhas não coincidem")
		return
	}

	err := m.SignUp(r.Context(), email, password)
	switch {
	case errors.Is(err, backend.ErrUserExists):
		a.formError(w, r, modeSignUp, "Este email já está cadastrado")
		return
	case errors.Is(err, backend.ErrWeakPassword):
		a.formError(w, r, modeSignUp, a.passwordTooShort())
		return
	case err != nil:
		log.Printf("Error signing up: %v", err)
		a.formError(w, r, modeSignUp, "Erro inesperado")
		return
	}

	flash(w, r, flashSuccess, "Conta criada com sucesso! Aguardando atribuição de permissões.")
	redirect(w, r, middleware.LoginPath)
}

func (a *Auth) forgot(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	if !validEmail(email) {
		a.formError(w, r, modeForgot, "Email inválido")
		return
	}
	redirectTo := strings.TrimRight(a.BaseURL, "/") + middleware.LoginPath + "?type=recovery"
	if err := a.AuthService.RequestRecovery(r.Context(), email, redirectTo); err != nil {
		log.Printf("Error requesting password recovery: %v", err)
		a.formError(w, r, modeForgot, "Erro inesperado")
		return
	}
	flash(w, r, flashSuccess, "Se o email estiver cadastrado, você receberá um link para redefinir sua senha.")
	redirect(w, r, middleware.LoginPath)
}

func (a *Auth) reset(w http.ResponseWriter, r *http.Request, m *authstate.Manager) {
	if !m.View().IsRecoveryMode {
		redirect(w, r, middleware.LoginPath)
		return
	}
	password := r.FormValue("password")
	if len(password) < a.MinPasswordLength {
		a.formError(w, r, modeReset, a.passwordTooShort())
		return
	}
	if password != r.FormValue("confirm_password") {
		a.formError(w, r, modeReset, "As senhas não coincidem")
		return
	}

	if err := m.UpdatePassword(r.Context(), password); err != nil {
		log.Printf("Error updating password: %v", err)
		a.formError(w, r, modeReset, "Erro ao redefinir senha")
		return
	}
	if err := middleware.PersistToken(w, r); err != nil {
		log.Printf("Error saving session: %v", err)
	}
	flash(w, r, flashSuccess, "Senha redefinida com sucesso!")
	redirect(w, r, middleware.LoginPath)
}

func (a *Auth) logout(w http.ResponseWriter, r *http.Request) {
	m := middleware.Manager(r.Context())
	if m != nil {
		if err := m.SignOut(r.Context()); err != nil {
			log.Printf("Error signing out: %v", err)
		}
		if err := middleware.PersistToken(w, r); err != nil {
			log.Printf("Error saving session: %v", err)
		}
	}
	redirect(w, r, middleware.LoginPath)
}

func (a *Auth) confirm(w http.ResponseWriter, r *http.Request) {
	target, err := a.AuthService.Confirm(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		if !errors.Is(err, backend.ErrInvalidToken) {
			log.Printf("Error confirming account: %v", err)
		}
		flash(w, r, flashError, "Link inválido ou expirado")
		redirect(w, r, middleware.LoginPath)
		return
	}
	flash(w, r, flashSuccess, "Email confirmado! Você já pode entrar.")
	redirect(w, r, a.landing(target, middleware.LoginPath))
}

// recoverPassword exchanges a mailed recovery token for a session and lands
// on the reset form.
func (a *Auth) recoverPassword(w http.ResponseWriter, r *http.Request) {
	m := middleware.Manager(r.Context())
	if m == nil {
		http.Error(w, "Internal Server Error", 500)
		return
	}
	target, err := m.VerifyRecovery(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		if !errors.Is(err, backend.ErrInvalidToken) {
			log.Printf("Error verifying recovery token: %v", err)
		}
		flash(w, r, flashError, "Link inválido ou expirado")
		redirect(w, r, middleware.LoginPath)
		return
	}
	if err := middleware.PersistToken(w, r); err != nil {
		log.Printf("Error saving session: %v", err)
	}
	redirect(w, r, a.landing(target, middleware.LoginPath+"?type=recovery"))
}

// landing returns target when it points into this site, else fallback.
func (a *Auth) landing(target, fallback string) string {
	base := strings.TrimRight(a.BaseURL, "/")
	switch {
	case target == "":
		return fallback
	case base != "" && strings.HasPrefix(target, base+"/"):
		return strings.TrimPrefix(target, base)
	case strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//"):
		return target
	}
	return fallback
}
