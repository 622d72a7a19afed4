package controller

import (
	"errors"
	"html/template"
	"log"
	"net/http"

	"sephira/internal/models"
	"sephira/internal/web/middleware"
	"sephira/internal/web/viewmodels"
)

const (
	flashSuccess = "success"
	flashError   = "error"
)

// flash queues a notification for the next rendered page. It must be called
// before the response is written.
func flash(w http.ResponseWriter, r *http.Request, kind, message string) {
	session := middleware.Session(r.Context())
	if session == nil {
		return
	}
	session.AddFlash(message, kind)
	if err := session.Save(r, w); err != nil {
		log.Printf("Error saving flash: %v", err)
	}
}

func takeFlashes(w http.ResponseWriter, r *http.Request) []viewmodels.Flash {
	session := middleware.Session(r.Context())
	if session == nil {
		return nil
	}
	var flashes []viewmodels.Flash
	for _, kind := range []string{flashSuccess, flashError} {
		for _, f := range session.Flashes(kind) {
			if msg, ok := f.(string); ok {
				flashes = append(flashes, viewmodels.Flash{Kind: kind, Message: msg})
			}
		}
	}
	if len(flashes) > 0 {
		if err := session.Save(r, w); err != nil {
			log.Printf("Error saving session: %v", err)
		}
	}
	return flashes
}

// render executes the layout of the named template set with data, after
// attaching pending flashes and the browser's auth view.
func render(w http.ResponseWriter, r *http.Request, templates map[string]*template.Template, name string, data *viewmodels.PageData) {
	renderStatus(w, r, templates, name, http.StatusOK, data)
}

func renderStatus(w http.ResponseWriter, r *http.Request, templates map[string]*template.Template, name string, status int, data *viewmodels.PageData) {
	t, ok := templates[name]
	if !ok {
		log.Printf("template %s not found", name)
		http.Error(w, "Internal Server Error", 500)
		return
	}
	if data == nil {
		data = &viewmodels.PageData{}
	}
	data.Path = r.URL.Path
	data.Auth = middleware.View(r.Context())
	data.Flashes = append(data.Flashes, takeFlashes(w, r)...)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout.html", data); err != nil {
		log.Println(err)
	}
}

// notFound renders the not found page.
func notFound(w http.ResponseWriter, r *http.Request, templates map[string]*template.Template) {
	renderStatus(w, r, templates, "notfound.html", http.StatusNotFound, &viewmodels.PageData{Title: "Página não encontrada"})
}

func serverError(w http.ResponseWriter, err error) {
	log.Println(err)
	http.Error(w, "Internal Server Error", 500)
}

// validationMessage returns the user-facing message of a validation error.
func validationMessage(err error) (field, message string, ok bool) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return verr.Field, verr.Message, true
	}
	return "", "", false
}

func redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// Loading renders the neutral page shown while a browser's auth state is
// still being determined.
func Loading(templates map[string]*template.Template) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render(w, r, templates, "loading.html", &viewmodels.PageData{Title: "Carregando"})
	})
}
