package controller

import (
	"database/sql"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"sephira/internal/auth"
	"sephira/internal/backend"
	"sephira/internal/models"
	"sephira/internal/post"
	"sephira/internal/storage"
	"sephira/internal/web/middleware"
	"sephira/internal/web/viewmodels"
)

// Posts provides the post management handlers
type Posts struct {
	PostRepo  *post.Repository
	AuthRepo  *auth.Repository
	Images    *storage.Images
	Templates map[string]*template.Template
}

// Register registers the post management routes
func (p *Posts) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/posts", p.list)
	mux.HandleFunc("GET /admin/posts/new", p.new)
	mux.HandleFunc("POST /admin/posts/new", p.create)
	mux.HandleFunc("GET /admin/posts/{id}", p.edit)
	mux.HandleFunc("POST /admin/posts/{id}", p.save)
	mux.HandleFunc("POST /admin/posts/{id}/publish", p.publish)
	mux.HandleFunc("POST /admin/posts/{id}/delete", p.delete)
	mux.HandleFunc("GET /admin/posts/{id}/history", p.history)
	mux.HandleFunc("GET /admin/posts/{id}/diff", p.diff)
}

func (p *Posts) list(w http.ResponseWriter, r *http.Request) {
	posts, err := p.PostRepo.List(r.Context())
	if err != nil {
		log.Printf("Error loading posts: %v", err)
		flash(w, r, flashError, "Erro ao carregar posts")
	}
	render(w, r, p.Templates, "posts.html", &viewmodels.PageData{
		Title:      "Posts",
		AdminPosts: posts,
	})
}

func (p *Posts) editor(w http.ResponseWriter, r *http.Request, status int, data *viewmodels.PageData) {
	data.Categories = post.Categories
	data.MaxUploadBytes = p.Images.MaxBytes
	if data.IsNew {
		data.Title = "Novo Post"
	} else {
		data.Title = "Editar Post"
	}
	renderStatus(w, r, p.Templates, "editor.html", status, data)
}

func postValues(m models.Post) map[string]string {
	values := map[string]string{
		"title":    m.Title,
		"slug":     m.Slug,
		"category": m.Category,
		"content":  m.Content,
		"format":   post.FormatHTML,
	}
	if m.CoverImageURL != nil {
		values["cover_image_url"] = *m.CoverImageURL
	}
	if m.Published {
		values["published"] = "on"
	}
	return values
}

func (p *Posts) new(w http.ResponseWriter, r *http.Request) {
	p.editor(w, r, http.StatusOK, &viewmodels.PageData{
		IsNew:  true,
		Values: map[string]string{"category": post.Categories[0].Slug, "format": post.FormatHTML},
	})
}

func (p *Posts) edit(w http.ResponseWriter, r *http.Request) {
	m, ok := p.find(w, r)
	if !ok {
		return
	}
	p.editor(w, r, http.StatusOK, &viewmodels.PageData{Post: m, Values: postValues(m)})
}

func (p *Posts) find(w http.ResponseWriter, r *http.Request) (models.Post, bool) {
	m, err := p.PostRepo.Find(r.Context(), r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		notFound(w, r, p.Templates)
		return m, false
	}
	if err != nil {
		serverError(w, err)
		return m, false
	}
	return m, true
}

// readForm reads the editor form. A cover file, when attached, is uploaded
// first and replaces the cover URL field.
func (p *Posts) readForm(r *http.Request) (post.Input, string, map[string]string, error) {
	if err := r.ParseMultipartForm(p.Images.MaxBytes + 1<<20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return post.Input{}, "", nil, &models.ValidationError{Field: "form", Message: "Formulário inválido"}
	}
	in := post.Input{
		Title:         strings.TrimSpace(r.FormValue("title")),
		Slug:          strings.TrimSpace(r.FormValue("slug")),
		Category:      r.FormValue("category"),
		Content:       r.FormValue("content"),
		CoverImageURL: strings.TrimSpace(r.FormValue("cover_image_url")),
		Published:     r.FormValue("published") != "",
	}
	if in.Slug == "" {
		in.Slug = post.Slugify(in.Title)
	}
	format := r.FormValue("format")
	if format != post.FormatOrg {
		format = post.FormatHTML
	}
	values := map[string]string{
		"title":           in.Title,
		"slug":            in.Slug,
		"category":        in.Category,
		"content":         in.Content,
		"cover_image_url": in.CoverImageURL,
		"format":          format,
	}
	if in.Published {
		values["published"] = "on"
	}

	file, header, err := r.FormFile("cover")
	if err == nil {
		defer file.Close()
		url, err := p.Images.Upload(r.Context(), storage.KindCover, header.Filename, file)
		if err != nil {
			return in, format, values, uploadError(err)
		}
		in.CoverImageURL = url
		values["cover_image_url"] = url
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		return in, format, values, err
	}
	return in, format, values, nil
}

// uploadError maps an image upload failure to a validation error.
func uploadError(err error) error {
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		return &models.ValidationError{Field: "cover", Message: "Tipo de arquivo não permitido. Use JPG, PNG ou WebP."}
	case errors.Is(err, storage.ErrTooLarge):
		return &models.ValidationError{Field: "cover", Message: "Arquivo muito grande. Máximo 5MB."}
	}
	log.Printf("Error uploading image: %v", err)
	return &models.ValidationError{Field: "cover", Message: "Erro ao enviar imagem."}
}

// apply validates in and copies it onto m with the content prepared for
// storage.
func apply(m *models.Post, in post.Input, format string) error {
	if err := in.Validate(); err != nil {
		return err
	}
	content, err := post.Prepare(in.Content, format)
	if err != nil {
		return &models.ValidationError{Field: "content", Message: "Conteúdo org inválido"}
	}
	m.Title = in.Title
	m.Slug = in.Slug
	m.Category = in.Category
	m.Content = content
	m.Published = in.Published
	m.CoverImageURL = nil
	if in.CoverImageURL != "" {
		cover := in.CoverImageURL
		m.CoverImageURL = &cover
	}
	return nil
}

func (p *Posts) formFailed(w http.ResponseWriter, r *http.Request, data *viewmodels.PageData, err error) {
	field, message, ok := validationMessage(err)
	if !ok {
		log.Printf("Error saving post: %v", err)
		message = "Erro ao salvar post"
	}
	data.Flashes = []viewmodels.Flash{{Kind: flashError, Message: message}}
	if field != "" {
		data.Errors = map[string]string{field: message}
	}
	p.editor(w, r, http.StatusUnprocessableEntity, data)
}

func (p *Posts) create(w http.ResponseWriter, r *http.Request) {
	in, format, values, err := p.readForm(r)
	data := &viewmodels.PageData{IsNew: true, Values: values}
	if err != nil {
		p.formFailed(w, r, data, err)
		return
	}

	var m models.Post
	if err := apply(&m, in, format); err != nil {
		p.formFailed(w, r, data, err)
		return
	}
	if v := middleware.View(r.Context()); v.User != nil {
		id := v.User.ID
		m.AuthorID = &id
	}

	err = p.PostRepo.Create(r.Context(), &m)
	if errors.Is(err, backend.ErrConflict) {
		p.formFailed(w, r, data, &models.ValidationError{Field: "slug", Message: "Já existe um post com este slug"})
		return
	}
	if err != nil {
		p.formFailed(w, r, data, err)
		return
	}
	flash(w, r, flashSuccess, "Post criado com sucesso!")
	redirect(w, r, "/admin/posts/"+m.ID)
}

func (p *Posts) save(w http.ResponseWriter, r *http.Request) {
	m, ok := p.find(w, r)
	if !ok {
		return
	}
	in, format, values, err := p.readForm(r)
	data := &viewmodels.PageData{Post: m, Values: values}
	if err != nil {
		p.formFailed(w, r, data, err)
		return
	}
	if err := apply(&m, in, format); err != nil {
		p.formFailed(w, r, data, err)
		return
	}

	var authorID *string
	if v := middleware.View(r.Context()); v.User != nil {
		id := v.User.ID
		authorID = &id
	}
	err = p.PostRepo.Update(r.Context(), &m, authorID)
	switch {
	case errors.Is(err, backend.ErrConflict):
		p.formFailed(w, r, data, &models.ValidationError{Field: "slug", Message: "Já existe um post com este slug"})
		return
	case errors.Is(err, backend.ErrNotFound):
		notFound(w, r, p.Templates)
		return
	case err != nil:
		p.formFailed(w, r, data, err)
		return
	}
	flash(w, r, flashSuccess, "Post atualizado com sucesso!")
	redirect(w, r, "/admin/posts/"+m.ID)
}

func (p *Posts) publish(w http.ResponseWriter, r *http.Request) {
	published := r.FormValue("published") == "true"
	if err := p.PostRepo.SetPublished(r.Context(), r.PathValue("id"), published); err != nil {
		log.Printf("Error updating post: %v", err)
		flash(w, r, flashError, "Erro ao atualizar post")
	} else if published {
		flash(w, r, flashSuccess, "Post publicado")
	} else {
		flash(w, r, flashSuccess, "Post despublicado")
	}
	redirect(w, r, "/admin/posts")
}

func (p *Posts) delete(w http.ResponseWriter, r *http.Request) {
	if err := p.PostRepo.Delete(r.Context(), r.PathValue("id")); err != nil {
		log.Printf("Error deleting post: %v", err)
		flash(w, r, flashError, "Erro ao excluir post")
	} else {
		flash(w, r, flashSuccess, "Post excluído com sucesso!")
	}
	redirect(w, r, "/admin/posts")
}

// authorName resolves the email of a revision author. Unknown or deleted
// authors show as empty.
func (p *Posts) authorName(r *http.Request, cache map[string]string, id *string) string {
	if id == nil {
		return ""
	}
	if name, ok := cache[*id]; ok {
		return name
	}
	name := ""
	if u, err := p.AuthRepo.FindUserByID(r.Context(), *id); err == nil {
		name = u.Email
	}
	cache[*id] = name
	return name
}

func (p *Posts) history(w http.ResponseWriter, r *http.Request) {
	m, ok := p.find(w, r)
	if !ok {
		return
	}
	revisions, err := p.PostRepo.ListRevisions(r.Context(), m.ID)
	if err != nil {
		serverError(w, err)
		return
	}

	authors := map[string]string{}
	vms := make([]viewmodels.RevisionViewModel, len(revisions))
	for i, rev := range revisions {
		vms[i] = viewmodels.RevisionViewModel{
			ID:        rev.ID,
			Title:     rev.Title,
			CreatedAt: rev.CreatedAt,
			Author:    p.authorName(r, authors, rev.AuthorID),
		}
	}
	render(w, r, p.Templates, "history.html", &viewmodels.PageData{
		Title:     "Histórico",
		Post:      m,
		Revisions: vms,
	})
}

// diff compares two revisions. A missing or zero "to" compares against the
// current content.
func (p *Posts) diff(w http.ResponseWriter, r *http.Request) {
	m, ok := p.find(w, r)
	if !ok {
		return
	}
	fromID, err := strconv.Atoi(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "Invalid 'from' revision", http.StatusBadRequest)
		return
	}
	toID := 0
	if to := r.URL.Query().Get("to"); to != "" {
		if toID, err = strconv.Atoi(to); err != nil {
			http.Error(w, "Invalid 'to' revision", http.StatusBadRequest)
			return
		}
	}

	from, err := p.PostRepo.GetRevision(r.Context(), m.ID, fromID)
	if err != nil {
		notFound(w, r, p.Templates)
		return
	}
	toContent := m.Content
	if toID != 0 {
		to, err := p.PostRepo.GetRevision(r.Context(), m.ID, toID)
		if err != nil {
			notFound(w, r, p.Templates)
			return
		}
		toContent = to.Content
	}

	render(w, r, p.Templates, "diff.html", &viewmodels.PageData{
		Title:   "Comparar versões",
		Post:    m,
		Content: post.Diff(from.Content, toContent),
		From:    fromID,
		To:      toID,
	})
}
