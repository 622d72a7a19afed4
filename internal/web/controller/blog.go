package controller

import (
	"database/sql"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strings"

	"sephira/internal/comment"
	"sephira/internal/models"
	"sephira/internal/post"
	"sephira/internal/reaction"
	"sephira/internal/web/viewmodels"
)

var reactionLabels = map[reaction.Type]struct{ Emoji, Label string }{
	reaction.Heart: {"❤️", "Amor"},
	reaction.Light: {"✨", "Luz"},
	reaction.Leaf:  {"🌿", "Natureza"},
}

// reactionButtons lays a snapshot out in display order.
func reactionButtons(s reaction.Snapshot) []viewmodels.ReactionButton {
	buttons := make([]viewmodels.ReactionButton, 0, len(reaction.Types))
	for _, t := range reaction.Types {
		l := reactionLabels[t]
		buttons = append(buttons, viewmodels.ReactionButton{
			Type:   t,
			Emoji:  l.Emoji,
			Label:  l.Label,
			Count:  s.Counts[t],
			Active: s.Mine == t,
		})
	}
	return buttons
}

// Blog provides the public blog handlers
type Blog struct {
	PostRepo    *post.Repository
	CommentRepo *comment.Repository
	Reactions   *reaction.Service
	Visitors    *reaction.Visitors
	Templates   map[string]*template.Template
}

// Register registers the blog routes
func (b *Blog) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /blog", b.list)
	mux.HandleFunc("GET /blog/{slug}", b.view)
	mux.HandleFunc("POST /blog/{slug}/reactions", b.react)
	mux.HandleFunc("POST /blog/{slug}/comments", b.comment)
}

func (b *Blog) list(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category != "" && !post.ValidCategory(category) {
		category = ""
	}

	posts, err := b.PostRepo.ListPublished(r.Context(), category)
	if err != nil {
		serverError(w, err)
		return
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	stats, err := b.PostRepo.Stats(r.Context(), ids)
	if err != nil {
		// Cards still render, only without counters.
		log.Printf("Error loading post stats: %v", err)
		stats = map[string]models.PostStats{}
	}

	cards := make([]viewmodels.PostCard, len(posts))
	for i, p := range posts {
		cards[i] = viewmodels.PostCard{Post: p, Stats: stats[p.ID]}
	}

	render(w, r, b.Templates, "blog.html", &viewmodels.PageData{
		Title:      "Blog",
		Categories: post.Categories,
		Category:   category,
		Posts:      cards,
	})
}

// findPost loads the published post named by the slug path value. It writes
// the response itself and returns false when there is none.
func (b *Blog) findPost(w http.ResponseWriter, r *http.Request) (models.Post, bool) {
	p, err := b.PostRepo.FindPublishedBySlug(r.Context(), r.PathValue("slug"))
	if errors.Is(err, sql.ErrNoRows) {
		notFound(w, r, b.Templates)
		return p, false
	}
	if err != nil {
		serverError(w, err)
		return p, false
	}
	return p, true
}

func (b *Blog) view(w http.ResponseWriter, r *http.Request) {
	p, ok := b.findPost(w, r)
	if !ok {
		return
	}
	data, err := b.postData(r, p)
	if err != nil {
		serverError(w, err)
		return
	}
	render(w, r, b.Templates, "post.html", data)
}

func (b *Blog) postData(r *http.Request, p models.Post) (*viewmodels.PageData, error) {
	comments, err := b.CommentRepo.ListApprovedByPost(r.Context(), p.ID)
	if err != nil {
		return nil, err
	}

	visitorID, _ := b.Visitors.Peek(r)
	snapshot, err := b.Reactions.Get(r.Context(), p.ID, visitorID)
	if err != nil {
		log.Printf("Error loading reactions: %v", err)
	}

	return &viewmodels.PageData{
		Title:     p.Title,
		Post:      p,
		Content:   template.HTML(p.Content), // sanitized on save
		Comments:  comments,
		Reactions: reactionButtons(snapshot),
		Total:     snapshot.Total,
	}, nil
}

type reactionResponse struct {
	Counts map[reaction.Type]int `json:"counts"`
	Mine   reaction.Type         `json:"mine"`
	Total  int                   `json:"total"`
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (b *Blog) react(w http.ResponseWriter, r *http.Request) {
	p, ok := b.findPost(w, r)
	if !ok {
		return
	}
	typ, err := reaction.ParseType(r.FormValue("type"))
	if err != nil {
		http.Error(w, "Invalid reaction type", http.StatusBadRequest)
		return
	}
	visitorID, err := b.Visitors.ID(w, r)
	if err != nil {
		serverError(w, err)
		return
	}

	snapshot, err := b.Reactions.Toggle(r.Context(), p.ID, visitorID, typ)
	if wantsJSON(r) {
		switch {
		case errors.Is(err, reaction.ErrBusy):
			http.Error(w, "Reaction already in progress", http.StatusConflict)
			return
		case err != nil:
			log.Printf("Error toggling reaction: %v", err)
			http.Error(w, "Internal Server Error", 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		resp := reactionResponse{Counts: snapshot.Counts, Mine: snapshot.Mine, Total: snapshot.Total}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("Error encoding reactions: %v", err)
		}
		return
	}

	// A click landing while the previous one is still running is ignored.
	if err != nil && !errors.Is(err, reaction.ErrBusy) {
		log.Printf("Error toggling reaction: %v", err)
		flash(w, r, flashError, "Erro ao registrar reação")
	}
	redirect(w, r, "/blog/"+p.Slug+"#reactions")
}

func (b *Blog) comment(w http.ResponseWriter, r *http.Request) {
	p, ok := b.findPost(w, r)
	if !ok {
		return
	}
	in := comment.Input{
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Content: r.FormValue("content"),
	}.Normalize()

	if err := in.Validate(); err != nil {
		data, derr := b.postData(r, p)
		if derr != nil {
			serverError(w, derr)
			return
		}
		field, message, _ := validationMessage(err)
		data.Flashes = []viewmodels.Flash{{Kind: flashError, Message: message}}
		data.Errors = map[string]string{field: message}
		data.Values = map[string]string{"name": in.Name, "email": in.Email, "content": in.Content}
		renderStatus(w, r, b.Templates, "post.html", http.StatusUnprocessableEntity, data)
		return
	}

	if _, err := b.CommentRepo.Create(r.Context(), p.ID, in); err != nil {
		log.Printf("Error saving comment: %v", err)
		flash(w, r, flashError, "Erro ao enviar comentário")
	} else {
		flash(w, r, flashSuccess, "Comentário enviado! Ele aparecerá após aprovação.")
	}
	redirect(w, r, "/blog/"+p.Slug+"#comments")
}
