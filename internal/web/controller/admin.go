package controller

import (
	"html/template"
	"log"
	"net/http"

	"sephira/internal/comment"
	"sephira/internal/feedback"
	"sephira/internal/post"
	"sephira/internal/reaction"
	"sephira/internal/settings"
	"sephira/internal/web/viewmodels"
)

// Admin provides the dashboard and the settings form.
type Admin struct {
	PostRepo     *post.Repository
	CommentRepo  *comment.Repository
	FeedbackRepo *feedback.Repository
	ReactionRepo *reaction.Repository
	SettingsRepo *settings.Repository
	Templates    map[string]*template.Template
}

// Register registers the admin routes
func (a *Admin) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin", a.dashboard)
	mux.HandleFunc("GET /admin/{$}", a.dashboard)
	mux.HandleFunc("GET /admin/settings", a.settings)
	mux.HandleFunc("POST /admin/settings", a.saveSettings)
}

func (a *Admin) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var stats viewmodels.DashboardStats
	var err error

	// A failed counter shows as zero rather than failing the page.
	if stats.TotalPosts, err = a.PostRepo.Count(ctx); err != nil {
		log.Printf("Error counting posts: %v", err)
	}
	if byStatus, err := a.CommentRepo.CountByStatus(ctx); err != nil {
		log.Printf("Error counting comments: %v", err)
	} else {
		stats.PendingComments = byStatus[comment.StatusPending]
	}
	if byStatus, err := a.FeedbackRepo.CountByStatus(ctx); err != nil {
		log.Printf("Error counting feedback: %v", err)
	} else {
		stats.NewFeedback = byStatus[feedback.StatusNew]
	}
	if stats.TotalReactions, err = a.ReactionRepo.Count(ctx); err != nil {
		log.Printf("Error counting reactions: %v", err)
	}

	recent, err := a.FeedbackRepo.Recent(ctx, 5)
	if err != nil {
		log.Printf("Error loading recent feedback: %v", err)
	}

	render(w, r, a.Templates, "dashboard.html", &viewmodels.PageData{
		Title:          "Dashboard",
		Stats:          stats,
		RecentFeedback: recent,
	})
}

func (a *Admin) settings(w http.ResponseWriter, r *http.Request) {
	s, err := a.SettingsRepo.Load(r.Context())
	if err != nil {
		log.Printf("Error loading settings: %v", err)
		s = settings.Defaults()
		flash(w, r, flashError, "Erro ao carregar configurações")
	}
	render(w, r, a.Templates, "settings.html", &viewmodels.PageData{
		Title:    "Configurações",
		Settings: s,
	})
}

func (a *Admin) saveSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	values := settings.Settings{}
	for _, k := range settings.Keys {
		if _, ok := r.PostForm[k]; ok {
			values[k] = r.PostForm.Get(k)
		}
	}
	if err := a.SettingsRepo.Save(r.Context(), values); err != nil {
		log.Printf("Error saving settings: %v", err)
		flash(w, r, flashError, "Erro ao salvar configurações")
	} else {
		flash(w, r, flashSuccess, "Configurações salvas com sucesso!")
	}
	redirect(w, r, "/admin/settings")
}

// Moderation provides the comment and feedback moderation handlers.
type Moderation struct {
	CommentRepo  *comment.Repository
	FeedbackRepo *feedback.Repository
	Templates    map[string]*template.Template
}

// Register registers the moderation routes
func (m *Moderation) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/comments", m.comments)
	mux.HandleFunc("POST /admin/comments/{id}/status", m.commentStatus)
	mux.HandleFunc("POST /admin/comments/{id}/delete", m.deleteComment)
	mux.HandleFunc("GET /admin/feedback", m.feedback)
	mux.HandleFunc("GET /admin/feedback/{id}", m.openFeedback)
	mux.HandleFunc("POST /admin/feedback/{id}/reviewed", m.markReviewed)
	mux.HandleFunc("POST /admin/feedback/{id}/delete", m.deleteFeedback)
}

var commentTabs = []viewmodels.Tab{
	{Status: comment.StatusPending, Label: "Pendentes"},
	{Status: comment.StatusApproved, Label: "Aprovados"},
	{Status: comment.StatusSpam, Label: "Spam"},
}

var feedbackTabs = []viewmodels.Tab{
	{Status: feedback.StatusNew, Label: "Novas"},
	{Status: feedback.StatusReviewed, Label: "Revisadas"},
}

// tabs marks the active tab and fills in the counters.
func tabs(base []viewmodels.Tab, active string, counts map[string]int) []viewmodels.Tab {
	out := make([]viewmodels.Tab, len(base))
	for i, t := range base {
		t.Active = t.Status == active
		t.Count = counts[t.Status]
		out[i] = t
	}
	return out
}

func (m *Moderation) comments(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if !comment.ValidStatus(status) {
		status = comment.StatusPending
	}
	comments, err := m.CommentRepo.ListWithPosts(r.Context(), status)
	if err != nil {
		log.Printf("Error loading comments: %v", err)
		flash(w, r, flashError, "Erro ao carregar comentários")
	}
	counts, err := m.CommentRepo.CountByStatus(r.Context())
	if err != nil {
		log.Printf("Error counting comments: %v", err)
	}
	render(w, r, m.Templates, "comments.html", &viewmodels.PageData{
		Title:    "Comentários",
		Status:   status,
		Tabs:     tabs(commentTabs, status, counts),
		Comments: comments,
	})
}

func (m *Moderation) commentStatus(w http.ResponseWriter, r *http.Request) {
	status := r.FormValue("status")
	back := "/admin/comments?status=" + r.FormValue("from")
	if !comment.ValidStatus(status) {
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}
	if err := m.CommentRepo.SetStatus(r.Context(), r.PathValue("id"), status); err != nil {
		log.Printf("Error updating comment: %v", err)
		flash(w, r, flashError, "Erro ao atualizar comentário")
		redirect(w, r, back)
		return
	}
	switch status {
	case comment.StatusApproved:
		flash(w, r, flashSuccess, "Comentário aprovado!")
	case comment.StatusSpam:
		flash(w, r, flashSuccess, "Marcado como spam")
	default:
		flash(w, r, flashSuccess, "Comentário movido para pendentes")
	}
	redirect(w, r, back)
}

func (m *Moderation) deleteComment(w http.ResponseWriter, r *http.Request) {
	if err := m.CommentRepo.Delete(r.Context(), r.PathValue("id")); err != nil {
		log.Printf("Error deleting comment: %v", err)
		flash(w, r, flashError, "Erro ao excluir comentário")
	} else {
		flash(w, r, flashSuccess, "Comentário excluído")
	}
	redirect(w, r, "/admin/comments?status="+r.FormValue("from"))
}

func (m *Moderation) feedbackPage(w http.ResponseWriter, r *http.Request, status string, open *viewmodels.PageData) {
	if status != feedback.StatusReviewed {
		status = feedback.StatusNew
	}
	items, err := m.FeedbackRepo.List(r.Context(), status)
	if err != nil {
		log.Printf("Error loading feedback: %v", err)
		flash(w, r, flashError, "Erro ao carregar mensagens")
	}
	counts, err := m.FeedbackRepo.CountByStatus(r.Context())
	if err != nil {
		log.Printf("Error counting feedback: %v", err)
	}
	data := open
	if data == nil {
		data = &viewmodels.PageData{}
	}
	data.Title = "Mensagens"
	data.Status = status
	data.Tabs = tabs(feedbackTabs, status, counts)
	data.Feedback = items
	render(w, r, m.Templates, "feedback.html", data)
}

func (m *Moderation) feedback(w http.ResponseWriter, r *http.Request) {
	m.feedbackPage(w, r, r.URL.Query().Get("status"), nil)
}

// openFeedback shows one message. Opening a new message marks it reviewed.
func (m *Moderation) openFeedback(w http.ResponseWriter, r *http.Request) {
	item, err := m.FeedbackRepo.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		notFound(w, r, m.Templates)
		return
	}
	status := item.Status
	if item.Status == feedback.StatusNew {
		if err := m.FeedbackRepo.MarkReviewed(r.Context(), item.ID); err != nil {
			log.Printf("Error updating feedback: %v", err)
		} else {
			item.Status = feedback.StatusReviewed
		}
	}
	m.feedbackPage(w, r, status, &viewmodels.PageData{Message: &item})
}

func (m *Moderation) markReviewed(w http.ResponseWriter, r *http.Request) {
	if err := m.FeedbackRepo.MarkReviewed(r.Context(), r.PathValue("id")); err != nil {
		log.Printf("Error updating feedback: %v", err)
		flash(w, r, flashError, "Erro ao atualizar")
	} else {
		flash(w, r, flashSuccess, "Marcado como revisado")
	}
	redirect(w, r, "/admin/feedback")
}

func (m *Moderation) deleteFeedback(w http.ResponseWriter, r *http.Request) {
	if err := m.FeedbackRepo.Delete(r.Context(), r.PathValue("id")); err != nil {
		log.Printf("Error deleting feedback: %v", err)
		flash(w, r, flashError, "Erro ao excluir")
	} else {
		flash(w, r, flashSuccess, "Mensagem excluída")
	}
	redirect(w, r, "/admin/feedback?status="+r.FormValue("from"))
}
