package controller

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"sephira/internal/post"
	"sephira/internal/storage"
)

// Misc provides the editor's preview and image upload endpoints
type Misc struct {
	Images *storage.Images
}

// Register registers the misc routes
func (m *Misc) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/_preview", m.preview)
	mux.HandleFunc("POST /admin/upload", m.upload)
}

// preview renders an org-mode draft to sanitized HTML.
func (m *Misc) preview(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	html, err := post.Prepare(string(body), post.FormatOrg)
	if err != nil {
		log.Printf("Error converting org-mode content to HTML: %v", err)
		http.Error(w, "Internal Server Error", 500)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

type uploadResponse struct {
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// upload stores an editor image. The form field kind selects covers or
// content images.
func (m *Misc) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, m.Images.MaxBytes+1<<20)
	file, handler, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, uploadResponse{Error: "Arquivo muito grande. Máximo 5MB."})
			return
		}
		writeJSON(w, http.StatusBadRequest, uploadResponse{Error: "Erro ao ler o arquivo"})
		return
	}
	defer file.Close()

	url, err := m.Images.Upload(r.Context(), r.FormValue("kind"), handler.Filename, file)
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		writeJSON(w, http.StatusUnsupportedMediaType, uploadResponse{Error: "Tipo de arquivo não permitido. Use JPG, PNG ou WebP."})
	case errors.Is(err, storage.ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, uploadResponse{Error: "Arquivo muito grande. Máximo 5MB."})
	case err != nil:
		log.Printf("Error uploading image: %v", err)
		writeJSON(w, http.StatusInternalServerError, uploadResponse{Error: "Erro ao enviar imagem."})
	default:
		writeJSON(w, http.StatusOK, uploadResponse{URL: url})
	}
}
