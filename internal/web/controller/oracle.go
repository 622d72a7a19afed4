package controller

import (
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"strconv"

	"sephira/internal/oracle"
	"sephira/internal/web/viewmodels"
)

// Oracle serves the Tree of Life oracle.
type Oracle struct {
	Templates map[string]*template.Template
	// Draw picks a card. Nil uses oracle.Draw with the global source.
	Draw func() oracle.Card
}

// Register registers the oracle routes
func (o *Oracle) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /oracle", o.page)
	mux.HandleFunc("GET /oracle/draw", o.draw)
}

func (o *Oracle) pick() oracle.Card {
	if o.Draw != nil {
		return o.Draw()
	}
	return oracle.Draw(nil)
}

// page renders the meditation page. With ?card=<id> the card is revealed
// server side, for browsers without scripts.
func (o *Oracle) page(w http.ResponseWriter, r *http.Request) {
	data := &viewmodels.PageData{
		Title:             "Oráculo da Árvore da Vida",
		MeditationSeconds: oracle.MeditationSeconds,
		RevealDelayMillis: oracle.RevealDelay.Milliseconds(),
	}
	if raw := r.URL.Query().Get("card"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			notFound(w, r, o.Templates)
			return
		}
		card, ok := oracle.Find(id)
		if !ok {
			notFound(w, r, o.Templates)
			return
		}
		data.Card = &card
	}
	render(w, r, o.Templates, "oracle.html", data)
}

func (o *Oracle) draw(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(o.pick()); err != nil {
		log.Printf("Error encoding card: %v", err)
	}
}
