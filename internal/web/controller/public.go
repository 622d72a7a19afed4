package controller

import (
	"html/template"
	"log"
	"net/http"

	"sephira/internal/feedback"
	"sephira/internal/settings"
	"sephira/internal/web/viewmodels"
)

// Services is the catalogue shown on the services pages.
var Services = []viewmodels.Service{
	{
		Slug:        "tarot",
		Title:       "Orientação com Tarot",
		Description: "Exploração arquetípica profunda usando o Tarot para iluminar sua situação atual, desafios e oportunidades de crescimento.",
		Details: []string{
			"Leitura com tiragens adaptadas à sua pergunta.",
			"Sessões online ou presenciais.",
		},
	},
	{
		Slug:        "astrology",
		Title:       "Leituras de Astrologia",
		Description: "Análise completa do mapa astral revelando seu projeto cósmico, temas de vida e influências planetárias atuais.",
		Details: []string{
			"Mapa natal, trânsitos e revolução solar.",
			"Traga data, hora e local de nascimento.",
		},
	},
	{
		Slug:        "numerology",
		Title:       "Numerologia Cabalística",
		Description: "Descubra seu número do caminho de vida, ciclos de anos pessoais e a matemática sagrada subjacente à sua jornada.",
		Details: []string{
			"Cálculo a partir do nome completo e da data de nascimento.",
		},
	},
	{
		Slug:        "dowsing",
		Title:       "Radiestesia e Limpeza Energética",
		Description: "Limpeza de espaços, equilíbrio energético e trabalho com radiestesia para harmonizar seu ambiente e campo de energia pessoal.",
		Details: []string{
			"Atendimento em ambientes residenciais e comerciais.",
		},
	},
	{
		Slug:        "combined",
		Title:       "Sessões Combinadas",
		Description: "Sessões integrativas combinando múltiplas modalidades para uma experiência de leitura abrangente e multidimensional.",
		Details: []string{
			"Tarot, Astrologia e Árvore da Vida em um mesmo encontro.",
		},
	},
}

// FindService returns the catalogue entry with slug.
func FindService(slug string) (viewmodels.Service, bool) {
	for _, s := range Services {
		if s.Slug == slug {
			return s, true
		}
	}
	return viewmodels.Service{}, false
}

// Public serves the informational pages and the contact form.
type Public struct {
	SettingsRepo *settings.Repository
	FeedbackRepo *feedback.Repository
	Templates    map[string]*template.Template
}

// Register registers the public routes
func (p *Public) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", p.home)
	mux.HandleFunc("GET /about", p.about)
	mux.HandleFunc("GET /services", p.services)
	mux.HandleFunc("GET /services/{service}", p.service)
	mux.HandleFunc("GET /contact", p.contact)
	mux.HandleFunc("POST /contact", p.contactPost)
	mux.HandleFunc("/", p.notFound)
}

func (p *Public) notFound(w http.ResponseWriter, r *http.Request) {
	notFound(w, r, p.Templates)
}

// loadSettings falls back to the defaults when the settings can't be read,
// so a broken settings table never takes the public pages down.
func (p *Public) loadSettings(r *http.Request) settings.Settings {
	s, err := p.SettingsRepo.Load(r.Context())
	if err != nil {
		log.Printf("Error loading settings: %v", err)
		return settings.Defaults()
	}
	return s
}

func (p *Public) home(w http.ResponseWriter, r *http.Request) {
	render(w, r, p.Templates, "home.html", &viewmodels.PageData{
		Title:    "Caminho Celestial",
		Services: Services[:3],
		Settings: p.loadSettings(r),
	})
}

func (p *Public) about(w http.ResponseWriter, r *http.Request) {
	render(w, r, p.Templates, "about.html", &viewmodels.PageData{
		Title:    "Sobre",
		Settings: p.loadSettings(r),
	})
}

func (p *Public) services(w http.ResponseWriter, r *http.Request) {
	render(w, r, p.Templates, "services.html", &viewmodels.PageData{
		Title:    "Serviços Sagrados",
		Services: Services,
		Settings: p.loadSettings(r),
	})
}

func (p *Public) service(w http.ResponseWriter, r *http.Request) {
	s, ok := FindService(r.PathValue("service"))
	if !ok {
		notFound(w, r, p.Templates)
		return
	}
	render(w, r, p.Templates, "service.html", &viewmodels.PageData{
		Title:    s.Title,
		Service:  s,
		Services: Services,
		Settings: p.loadSettings(r),
	})
}

func (p *Public) contact(w http.ResponseWriter, r *http.Request) {
	render(w, r, p.Templates, "contact.html", &viewmodels.PageData{
		Title:    "Contato",
		Settings: p.loadSettings(r),
	})
}

func (p *Public) contactPost(w http.ResponseWriter, r *http.Request) {
	in := feedback.Input{
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Message: r.FormValue("message"),
	}.Normalize()

	if err := in.Validate(); err != nil {
		field, message, _ := validationMessage(err)
		renderStatus(w, r, p.Templates, "contact.html", http.StatusUnprocessableEntity, &viewmodels.PageData{
			Title:    "Contato",
			Settings: p.loadSettings(r),
			Flashes:  []viewmodels.Flash{{Kind: flashError, Message: message}},
			Errors:   map[string]string{field: message},
			Values:   map[string]string{"name": in.Name, "email": in.Email, "message": in.Message},
		})
		return
	}

	if _, err := p.FeedbackRepo.Create(r.Context(), in); err != nil {
		log.Printf("Error saving feedback: %v", err)
		flash(w, r, flashError, "Erro ao enviar mensagem. Tente novamente.")
		redirect(w, r, "/contact")
		return
	}
	flash(w, r, flashSuccess, "Mensagem Enviada. Obrigada por entrar em contato. Responderei em 24-48 horas.")
	redirect(w, r, "/contact")
}
