package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/praxisdigital/dental-intake/internal/clinic"
	httpmiddleware "github.com/praxisdigital/dental-intake/internal/http/middleware"
	"github.com/praxisdigital/dental-intake/internal/leads"
	"github.com/praxisdigital/dental-intake/internal/voice"
	"github.com/praxisdigital/dental-intake/internal/webchat"
	"github.com/praxisdigital/dental-intake/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	VoiceHandler       *voice.Handler
	ChatHandler        *webchat.Handler
	LeadsHandler       *leads.Handler
	ClinicHandler      *clinic.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimitPerMinute int
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.RateLimitPerMinute > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerMinute))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handleHealth)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.VoiceHandler != nil {
		r.Post(voice.WebhookPath, cfg.VoiceHandler.HandleVoice)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.ChatHandler != nil {
			api.Post("/chat", cfg.ChatHandler.HandleMessage)
		}
		if cfg.LeadsHandler != nil {
			api.Route("/leads", func(r chi.Router) {
				r.Post("/", cfg.LeadsHandler.CreateLead)
				r.Get("/", cfg.LeadsHandler.ListLeads)
				r.Get("/{id}", cfg.LeadsHandler.GetLead)
				r.Patch("/{id}/status", cfg.LeadsHandler.UpdateStatus)
			})
		}
		if cfg.ClinicHandler != nil {
			api.Route("/clinics/{id}", func(r chi.Router) {
				r.Get("/", cfg.ClinicHandler.GetClinic)
				r.Put("/", cfg.ClinicHandler.UpdateClinic)
			})
		}
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
