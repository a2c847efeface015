package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"progenai/internal/domain"
	"progenai/internal/http/handlers"
	"progenai/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	origins := []string(nil)
	rateLimit := 0
	if app.Config != nil {
		origins = app.Config.AllowedOrigins
		rateLimit = app.Config.RateLimitPerMin
	}

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.I18N(domain.DefaultLanguage),
		middleware.Logger(app.Logger),
		chimw.Recoverer,
		middleware.CORS(origins),
		middleware.RateLimit(rateLimit, time.Minute),
	)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Post("/generate", app.Generate)
		r.Post("/refine", app.Refine)
		r.Put("/answers", app.SetAnswer)
		r.Get("/session", app.Session)
		r.Get("/notifications", app.DrainNotifications)

		r.Route("/plugins", func(r chi.Router) {
			r.Get("/", app.ListPlugins)
			r.Post("/", app.CreatePlugin)
			r.Delete("/{category}/{name}", app.DeletePlugin)
			r.Put("/{category}/{name}/active", app.ActivatePlugin)
			r.Delete("/{category}/{name}/active", app.DeactivatePlugin)
		})

		r.Route("/prompts", func(r chi.Router) {
			r.Get("/", app.ListPrompts)
			r.Post("/", app.SavePrompt)
			r.Get("/export", app.ExportAllPrompts)
			r.Get("/export.zip", app.ExportPromptsZip)
			r.Get("/{id}", app.GetPrompt)
			r.Delete("/{id}", app.DeletePrompt)
			r.Get("/{id}/export", app.ExportPrompt)
			r.Get("/{id}/share", app.SharePrompt)
		})

		r.Get("/settings", app.GetSettings)
		r.Put("/settings", app.UpdateSettings)

		r.Post("/speak", app.Speak)
		r.Delete("/speak", app.StopSpeaking)
	})

	r.Post("/api/gtts", app.GTTS)

	return r
}
