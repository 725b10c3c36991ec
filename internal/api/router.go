package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/video-stream/subtrans/internal/api/handlers"
	"github.com/video-stream/subtrans/internal/api/middleware"
	"github.com/video-stream/subtrans/internal/auth"
	"github.com/video-stream/subtrans/internal/config"
	"github.com/video-stream/subtrans/internal/db"
	"github.com/video-stream/subtrans/internal/job"
	"github.com/video-stream/subtrans/internal/logging"
	"github.com/video-stream/subtrans/internal/metrics"
)

const maxJSONBody = 1 << 20

func NewRouter(database *db.Database, jwtService *auth.JWTService, cfg *config.Config, jobQueue *job.JobQueue, limiter *middleware.RateLimiter, geminiKey func() string) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logging.WithComponent("http")))
	r.Use(cors.Handler(middleware.CORSHandler(cfg.CORSOrigins)))

	// Handlers
	authHandler := handlers.NewAuthHandler(database, jwtService)
	sourcesHandler := handlers.NewSourcesHandler(cfg.MediaPath)
	translateHandler := handlers.NewTranslateHandler(cfg.MediaPath, database, jobQueue)
	jobHandler := handlers.NewJobHandler(jobQueue)
	presetsHandler := handlers.NewPresetsHandler(database)
	settingsHandler := handlers.NewSettingsHandler(database)
	modelsHandler := handlers.NewGeminiModelsHandler(geminiKey, "")

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(maxJSONBody))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Auth (public, rate limited)
		r.With(limiter.Handler).Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService))
			r.Use(limiter.Handler)

			r.Get("/auth/me", authHandler.Me)

			// Sources
			r.Get("/sources", sourcesHandler.List)

			// Translation
			r.Post("/translate", translateHandler.Translate)

			// Jobs
			r.Get("/jobs", jobHandler.ListJobs)
			r.Get("/jobs/{id}", jobHandler.GetJob)
			r.Delete("/jobs/{id}", jobHandler.CancelJob)
			r.Post("/jobs/{id}/retry", jobHandler.RetryJob)
			r.Get("/jobs/{id}/artifacts/{name}", jobHandler.GetArtifact)

			// Presets
			r.Get("/presets", presetsHandler.ListPresets)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin", "editor"))
				r.Post("/presets", presetsHandler.CreatePreset)
				r.Put("/presets/{id}", presetsHandler.UpdatePreset)
				r.Delete("/presets/{id}", presetsHandler.DeletePreset)
			})

			// Settings
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin"))
				r.Get("/settings", settingsHandler.GetSettings)
				r.Put("/settings", settingsHandler.UpdateSettings)
				r.Get("/settings/gemini-models", modelsHandler.ListModels)
			})
		})
	})

	return r
}
