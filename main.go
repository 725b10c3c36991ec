package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/video-stream/subtrans/internal/api"
	"github.com/video-stream/subtrans/internal/api/middleware"
	"github.com/video-stream/subtrans/internal/auth"
	"github.com/video-stream/subtrans/internal/config"
	"github.com/video-stream/subtrans/internal/db"
	"github.com/video-stream/subtrans/internal/job"
	"github.com/video-stream/subtrans/internal/logging"
	"github.com/video-stream/subtrans/internal/subtitle/translate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Logger.Fatalf("config: %v", err)
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	log := logging.WithComponent("main")

	for _, dir := range []string{cfg.DataPath, cfg.OutputPath} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("create %s: %v", dir, err)
		}
	}

	// Initialize database
	database, err := db.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Ensure admin user exists
	if err := database.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}
	log.WithField("user", cfg.AdminUsername).Info("admin user ensured")

	// Stored settings win over the environment
	credentials := func() translate.Credentials {
		return translate.Credentials{
			OpenAIKey:   database.GetSetting("openai_api_key", cfg.OpenAIKey),
			OpenAIModel: database.GetSetting("openai_model", cfg.OpenAIModel),
			GeminiKey:   database.GetSetting("gemini_api_key", cfg.GeminiKey),
			GeminiModel: database.GetSetting("gemini_model", cfg.GeminiModel),
		}
	}

	translator := translate.NewService(cfg.MediaPath, cfg.OutputPath, cfg.Tuning, translate.CredentialClients(credentials))
	jobQueue := job.NewJobQueue(database.DB())
	jobQueue.RegisterHandler(job.JobTranslate, translator.HandleJob)
	defer jobQueue.Stop()

	jwtService := auth.NewJWTService(cfg.JWTSecret)
	limiter := middleware.NewRateLimiter(cfg.APIRateLimit)
	defer limiter.Stop()

	router := api.NewRouter(database, jwtService, cfg, jobQueue, limiter, func() string { return credentials().GeminiKey })

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithFields(map[string]interface{}{"addr": srv.Addr, "media": cfg.MediaPath}).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
}
