package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contact-gateway/cache"
	"contact-gateway/config"
	"contact-gateway/email"
	"contact-gateway/handler"
	appLogger "contact-gateway/logger"
	"contact-gateway/middleware"
	"contact-gateway/notify"
	"contact-gateway/prefs"
	"contact-gateway/ratelimit"
	redisClient "contact-gateway/redis"
	"contact-gateway/submit"
	"contact-gateway/upstream"
	"contact-gateway/validation"
	"contact-gateway/verification"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize logger
	appLogger.Initialize()

	// Load configuration
	cfg := config.MustLoadConfig()
	log.Info().Msg("Configuration loaded successfully")

	// Initialize Redis client
	rdb := redisClient.NewClient(cfg.Redis)

	// Initialize cache (if enabled)
	var cacheClient *cache.Cache
	if cfg.Cache.Enabled {
		var err error
		cacheClient, err = cache.New(cfg.Cache)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize cache")
		}
	} else {
		log.Info().Msg("Cache disabled in configuration")
	}

	// Email delivery for verification codes
	sender, err := email.NewService(cfg.SMTP)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize email service")
	}

	// Pipeline components
	validator := validation.New()
	gate := verification.NewGate(sender, cfg.Verification.CodeTTL(), cfg.Verification.ResendCooldown(), cfg.Verification.TokenTTL())
	notifier := notify.NewCenter(cfg.Notification.DisplayDuration())

	limiters := handler.Limiters{
		Submission:   ratelimit.New(cfg.RateLimit.Submission.MaxAttempts, cfg.RateLimit.Submission.Window()),
		Verification: ratelimit.New(cfg.RateLimit.Verification.MaxAttempts, cfg.RateLimit.Verification.Window()),
		Resend:       ratelimit.New(cfg.RateLimit.Resend.MaxAttempts, cfg.RateLimit.Resend.Window()),
	}

	forwarder := upstream.NewClient(cfg.Upstream)
	orchestrator := submit.NewOrchestrator(validator, limiters.Submission, gate, forwarder, notifier).WithContactCopy(sender)
	prefsStore := prefs.NewStore(rdb, cacheClient, cfg.Preferences)

	log.Info().
		Str("upstream", cfg.Upstream.Endpoint).
		Int("retry_attempts", cfg.Upstream.RetryAttempts).
		Int("submission_max", cfg.RateLimit.Submission.MaxAttempts).
		Bool("smtp_enabled", cfg.SMTP.Enabled).
		Msg("Contact pipeline initialized")

	// Janitors for the in-memory stores
	stop := make(chan struct{})
	sweepInterval := time.Duration(cfg.RateLimit.SweepIntervalMinutes) * time.Minute
	limiters.Submission.StartSweeping(sweepInterval, stop)
	limiters.Verification.StartSweeping(sweepInterval, stop)
	limiters.Resend.StartSweeping(sweepInterval, stop)
	gate.StartSweeping(sweepInterval, stop)
	notifier.StartSweeping(sweepInterval, stop)

	// Create handler with dependency injection
	contactHandler := handler.NewContactHandler(orchestrator, gate, notifier, prefsStore, validator, limiters, rdb, cfg)

	// Set up router
	r := mux.NewRouter()

	// Apply global middleware
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	botProtection := middleware.NewBotProtection(cfg.Security.BotMaxRequestsPerMinute, cfg.Security.BotDetectionEnabled, rdb)

	r.Use(middleware.CORS(cfg.WebServer.AllowedOrigin))
	r.Use(middleware.RequestLogging)
	r.Use(rateLimiter.Limit)
	r.Use(botProtection.Protect)

	// Register routes
	contactHandler.Register(r)

	// Configure HTTP server
	serverAddress := fmt.Sprintf("%s:%s", cfg.WebServer.IP, cfg.WebServer.Port)
	server := &http.Server{
		Addr:         serverAddress,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.WebServer.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WebServer.WriteTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("address", serverAddress).
			Str("scheme", cfg.WebServer.Scheme).
			Msg("Starting server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.WebServer.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if cacheClient != nil {
		cacheClient.Close()
	}
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Redis connection")
	}

	log.Info().Msg("Server exited")
}
