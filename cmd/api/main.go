// Package main is the entrypoint for the MoreAI API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/moreai/moreai/internal/ai"
	"github.com/moreai/moreai/internal/cache"
	"github.com/moreai/moreai/internal/chat"
	"github.com/moreai/moreai/internal/config"
	"github.com/moreai/moreai/internal/handler"
	"github.com/moreai/moreai/internal/metrics"
	"github.com/moreai/moreai/internal/middleware"
	"github.com/moreai/moreai/internal/repository"
	"github.com/moreai/moreai/internal/server"
	"github.com/moreai/moreai/internal/service"
	"github.com/moreai/moreai/internal/summary"
	"github.com/moreai/moreai/internal/voice"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	aiClient := ai.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.ChatModel, cfg.RemoteTimeout)
	aiClient.WhisperModel = cfg.WhisperModel
	aiClient.SpeechModel = cfg.SpeechModel
	aiClient.SpeechVoice = cfg.SpeechVoice

	// Initialize services
	recorder := metrics.NewInMemory()
	accountService := service.NewAccountService(repo, logger)
	sessionService := service.NewSessionService(repo, cacheClient, logger, cfg.SessionTTL, cfg.SessionRememberTTL)
	chatService := chat.NewService(repo, aiClient, logger, recorder, cfg.DuplicateWindow, cfg.RemoteTimeout)
	voiceService := voice.NewService(aiClient, logger, recorder, cfg.RemoteTimeout)
	summaryWorker := summary.NewWorker(repo, aiClient, logger, recorder, cfg.RemoteTimeout)

	// Bootstrap the admin account when configured. Startup proceeds either
	// way; the account can be created manually if this fails.
	if err := accountService.EnsureAdmin(ctx, cfg.AdminHandle, cfg.AdminPassword); err != nil {
		logger.Warn("failed to bootstrap admin account", "error", err)
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(accountService, sessionService, logger)
	chatHandler := handler.NewChatHandler(chatService, logger)
	voiceHandler := handler.NewVoiceHandler(voiceService, logger, cfg.MaxUploadSize)
	healthHandler := handler.NewHealthHandler(repo)
	metricsHandler := handler.NewMetricsHandler(recorder)

	r := setupRouter(authHandler, chatHandler, voiceHandler, healthHandler, metricsHandler,
		sessionService, cacheClient, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// The summarizer runs for the whole process lifetime; Shutdown drains it
	// once the HTTP server has stopped accepting requests.
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	go func() {
		if err := summaryWorker.Run(workerCtx); err != nil {
			logger.Error("summary worker stopped", "error", err)
		}
	}()
	srv.OnShutdown("summary worker", summaryWorker.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"chat_model", cfg.ChatModel,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	authHandler *handler.AuthHandler,
	chatHandler *handler.ChatHandler,
	voiceHandler *handler.VoiceHandler,
	healthHandler *handler.HealthHandler,
	metricsHandler *handler.MetricsHandler,
	sessionService *service.SessionService,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment: cfg.IsDevelopment(),
	}))

	// Unauthenticated endpoints
	r.Get("/", handler.Hello)
	r.Get("/health", healthHandler.Health)
	r.Get("/metrics", metricsHandler.Metrics)

	// Credential endpoints share a per-IP throttle against brute force.
	throttle := middleware.ThrottleLogin(middleware.ThrottleConfig{
		Logger:        logger,
		RatePerMinute: cfg.LoginRatePerMinute,
		Burst:         cfg.LoginBurst,
		Check: func(req *http.Request, ip string, ratePerMinute, burst int) (bool, time.Duration, error) {
			result, err := cacheClient.CheckLoginRateLimit(req.Context(), ip, ratePerMinute, burst)
			if err != nil {
				return false, 0, err
			}
			return result.Allowed, result.RetryAfter, nil
		},
	})
	r.With(throttle).Post("/auth/register", authHandler.Register)
	r.With(throttle).Post("/auth/login", authHandler.Login)

	// Everything below requires a valid session.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(logger, sessionService))

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/profile", authHandler.Profile)
		r.Put("/auth/profile", authHandler.UpdateProfile)
		r.Post("/auth/change-password", authHandler.ChangePassword)
		r.Get("/auth/sessions", authHandler.ListSessions)
		r.Delete("/auth/sessions/{id}", authHandler.RevokeSession)

		r.Get("/chat", chatHandler.Chat)
		r.Get("/journal", chatHandler.Journal)

		r.Get("/tts", voiceHandler.Synthesize)
		r.With(middleware.MaxBodySize(cfg.MaxUploadSize)).Post("/stt", voiceHandler.Transcribe)
	})

	// 404 and 405 handlers
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
