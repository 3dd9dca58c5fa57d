package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/praxisdigital/dental-intake/internal/api/router"
	"github.com/praxisdigital/dental-intake/internal/clinic"
	appconfig "github.com/praxisdigital/dental-intake/internal/config"
	"github.com/praxisdigital/dental-intake/internal/intake"
	"github.com/praxisdigital/dental-intake/internal/leads"
	"github.com/praxisdigital/dental-intake/internal/notify"
	"github.com/praxisdigital/dental-intake/internal/observability/metrics"
	"github.com/praxisdigital/dental-intake/internal/voice"
	"github.com/praxisdigital/dental-intake/internal/webchat"
	"github.com/praxisdigital/dental-intake/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dental-intake API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Postgres is optional in development; without it the API runs on
	// in-memory stores and the clinic fallback configuration.
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create postgres pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Error("postgres unreachable", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
	}

	var leadsRepo leads.Repository
	var clinicStore clinic.Store
	if pool != nil {
		leadsRepo = leads.NewPostgresRepository(pool)
		clinicStore = clinic.NewPostgresStore(pool)
	} else {
		leadsRepo = leads.NewInMemoryRepository()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	intakeMetrics := metrics.NewIntakeMetrics(reg)

	notifier := buildNotifier(ctx, cfg, logger)
	defer notifier.Close()

	gateway := intake.NewLeadGateway(leadsRepo, notifier, intakeMetrics, logger)

	sessions, closeSessions := buildSessionStore(ctx, cfg, logger)
	defer closeSessions()

	llm := intake.NewOpenAIClient(intake.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.OpenAITemperature,
	})

	orchestrator := intake.NewOrchestrator(sessions, clinicStore, llm, gateway, cfg.ClinicID, intakeMetrics, logger)

	voiceHandler := voice.NewHandler(voice.HandlerConfig{
		Orchestrator:  orchestrator,
		AuthToken:     cfg.TwilioAuthToken,
		PublicBaseURL: cfg.PublicBaseURL,
		Logger:        logger,
	})

	routerCfg := &router.Config{
		Logger:             logger,
		VoiceHandler:       voiceHandler,
		ChatHandler:        webchat.NewHandler(orchestrator, logger),
		LeadsHandler:       leads.NewHandler(leadsRepo, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}
	if clinicStore != nil {
		routerCfg.ClinicHandler = clinic.NewHandler(clinicStore, logger)
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildNotifier selects the configured email provider and wraps it in the
// async delivery queue. With provider "none" the queue drains silently.
func buildNotifier(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *intake.AsyncNotifier {
	var sender notify.EmailSender

	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			sender = s
		}
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config, email disabled", "error", err)
			break
		}
		if s := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
		}, logger); s != nil {
			sender = s
		}
	case "none", "":
	default:
		logger.Warn("unknown email provider, notifications disabled", "provider", cfg.EmailProvider)
	}

	var svc intake.LeadNotifier
	if sender != nil && len(cfg.NotifyRecipients) > 0 {
		svc = notify.NewService(sender, cfg.NotifyRecipients, logger)
		logger.Info("lead notifications enabled",
			"provider", cfg.EmailProvider,
			"recipients", len(cfg.NotifyRecipients),
		)
	} else {
		logger.Info("lead notifications disabled")
	}

	return intake.NewAsyncNotifier(svc, 64, logger)
}

// buildSessionStore picks Redis when configured, in-memory otherwise.
func buildSessionStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (intake.SessionStore, func()) {
	if cfg.UseRedisSessions && cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("redis unreachable, falling back to in-memory sessions", "error", err)
			_ = client.Close()
		} else {
			logger.Info("using redis session store", "addr", cfg.RedisAddr)
			store := intake.NewRedisSessionStore(client, cfg.SessionTTL)
			return store, func() { _ = client.Close() }
		}
	}

	store := intake.NewMemorySessionStore(cfg.SessionTTL)
	return store, store.Close
}
