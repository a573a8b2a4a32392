package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/amlakhq/amlak/internal/analytics"
	"github.com/amlakhq/amlak/internal/app"
	"github.com/amlakhq/amlak/internal/auth"
	"github.com/amlakhq/amlak/internal/clients"
	"github.com/amlakhq/amlak/internal/leads"
	"github.com/amlakhq/amlak/internal/notifications"
	"github.com/amlakhq/amlak/internal/observability"
	"github.com/amlakhq/amlak/internal/platform/cache"
	"github.com/amlakhq/amlak/internal/platform/db"
	"github.com/amlakhq/amlak/internal/properties"
	"github.com/amlakhq/amlak/internal/rbac"
	"github.com/amlakhq/amlak/internal/requests"
	"github.com/amlakhq/amlak/internal/security"
	"github.com/amlakhq/amlak/internal/shared"
	"github.com/amlakhq/amlak/internal/storage"
	"github.com/amlakhq/amlak/internal/users"
	"github.com/amlakhq/amlak/jobs"
)

// invalidatingAuditor records the audit entry and bumps the dashboard cache
// so aggregates reflect CRM mutations without per-key tracking.
type invalidatingAuditor struct {
	audit     *shared.AuditLogger
	analytics *analytics.Service
	logger    *slog.Logger
}

func (a invalidatingAuditor) Record(ctx context.Context, log shared.AuditLog) error {
	if err := a.audit.Record(ctx, log); err != nil {
		return err
	}
	if err := a.analytics.Invalidate(ctx); err != nil && a.logger != nil {
		a.logger.Warn("analytics invalidate", slog.Any("error", err))
	}
	return nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "amlak_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	securityService := security.NewService(pool, logger)
	auditLogger := shared.NewAuditLogger(pool)
	rateLimiter := shared.NewRateLimiter(redisClient, logger, cfg.RateLimitFailOpen)

	rbacRepo := rbac.NewRepository(pool)
	rbacCache := rbac.NewCache(redisClient, cfg.CacheTTL)
	rbacService := rbac.NewService(rbacRepo, rbacCache)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}
	rbacHandler := rbac.NewHandler(logger, rbacService, rbacMiddleware)

	analyticsRepo := analytics.NewRepository(pool)
	analyticsCache := analytics.NewCache(redisClient, cfg.CacheTTL)
	analyticsService := analytics.NewService(analyticsRepo, analyticsCache)
	auditor := invalidatingAuditor{audit: auditLogger, analytics: analyticsService, logger: logger}

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	notifier := jobs.NewNotifier(jobsClient)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, securityService)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, rbacService, securityService)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	provider, err := storage.NewProvider(ctx, cfg.StorageConfig())
	if err != nil {
		logger.Error("init storage provider", slog.Any("error", err))
		os.Exit(1)
	}
	storageMeta := storage.NewMetadataRepository(pool)
	storageService := storage.NewService(provider, storageMeta, logger)
	storageHandler := storage.NewHandler(logger, storageService, rbacService)

	propertiesRepo := properties.NewRepository(pool)
	propertiesService := properties.NewService(propertiesRepo, auditor)
	propertiesHandler := properties.NewHandler(logger, propertiesService, rbacMiddleware)

	clientsRepo := clients.NewRepository(pool)
	clientsService := clients.NewService(clientsRepo, auditor)
	clientsHandler := clients.NewHandler(logger, clientsService, rbacMiddleware)

	leadsRepo := leads.NewRepository(pool)
	leadsService := leads.NewService(leadsRepo, auditor, notifier, logger)
	leadsHandler := leads.NewHandler(logger, leadsService, rbacMiddleware)

	requestsRepo := requests.NewRepository(pool)
	requestsService := requests.NewService(requestsRepo, rateLimiter, auditor, notifier, logger)
	requestsHandler := requests.NewHandler(logger, requestsService, rbacMiddleware)

	notificationsRepo := notifications.NewRepository(pool)
	notificationsService := notifications.NewService(notificationsRepo, redisClient, logger)
	notificationsHandler := notifications.NewHandler(logger, notificationsService, rbacMiddleware)

	analyticsHandler := analytics.NewHandler(logger, analyticsService, rbacMiddleware)
	securityHandler := security.NewHandler(logger, securityService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		CSRFManager:          csrfManager,
		AuthHandler:          authHandler,
		RBACHandler:          rbacHandler,
		UsersHandler:         usersHandler,
		StorageHandler:       storageHandler,
		PropertiesHandler:    propertiesHandler,
		ClientsHandler:       clientsHandler,
		LeadsHandler:         leadsHandler,
		RequestsHandler:      requestsHandler,
		NotificationsHandler: notificationsHandler,
		AnalyticsHandler:     analyticsHandler,
		SecurityHandler:      securityHandler,
		JobsHandler:          jobsHandler,
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
