package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"feedback-service/common/logger"
	commonmetrics "feedback-service/common/metrics"
	"feedback-service/common/telemetry"
	"feedback-service/internal/audit"
	"feedback-service/internal/auth"
	"feedback-service/internal/config"
	"feedback-service/internal/course"
	"feedback-service/internal/db"
	"feedback-service/internal/events"
	"feedback-service/internal/export"
	"feedback-service/internal/feedback"
	"feedback-service/internal/health"
	"feedback-service/internal/identity"
	"feedback-service/internal/kafka"
	"feedback-service/internal/messaging"
	"feedback-service/internal/metrics"
	"feedback-service/internal/middleware"
	"feedback-service/internal/stats"
	"feedback-service/internal/upload"
	"feedback-service/internal/user"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/nats-io/nats.go"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const (
	healthCheckInterval  = 30 * time.Second
	tokenCleanupInterval = time.Hour
)

// consumer is a broker subscription that persists audit events.
type consumer interface {
	Start(ctx context.Context) error
	Close() error
}

type App struct {
	config       *config.Config
	router       chi.Router
	server       *http.Server
	grpcServer   *grpc.Server
	grpcHealth   *grpchealth.Server
	database     *bun.DB
	telemetry    *telemetry.Telemetry
	metrics      *commonmetrics.Metrics
	health       *health.Handler
	tokens       *auth.Repository
	natsConn     *nats.Conn
	publisher    events.Publisher
	closePublish func() error
	consumer     consumer
	cancel       context.CancelFunc
	logger       *slog.Logger
}

func New() (*App, error) {
	slogLogger := logger.NewWithServiceContext(ServiceName, Version)

	// Set as default logger so slog.Info() uses JSON format
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slogLogger.Info("config loaded", "env", cfg.Env, "broker", cfg.Events.Broker)

	ctx := context.Background()

	tel, err := telemetry.Init(ctx, ServiceName, Version, cfg.Env, slogLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	domainMetrics, err := metrics.New(otel.Meter(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize domain metrics: %w", err)
	}

	database, err := db.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	models := []interface{}{
		(*user.User)(nil),
		(*course.Course)(nil),
		(*feedback.Feedback)(nil),
		(*auth.RefreshToken)(nil),
		(*audit.Event)(nil),
	}
	if err := db.RunMigrations(ctx, database, models, feedback.Indexes()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	app := &App{
		config:    cfg,
		router:    chi.NewRouter(),
		database:  database,
		telemetry: tel,
		metrics:   tel.Metrics,
		publisher: events.Nop{},
		logger:    slogLogger,
	}

	auditRepo := audit.NewRepository(database, app.metrics)
	if err := app.setupBroker(audit.NewRecorder(auditRepo)); err != nil {
		return nil, err
	}

	// Repositories
	userRepo := user.NewRepository(database, app.metrics)
	courseRepo := course.NewRepository(database, app.metrics)
	feedbackRepo := feedback.NewRepository(database, app.metrics)
	statsRepo := stats.NewRepository(database, app.metrics)
	app.tokens = auth.NewRepository(database, app.metrics)

	// Services
	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL)
	authService := auth.NewService(app.tokens, userRepo, issuer, cfg.Auth.RefreshTokenTTL, domainMetrics, slogLogger)
	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return nil, fmt.Errorf("failed to bootstrap admin: %w", err)
		}
	}

	var uploader user.Uploader
	if client, err := upload.NewClient(cfg.Upload, slogLogger); err != nil {
		slogLogger.Warn("profile picture upload disabled", "error", err)
	} else {
		uploader = client
	}

	userService := user.NewService(userRepo, feedbackRepo, uploader, app.tokens, slogLogger)
	courseService := course.NewService(courseRepo, feedbackRepo, slogLogger)
	feedbackService := feedback.NewService(
		feedbackRepo,
		courseRepo,
		userRepo,
		app.publisher,
		feedback.Options{AutoApprove: cfg.Feedback.AutoApprove},
		domainMetrics,
		slogLogger,
	)
	statsService := stats.NewService(statsRepo, courseRepo, userRepo, domainMetrics)
	exporter := export.NewExporter(feedbackRepo, cfg.Export.TempDir, domainMetrics, slogLogger)

	// Handlers
	authHandler := auth.NewHandler(authService, cfg.Env, slogLogger)
	userHandler := user.NewHandler(userService, slogLogger)
	courseHandler := course.NewHandler(courseService, slogLogger)
	feedbackHandler := feedback.NewHandler(feedbackService, slogLogger)
	statsHandler := stats.NewHandler(statsService, slogLogger)
	exportHandler := export.NewHandler(exporter, slogLogger)
	auditHandler := audit.NewHandler(auditRepo, slogLogger)

	app.health = health.NewHandler(app.metrics, slogLogger, app.healthChecks()...)
	if err := app.metrics.Health.RegisterDependencies(ctx, otel.Meter(ServiceName), app.health.Names()); err != nil {
		slogLogger.Warn("failed to register dependency metrics", "error", err)
	}

	app.router.Use(chimiddleware.RequestID)
	app.router.Use(chimiddleware.Recoverer)
	app.router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	app.router.Use(app.metrics.HTTP.Middleware)

	// Health endpoints (no auth required)
	app.health.RegisterRoutes(app.router)

	authHandler.RegisterRoutes(app.router)

	app.router.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(authService, slogLogger))

		userHandler.RegisterRoutes(r)
		courseHandler.RegisterRoutes(r)
		feedbackHandler.RegisterRoutes(r)
		statsHandler.RegisterRoutes(r)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(slogLogger, identity.RoleAdmin))

			userHandler.RegisterAdminRoutes(r)
			courseHandler.RegisterAdminRoutes(r)
			feedbackHandler.RegisterAdminRoutes(r)
			statsHandler.RegisterAdminRoutes(r)
			exportHandler.RegisterAdminRoutes(r)
			auditHandler.RegisterAdminRoutes(r)
		})
	})

	// gRPC health service for orchestrator probes
	app.grpcServer = grpc.NewServer()
	app.grpcHealth = grpchealth.NewServer()
	grpc_health_v1.RegisterHealthServer(app.grpcServer, app.grpcHealth)
	app.grpcHealth.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	app.grpcHealth.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	slogLogger.Info("application initialized successfully")

	return app, nil
}

// setupBroker connects the configured event transport. With broker "none"
// events are discarded and no audit trail is recorded.
func (a *App) setupBroker(recorder *audit.Recorder) error {
	cfg := a.config.Events

	switch cfg.Broker {
	case "nats":
		conn, err := messaging.Connect(cfg.NATS.URL, a.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		producer := messaging.NewProducer(conn, cfg.NATS.Subject, a.metrics, a.logger)
		a.natsConn = conn
		a.publisher = producer
		a.closePublish = producer.Close
		a.consumer = messaging.NewConsumer(conn, cfg.NATS.Subject, recorder, a.metrics, a.logger)

	case "kafka":
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, a.metrics, a.logger)
		if err != nil {
			return fmt.Errorf("failed to create kafka producer: %w", err)
		}
		c, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, recorder, a.metrics, a.logger)
		if err != nil {
			producer.Close()
			return fmt.Errorf("failed to create kafka consumer: %w", err)
		}
		a.publisher = producer
		a.closePublish = producer.Close
		a.consumer = c

	default:
		a.logger.Info("no event broker configured, lifecycle events are discarded")
	}

	return nil
}

func (a *App) healthChecks() []health.Check {
	checks := []health.Check{{
		Name:  "postgres",
		Probe: a.database.PingContext,
	}}

	if a.natsConn != nil {
		conn := a.natsConn
		checks = append(checks, health.Check{
			Name: "nats",
			Probe: func(context.Context) error {
				if !conn.IsConnected() {
					return nats.ErrDisconnected
				}
				return nil
			},
		})
	}

	return checks
}

func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.consumer != nil {
		go func() {
			a.logger.Info("event consumer starting", "broker", a.config.Events.Broker)
			if err := a.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("event consumer error", "error", err)
			}
		}()
	}

	go a.cleanupTokens(ctx)
	go a.StartHealthChecks(ctx)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", a.config.Grpc.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port: %w", err)
	}
	go func() {
		a.logger.Info("gRPC server starting", "port", a.config.Grpc.Port)
		if err := a.grpcServer.Serve(lis); err != nil {
			a.logger.Error("gRPC server error", "error", err)
		}
	}()

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartHealthChecks probes dependencies periodically so the dependency
// gauges and the gRPC serving status stay current between /ready calls.
func (a *App) StartHealthChecks(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		a.probeDependencies(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) probeDependencies(ctx context.Context) {
	status := grpc_health_v1.HealthCheckResponse_SERVING

	for _, c := range a.healthChecks() {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		start := time.Now()
		err := c.Probe(checkCtx)
		cancel()

		a.metrics.Health.RecordDependencyCheck(ctx, c.Name, time.Since(start), err)
		if err != nil {
			a.logger.Warn("dependency check failed", "dependency", c.Name, "error", err)
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}

	a.grpcHealth.SetServingStatus(ServiceName, status)
}

func (a *App) cleanupTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.tokens.DeleteExpiredTokens(ctx)
			if err != nil {
				a.logger.Error("failed to delete expired refresh tokens", "error", err)
				continue
			}
			if n > 0 {
				a.logger.Info("expired refresh tokens deleted", "count", n)
			}
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	if a.cancel != nil {
		a.cancel()
	}

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	a.grpcHealth.Shutdown()
	a.grpcServer.GracefulStop()

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("event consumer close error", "error", err)
		}
	}
	if a.closePublish != nil {
		if err := a.closePublish(); err != nil {
			a.logger.Error("event publisher close error", "error", err)
		}
	}
	if a.natsConn != nil {
		a.natsConn.Close()
	}

	db.Close(a.database)

	if err := a.telemetry.Shutdown(ctx, a.logger); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
