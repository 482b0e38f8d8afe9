package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/port"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/config"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/database"
	kafkainfra "github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/kafka"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/logger"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/mail"
	redisinfra "github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/redis"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/security"
	postgresrepo "github.com/solovyshn/Blockly-for-Dwenguino/internal/repository/postgres"
	redisrepo "github.com/solovyshn/Blockly-for-Dwenguino/internal/repository/redis"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/transport/http/middleware"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/transport/http/routes"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/usecase"
)

// Application owns the service's long-lived resources.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

// New wires the full dependency graph from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	issuer, err := security.NewTokenIssuer(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenTTL,
		cfg.App.Name,
	)
	if err != nil {
		redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	users := postgresrepo.NewUserRepository(pool)
	tokens := postgresrepo.NewRefreshTokenRepository(pool)
	telemetryRepo := postgresrepo.NewTelemetryRepository(pool)
	codes := redisrepo.NewCodeRegistry(redisClient.Client(), cfg.Codes.KeyPrefix)

	var eventPublisher port.EventPublisher
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	mailer := mail.NewSender(cfg.Mail)

	sessionService := usecase.NewSessionService(
		usecase.SessionConfig{
			PublicBaseURL: cfg.App.PublicBaseURL,
			CodeLength:    cfg.Codes.Length,
			ActivationTTL: cfg.Codes.ActivationTTL,
			ResetTTL:      cfg.Codes.ResetTTL,
		},
		users,
		codes,
		tokens,
		issuer,
		mailer,
		eventPublisher,
		log,
	)
	telemetryService := usecase.NewTelemetryService(telemetryRepo, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Metrics:  metrics,
		Database: pool,
		Cache:    redisClient,
		Services: routes.ServiceSet{
			Sessions:  sessionService,
			Telemetry: telemetryService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("close kafka producer", zap.Error(err))
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
