package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
	"github.com/dustinober1/pmp-application-sub001/internal/core/port"
	"github.com/dustinober1/pmp-application-sub001/internal/infra/config"
	"github.com/dustinober1/pmp-application-sub001/internal/infra/database"
	kafkainfra "github.com/dustinober1/pmp-application-sub001/internal/infra/kafka"
	"github.com/dustinober1/pmp-application-sub001/internal/infra/logger"
	redisinfra "github.com/dustinober1/pmp-application-sub001/internal/infra/redis"
	"github.com/dustinober1/pmp-application-sub001/internal/infra/security"
	postgresrepo "github.com/dustinober1/pmp-application-sub001/internal/repository/postgres"
	redisrepo "github.com/dustinober1/pmp-application-sub001/internal/repository/redis"
	"github.com/dustinober1/pmp-application-sub001/internal/transport/http/middleware"
	"github.com/dustinober1/pmp-application-sub001/internal/transport/http/routes"
	"github.com/dustinober1/pmp-application-sub001/internal/usecase"
)

// Application owns the wired service graph and the HTTP server lifecycle.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	kafka  *kafkainfra.Producer
}

// New wires configuration into a runnable application: storage, cache,
// event stream, services, and the HTTP router.
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

	signer, err := security.NewTokenSigner(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.Issuer)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token signer: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool, cfg.Subscription.DefaultTier)
	denylist := redisrepo.NewAccessTokenDenylist(redisClient.Client(), cfg.Redis.DenylistPrefix)

	var eventPublisher port.EventPublisher
	var kafkaProducer *kafkainfra.Producer
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka disabled, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	lockout := domain.LockoutPolicy{
		MaxAttempts: cfg.Lockout.MaxFailedAttempts,
		Duration:    cfg.Lockout.Duration,
	}

	issuer := usecase.NewTokenIssuer(cfg.JWT, signer, repos.Tokens)
	authService := usecase.NewAuthService(lockout, repos.Users, repos.Tokens, repos.Subscriptions, issuer, signer, denylist).WithLogger(log)
	registrationService := usecase.NewRegistrationService(repos.Users, repos.Subscriptions, issuer, eventPublisher)
	passwordResetService := usecase.NewPasswordResetService(repos.Users, repos.Tokens, cfg.PasswordReset.TokenTTL, eventPublisher)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		log.Warn("failed to init http metrics", zap.Error(err))
	}

	engine := routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Metrics:  metrics,
		Database: pool,
		Cache:    redisClient,
		Services: routes.ServiceSet{
			Auth:          authService,
			Registration:  registrationService,
			PasswordReset: passwordResetService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		kafka:  kafkaProducer,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
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
		if a.kafka != nil {
			_ = a.kafka.Close()
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
