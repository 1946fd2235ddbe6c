package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq" // PostgreSQL driver

	"askline/internal/board"
	"askline/internal/config"
	"askline/internal/constants"
	"askline/internal/logger"
	"askline/internal/message"
	"askline/internal/moderation"
	"askline/internal/session"
	"askline/internal/summary"
	"askline/pkg/bootstrap"
	"askline/pkg/health"
	"askline/pkg/metrics"
	"askline/pkg/middleware"
	"askline/pkg/ratelimit"
	"askline/pkg/tracing"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redisClient    *redis.Client
	boards         *board.Registry
	moderationSvc  *moderation.Service
	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("board-service")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
		boards:      board.NewRegistry(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.InitProducer(); err != nil {
		return fmt.Errorf("failed to initialize producer: %w", err)
	}

	if err := a.initRouter(ctx); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: a.router,
	}

	tp, err := tracing.Init(a.Config.Tracing, "board-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db

	if a.Config.Database.Redis.Host != "" {
		redisClient, err := a.dbConnector.InitRedis(ctx)
		if err != nil {
			a.Logger.WarnwCtx(ctx, "Redis connection failed, summary caching disabled",
				"error", err,
			)
		} else {
			a.redisClient = redisClient
		}
	}

	return nil
}

func (a *App) initRouter(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware("board-service"))
	}

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())

	topic := a.Config.Broker.Kafka.MessageTopic
	if topic == "" {
		topic = constants.DefaultMessageTopic
	}

	sessionRepo := session.NewRepository(a.db)
	sessionSvc := session.NewService(sessionRepo, a.Config.Session, a.Logger,
		session.WithEventPublisher(a.Producer, topic),
		session.WithBoardRegistry(a.boards),
	)

	moderationRepo := moderation.NewRepository(a.db)
	moderationSvc, err := moderation.NewService(moderationRepo, a.Config.Moderation, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create moderation service: %w", err)
	}
	if err := moderationSvc.ReloadRules(ctx, true); err != nil {
		a.Logger.WarnwCtx(ctx, "Failed to load initial moderation rules",
			"error", err,
		)
	}
	a.moderationSvc = moderationSvc

	messageRepo := message.NewRepository(a.db)
	messageSvc := message.NewService(messageRepo, sessionSvc, a.boards, a.Logger,
		message.WithModerator(moderationSvc),
		message.WithEventPublisher(a.Producer, topic),
	)

	var submitMiddleware []gin.HandlerFunc
	if a.Config.RateLimit.Enabled {
		rateLimitConfig := ratelimit.RateLimitConfig{
			RPS:             a.Config.RateLimit.RPS,
			Burst:           a.Config.RateLimit.Burst,
			CleanupInterval: time.Duration(a.Config.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.Config.RateLimit.MaxAge) * time.Second,
		}
		submitMiddleware = append(submitMiddleware, ratelimit.RateLimitMiddleware(rateLimitConfig))
		metrics.RegisterRateLimitMetrics()
		a.Logger.InfowCtx(ctx, "Submit rate limiting enabled",
			"rps", rateLimitConfig.RPS,
			"burst", rateLimitConfig.Burst,
		)
	}

	summaryClient := summary.NewHTTPClient(
		a.Config.Summary.Endpoint,
		time.Duration(a.Config.Summary.TimeoutSeconds)*time.Second,
	)
	summarySvc := summary.NewService(sessionSvc, messageRepo, a.boards, summaryClient, a.redisClient, a.Config.Summary, a.Logger)

	session.NewHandler(sessionSvc, a.Logger).RegisterRoutes(router)
	message.NewHandler(messageSvc, a.Logger, submitMiddleware...).RegisterRoutes(router)
	moderation.NewHandler(moderationSvc, a.Logger).RegisterRoutes(router)
	summary.NewHandler(summarySvc, a.Logger).RegisterRoutes(router)

	metrics.RegisterBoardMetrics()
	metrics.RegisterModerationMetrics()
	metrics.RegisterSummaryMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterCircuitBreakerMetrics()

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	if a.redisClient != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redisClient))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.moderationSvc.StartReloader(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redisClient, a.db, nil)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
