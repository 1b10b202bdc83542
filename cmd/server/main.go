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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/memledger/internal/adapter/http"
	"github.com/iho/memledger/internal/adapter/http/handler"
	"github.com/iho/memledger/internal/adapter/http/middleware"
	"github.com/iho/memledger/internal/adapter/repository/memory"
	redisRepo "github.com/iho/memledger/internal/adapter/repository/redis"
	"github.com/iho/memledger/internal/infrastructure/config"
	"github.com/iho/memledger/internal/infrastructure/eventpublisher"
	"github.com/iho/memledger/internal/infrastructure/logger"
	"github.com/iho/memledger/internal/infrastructure/metrics"
	"github.com/iho/memledger/internal/infrastructure/redis"
	"github.com/iho/memledger/internal/infrastructure/tracing"
	"github.com/iho/memledger/internal/usecase"
)

const limiterIdleTimeout = 10 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log.Logger); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()
		logger.Info().Msg("connected to redis")
		redisClient = client
	}

	a, err := newApp(ctx, cfg, logger, prometheus.NewRegistry(), redisClient)
	if err != nil {
		return err
	}
	defer a.close()

	a.dispatcher.Start(ctx)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("port", cfg.HTTPPort).Str("notify_sink", cfg.NotifySink).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if a.rateLimiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					a.rateLimiter.CleanupLimiters(limiterIdleTimeout)
				}
			}
		})
	}

	return g.Wait()
}

// app is the wired service without its listener.
type app struct {
	handler     http.Handler
	dispatcher  *eventpublisher.Dispatcher
	rateLimiter *middleware.RateLimiter
	closers     []func()
}

// close drains pending notifications and then releases the publisher and
// flushes traces.
func (a *app) close() {
	a.dispatcher.Stop()
	for _, fn := range a.closers {
		fn()
	}
}

// newApp wires the ledger. redisClient may be nil.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg *prometheus.Registry, redisClient *goredis.Client) (*app, error) {
	m := metrics.New(reg)

	tracerProvider, err := tracing.NewProvider(ctx, tracing.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		return nil, err
	}
	tracing.Install(tracerProvider)

	shutdownTracing := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to shut down tracer provider")
		}
	}

	publisher, closePublisher, err := newPublisher(cfg, redisClient, logger)
	if err != nil {
		shutdownTracing()
		return nil, err
	}

	// Initialize repositories
	store := memory.NewAccountStore()
	idGen := memory.NewULIDGenerator()

	dispatcher := eventpublisher.NewDispatcher(eventpublisher.Config{
		Publisher:         publisher,
		IDGen:             idGen,
		Observer:          m,
		Logger:            logger,
		QueueSize:         cfg.NotifyQueueSize,
		Workers:           cfg.NotifyWorkers,
		MaxRetries:        cfg.NotifyMaxRetries,
		RetryDelay:        cfg.NotifyRetryDelay,
		Timeout:           cfg.NotifyTimeout,
		BreakerFailures:   cfg.BreakerFailures,
		BreakerOpenPeriod: cfg.BreakerOpenPeriod,
	})

	// Initialize use cases
	accountUC := usecase.NewAccountUseCase(store, idGen).WithRecorder(m)
	transferUC := usecase.NewTransferUseCase(store, dispatcher, idGen).WithRecorder(m).WithLogger(logger)
	ledgerUC := usecase.NewLedgerUseCase(store)

	checks := map[string]handler.ReadinessCheck{}
	routerCfg := httpAdapter.RouterConfig{
		AccountHandler:  handler.NewAccountHandler(accountUC),
		TransferHandler: handler.NewTransferHandler(transferUC),
		LedgerHandler:   handler.NewLedgerHandler(ledgerUC),
		HealthHandler:   handler.NewHealthHandler(checks),
		IdempotencyTTL:  cfg.IdempotencyTTL,
		Logger:          logger,
		TracerProvider:  tracerProvider,
		MetricsHandler: promhttp.HandlerFor(
			prometheus.Gatherers{reg, prometheus.DefaultGatherer},
			promhttp.HandlerOpts{},
		),
	}

	if redisClient != nil {
		routerCfg.IdempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		checks["redis"] = func(ctx context.Context) error {
			return redis.Ping(ctx, redisClient)
		}
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).OnLimit(m.RateLimited)
		routerCfg.RateLimiter = limiter
	}

	return &app{
		handler:     httpAdapter.NewRouter(routerCfg),
		dispatcher:  dispatcher,
		rateLimiter: limiter,
		closers:     []func(){closePublisher, shutdownTracing},
	}, nil
}

// newPublisher builds the notification sink named by cfg.NotifySink.
func newPublisher(cfg *config.Config, redisClient *goredis.Client, logger zerolog.Logger) (eventpublisher.Publisher, func(), error) {
	noop := func() {}

	switch cfg.NotifySink {
	case "", config.SinkLog:
		return eventpublisher.NewLogPublisher(logger), noop, nil

	case config.SinkRedis:
		if redisClient == nil {
			return nil, nil, errors.New("notify sink redis requires REDIS_URL")
		}
		return eventpublisher.NewRedisPublisher(redisClient, cfg.RedisChannel), noop, nil

	case config.SinkKafka:
		p := eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		return p, func() {
			if err := p.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close kafka writer")
			}
		}, nil

	case config.SinkNATS:
		p, err := eventpublisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		return p, p.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown notify sink %q", cfg.NotifySink)
	}
}
