package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"BookPulse/internal/middleware"
	"BookPulse/internal/usecase"
	pkgcache "BookPulse/pkg/cache"
	pkgch "BookPulse/pkg/clickhouse"
	"BookPulse/pkg/config"
	xhttp "BookPulse/pkg/http"
	pkgkafka "BookPulse/pkg/kafka"
	applogger "BookPulse/pkg/logger"
	"BookPulse/pkg/queue"

	"golang.org/x/sync/errgroup"
)

const leaderLockKey = "engine:leader"
const leaderLockTTL = 30 * time.Second

// App encapsulates the entire application lifecycle: market feeds, the
// decision loop, Kafka consumers, the Redis work queue and the ops API.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	collector *usecase.MarketCollector
	mailbox   *middleware.SnapshotMailbox
	engine    *usecase.Engine
	recorder  *usecase.DecisionRecorder

	consumer *pkgkafka.Consumer
	handlers []pkgkafka.MessageHandler

	redisCache *pkgcache.RedisCache
	redisQueue *queue.RedisQueue
	chClient   *pkgch.Client

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.MarketCollector,
	mailbox *middleware.SnapshotMailbox,
	engine *usecase.Engine,
	recorder *usecase.DecisionRecorder,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	redisCache *pkgcache.RedisCache,
	redisQueue *queue.RedisQueue,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		collector:  collector,
		mailbox:    mailbox,
		engine:     engine,
		recorder:   recorder,
		consumer:   consumer,
		handlers:   handlers,
		redisCache: redisCache,
		redisQueue: redisQueue,
		chClient:   chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.log
	if l == nil {
		l, _ = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	}

	// Only one instance may trade a symbol. The lock is held for the process
	// lifetime and refreshed at half TTL.
	if a.redisCache != nil {
		ok, err := a.redisCache.TryLock(ctx, leaderLockKey, leaderLockTTL)
		if err != nil {
			return fmt.Errorf("leader lock: %w", err)
		}
		if !ok {
			return fmt.Errorf("leader lock: another instance is already trading %s", a.cfg.Binance.Symbol)
		}
		go a.refreshLeaderLock(ctx, l)
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	g, gctx := errgroup.WithContext(ctx)

	if err := a.collector.Start(gctx); err != nil {
		return fmt.Errorf("collector start: %w", err)
	}
	l.Info("collector started", applogger.String("symbol", a.cfg.Binance.Symbol))

	g.Go(func() error {
		a.engine.Run(gctx, a.mailbox)
		return nil
	})
	l.Info("engine loop started")

	if a.consumer != nil && len(a.handlers) > 0 {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			l.Info("kafka handler registered", applogger.String("topic", h.Topic()))
		}
		g.Go(func() error {
			if err := a.consumer.Start(); err != nil {
				return fmt.Errorf("kafka consumer: %w", err)
			}
			return nil
		})
	}

	if a.redisQueue != nil {
		if err := a.redisQueue.Start(); err != nil {
			return fmt.Errorf("queue start: %w", err)
		}
		a.redisQueue.StartRetryProcessor()
		l.Info("order watchdog queue started")
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt or a fatal component error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- g.Wait() }()

	select {
	case <-sigCh:
		l.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			l.Error("component failed", applogger.Error(err))
		}
	}
	cancel()
	return a.shutdown(context.Background(), l)
}

func (a *App) refreshLeaderLock(ctx context.Context, l *applogger.Logger) {
	ticker := time.NewTicker(leaderLockTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = a.redisCache.Unlock(context.Background(), leaderLockKey)
			return
		case <-ticker.C:
			if _, err := a.redisCache.Expire(ctx, leaderLockKey, leaderLockTTL); err != nil {
				l.Warn("leader lock refresh failed", applogger.Error(err))
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context, l *applogger.Logger) error {
	l.Info("shutting down...")

	if err := a.collector.Shutdown(ctx); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}
	a.mailbox.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.redisQueue != nil {
		if err := a.redisQueue.Stop(shutdownCtx); err != nil {
			l.Warn("queue stop error", applogger.Error(err))
		}
	}

	if a.recorder != nil {
		a.recorder.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.redisCache != nil {
		if err := a.redisCache.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
