package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"BookPulse/internal/domain/repository"
	"BookPulse/internal/handler/api"
	mid "BookPulse/internal/middleware"
	internalrepo "BookPulse/internal/repository"
	"BookPulse/internal/service/binance"
	icache "BookPulse/internal/service/cache"
	opsmetrics "BookPulse/internal/service/metrics"
	"BookPulse/internal/service/ratelimit"
	"BookPulse/internal/services/execution"
	"BookPulse/internal/services/risk"
	"BookPulse/internal/services/strategy"
	"BookPulse/internal/usecase"
	pkgcache "BookPulse/pkg/cache"
	pkgch "BookPulse/pkg/clickhouse"
	"BookPulse/pkg/config"
	xhttp "BookPulse/pkg/http"
	pkgkafka "BookPulse/pkg/kafka"
	applogger "BookPulse/pkg/logger"
	"BookPulse/pkg/metrics"
	"BookPulse/pkg/queue"
	"BookPulse/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := cfg.Log.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Log.Format
	if format == "" {
		format = "console"
	}
	output := cfg.Log.Output
	if output == "" {
		output = "stdout"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: output})
}

// ProvideClickHouseClient creates a ClickHouse client and prepares the
// decision journal schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	table := journalTable(cfg)
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
			ts DateTime64(3),
			symbol String,
			outcome LowCardinality(String),
			direction LowCardinality(String),
			reason String,
			imbalance Float64,
			confidence Float64,
			spread_pct Float64,
			quote_size Float64,
			quantity Float64,
			order_type LowCardinality(String),
			limit_price Float64,
			order_id String,
			status LowCardinality(String)
		) ENGINE=MergeTree ORDER BY (symbol, ts)`,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

func journalTable(cfg *config.Config) string {
	table := cfg.Journal.Table
	if table == "" {
		table = "decisions"
	}
	return cfg.ClickHouse.Database + "." + table
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedisCache creates the Redis client used for caching, the leader
// lock and the work queue. Returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}
	return pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
}

// ProvideDepthStream creates the order book WebSocket stream.
func ProvideDepthStream(cfg *config.Config) repository.DepthStream {
	return binance.NewDepthStream(
		cfg.Binance.WebSocketURL,
		cfg.Binance.Symbol,
		cfg.Binance.DepthLevels,
		cfg.Binance.ReconnectDelay,
		cfg.Binance.PingInterval,
	)
}

// ProvideTradeStream creates the aggTrade WebSocket stream.
func ProvideTradeStream(cfg *config.Config) repository.TradeStream {
	return binance.NewTradeStream(
		cfg.Binance.WebSocketURL,
		cfg.Binance.Symbol,
		cfg.Binance.ReconnectDelay,
		cfg.Binance.PingInterval,
	)
}

// ProvideExecutor creates the signed REST order executor.
func ProvideExecutor(cfg *config.Config, log *applogger.Logger) repository.OrderExecutor {
	return binance.NewExecutor(
		binance.ExecutorConfig{
			BaseURL:       cfg.Binance.RESTBaseURL,
			APIKey:        cfg.Binance.APIKey,
			APISecret:     cfg.Binance.APISecret,
			Symbol:        cfg.Binance.Symbol,
			RecvWindowMS:  cfg.Binance.RecvWindowMS,
			OrderCapacity: cfg.Binance.OrderCapacity,
			OrderPerSec:   cfg.Binance.OrderPerSec,
		},
		xhttp.NewClient(),
		ratelimit.New(),
		log,
	)
}

// ProvideImbalanceCalculator builds the imbalance signal component.
func ProvideImbalanceCalculator(cfg *config.Config) *strategy.ImbalanceCalculator {
	return strategy.NewImbalanceCalculator(cfg.Strategy.LongThreshold, cfg.Strategy.ShortThreshold, cfg.Strategy.TopLevels)
}

// ProvideTradeFlowAnalyzer builds the trade-flow confirmation component.
func ProvideTradeFlowAnalyzer(cfg *config.Config) *strategy.TradeFlowAnalyzer {
	return strategy.NewTradeFlowAnalyzer(cfg.Strategy.FlowWindow, cfg.Strategy.ConfirmationMin)
}

// ProvideSpreadFilter builds the spread and liquidity gate.
func ProvideSpreadFilter(cfg *config.Config) *risk.SpreadFilter {
	return risk.NewSpreadFilter(cfg.Risk.MaxSpreadPct, cfg.Risk.DepthBufferPct)
}

// ProvidePositionSizer builds the position sizer.
func ProvidePositionSizer(cfg *config.Config) *risk.PositionSizer {
	return risk.NewPositionSizer(risk.SizerConfig{
		MaxDepthPct:        cfg.Risk.MaxDepthPct,
		MaxRiskPerTradePct: cfg.Risk.MaxRiskPerTradePct,
		SlippageBufferPct:  cfg.Risk.SlippageBufferPct,
		FeePct:             cfg.Risk.FeePct,
		MinPositionUSD:     cfg.Risk.MinPositionUSD,
		DefaultStopPct:     cfg.Engine.StopLossPct,
	})
}

// ProvideRiskManager builds the circuit breaker.
func ProvideRiskManager(cfg *config.Config) *risk.Manager {
	return risk.NewManager(risk.ManagerConfig{
		StartingEquity:       cfg.Risk.StartingEquity,
		MaxDailyLossPct:      cfg.Risk.MaxDailyLossPct,
		MaxConsecutiveLosses: cfg.Risk.MaxConsecutiveLosses,
		CooldownAfterLosses:  cfg.Risk.CooldownAfterLosses,
		MaxVolatilityPct:     cfg.Risk.MaxVolatilityPct,
	}, nil)
}

// ProvidePolicy builds the execution policy.
func ProvidePolicy(cfg *config.Config) *execution.Policy {
	return execution.NewPolicy(execution.PolicyConfig{
		MomentumThreshold:    cfg.Execution.MomentumThreshold,
		MakerSpreadThreshold: cfg.Execution.SpreadTightPct,
		PreferMaker:          cfg.Execution.PreferMaker,
	})
}

// ProvideDecisionRecorder wires the journal backends behind one recorder.
func ProvideDecisionRecorder(
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	mrec repository.Metrics,
	cfg *config.Config,
) *usecase.DecisionRecorder {
	backend := cfg.Journal.Backend
	if backend == "" {
		backend = "clickhouse"
	}
	pub := internalrepo.NewKafkaJournal(producer, cfg.Journal.Topic)
	store := internalrepo.NewClickHouseJournal(chClient.DB(), journalTable(cfg))
	return usecase.NewDecisionRecorder(pub, store, mrec, backend)
}

// ProvideSnapshotMailbox creates the feed-to-engine mailbox.
func ProvideSnapshotMailbox() *mid.SnapshotMailbox {
	return mid.NewSnapshotMailbox()
}

// ProvideMarketCollector creates the market data collector.
func ProvideMarketCollector(
	depth repository.DepthStream,
	trades repository.TradeStream,
	flow *strategy.TradeFlowAnalyzer,
	mailbox *mid.SnapshotMailbox,
	mrec repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.MarketCollector {
	return usecase.NewMarketCollector(depth, trades, flow, mailbox, mrec, log, cfg.Binance.ReconnectDelay)
}

// ProvideEngine wires the decision pipeline.
func ProvideEngine(
	cfg *config.Config,
	imbalance *strategy.ImbalanceCalculator,
	flow *strategy.TradeFlowAnalyzer,
	filter *risk.SpreadFilter,
	sizer *risk.PositionSizer,
	riskMgr *risk.Manager,
	policy *execution.Policy,
	executor repository.OrderExecutor,
	recorder *usecase.DecisionRecorder,
	mrec repository.Metrics,
	log *applogger.Logger,
) *usecase.Engine {
	return usecase.NewEngine(
		usecase.EngineConfig{
			MaxSnapshotAge: cfg.Engine.MaxSnapshotAge,
			EstimatePct:    cfg.Engine.EstimatePct,
			StopLossPct:    cfg.Engine.StopLossPct,
			TakeProfitPct:  cfg.Engine.TakeProfitPct,
			StepSize:       cfg.Engine.StepSize,
			MinQuantity:    cfg.Engine.MinQuantity,
		},
		imbalance, flow, filter, sizer, riskMgr, policy, executor, recorder, mrec, nil, log,
	)
}

// ProvideKafkaHandlers builds the consumer-side message handlers.
func ProvideKafkaHandlers(
	cfg *config.Config,
	engine *usecase.Engine,
	chClient *pkgch.Client,
	mrec repository.Metrics,
) []pkgkafka.MessageHandler {
	var handlers []pkgkafka.MessageHandler
	if cfg.Fills.Topic != "" {
		handlers = append(handlers, usecase.NewKafkaFillsHandler(cfg.Fills.Topic, engine.RiskManager(), mrec))
	}
	if cfg.Journal.Backend == "kafka" && cfg.Journal.Topic != "" {
		store := internalrepo.NewClickHouseJournal(chClient.DB(), journalTable(cfg))
		handlers = append(handlers, usecase.NewKafkaJournalHandler(cfg.Journal.Topic, store, mrec))
	}
	return handlers
}

// ProvideRedisQueue builds the order watchdog queue. Nil when Redis is off.
func ProvideRedisQueue(
	cfg *config.Config,
	redisCache *pkgcache.RedisCache,
	executor repository.OrderExecutor,
	engine *usecase.Engine,
	mrec repository.Metrics,
	log *applogger.Logger,
) *queue.RedisQueue {
	if redisCache == nil {
		return nil
	}
	job := usecase.NewOrderWatchdogJob(executor, mrec, cfg.Engine.OrderTimeout, log)
	q := queue.NewRedisConsumer(log, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, redisCache.Client(), []queue.Job{job})
	engine.SetOrderWatcher(usecase.NewQueueOrderWatcher(q))
	return q
}

// ProvideOpsHandler builds the ops HTTP handler.
func ProvideOpsHandler(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.MarketCollector,
	mailbox *mid.SnapshotMailbox,
	engine *usecase.Engine,
	recorder *usecase.DecisionRecorder,
) *api.OpsEchoHandler {
	opsmetrics.Register()
	var bc icache.BytesCache = icache.NewTTLCache()
	if cfg.Redis.Enabled {
		bc = icache.NewRedisCache(icache.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	}
	return api.NewOpsEchoHandler(
		log,
		cfg.Environment,
		cfg.Binance.Symbol,
		collector,
		mailbox,
		engine,
		recorder,
		bc,
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.MarketCollector,
	mailbox *mid.SnapshotMailbox,
	engine *usecase.Engine,
	recorder *usecase.DecisionRecorder,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	redisCache *pkgcache.RedisCache,
	redisQueue *queue.RedisQueue,
	chClient *pkgch.Client,
	ops *api.OpsEchoHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, log, collector, mailbox, engine, recorder, consumer, handlers, redisCache, redisQueue, chClient)
	app.SetHTTPHandler(ops)
	return app
}
