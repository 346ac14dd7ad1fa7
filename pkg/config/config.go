package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Binance struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		RESTBaseURL    string        `yaml:"rest_base_url"`
		APIKey         string        `yaml:"api_key"`
		APISecret      string        `yaml:"api_secret"`
		Symbol         string        `yaml:"symbol"`
		DepthLevels    int           `yaml:"depth_levels"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		RecvWindowMS   int64         `yaml:"recv_window_ms"`
		OrderCapacity  float64       `yaml:"order_capacity"`
		OrderPerSec    float64       `yaml:"order_per_sec"`
	} `yaml:"binance"`
	Engine struct {
		MaxSnapshotAge time.Duration `yaml:"max_snapshot_age"`
		EstimatePct    float64       `yaml:"estimate_pct"`
		StopLossPct    float64       `yaml:"stop_loss_pct"`
		TakeProfitPct  float64       `yaml:"take_profit_pct"`
		StepSize       float64       `yaml:"step_size"`
		MinQuantity    float64       `yaml:"min_quantity"`
		OrderTimeout   time.Duration `yaml:"order_timeout"`
	} `yaml:"engine"`
	Strategy struct {
		LongThreshold   float64       `yaml:"long_threshold"`
		ShortThreshold  float64       `yaml:"short_threshold"`
		TopLevels       int           `yaml:"top_levels"`
		FlowWindow      time.Duration `yaml:"flow_window"`
		ConfirmationMin float64       `yaml:"confirmation_min"`
	} `yaml:"strategy"`
	Risk struct {
		StartingEquity       float64       `yaml:"starting_equity"`
		MaxSpreadPct         float64       `yaml:"max_spread_pct"`
		DepthBufferPct       float64       `yaml:"depth_buffer_pct"`
		MaxDepthPct          float64       `yaml:"max_depth_pct"`
		MaxRiskPerTradePct   float64       `yaml:"max_risk_per_trade_pct"`
		SlippageBufferPct    float64       `yaml:"slippage_buffer_pct"`
		FeePct               float64       `yaml:"fee_pct"`
		MinPositionUSD       float64       `yaml:"min_position_usd"`
		MaxDailyLossPct      float64       `yaml:"max_daily_loss_pct"`
		MaxConsecutiveLosses int           `yaml:"max_consecutive_losses"`
		CooldownAfterLosses  time.Duration `yaml:"cooldown_after_losses"`
		MaxVolatilityPct     float64       `yaml:"max_volatility_pct"`
	} `yaml:"risk"`
	Execution struct {
		SpreadTightPct    float64 `yaml:"spread_tight_pct"`
		MomentumThreshold float64 `yaml:"momentum_threshold"`
		PreferMaker       bool    `yaml:"prefer_maker" default:"true"`
	} `yaml:"execution"`
	Journal struct {
		Backend string `yaml:"backend"` // kafka or clickhouse
		Topic   string `yaml:"topic"`
		Table   string `yaml:"table"`
	} `yaml:"journal"`
	Fills struct {
		Topic string `yaml:"topic"`
	} `yaml:"fills"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Queue struct {
		Workers    int           `yaml:"workers"`
		QueueSize  int           `yaml:"queue_size"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		c.Binance.APISecret = v
	}
	if v := os.Getenv("SYMBOL"); v != "" {
		c.Binance.Symbol = v
	}
	if v := os.Getenv("JOURNAL_BACKEND"); v != "" {
		c.Journal.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Binance.Symbol == "" {
		return fmt.Errorf("binance.symbol is required")
	}
	if c.Binance.WebSocketURL == "" {
		return fmt.Errorf("binance.websocket_url is required")
	}
	if c.Journal.Backend != "" && c.Journal.Backend != "kafka" && c.Journal.Backend != "clickhouse" {
		return fmt.Errorf("journal.backend must be 'kafka' or 'clickhouse', got '%s'", c.Journal.Backend)
	}
	if c.Risk.StartingEquity <= 0 {
		return fmt.Errorf("risk.starting_equity must be positive")
	}
	return nil
}
