package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"statementcheck/internal/dataprocessing"
	"statementcheck/pkg/contracts/domain"
)

// EnvPrefix namespaces every environment variable, e.g. STMT_SERVER_PORT.
const EnvPrefix = "STMT"

// ConfigFileEnv names an explicit YAML config file.
const ConfigFileEnv = "STMT_CONFIG_FILE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	// RequestTimeout bounds one analyze or export request.
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"` // console, file or both
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// AnalysisConfig holds the caller defaults and the ingestion heuristics.
type AnalysisConfig struct {
	PercentThreshold float64  `yaml:"percent_threshold" envconfig:"PERCENT_THRESHOLD"`
	UseNetProfit     bool     `yaml:"use_net_profit" envconfig:"USE_NET_PROFIT"`
	GroupingTimeRole string   `yaml:"grouping_time_role" envconfig:"GROUPING_TIME_ROLE"`
	SymbolFilter     []string `yaml:"symbol_filter" envconfig:"SYMBOL_FILTER"`

	HeaderScanLimit     int     `yaml:"header_scan_limit" envconfig:"HEADER_SCAN_LIMIT"`
	NumericMinRatio     float64 `yaml:"numeric_min_ratio" envconfig:"NUMERIC_MIN_RATIO"`
	SmallValueThreshold float64 `yaml:"small_value_threshold" envconfig:"SMALL_VALUE_THRESHOLD"`
	SmallValueMinRatio  float64 `yaml:"small_value_min_ratio" envconfig:"SMALL_VALUE_MIN_RATIO"`
	DateFailureRatio    float64 `yaml:"date_failure_ratio" envconfig:"DATE_FAILURE_RATIO"`
	TimeColumnMinRatio  float64 `yaml:"time_column_min_ratio" envconfig:"TIME_COLUMN_MIN_RATIO"`
	DropWarnRatio       float64 `yaml:"drop_warn_ratio" envconfig:"DROP_WARN_RATIO"`
	ChallengeRatio      float64 `yaml:"challenge_ratio" envconfig:"CHALLENGE_RATIO"`
	FastTrackRatio      float64 `yaml:"fast_track_ratio" envconfig:"FAST_TRACK_RATIO"`

	MaxUploadBytes int64 `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
	MaxConcurrency int   `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY"`
}

// DefaultOptions returns the analysis options used when a caller sets none.
func (a AnalysisConfig) DefaultOptions() domain.AnalysisOptions {
	return domain.AnalysisOptions{
		UseNetProfit:     a.UseNetProfit,
		PercentThreshold: a.PercentThreshold,
		SymbolFilter:     a.SymbolFilter,
		GroupingTimeRole: domain.TimeRole(strings.ToLower(a.GroupingTimeRole)),
	}.Canonical()
}

// Thresholds converts the heuristics for the statement pipeline.
func (a AnalysisConfig) Thresholds() dataprocessing.Thresholds {
	return dataprocessing.Thresholds{
		HeaderScanLimit:     a.HeaderScanLimit,
		NumericMinRatio:     a.NumericMinRatio,
		SmallValueThreshold: decimal.NewFromFloat(a.SmallValueThreshold),
		SmallValueMinRatio:  a.SmallValueMinRatio,
		DateFailureRatio:    a.DateFailureRatio,
		TimeColumnMinRatio:  a.TimeColumnMinRatio,
		DropWarnRatio:       a.DropWarnRatio,
		ChallengeRatio:      decimal.NewFromFloat(a.ChallengeRatio),
		FastTrackRatio:      decimal.NewFromFloat(a.FastTrackRatio),
	}
}

// CacheConfig controls the analysis result cache.
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled" envconfig:"ENABLED"`
	TTL             time.Duration `yaml:"ttl" envconfig:"TTL"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" envconfig:"CLEANUP_INTERVAL"`
}

// TelemetryConfig controls OpenTelemetry tracing and metrics.
type TelemetryConfig struct {
	ServiceName   string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"` // stdout or none
	PrettyPrint   bool    `yaml:"pretty_print" envconfig:"PRETTY_PRINT"`
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
	WriteWait       time.Duration `yaml:"write_wait" envconfig:"WRITE_WAIT"`
	MaxMessageSize  int64         `yaml:"max_message_size" envconfig:"MAX_MESSAGE_SIZE"`
	SendBuffer      int           `yaml:"send_buffer" envconfig:"SEND_BUFFER"`
}

// Load builds the configuration from defaults, an optional .env file, an
// optional YAML file and STMT_* environment variables. Later layers win.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit YAML file. An empty path searches the
// usual locations.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Unset variables leave the field untouched.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the keys present in a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate rejects values the server or the pipeline cannot run with and
// normalizes logging settings.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server request timeout must be positive")
	}
	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	if err := c.Analysis.validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}

	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	switch c.Telemetry.TraceExporter {
	case "stdout", "none", "":
	default:
		return fmt.Errorf("unsupported trace exporter: %q", c.Telemetry.TraceExporter)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be between 0 and 1")
	}
	if c.WebSocket.PongWait <= c.WebSocket.PingPeriod {
		return fmt.Errorf("websocket pong wait must exceed ping period")
	}
	return nil
}

func (a AnalysisConfig) validate() error {
	if a.PercentThreshold <= 0 || a.PercentThreshold > 100 {
		return fmt.Errorf("percent threshold must be in (0, 100], got %v", a.PercentThreshold)
	}
	switch domain.TimeRole(strings.ToLower(a.GroupingTimeRole)) {
	case domain.GroupByOpen, domain.GroupByClose:
	default:
		return fmt.Errorf("grouping time role must be open or close, got %q", a.GroupingTimeRole)
	}
	if a.HeaderScanLimit < 0 {
		return fmt.Errorf("header scan limit must not be negative")
	}

	ratios := []struct {
		name  string
		value float64
	}{
		{"numeric_min_ratio", a.NumericMinRatio},
		{"small_value_min_ratio", a.SmallValueMinRatio},
		{"date_failure_ratio", a.DateFailureRatio},
		{"time_column_min_ratio", a.TimeColumnMinRatio},
		{"drop_warn_ratio", a.DropWarnRatio},
		{"challenge_ratio", a.ChallengeRatio},
		{"fast_track_ratio", a.FastTrackRatio},
	}
	for _, r := range ratios {
		if r.value <= 0 || r.value > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", r.name, r.value)
		}
	}

	if a.SmallValueThreshold <= 0 {
		return fmt.Errorf("small value threshold must be positive")
	}
	if a.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	if a.MaxConcurrency <= 0 {
		return fmt.Errorf("max concurrency must be positive")
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv(ConfigFileEnv); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  DefaultRequestTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Analysis: AnalysisConfig{
			PercentThreshold:    domain.DefaultPercentThreshold,
			UseNetProfit:        false,
			GroupingTimeRole:    string(domain.GroupByOpen),
			HeaderScanLimit:     100,
			NumericMinRatio:     0.5,
			SmallValueThreshold: 1000,
			SmallValueMinRatio:  0.4,
			DateFailureRatio:    0.5,
			TimeColumnMinRatio:  0.2,
			DropWarnRatio:       0.5,
			ChallengeRatio:      0.80,
			FastTrackRatio:      0.90,
			MaxUploadBytes:      DefaultMaxUploadBytes,
			MaxConcurrency:      DefaultMaxConcurrency,
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             DefaultCacheTTL,
			CleanupInterval: 10 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName:   AppID,
			EnableTracing: true,
			EnableMetrics: true,
			TraceExporter: "none",
			Environment:   "development",
			SampleRatio:   1.0,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  WebSocketReadBufferSize,
			WriteBufferSize: WebSocketWriteBufferSize,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
			WriteWait:       10 * time.Second,
			MaxMessageSize:  512,
			SendBuffer:      256,
		},
	}
}
