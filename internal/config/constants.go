package config

import "time"

// Application constants
const (
	AppName = "Statement Check"
	AppID   = "statementcheck"

	// Rate Limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	// Timeouts
	DefaultRequestTimeout = 2 * time.Minute
	WebSocketPingPeriod   = 30 * time.Second
	WebSocketPongWait     = 60 * time.Second

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Uploads
	DefaultMaxUploadBytes = 32 << 20 // 32 MiB per file
	DefaultMaxConcurrency = 4
	MaxFilesPerRequest    = 20

	// Cache Settings
	DefaultCacheTTL = 30 * time.Minute

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogFile   = "logs/statementcheck.log"
)

// API Endpoints
const (
	APIBasePath      = "/api/v1"
	AnalyzeEndpoint  = "/api/v1/analyze"
	ExportEndpoint   = "/api/v1/export"
	DefaultsEndpoint = "/api/v1/options/defaults"
	HealthEndpoint   = "/api/v1/health"
	VersionEndpoint  = "/api/v1/version"
	MetricsEndpoint  = "/metrics"

	WebSocketEndpoint = "/ws"
)

// StatementExtensions are the file extensions accepted as statements.
var StatementExtensions = []string{".csv", ".txt", ".tsv", ".xlsx", ".xlsm"}
