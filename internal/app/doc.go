// Package app wires the statement analysis server together.
//
// NewApplication loads configuration, initializes the slog logger and
// OpenTelemetry providers, then builds the websocket hub, the analysis and
// health services, and the chi router. Start serves in the background and
// Stop shuts the server, the hub and the telemetry providers down in that
// order. Run blocks until SIGINT or SIGTERM.
//
// Routes:
//
//	POST /api/v1/analyze            batch analysis of uploaded statements
//	POST /api/v1/export             one statement as a CSV or XLSX attachment
//	GET  /api/v1/options/defaults   configured default options
//	GET  /api/v1/health[/ready|/live]
//	GET  /api/v1/version
//	GET  /api/v1/stats
//	POST /api/v1/logs               browser log forwarding
//	GET  /metrics                   Prometheus exposition
//	GET  /ws                        analysis progress stream
//
// The package never calls os.Exit; errors are returned to main.
package app
