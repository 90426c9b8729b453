// Package services implements the application layer between the HTTP and CLI
// front ends and the statement pipeline.
//
// AnalysisService owns everything around a batch: option defaulting and
// validation, upload checks, the content-addressed result cache, metrics, and
// the analysis:file / analysis:batch progress events sent to the websocket hub.
// It also renders CSV and XLSX exports of a single statement.
//
// HealthService backs the health and version endpoints.
//
// Services take their dependencies in the constructor and accept a nil logger,
// in which case slog.Default is used.
package services
