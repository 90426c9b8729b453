// Package http implements the HTTP handlers of the statementcheck web service.
// Handlers stay thin: they parse multipart uploads and option fields, call the
// analysis service, and render JSON or RFC 7807 problems.
//
// # Endpoints
//
//	POST /api/v1/analyze            multipart "files" plus option fields, returns a BatchReport
//	POST /api/v1/export             multipart "file" plus options and "format" (csv, xlsx)
//	GET  /api/v1/options/defaults   configured default options
//	GET  /api/v1/health             liveness summary
//	GET  /api/v1/version            build information
//	GET  /metrics                   Prometheus exposition
//	GET  /ws                        batch progress stream
//
// # Error Handling
//
// Errors are rendered by internal/errors.ErrorHandler. Statement ingestion
// failures of a single-file export answer 422 with a problem type under
// /errors/report/; in a batch they are entries of the report instead.
package http
