package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "statementcheck/internal/errors"
	"statementcheck/internal/exporter"
	"statementcheck/internal/middleware"
	"statementcheck/internal/services"
	"statementcheck/internal/validation"
	apiv1 "statementcheck/pkg/contracts/api/v1"
)

// Multipart form field names
const (
	FieldFiles            = "files"
	FieldFile             = "file"
	FieldFormat           = "format"
	FieldUseNetProfit     = "use_net_profit"
	FieldPercentThreshold = "percent_threshold"
	FieldSymbolFilter     = "symbol_filter"
	FieldGroupingTimeRole = "grouping_time_role"
)

// multipartMemory is how much of a form is held in memory before spilling to disk.
const multipartMemory = 8 << 20

// AnalysisHandler serves statement analysis and export over multipart uploads
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	maxFiles     int
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, maxFiles int, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisHandler{
		service:      service,
		maxFiles:     maxFiles,
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
	}
}

// maxRequestBytes bounds a whole analyze form: every file at the size limit
// plus room for the option fields and part headers.
func (h *AnalysisHandler) maxRequestBytes() int64 {
	perFile := h.service.MaxUploadBytes()
	if perFile <= 0 {
		return 0
	}
	return perFile*int64(h.maxFiles) + 1<<20
}

// Routes returns the analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/options/defaults", h.GetDefaults)

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data"))
		r.Use(middleware.MaxBodyBytes(h.maxRequestBytes(), h.errorHandler))
		r.Post("/analyze", h.Analyze)
		r.Post("/export", h.Export)
	})

	return r
}

// GetDefaults handles GET /api/v1/options/defaults
func (h *AnalysisHandler) GetDefaults(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, apiv1.NewSuccessResponse(h.service.Defaults()))
}

// Analyze handles POST /api/v1/analyze. Per-file failures are entries of the
// returned BatchReport, not HTTP errors.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.errorHandler.HandleError(w, r, formError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, err := analyzeRequest(r.MultipartForm)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	opts, err := h.service.ResolveOptions(req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	uploads, err := h.readUploads(r.MultipartForm.File[FieldFiles])
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "analyze request",
		slog.Int("files", len(uploads)),
		slog.Bool("use_net_profit", opts.UseNetProfit),
		slog.Float64("percent_threshold", opts.PercentThreshold),
		slog.String("grouping_time_role", string(opts.GroupingTimeRole)),
		slog.String("request_id", middleware.GetRequestID(ctx)),
	)

	report, err := h.service.AnalyzeUploads(ctx, uploads, opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, apiv1.NewSuccessResponse(report))
}

// Export handles POST /api/v1/export and streams the export table as an attachment.
func (h *AnalysisHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.errorHandler.HandleError(w, r, formError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	format, err := exporter.ParseFormat(formValue(r.MultipartForm, FieldFormat))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(FieldFormat, err.Error()))
		return
	}

	req, err := analyzeRequest(r.MultipartForm)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	opts, err := h.service.ResolveOptions(req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	headers := r.MultipartForm.File[FieldFile]
	if len(headers) != 1 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(FieldFile,
			fmt.Sprintf("exactly one statement file is required, got %d", len(headers))))
		return
	}
	uploads, err := h.readUploads(headers)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	file, err := h.service.Export(ctx, uploads[0], opts, format)
	if err != nil {
		if errors.Is(err, validation.ErrFileTooLarge) {
			err = apierrors.PayloadTooLarge(err.Error())
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "export rendered",
		slog.String("file", uploads[0].Name),
		slog.String("export", file.Name),
		slog.String("format", string(format)),
		slog.Int("bytes", len(file.Data)),
		slog.String("status", string(file.Result.Summary.Status)),
	)

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("X-Statement-Status", string(file.Result.Summary.Status))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		h.logger.WarnContext(ctx, "export write failed", slog.String("error", err.Error()))
	}
}

// readUploads loads each part into memory, reading at most one byte past the
// size limit so oversized files are rejected by the service without being buffered whole.
func (h *AnalysisHandler) readUploads(headers []*multipart.FileHeader) ([]services.Upload, error) {
	limit := h.service.MaxUploadBytes()
	uploads := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, apierrors.InvalidRequestWithError(err)
		}
		var src io.Reader = f
		if limit > 0 {
			src = io.LimitReader(f, limit+1)
		}
		data, err := io.ReadAll(src)
		f.Close()
		if err != nil {
			return nil, formError(err)
		}
		uploads = append(uploads, services.Upload{Name: fh.Filename, Data: data})
	}
	return uploads, nil
}

// analyzeRequest reads the option fields. Booleans and numbers that do not
// parse are reported against their field.
func analyzeRequest(form *multipart.Form) (apiv1.AnalyzeRequest, error) {
	req := apiv1.AnalyzeRequest{
		SymbolFilter:     formValue(form, FieldSymbolFilter),
		GroupingTimeRole: strings.ToLower(formValue(form, FieldGroupingTimeRole)),
	}
	if v := formValue(form, FieldUseNetProfit); v != "" {
		b, err := parseFormBool(v)
		if err != nil {
			return req, apierrors.ErrValidation(FieldUseNetProfit, fmt.Sprintf("%q is not a boolean", v))
		}
		req.UseNetProfit = &b
	}
	if v := formValue(form, FieldPercentThreshold); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, apierrors.ErrValidation(FieldPercentThreshold, fmt.Sprintf("%q is not a number", v))
		}
		req.PercentThreshold = &f
	}
	return req, nil
}

// parseFormBool also accepts the checkbox values "on" and "off".
func parseFormBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(v)
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	return ""
}

func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apierrors.PayloadTooLarge(map[string]interface{}{"max_size": maxErr.Limit})
	}
	return apierrors.InvalidRequestWithError(err)
}
