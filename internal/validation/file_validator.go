package validation

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "statementcheck/internal/errors"
)

// Sentinels identify why an input was rejected. They are wrapped in
// validation AppErrors, so errors.Is works on everything returned here.
var (
	ErrFileTooLarge        = errors.New("file exceeds the size limit")
	ErrEmptyFile           = errors.New("file is empty")
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	ErrNotSpreadsheet      = errors.New("file content is not a spreadsheet")
)

// zipMagic starts every OOXML workbook.
var zipMagic = []byte("PK\x03\x04")

// SniffLen is how many leading bytes ValidateUpload needs to check content.
const SniffLen = 8

// FileValidator checks statement inputs before they reach the parser.
type FileValidator struct {
	logger     *slog.Logger
	maxBytes   int64
	extensions map[string]struct{}
}

// NewFileValidator creates a validator. maxBytes <= 0 disables the size check.
func NewFileValidator(logger *slog.Logger, maxBytes int64, extensions []string) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	return &FileValidator{
		logger:     logger.With(slog.String("component", "file_validator")),
		maxBytes:   maxBytes,
		extensions: exts,
	}
}

// MaxBytes returns the configured size limit.
func (v *FileValidator) MaxBytes() int64 {
	return v.maxBytes
}

// ValidateUpload checks an uploaded statement by name, declared size and its
// first bytes. head may be longer than SniffLen.
func (v *FileValidator) ValidateUpload(name string, size int64, head []byte) error {
	if err := v.checkName(name); err != nil {
		return err
	}
	if err := v.checkSize(name, size); err != nil {
		return err
	}
	return v.checkContent(name, head)
}

// ValidateFile checks a statement on disk: it must exist, be a regular
// readable file within the size limit, and its content must match its extension.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist", slog.String("file", path))
		return apperrors.NewNotFoundError(path)
	}
	if err != nil {
		return apperrors.NewIOError(fmt.Sprintf("failed to stat file %s", path), err)
	}
	if info.IsDir() {
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}
	if err := v.checkSize(path, info.Size()); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewIOError(fmt.Sprintf("file %s is not readable", path), err)
	}
	defer f.Close()

	head := make([]byte, SniffLen)
	n, _ := f.Read(head)
	if err := v.checkContent(path, head[:n]); err != nil {
		return err
	}

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures dir exists or can be created and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewIOError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewIOError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	tmp.Close()
	os.Remove(tmp.Name())
	return nil
}

func (v *FileValidator) checkName(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if len(v.extensions) == 0 {
		return nil
	}
	if _, ok := v.extensions[ext]; !ok {
		v.logger.Warn("Rejected statement extension",
			slog.String("file", name),
			slog.String("extension", ext))
		return reject(ErrExtensionNotAllowed, "%s: extension %q is not one of %s", name, ext, v.allowed())
	}
	return nil
}

func (v *FileValidator) checkSize(name string, size int64) error {
	if size == 0 {
		return reject(ErrEmptyFile, "%s: file is empty", name)
	}
	if v.maxBytes > 0 && size > v.maxBytes {
		v.logger.Warn("Rejected oversized statement",
			slog.String("file", name),
			slog.Int64("size", size),
			slog.Int64("max_bytes", v.maxBytes))
		return reject(ErrFileTooLarge, "%s: %d bytes exceeds the limit of %d bytes", name, size, v.maxBytes)
	}
	return nil
}

func (v *FileValidator) checkContent(name string, head []byte) error {
	if len(head) == 0 {
		return reject(ErrEmptyFile, "%s: file is empty", name)
	}
	if IsWorkbookName(name) && !bytes.HasPrefix(head, zipMagic) {
		return reject(ErrNotSpreadsheet, "%s: content is not an xlsx workbook", name)
	}
	return nil
}

func (v *FileValidator) allowed() string {
	exts := make([]string, 0, len(v.extensions))
	for ext := range v.extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

// IsWorkbookName reports whether name carries an OOXML workbook extension.
func IsWorkbookName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

func reject(sentinel error, format string, args ...any) error {
	return apperrors.NewAppError(apperrors.ErrTypeValidation, fmt.Sprintf(format, args...), sentinel)
}
