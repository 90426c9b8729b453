package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"statementcheck/internal/config"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds statement files on disk
type Discovery struct {
	basePath   string
	extensions map[string]struct{}
}

// NewDiscovery creates a discovery rooted at basePath that accepts the
// statement extensions.
func NewDiscovery(basePath string) *Discovery {
	return NewDiscoveryWithExtensions(basePath, config.StatementExtensions)
}

// NewDiscoveryWithExtensions accepts only files whose lower-cased extension is
// listed.
func NewDiscoveryWithExtensions(basePath string, extensions []string) *Discovery {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return &Discovery{basePath: basePath, extensions: set}
}

// IsStatementFile reports whether name has an accepted extension. Office
// lock files (~$name.xlsx) and hidden files are rejected.
func (d *Discovery) IsStatementFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".") {
		return false
	}
	_, ok := d.extensions[strings.ToLower(filepath.Ext(base))]
	return ok
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

// FindStatements lists the statement files directly inside dir, sorted by name.
func (d *Discovery) FindStatements(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !d.IsStatementFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// FindFilesByPattern finds statement files matching a glob pattern
func (d *Discovery) FindFilesByPattern(dir string, pattern string) ([]FileInfo, error) {
	matches, err := filepath.Glob(filepath.Join(d.resolve(dir), pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}
	sort.Strings(matches)

	var files []FileInfo
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() || !d.IsStatementFile(match) {
			continue
		}
		files = append(files, FileInfo{
			Path:    match,
			Name:    filepath.Base(match),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return files, nil
}

// Expand turns command line arguments into file paths. Directories are
// replaced by their statement files, files are kept in argument order even
// when their extension is unknown, and duplicates are dropped.
func (d *Discovery) Expand(args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string
	add := func(p string) {
		key := filepath.Clean(p)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		paths = append(paths, p)
	}

	for _, arg := range args {
		path := d.resolve(arg)
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}

		found, err := d.FindStatements(path)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f.Path)
		}
	}
	return paths, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}
