package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"

	gocache "github.com/patrickmn/go-cache"

	"statementcheck/internal/config"
	"statementcheck/internal/dataprocessing"
	"statementcheck/internal/infrastructure"
	"statementcheck/pkg/contracts/domain"
)

// cachedAnalyzer memoizes analysis results by file content and options.
// Analysis is deterministic, so equal keys always yield equal results.
type cachedAnalyzer struct {
	next    dataprocessing.Analyzer
	cache   *gocache.Cache
	metrics *infrastructure.AppMetrics
	logger  *slog.Logger
}

func newCachedAnalyzer(next dataprocessing.Analyzer, cfg config.CacheConfig, metrics *infrastructure.AppMetrics, logger *slog.Logger) *cachedAnalyzer {
	return &cachedAnalyzer{
		next:    next,
		cache:   gocache.New(cfg.TTL, cfg.CleanupInterval),
		metrics: metrics,
		logger:  logger,
	}
}

func (c *cachedAnalyzer) Analyze(ctx context.Context, name string, r io.ReadSeeker, opts domain.AnalysisOptions) (*domain.AnalysisResult, error) {
	key, err := cacheKey(r, opts)
	if err != nil {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return c.next.Analyze(ctx, name, r, opts)
	}

	if cached, ok := c.cache.Get(key); ok {
		c.metrics.RecordCache(ctx, true)
		c.logger.DebugContext(ctx, "analysis cache hit", slog.String("file", name))
		result := cached.(*domain.AnalysisResult).Clone()
		result.FileName = name
		return result, nil
	}
	c.metrics.RecordCache(ctx, false)

	result, err := c.next.Analyze(ctx, name, r, opts)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, result.Clone())
	return result, nil
}

// ItemCount returns the number of cached results, expired ones included.
func (c *cachedAnalyzer) ItemCount() int {
	return c.cache.ItemCount()
}

// cacheKey hashes the content of r and the canonical options, then rewinds r.
func cacheKey(r io.ReadSeeker, opts domain.AnalysisOptions) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	encoded, err := json.Marshal(dataprocessing.ApplyDefaults(opts))
	if err != nil {
		return "", err
	}
	h.Write([]byte{0})
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil)), nil
}
