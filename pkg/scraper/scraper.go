// Package scraper orchestrates rate-limited, cached requests through a
// challenge-capable HTTP client.
//
// A [Scraper] owns three concerns and nothing else: spacing requests
// out with a randomized delay, caching GET responses through a
// [cache.Cache] backend with age-based expiry, and streaming file
// downloads to disk. Passing the anti-bot challenge itself belongs to
// the injected [challenge.Client].
//
// Operations are synchronous and sequential. A Scraper instance assumes
// one caller at a time; the rate limiter's spacing guarantee does not
// hold under concurrent use.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/lukashaas/scrapekit/pkg/cache"
	"github.com/lukashaas/scrapekit/pkg/challenge"
)

// DefaultMaxAge is the cache freshness window used when a Get does not
// specify one.
const DefaultMaxAge = time.Hour

// downloadChunkSize bounds memory use when streaming large payloads.
const downloadChunkSize = 8 * 1024

// Config configures a Scraper. The zero value is usable: it selects the
// default browser client, a file cache in ./cache, no delay, and a
// silent logger.
type Config struct {
	// Client performs the actual network I/O and challenge handling.
	// Nil selects challenge.NewBrowserClient with the default profile.
	Client challenge.Client

	// Cache stores GET responses. Nil selects a file cache in the
	// default directory. Use cache.NewNullCache() to disable caching
	// entirely.
	Cache cache.Cache

	// DelayMin and DelayMax bound the random inter-request delay.
	// Both must be non-negative and DelayMin must not exceed DelayMax.
	DelayMin time.Duration
	DelayMax time.Duration

	// Logger receives request, cache, and error events. Nil discards
	// all output.
	Logger *log.Logger
}

// Scraper issues GET and POST requests and file downloads through a
// challenge-capable client, applying rate limiting and optional
// response caching.
type Scraper struct {
	client  challenge.Client
	cache   cache.Cache
	limiter *limiter
	logger  *log.Logger
}

// New creates a Scraper from cfg. It returns an error for an invalid
// delay range or if the default file cache directory cannot be created.
func New(cfg Config) (*Scraper, error) {
	if cfg.DelayMin < 0 || cfg.DelayMax < 0 {
		return nil, fmt.Errorf("delay range must be non-negative, got [%v, %v]", cfg.DelayMin, cfg.DelayMax)
	}
	if cfg.DelayMin > cfg.DelayMax {
		return nil, fmt.Errorf("delay range min %v exceeds max %v", cfg.DelayMin, cfg.DelayMax)
	}

	client := cfg.Client
	if client == nil {
		client = challenge.NewBrowserClient(challenge.DefaultProfile, 0)
	}

	store := cfg.Cache
	if store == nil {
		var err error
		store, err = cache.NewFileCache("")
		if err != nil {
			return nil, fmt.Errorf("create cache: %w", err)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Scraper{
		client:  client,
		cache:   store,
		limiter: newLimiter(cfg.DelayMin, cfg.DelayMax),
		logger:  logger,
	}, nil
}

// GetOptions adjust a single Get call. The zero value means: no query
// parameters, caching enabled, [DefaultMaxAge] freshness window.
type GetOptions struct {
	Params  url.Values    // query parameters appended to the URL
	NoCache bool          // bypass the cache entirely for this call
	MaxAge  time.Duration // cache freshness window; 0 selects DefaultMaxAge
}

// Get fetches a URL and returns the response body.
//
// When caching is enabled a fresh cached entry is returned immediately,
// with no rate limiting and no network call. Otherwise the call is rate
// limited, issued through the challenge client, and the body is cached
// on a 200 response.
//
// Failures are classified: a non-200 response returns a [*StatusError],
// a failed anti-bot check returns an error matching
// [challenge.ErrChallenge], and any other network or read failure
// matches [ErrTransport]. Every failure is also logged.
func (s *Scraper) Get(ctx context.Context, rawURL string, opts GetOptions) (string, error) {
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	useCache := !opts.NoCache

	if useCache {
		if body, ok := s.readCache(ctx, rawURL, maxAge); ok {
			s.logger.Info("cache hit", "url", rawURL)
			return body, nil
		}
	}

	if err := s.limiter.wait(ctx); err != nil {
		return "", err
	}

	s.logger.Info("request", "method", http.MethodGet, "url", rawURL)
	resp, err := s.client.Get(ctx, rawURL, opts.Params)
	if err != nil {
		return "", s.classify(rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Close()
		s.logger.Error("request failed", "url", rawURL, "status", resp.StatusCode)
		return "", &StatusError{Code: resp.StatusCode}
	}

	body, err := resp.Text()
	if err != nil {
		return "", s.classify(rawURL, err)
	}

	if useCache {
		s.writeCache(ctx, rawURL, body)
	}
	return body, nil
}

// Post sends a POST request and returns the response body on a 200
// response. It applies the same rate limiting and error classification
// as Get but never reads or writes the cache.
//
// When jsonBody is non-nil it is sent as a JSON document; otherwise
// form is sent URL-encoded.
func (s *Scraper) Post(ctx context.Context, rawURL string, form url.Values, jsonBody any) (string, error) {
	if err := s.limiter.wait(ctx); err != nil {
		return "", err
	}

	s.logger.Info("request", "method", http.MethodPost, "url", rawURL)
	resp, err := s.client.Post(ctx, rawURL, form, jsonBody)
	if err != nil {
		return "", s.classify(rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Close()
		s.logger.Error("request failed", "url", rawURL, "status", resp.StatusCode)
		return "", &StatusError{Code: resp.StatusCode}
	}

	body, err := resp.Text()
	if err != nil {
		return "", s.classify(rawURL, err)
	}
	return body, nil
}

// DownloadFile streams a URL to outputPath, creating parent directories
// as needed. The body is written in fixed-size chunks to a temporary
// file next to the destination and renamed into place on success, so a
// failed download never leaves a truncated file at outputPath.
//
// Downloads are rate limited and never cached. Errors follow the same
// classification as Get.
func (s *Scraper) DownloadFile(ctx context.Context, rawURL, outputPath string) error {
	if err := s.limiter.wait(ctx); err != nil {
		return err
	}

	s.logger.Info("download", "url", rawURL, "path", outputPath)
	resp, err := s.client.Get(ctx, rawURL, nil)
	if err != nil {
		return s.classify(rawURL, err)
	}
	defer resp.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("download failed", "url", rawURL, "status", resp.StatusCode)
		return &StatusError{Code: resp.StatusCode}
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return s.classify(rawURL, err)
		}
	}

	tmp := fmt.Sprintf("%s.%s.part", outputPath, uuid.NewString())
	f, err := os.Create(tmp)
	if err != nil {
		return s.classify(rawURL, err)
	}

	buf := make([]byte, downloadChunkSize)
	_, copyErr := io.CopyBuffer(f, resp.Body, buf)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(tmp)
		return s.classify(rawURL, copyErr)
	}

	if err := os.Rename(tmp, outputPath); err != nil {
		os.Remove(tmp)
		return s.classify(rawURL, err)
	}
	return nil
}

// CacheKey returns the cache key Get uses for a URL. Exposed for cache
// management tooling.
func CacheKey(rawURL string) string { return cache.Key(rawURL) }

// readCache returns the cached body for a URL if a fresh entry exists.
// Backend failures and malformed entries degrade to a miss; they are
// logged at debug level and never surfaced.
func (s *Scraper) readCache(ctx context.Context, rawURL string, maxAge time.Duration) (string, bool) {
	entry, hit, err := s.cache.Get(ctx, cache.Key(rawURL))
	if err != nil {
		s.logger.Debug("cache read failed, treating as miss", "url", rawURL, "err", err)
		return "", false
	}
	if !hit {
		return "", false
	}
	if entry.Age(time.Now()) >= maxAge {
		// Expired entries are ignored, not deleted; a later call with
		// a larger max age may still use them.
		s.logger.Debug("cache entry expired", "url", rawURL, "age", entry.Age(time.Now()))
		return "", false
	}
	return entry.Data, true
}

// writeCache stores a response body. Write failures are logged but do
// not fail the request that produced the body.
func (s *Scraper) writeCache(ctx context.Context, rawURL, body string) {
	entry := cache.Entry{
		Timestamp: time.Now(),
		URL:       rawURL,
		Data:      body,
	}
	if err := s.cache.Set(ctx, cache.Key(rawURL), entry); err != nil {
		s.logger.Error("cache write failed", "url", rawURL, "err", err)
	}
}

// classify logs a failure and maps it onto the error taxonomy.
func (s *Scraper) classify(rawURL string, err error) error {
	switch {
	case errors.Is(err, challenge.ErrChallenge):
		s.logger.Error("challenge failed", "url", rawURL, "err", err)
		return err
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		s.logger.Error("request cancelled", "url", rawURL, "err", err)
		return err
	default:
		s.logger.Error("transport failure", "url", rawURL, "err", err)
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
}
