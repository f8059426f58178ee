package scraper

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lukashaas/scrapekit/pkg/cache"
	"github.com/lukashaas/scrapekit/pkg/challenge"
)

// testScraper builds a scraper with a file cache in a temp dir, no
// delay, and the default browser client.
func testScraper(t *testing.T) (*Scraper, *cache.FileCache) {
	t.Helper()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	s, err := New(Config{Cache: fc})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, fc
}

func TestGetCachesSecondCall(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, "hello")
	}))
	defer server.Close()

	s, _ := testScraper(t)
	ctx := context.Background()
	u := server.URL + "/a"

	body, err := s.Get(ctx, u, GetOptions{})
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if body != "hello" {
		t.Errorf("unexpected body %q", body)
	}

	body, err = s.Get(ctx, u, GetOptions{})
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if body != "hello" {
		t.Errorf("unexpected cached body %q", body)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected 1 network call, got %d", got)
	}
}

func TestGetExpiredEntryRefetches(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, "fresh")
	}))
	defer server.Close()

	s, fc := testScraper(t)
	ctx := context.Background()
	u := server.URL + "/page"

	// Plant an entry older than the freshness window.
	stale := cache.Entry{
		Timestamp: time.Now().Add(-2 * time.Hour),
		URL:       u,
		Data:      "stale",
	}
	if err := fc.Set(ctx, cache.Key(u), stale); err != nil {
		t.Fatal(err)
	}

	body, err := s.Get(ctx, u, GetOptions{MaxAge: time.Hour})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if body != "fresh" {
		t.Errorf("expected refetched body, got %q", body)
	}
	if hits.Load() != 1 {
		t.Errorf("expected a network call for the expired entry, got %d", hits.Load())
	}

	// The expired entry was overwritten, not just ignored.
	entry, hit, err := fc.Get(ctx, cache.Key(u))
	if err != nil || !hit {
		t.Fatalf("expected refreshed entry, hit=%v err=%v", hit, err)
	}
	if entry.Data != "fresh" {
		t.Errorf("expected refreshed data, got %q", entry.Data)
	}
}

func TestGetNoCache(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, "body")
	}))
	defer server.Close()

	s, fc := testScraper(t)
	ctx := context.Background()
	u := server.URL + "/nocache"

	for range 2 {
		if _, err := s.Get(ctx, u, GetOptions{NoCache: true}); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if hits.Load() != 2 {
		t.Errorf("NoCache should issue a network call each time, got %d", hits.Load())
	}
	if _, hit, _ := fc.Get(ctx, cache.Key(u)); hit {
		t.Error("NoCache should not write a cache entry")
	}
}

func TestGetNon200IsStatusErrorAndNotCached(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, "denied")
	}))
	defer server.Close()

	s, fc := testScraper(t)
	ctx := context.Background()
	u := server.URL + "/secret"

	_, err := s.Get(ctx, u, GetOptions{})
	if !IsStatus(err, http.StatusForbidden) {
		t.Fatalf("expected StatusError 403, got %v", err)
	}
	if _, hit, _ := fc.Get(ctx, cache.Key(u)); hit {
		t.Error("non-200 response must not be cached")
	}
}

func TestGetQueryParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, r.URL.Query().Get("page"))
	}))
	defer server.Close()

	s, _ := testScraper(t)
	body, err := s.Get(context.Background(), server.URL, GetOptions{
		Params: url.Values{"page": {"7"}},
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if body != "7" {
		t.Errorf("params not forwarded, body %q", body)
	}
}

func TestGetCorruptCacheEntryFallsThrough(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, "recovered")
	}))
	defer server.Close()

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(Config{Cache: fc})
	if err != nil {
		t.Fatal(err)
	}

	u := server.URL + "/x"
	path := filepath.Join(fc.Dir(), cache.Key(u)+".json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	body, err := s.Get(context.Background(), u, GetOptions{})
	if err != nil {
		t.Fatalf("corrupt entry must degrade to a miss: %v", err)
	}
	if body != "recovered" || hits.Load() != 1 {
		t.Errorf("expected network fetch after corrupt entry, body=%q hits=%d", body, hits.Load())
	}
}

// recordingCache fails the test if the scraper touches it.
type recordingCache struct {
	cache.NullCache
	t *testing.T
}

func (c *recordingCache) Get(ctx context.Context, key string) (cache.Entry, bool, error) {
	c.t.Errorf("unexpected cache read for key %s", key)
	return cache.Entry{}, false, nil
}

func (c *recordingCache) Set(ctx context.Context, key string, entry cache.Entry) error {
	c.t.Errorf("unexpected cache write for key %s", key)
	return nil
}

func TestPostNeverTouchesCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		io.WriteString(w, "posted")
	}))
	defer server.Close()

	s, err := New(Config{Cache: &recordingCache{t: t}})
	if err != nil {
		t.Fatal(err)
	}

	body, err := s.Post(context.Background(), server.URL, url.Values{"k": {"v"}}, nil)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if body != "posted" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestPostNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s, _ := testScraper(t)
	_, err := s.Post(context.Background(), server.URL, nil, map[string]string{"a": "b"})
	if !IsStatus(err, http.StatusBadGateway) {
		t.Fatalf("expected StatusError 502, got %v", err)
	}
}

func TestDownloadFile(t *testing.T) {
	payload := make([]byte, 20000)
	if _, err := rand.Read(payload); err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	s, _ := testScraper(t)
	out := filepath.Join(t.TempDir(), "out", "sub", "file.bin")

	if err := s.DownloadFile(context.Background(), server.URL+"/file.bin", out); err != nil {
		t.Fatalf("DownloadFile: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("downloaded file differs from response body (%d vs %d bytes)", len(got), len(payload))
	}

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(out))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the downloaded file, found %d entries", len(entries))
	}
}

func TestDownloadFileNon200(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	s, _ := testScraper(t)
	out := filepath.Join(t.TempDir(), "missing.bin")

	err := s.DownloadFile(context.Background(), server.URL, out)
	if !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected StatusError 404, got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no file should exist at the output path after a failed download")
	}
}

// errClient returns a fixed error from every request.
type errClient struct{ err error }

func (c *errClient) Get(ctx context.Context, rawURL string, params url.Values) (*challenge.Response, error) {
	return nil, c.err
}

func (c *errClient) Post(ctx context.Context, rawURL string, form url.Values, jsonBody any) (*challenge.Response, error) {
	return nil, c.err
}

func TestChallengeErrorPropagates(t *testing.T) {
	s, err := New(Config{
		Client: &errClient{err: challenge.ErrChallenge},
		Cache:  cache.NewNullCache(),
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Get(context.Background(), "https://example.com", GetOptions{})
	if !errors.Is(err, challenge.ErrChallenge) {
		t.Fatalf("expected challenge error, got %v", err)
	}
}

func TestTransportErrorWrapped(t *testing.T) {
	s, err := New(Config{
		Client: &errClient{err: errors.New("connection reset")},
		Cache:  cache.NewNullCache(),
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Get(context.Background(), "https://example.com", GetOptions{})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}

	err = s.DownloadFile(context.Background(), "https://example.com/f", filepath.Join(t.TempDir(), "f"))
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport from download, got %v", err)
	}
}

func TestNewValidatesDelayRange(t *testing.T) {
	if _, err := New(Config{DelayMin: 2 * time.Second, DelayMax: time.Second}); err == nil {
		t.Error("min > max should be rejected")
	}
	if _, err := New(Config{DelayMin: -time.Second}); err == nil {
		t.Error("negative min should be rejected")
	}
	if _, err := New(Config{Cache: cache.NewNullCache()}); err != nil {
		t.Errorf("zero delay range should be valid: %v", err)
	}
}
