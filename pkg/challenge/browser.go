package challenge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Profile selects which browser a [BrowserClient] impersonates.
type Profile struct {
	Browser  string // "chrome" or "firefox"
	Platform string // "windows", "macos", or "linux"
}

// DefaultProfile is Chrome on Windows, the most common desktop
// combination and the least likely to stand out.
var DefaultProfile = Profile{Browser: "chrome", Platform: "windows"}

const defaultTimeout = 30 * time.Second

var userAgents = map[Profile]string{
	{"chrome", "windows"}: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	{"chrome", "macos"}:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	{"chrome", "linux"}:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	{"firefox", "windows"}: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	{"firefox", "macos"}:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:125.0) Gecko/20100101 Firefox/125.0",
	{"firefox", "linux"}:   "Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

// challengeMarkers are substrings that identify well-known challenge
// interstitials in a 403/503 response body.
var challengeMarkers = []string{
	"cf-browser-verification",
	"cf_chl_opt",
	"_cf_chl_opt",
	"challenge-platform",
	"Checking your browser before accessing",
	"Just a moment...",
	"DDoS protection by",
}

// BrowserClient is a [Client] over net/http that presents desktop
// browser headers and keeps cookies across requests. It recognizes
// challenge interstitials and reports them as [ErrChallenge]; it does
// not attempt to solve them.
type BrowserClient struct {
	http      *http.Client
	userAgent string
}

// NewBrowserClient creates a client impersonating the given profile.
// A zero timeout selects the 30 second default. Unknown profiles fall
// back to [DefaultProfile].
func NewBrowserClient(profile Profile, timeout time.Duration) *BrowserClient {
	ua, ok := userAgents[normalize(profile)]
	if !ok {
		ua = userAgents[DefaultProfile]
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	jar, _ := cookiejar.New(nil)
	return &BrowserClient{
		http:      &http.Client{Timeout: timeout, Jar: jar},
		userAgent: ua,
	}
}

func normalize(p Profile) Profile {
	return Profile{
		Browser:  strings.ToLower(strings.TrimSpace(p.Browser)),
		Platform: strings.ToLower(strings.TrimSpace(p.Platform)),
	}
}

// Get implements [Client].
func (c *BrowserClient) Get(ctx context.Context, rawURL string, params url.Values) (*Response, error) {
	if len(params) > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parse url: %w", err)
		}
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		rawURL = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// Post implements [Client].
func (c *BrowserClient) Post(ctx context.Context, rawURL string, form url.Values, jsonBody any) (*Response, error) {
	var body io.Reader
	contentType := ""
	switch {
	case jsonBody != nil:
		data, err := json.Marshal(jsonBody)
		if err != nil {
			return nil, fmt.Errorf("encode json body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	case len(form) > 0:
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.do(req)
}

func (c *BrowserClient) do(req *http.Request) (*Response, error) {
	c.setBrowserHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if detectChallenge(resp) {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: status %d from %s", ErrChallenge, resp.StatusCode, req.URL.Host)
		}
	}
	return &Response{StatusCode: resp.StatusCode, Body: resp.Body}, nil
}

func (c *BrowserClient) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
}

// detectChallenge sniffs the start of the body for interstitial markers.
// It replaces resp.Body with a reader that replays the sniffed prefix,
// so callers can still consume the full body on a false alarm.
func detectChallenge(resp *http.Response) bool {
	prefix := make([]byte, 8192)
	n, _ := io.ReadFull(resp.Body, prefix)
	prefix = prefix[:n]

	rest := resp.Body
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(prefix), rest), rest}

	head := string(prefix)
	for _, marker := range challengeMarkers {
		if strings.Contains(head, marker) {
			return true
		}
	}
	return false
}

var _ Client = (*BrowserClient)(nil)
