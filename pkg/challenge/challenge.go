// Package challenge defines the contract for HTTP clients that can get
// past basic anti-automation checks, and a default implementation that
// impersonates a desktop browser.
//
// The scraper in pkg/scraper orchestrates requests through the [Client]
// interface and treats solving (or failing) a challenge as the client's
// concern. The [BrowserClient] shipped here does not solve interactive
// challenges; it presents browser-like headers and a cookie jar, which
// clears the simplest checks, and reports [ErrChallenge] when a server
// answers with a recognizable challenge interstitial instead of content.
// Deployments that need a real solver can plug in any implementation of
// [Client], for example one backed by a commercial solving API.
package challenge

import (
	"context"
	"errors"
	"io"
	"net/url"
)

// ErrChallenge reports that the server interposed an anti-bot challenge
// the client could not pass. Check for it with errors.Is.
var ErrChallenge = errors.New("anti-bot challenge not passed")

// Client issues HTTP requests through whatever challenge handling it
// implements. Implementations must be safe for sequential reuse; the
// scraper never calls them concurrently.
type Client interface {
	// Get issues a GET request with optional query parameters.
	Get(ctx context.Context, rawURL string, params url.Values) (*Response, error)

	// Post issues a POST request. Exactly one of form and jsonBody is
	// normally set; when jsonBody is non-nil it is sent as a JSON
	// document and form is ignored.
	Post(ctx context.Context, rawURL string, form url.Values, jsonBody any) (*Response, error)
}

// Response is a minimal view of an HTTP response: the status code and
// the body stream. The body must be closed by the consumer.
type Response struct {
	StatusCode int
	Body       io.ReadCloser
}

// Text drains and closes the body, returning it as a string.
func (r *Response) Text() (string, error) {
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	return string(data), err
}

// Close closes the body without reading it.
func (r *Response) Close() error { return r.Body.Close() }
