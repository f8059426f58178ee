package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lukashaas/scrapekit/pkg/scraper"
)

// parsePairs converts repeated "key=value" flags into url.Values.
func parsePairs(pairs []string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	values := url.Values{}
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		values.Add(key, value)
	}
	return values, nil
}

// newGetCmd creates the get command.
func newGetCmd(configPath *string) *cobra.Command {
	var (
		params  []string
		noCache bool
		maxAge  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "get URL",
		Short: "Fetch a URL and print the response body",
		Long: `Fetch a URL through the challenge-capable client and print the body to stdout.

Responses are cached on disk; a second fetch of the same URL within the
freshness window is served from cache without a network call.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			values, err := parsePairs(params)
			if err != nil {
				return fmt.Errorf("--param: %w", err)
			}

			s, backend, cfg, err := newScraper(ctx, *configPath)
			if err != nil {
				return err
			}
			defer backend.Close()

			if maxAge == 0 {
				maxAge = cfg.Cache.MaxAge.Duration
			}

			body, err := s.Get(ctx, args[0], scraper.GetOptions{
				Params:  values,
				NoCache: noCache,
				MaxAge:  maxAge,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), body)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "cache freshness window (default from config)")

	return cmd
}

// newPostCmd creates the post command.
func newPostCmd(configPath *string) *cobra.Command {
	var (
		form     []string
		jsonBody string
	)

	cmd := &cobra.Command{
		Use:   "post URL",
		Short: "Send a POST request and print the response body",
		Long: `Send a POST request through the challenge-capable client.

Use --form for URL-encoded form fields or --json for a raw JSON body.
POST responses are never cached.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			values, err := parsePairs(form)
			if err != nil {
				return fmt.Errorf("--form: %w", err)
			}

			var payload any
			if jsonBody != "" {
				if err := json.Unmarshal([]byte(jsonBody), &payload); err != nil {
					return fmt.Errorf("--json: %w", err)
				}
			}

			s, backend, _, err := newScraper(ctx, *configPath)
			if err != nil {
				return err
			}
			defer backend.Close()

			body, err := s.Post(ctx, args[0], values, payload)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), body)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&form, "form", nil, "form field as key=value (repeatable)")
	cmd.Flags().StringVar(&jsonBody, "json", "", "JSON request body")

	return cmd
}
