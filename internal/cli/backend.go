package cli

import (
	"context"
	"fmt"

	"github.com/lukashaas/scrapekit/pkg/cache"
	"github.com/lukashaas/scrapekit/pkg/challenge"
	"github.com/lukashaas/scrapekit/pkg/config"
	"github.com/lukashaas/scrapekit/pkg/scraper"
)

// newCacheBackend constructs the cache backend selected in cfg.
func newCacheBackend(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "file", "":
		return cache.NewFileCache(cfg.Cache.Dir)
	case "redis":
		return cache.NewRedisCache(ctx, cfg.Cache.Redis.Addr, "scrapekit:")
	case "mongo":
		return cache.NewMongoCache(ctx, cfg.Cache.Mongo.URI, cfg.Cache.Mongo.Database, cfg.Cache.Mongo.Collection)
	case "none":
		return cache.NewNullCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// newScraper loads the configuration and assembles a scraper with the
// configured cache backend, browser profile, and delay range. The
// returned cache must be closed by the caller.
func newScraper(ctx context.Context, configPath string) (*scraper.Scraper, cache.Cache, config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, config.Config{}, err
	}

	backend, err := newCacheBackend(ctx, cfg)
	if err != nil {
		return nil, nil, config.Config{}, fmt.Errorf("init cache backend: %w", err)
	}

	client := challenge.NewBrowserClient(challenge.Profile{
		Browser:  cfg.Client.Browser,
		Platform: cfg.Client.Platform,
	}, cfg.Client.Timeout.Duration)

	s, err := scraper.New(scraper.Config{
		Client:   client,
		Cache:    backend,
		DelayMin: cfg.DelayMin(),
		DelayMax: cfg.DelayMax(),
		Logger:   loggerFromContext(ctx),
	})
	if err != nil {
		backend.Close()
		return nil, nil, config.Config{}, err
	}
	return s, backend, cfg, nil
}
