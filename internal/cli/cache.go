package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lukashaas/scrapekit/pkg/config"
)

// newCacheCmd creates the cache management command.
func newCacheCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}

	cmd.AddCommand(newCacheClearCmd(configPath))
	cmd.AddCommand(newCachePathCmd(configPath))

	return cmd
}

// newCacheClearCmd creates the "cache clear" subcommand. It operates on
// the file backend's directory; server-backed caches (redis, mongo) are
// cleared with their own tooling.
func newCacheClearCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			dir := cfg.Cache.Dir

			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				return fmt.Errorf("read cache dir: %w", err)
			}

			count := 0
			for _, entry := range entries {
				if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
					continue
				}
				if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
					count++
				}
			}

			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// newCachePathCmd creates the "cache path" subcommand.
func newCachePathCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Cache.Dir)
			return nil
		},
	}
}
