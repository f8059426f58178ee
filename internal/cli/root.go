package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// Typically called by the main package with values injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the scrapekit CLI and returns an error if any command
// fails.
//
// The root command wires up the get, post, download, and cache
// subcommands, configures logging from the --verbose flag, and reads
// the configuration file given by --config (or the default location).
func Execute(ctx context.Context) error {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "scrapekit",
		Short:        "Rate-limited, cached scraping through a challenge-capable HTTP client",
		Long:         `scrapekit issues GET/POST requests and file downloads through an HTTP client that impersonates a desktop browser, spacing requests with a random delay and caching GET responses with time-based expiry.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("scrapekit %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.config/scrapekit/config.toml)")

	root.AddCommand(newGetCmd(&configPath))
	root.AddCommand(newPostCmd(&configPath))
	root.AddCommand(newDownloadCmd(&configPath))
	root.AddCommand(newCacheCmd(&configPath))

	return root.ExecuteContext(ctx)
}
