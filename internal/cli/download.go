package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newDownloadCmd creates the download command.
func newDownloadCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "download URL OUTPUT",
		Short: "Download a file to disk",
		Long: `Stream a URL to a local file through the challenge-capable client.

Parent directories of OUTPUT are created as needed. Downloads are rate
limited like every other request but never cached.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rawURL, output := args[0], args[1]

			s, backend, _, err := newScraper(ctx, *configPath)
			if err != nil {
				return err
			}
			defer backend.Close()

			spin := newSpinner(ctx, fmt.Sprintf("Downloading %s", rawURL))
			spin.Start()
			err = s.DownloadFile(ctx, rawURL, output)
			spin.Stop()

			if err != nil {
				printError("Download failed")
				return err
			}
			printSuccess("Downloaded %s", rawURL)
			printDetail("Saved to %s", output)
			return nil
		},
	}
}
