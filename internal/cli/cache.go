package cli

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/techtree/pkg/cache"
)

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the layout and render cache",
		Long: `Manage the file cache the CLI keeps layouts and rendered artifacts in.

Entries expire after a day. The cache lives under
$XDG_CACHE_HOME/` + appName + `; --no-cache on layout and render bypasses it.`,
	}
	cmd.AddCommand(
		c.cacheRunCommand("clear", "Remove all cached layouts and renders", (*cache.FileCache).Clear, "Cleared %d cached entries"),
		c.cacheRunCommand("prune", "Remove expired and unreadable entries", (*cache.FileCache).Prune, "Pruned %d entries"),
		c.cacheStatsCommand(),
		c.cachePathCommand(),
	)
	return cmd
}

func openFileCache() (*cache.FileCache, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, fmt.Errorf("get cache dir: %w", err)
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return fc, nil
}

// cacheRunCommand builds a subcommand that removes entries with remove and
// reports the count.
func (c *CLI) cacheRunCommand(use, short string, remove func(*cache.FileCache) (int, error), done string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := openFileCache()
			if err != nil {
				return err
			}
			n, err := remove(fc)
			if err != nil {
				return fmt.Errorf("%s cache: %w", use, err)
			}
			if n == 0 {
				c.info("Nothing to remove")
				return nil
			}
			c.success(done, n)
			c.detail("Directory: %s", fc.Dir())
			return nil
		},
	}
}

func (c *CLI) cacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and expired entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := openFileCache()
			if err != nil {
				return err
			}
			st, err := fc.Stats()
			if err != nil {
				return fmt.Errorf("read cache: %w", err)
			}
			c.field("Directory", fc.Dir())
			c.field("Entries  ", strconv.Itoa(st.Entries))
			c.field("Size     ", humanize.Bytes(uint64(st.Bytes)))
			c.field("Expired  ", strconv.Itoa(st.Expired))
			if st.Expired > 0 {
				c.nextStep("Remove expired entries", appName+" cache prune")
			}
			return nil
		},
	}
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
