package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/techtree/pkg/buildinfo"
	"github.com/matzehuels/techtree/pkg/cache"
	"github.com/matzehuels/techtree/pkg/pipeline"
)

const (
	appName = "techtree"

	// saveDBName is the SQLite file saves are kept in under the data directory.
	saveDBName = "saves.db"

	// envMongoURI selects the MongoDB save store when set.
	envMongoURI = "TECHTREE_MONGO_URI"
)

// Log levels for New.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands. Logs go to the logger's writer;
// command results go to out and transient progress to status, both following
// the running command's writers.
type CLI struct {
	Logger *log.Logger
	out    io.Writer
	status io.Writer
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), out: os.Stdout, status: os.Stderr}
}

// SetLogLevel changes the level of c.Logger.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand returns the techtree command tree. --verbose switches the
// logger to debug before any subcommand runs.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:          appName,
		Short:        "Techtree lays out and renders research trees",
		Long:         `Techtree arranges a research tree into a scrollable grid of columns and rows, renders it to SVG, PNG or Graphviz, tracks research progress in saves, and serves it all over HTTP.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(commandContext(cmd), c.Logger))
			c.out = cmd.OutOrStdout()
			c.status = cmd.ErrOrStderr()
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.saveCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newRunner returns a runner backed by the file cache, or by no cache when
// noCache is set or the cache directory cannot be resolved.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cache, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return cache.Instrument(fc), nil
}

// cacheDir is $XDG_CACHE_HOME/techtree, default ~/.cache/techtree.
func cacheDir() (string, error) { return xdgDir("XDG_CACHE_HOME", ".cache") }

// dataDir is $XDG_DATA_HOME/techtree, default ~/.local/share/techtree. It
// holds the SQLite save database.
func dataDir() (string, error) { return xdgDir("XDG_DATA_HOME", ".local", "share") }

// xdgDir resolves appName under the base directory named by env, falling
// back to fallback joined under the home directory.
func xdgDir(env string, fallback ...string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...), nil
}

// setCLIDefaults resolves layout and render defaults before flags are
// echoed back to the user.
func setCLIDefaults(opts *pipeline.Options) {
	opts.SetLayoutDefaults()
	opts.SetRenderDefaults()
}

// parseFormats splits a --format value such as "svg,png".
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.DefaultFormat}
	}
	var formats []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, f)
		}
	}
	return formats
}

// sourceArg returns the optional tech table argument, empty for the
// built-in table.
func sourceArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// sourceName names a source for display.
func sourceName(source string) string {
	if source == "" {
		return pipeline.BuiltinSource
	}
	return source
}
