package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/techtree/internal/server"
	"github.com/matzehuels/techtree/pkg/cache"
	"github.com/matzehuels/techtree/pkg/observability"
	"github.com/matzehuels/techtree/pkg/pipeline"
	"github.com/matzehuels/techtree/pkg/save"
)

// redisKeyPrefix namespaces the keys the server writes to Redis.
const redisKeyPrefix = appName + ":"

// serveOpts holds the flags of the serve command.
type serveOpts struct {
	addr     string
	watch    bool
	redisURL string
	noCache  bool
	noSaves  bool
	metrics  bool
	store    storeFlags
}

// serveCommand creates the serve command for running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: server.DefaultAddr, metrics: true}

	cmd := &cobra.Command{
		Use:   "serve [techs.toml]",
		Short: "Serve the layout, render and save API over HTTP",
		Long: `Serve the layout, render and save API over HTTP.

Layouts and renders are cached on disk, or in Redis with --redis. With
--watch the tech table is reloaded whenever the file changes; a table that
fails to load is logged and the previous one keeps serving.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), sourceArg(args), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload the tech table when it changes")
	cmd.Flags().StringVar(&opts.redisURL, "redis", "", "Redis URL for the render cache (default: file cache)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.noSaves, "no-saves", false, "disable the save API")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", opts.metrics, "expose Prometheus metrics at /metrics")
	opts.store.register(cmd.Flags())

	return cmd
}

func (c *CLI) runServe(ctx context.Context, source string, opts serveOpts) error {
	if opts.watch && source == "" {
		return fmt.Errorf("--watch needs a tech table file")
	}

	cfg := server.Config{
		Addr:   opts.addr,
		Source: source,
		Watch:  opts.watch,
		Logger: c.Logger,
	}

	if opts.metrics {
		prom, err := observability.NewPrometheus(nil)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		observability.SetPipelineHooks(prom)
		observability.SetCacheHooks(prom)
		observability.SetHTTPHooks(prom)
		defer observability.Reset()
		cfg.Metrics = prom.Handler()
	}

	runner, err := c.serverRunner(ctx, opts)
	if err != nil {
		return err
	}
	defer runner.Close()
	cfg.Runner = runner

	if !opts.noSaves {
		t, lopts, err := c.loadTable(ctx, source)
		if err != nil {
			return err
		}
		st, err := c.openStore(ctx, opts.store, lopts.LayoutConfig(t).Pinned)
		if err != nil {
			return err
		}
		defer st.Close()
		cfg.Store = st
	}

	srv, err := server.New(ctx, cfg)
	if err != nil {
		return err
	}

	c.success("Serving %s", sourceName(source))
	c.field("Address", StyleLink.Render("http://"+opts.addr))
	c.field("Saves", storeName(cfg.Store, opts.store))
	if cfg.Metrics != nil {
		c.field("Metrics", "http://"+opts.addr+"/metrics")
	}

	return srv.ListenAndServe(ctx)
}

// serverRunner builds the pipeline runner for the server: Redis when a URL is
// given, otherwise the CLI's file cache.
func (c *CLI) serverRunner(ctx context.Context, opts serveOpts) (*pipeline.Runner, error) {
	if opts.redisURL == "" || opts.noCache {
		return c.newRunner(opts.noCache)
	}
	rc, err := cache.NewRedisCache(ctx, opts.redisURL, redisKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return pipeline.NewRunner(cache.Instrument(rc), nil, c.Logger), nil
}

func storeName(st save.Store, f storeFlags) string {
	switch {
	case st == nil:
		return "disabled"
	case f.mongoURI != "":
		return "mongodb/" + f.mongoDB
	case f.db != "":
		return f.db
	default:
		return "sqlite"
	}
}
