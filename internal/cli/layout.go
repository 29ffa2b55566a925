package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/techtree/pkg/layout"
	"github.com/matzehuels/techtree/pkg/pipeline"
)

// layoutCommand creates the layout command for computing the tech grid.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
	)
	opts := pipeline.Options{}
	setCLIDefaults(&opts)

	cmd := &cobra.Command{
		Use:   "layout [techs.toml]",
		Short: "Compute the tech grid layout",
		Long: `Compute the tech grid layout.

The layout command loads a tech table (TOML, YAML or JSON; the built-in table
when no file is given), assigns every tech a column and row, and writes the
slots, pixel positions and connectors as JSON.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Source = sourceArg(args)
			return c.runLayout(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute even when cached")
	cmd.Flags().Float64Var(&opts.Width, "width", opts.Width, "viewport width")
	cmd.Flags().Float64Var(&opts.Height, "height", opts.Height, "viewport height")

	return cmd
}

// runLayout loads the table, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger
	if err := opts.ValidateForLayout(); err != nil {
		return err
	}

	st := startStage(loggerFromContext(ctx), "layout")
	sp := startSpinner(ctx, c.status, "Loading "+sourceName(opts.Source)+"...")
	defer sp.finish()

	t, err := runner.Load(ctx, opts)
	if err != nil {
		return err
	}

	sp.update(fmt.Sprintf("Laying out %d techs...", t.Len()))
	res, cacheHit, err := runner.LayoutWithCacheInfo(ctx, t, opts)
	if err != nil {
		return fmt.Errorf("compute layout: %w", err)
	}
	sp.finish()

	if sp.cancelled() {
		return ctx.Err()
	}
	st.done("Computed layout", "techs", t.Len(), "columns", res.Columns(), "cached", cacheHit)

	outputPath := layoutOutputPath(output, opts.Source)
	if err := layout.WriteDocumentFile(layout.Export(t, res), outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	c.success("Layout complete")
	c.file(outputPath)
	c.stats(t.Len(), len(t.Edges()), res.Columns(), cacheHit)
	if len(res.Overlaps) > 0 {
		c.warn("%d techs share a cell: %s", len(res.Overlaps), strings.Join(res.Overlaps, ", "))
	}
	c.nextStep("Render", appName+" render "+opts.Source)

	return nil
}

// layoutOutputPath derives the layout file name from the source table.
func layoutOutputPath(output, source string) string {
	if output != "" {
		return output
	}
	if source == "" {
		return pipeline.BuiltinSource + ".layout.json"
	}
	return strings.TrimSuffix(source, filepath.Ext(source)) + ".layout.json"
}
