package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/techtree/pkg/pipeline"
	"github.com/matzehuels/techtree/pkg/render"
)

// renderCommand creates the render command for drawing the tech tree.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output     string
		formatsStr string
		noCache    bool
		saveID     string
		store      storeFlags
	)
	opts := pipeline.Options{}
	setCLIDefaults(&opts)

	cmd := &cobra.Command{
		Use:   "render [techs.toml]",
		Short: "Render the tech tree to SVG, PNG, DOT or Graphviz",
		Long: `Render the tech tree.

Without --viewport the whole scrollable content is drawn; with it a single
viewport-sized frame at --offset is drawn together with its scrollbar.
Passing --save draws research progress from that save: techs whose
requirements are not unlocked are dimmed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Source = sourceArg(args)
			opts.Formats = parseFormats(formatsStr)
			if err := opts.ValidateForRender(); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), opts, output, noCache, saveID, store)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): "+formatList()+" (comma-separated)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute even when cached")
	cmd.Flags().Float64Var(&opts.Width, "width", opts.Width, "viewport width")
	cmd.Flags().Float64Var(&opts.Height, "height", opts.Height, "viewport height")
	cmd.Flags().BoolVar(&opts.Viewport, "viewport", false, "draw a single viewport frame with scrollbar")
	cmd.Flags().Float64Var(&opts.Offset, "offset", 0, "horizontal scroll offset (with --viewport)")
	cmd.Flags().Float64Var(&opts.Scale, "scale", opts.Scale, "PNG pixel scale")
	cmd.Flags().StringVar(&saveID, "save", "", "draw research progress from this save")
	store.register(cmd.Flags())
	_ = cmd.RegisterFlagCompletionFunc("save", c.completeSaveIDs(&store))

	return cmd
}

// runRender executes the pipeline and writes one file per format.
func (c *CLI) runRender(ctx context.Context, opts pipeline.Options, output string, noCache bool, saveID string, flags storeFlags) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger

	if saveID != "" {
		st, err := c.openStore(ctx, flags, nil)
		if err != nil {
			return err
		}
		sv, err := st.Load(ctx, saveID)
		st.Close()
		if err != nil {
			return err
		}
		opts.Research = &sv.Research
		c.Logger.Debug("Loaded save", "id", sv.ID, "name", sv.Name, "unlocked", len(sv.Research.Unlocked))
	}

	sp := startSpinner(ctx, c.status, "Rendering "+strings.Join(opts.Formats, ", ")+"...")
	result, err := runner.Execute(ctx, opts)
	sp.finish()
	if err != nil {
		c.fail("Render of %s failed", sourceName(opts.Source))
		return err
	}

	base := renderBasePath(output, opts.Source)
	var paths []string
	for _, name := range opts.Formats {
		f, _ := render.ParseFormat(name)
		path := base + f.Ext()
		if len(opts.Formats) == 1 && output != "" {
			path = output
		}
		if err := os.WriteFile(path, result.Artifacts[string(f)], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	c.success("Rendered %s", sourceName(opts.Source))
	for _, p := range paths {
		c.file(p)
	}
	c.stats(result.Stats.TechCount, result.Stats.EdgeCount, result.Stats.Columns,
		result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit)
	return nil
}

// renderBasePath derives the base output path, without extension, from the
// output flag and the source table. Known format extensions are stripped
// from output.
func renderBasePath(output, source string) string {
	if output == "" {
		if source == "" {
			return pipeline.BuiltinSource
		}
		return strings.TrimSuffix(source, filepath.Ext(source))
	}
	// Longest extensions first so ".gv.svg" wins over ".svg".
	exts := make([]string, len(render.Formats))
	for i, f := range render.Formats {
		exts[i] = f.Ext()
	}
	slices.SortFunc(exts, func(a, b string) int { return len(b) - len(a) })
	for _, ext := range exts {
		if strings.HasSuffix(output, ext) {
			return strings.TrimSuffix(output, ext)
		}
	}
	return output
}

func formatList() string {
	names := make([]string, len(render.Formats))
	for i, f := range render.Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
