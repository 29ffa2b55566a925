package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/techtree/pkg/errors"
	"github.com/matzehuels/techtree/pkg/pipeline"
	"github.com/matzehuels/techtree/pkg/techdata"
)

// validateCommand creates the validate command for checking a tech table.
func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [techs.toml]",
		Short: "Check a tech table for unknown requirements and cycles",
		Long: `Check a tech table for unknown requirements and cycles.

Layout never fails on these: unknown requirements are ignored and cyclic techs
are placed in declaration order. This command reports them so the table can
be fixed. It exits non-zero when anything is found.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), sourceArg(args))
		},
	}
}

func (c *CLI) runValidate(ctx context.Context, source string) error {
	st := startStage(loggerFromContext(ctx), "validation")

	runner := pipeline.NewRunner(nil, nil, c.Logger)
	t, report, err := runner.LoadWithReport(ctx, pipeline.Options{Source: source})
	if err != nil {
		return err
	}
	st.done("Validated tech table", "source", sourceName(source), "techs", t.Len(), "problems", len(report.Unknown)+len(report.Cycles))

	c.printReport(sourceName(source), report)
	if !report.OK() {
		return errors.Wrap(errors.ErrCodeInvalidTechTable, report.Err(), "%s has %d problem(s)", sourceName(source), len(report.Unknown)+len(report.Cycles))
	}
	return nil
}

func (c *CLI) printReport(name string, report *techdata.Report) {
	if report.OK() {
		c.success("%s is a valid tech tree", name)
		return
	}
	for _, u := range report.Unknown {
		c.warn("%s requires unknown tech %s", u.Tech, u.Requires)
	}
	for _, cycle := range report.Cycles {
		c.fail("cycle: %s", strings.Join(cycle, " -> "))
	}
}
