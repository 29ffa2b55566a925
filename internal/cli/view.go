package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/techtree/pkg/research"
)

// viewCommand creates the interactive terminal viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		saveID string
		store  storeFlags
	)

	cmd := &cobra.Command{
		Use:   "view [techs.toml]",
		Short: "Browse the tech tree in the terminal",
		Long: `Browse the tech tree in the terminal.

Scroll with the arrow keys, the mouse wheel or by dragging; click or tab to
select a tech. With --save, research progress is loaded from that save and
'r' (research) and 'u' (unlock) write back to it. Without a save the viewer
starts from the default unlocked techs and forgets changes on exit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runView(cmd.Context(), sourceArg(args), saveID, store)
		},
	}

	cmd.Flags().StringVar(&saveID, "save", "", "load and update research progress in this save")
	store.register(cmd.Flags())
	_ = cmd.RegisterFlagCompletionFunc("save", c.completeSaveIDs(&store))

	return cmd
}

func (c *CLI) runView(ctx context.Context, source, saveID string, flags storeFlags) error {
	t, opts, err := c.loadTable(ctx, source)
	if err != nil {
		return err
	}
	cfg := opts.LayoutConfig(t)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("layout settings: %w", err)
	}

	state := research.Default(cfg.Pinned)
	var persist func(research.State) error
	if saveID != "" {
		st, err := c.openStore(ctx, flags, cfg.Pinned)
		if err != nil {
			return err
		}
		defer st.Close()

		sv, err := st.Load(ctx, saveID)
		if err != nil {
			return err
		}
		pruned, dropped := sv.Research.Prune(t)
		if dropped > 0 {
			loggerFromContext(ctx).Warn("Dropped unknown techs from save", "save", sv.ID, "count", dropped)
		}
		state = pruned
		persist = func(next research.State) error {
			_, err := st.UpdateResearch(ctx, sv.ID, next)
			return err
		}
	}

	m := newViewModel(t, cfg, state, persist)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
