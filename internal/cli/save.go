package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/techtree/pkg/layout"
	"github.com/matzehuels/techtree/pkg/pipeline"
	"github.com/matzehuels/techtree/pkg/research"
	"github.com/matzehuels/techtree/pkg/save"
	"github.com/matzehuels/techtree/pkg/techdata"
)

// defaultMongoDatabase is the MongoDB database saves are kept in.
const defaultMongoDatabase = appName

// storeFlags selects the save store. SQLite under the data directory is the
// default; a MongoDB URI switches to MongoDB.
type storeFlags struct {
	db       string
	mongoURI string
	mongoDB  string
}

func (f *storeFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.db, "db", "", "SQLite save database (default: "+filepath.Join("$XDG_DATA_HOME", appName, saveDBName)+")")
	fs.StringVar(&f.mongoURI, "mongo-uri", os.Getenv(envMongoURI), "MongoDB URI; keeps saves in MongoDB instead of SQLite")
	fs.StringVar(&f.mongoDB, "mongo-db", defaultMongoDatabase, "MongoDB database")
}

// openStore opens the save store selected by f. Newly loaded saves start
// with pinned unlocked; nil selects the default starting techs.
func (c *CLI) openStore(ctx context.Context, f storeFlags, pinned map[string]int) (save.Store, error) {
	if pinned == nil {
		pinned = layout.DefaultPinned()
	}
	opts := save.Options{Pinned: pinned}

	if f.mongoURI != "" {
		c.Logger.Debug("Opening save store", "backend", "mongodb", "database", f.mongoDB)
		return save.OpenMongo(ctx, f.mongoURI, f.mongoDB, "", opts)
	}

	path := f.db
	if path == "" {
		dir, err := dataDir()
		if err != nil {
			return nil, fmt.Errorf("get data dir: %w", err)
		}
		path = filepath.Join(dir, saveDBName)
	}
	c.Logger.Debug("Opening save store", "backend", "sqlite", "path", path)
	return save.OpenSQLite(path, opts)
}

// loadTable loads the tech table a save is played against.
func (c *CLI) loadTable(ctx context.Context, source string) (*techdata.Table, pipeline.Options, error) {
	opts := pipeline.Options{Source: source, Logger: c.Logger}
	setCLIDefaults(&opts)
	t, err := pipeline.NewRunner(nil, nil, c.Logger).Load(ctx, opts)
	return t, opts, err
}

// saveCommand creates the save management command.
func (c *CLI) saveCommand() *cobra.Command {
	var flags storeFlags

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Manage research saves",
		Long: `Manage research saves.

A save records which techs are unlocked and which are being researched. At
most ` + strconv.Itoa(save.MaxSaves) + ` saves are kept. Saves live in a SQLite database under the
data directory unless --mongo-uri (or ` + envMongoURI + `) selects MongoDB.`,
	}
	flags.register(cmd.PersistentFlags())

	cmd.AddCommand(c.saveCreateCommand(&flags))
	cmd.AddCommand(c.saveListCommand(&flags))
	cmd.AddCommand(c.saveShowCommand(&flags))
	cmd.AddCommand(c.saveDeleteCommand(&flags))
	cmd.AddCommand(c.saveAdvanceCommand(&flags, "unlock", "Unlock a tech", research.State.Unlock))
	cmd.AddCommand(c.saveAdvanceCommand(&flags, "research", "Start researching a tech", research.State.StartResearch))

	return cmd
}

func (c *CLI) saveCreateCommand(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create a save",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx, *flags, nil)
			if err != nil {
				return err
			}
			defer st.Close()

			sv, err := st.Create(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			c.success("Created %s", StyleHighlight.Render(sv.Name))
			c.field("ID", sv.ID)
			c.nextStep("Research", appName+" save research "+sv.ID+" <tech>")
			return nil
		},
	}
}

func (c *CLI) saveListCommand(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saves, most recently played first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx, *flags, nil)
			if err != nil {
				return err
			}
			defer st.Close()

			saves, err := st.List(ctx)
			if err != nil {
				return err
			}
			if len(saves) == 0 {
				c.info("No saves yet")
				c.nextStep("Create one", appName+" save create")
				return nil
			}
			c.line(saveTable(saves, time.Now()))
			return nil
		},
	}
}

// saveTable renders saves as a bordered table.
func saveTable(saves []save.Save, now time.Time) string {
	rows := make([][]string, len(saves))
	for i, sv := range saves {
		rows[i] = []string{
			sv.ID,
			sv.Name,
			strconv.Itoa(len(sv.Research.UnlockedIDs())),
			strconv.Itoa(len(sv.Research.ResearchingIDs())),
			formatRelativeTime(sv.Meta.LastPlayedAt, now),
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Name", "Unlocked", "Researching", "Played").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0 || col == 4:
				return lipgloss.NewStyle().Foreground(colorDim)
			case col == 1:
				return lipgloss.NewStyle().Foreground(colorWhite)
			default:
				return lipgloss.NewStyle().Foreground(colorCyan)
			}
		}).
		Render()
}

func (c *CLI) saveShowCommand(flags *storeFlags) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:               "show <id>",
		Short:             "Show a save and the techs it can research next",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeFirstSaveID(flags),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, opts, err := c.loadTable(ctx, source)
			if err != nil {
				return err
			}
			st, err := c.openStore(ctx, *flags, opts.LayoutConfig(t).Pinned)
			if err != nil {
				return err
			}
			defer st.Close()

			sv, err := st.Load(ctx, args[0])
			if err != nil {
				return err
			}
			c.printSave(sv, t)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "table", "", "tech table the save is played against (default: built-in)")
	return cmd
}

func (c *CLI) printSave(sv *save.Save, t *techdata.Table) {
	c.line(StyleTitle.Render(sv.Name))
	c.field("ID", sv.ID)
	c.field("Version", sv.Meta.Version)
	c.field("Created", sv.Meta.CreatedAt.Local().Format(time.DateTime))
	c.field("Played", sv.Meta.LastPlayedAt.Local().Format(time.DateTime))
	c.techs("Unlocked", sv.Research.UnlockedIDs(), research.Unlocked)
	c.techs("Researching", sv.Research.ResearchingIDs(), research.Researching)
	c.techs("Available", sv.Research.Available(t), research.Available)
}

func (c *CLI) saveDeleteCommand(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:               "delete <id>",
		Short:             "Delete a save",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeFirstSaveID(flags),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx, *flags, nil)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Delete(ctx, args[0]); err != nil {
				return err
			}
			c.success("Deleted %s", args[0])
			return nil
		},
	}
}

// advanceFunc moves a research state forward by one tech.
type advanceFunc func(research.State, *techdata.Table, string) (research.State, error)

// saveAdvanceCommand creates a subcommand that applies advance to a save.
func (c *CLI) saveAdvanceCommand(flags *storeFlags, use, short string, advance advanceFunc) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:               use + " <id> <tech>",
		Short:             short,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: c.completeFirstSaveID(flags),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, opts, err := c.loadTable(ctx, source)
			if err != nil {
				return err
			}
			st, err := c.openStore(ctx, *flags, opts.LayoutConfig(t).Pinned)
			if err != nil {
				return err
			}
			defer st.Close()

			sv, err := st.Load(ctx, args[0])
			if err != nil {
				return err
			}
			next, err := advance(sv.Research, t, args[1])
			if err != nil {
				return err
			}
			if sv, err = st.UpdateResearch(ctx, sv.ID, next); err != nil {
				return err
			}

			tech, _ := t.Lookup(args[1])
			status := sv.Research.Status(tech)
			c.success("%s: %s", StyleHighlight.Render(tech.DisplayName()), statusStyles[status].Render(status.String()))
			c.techs("Available", sv.Research.Available(t), research.Available)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "table", "", "tech table the save is played against (default: built-in)")
	return cmd
}

func formatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Local().Format("Jan 2, 2006")
	}
}
