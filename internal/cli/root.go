// Package cli implements the roadmapctl commands.
package cli

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-roadmap/internal/planner"
	"github.com/p-n-ai/pai-roadmap/internal/platform/logging"
)

type rootOptions struct {
	dbPath    string
	overrides string
	verbose   bool
}

// NewRootCmd builds the roadmapctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "roadmapctl",
		Short:         "Generate exam study roadmaps",
		Long:          "Builds deterministic sprint-by-sprint study roadmaps from a course overview and per-section levels.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), level, "text"))
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.dbPath, "db", "d", "", "History database path (default: $ROADMAP_SQLITE_PATH or ~/.pai-roadmap/roadmaps.db)")
	cmd.PersistentFlags().StringVar(&opts.overrides, "overrides", "", "YAML file of engine config overrides")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log solver progress to stderr")

	cmd.AddCommand(newGenerateCmd(opts), newDefaultsCmd(opts), newHistoryCmd(opts))
	return cmd
}

func (o *rootOptions) historyPath() string {
	if o.dbPath != "" {
		return o.dbPath
	}
	if env := os.Getenv("ROADMAP_SQLITE_PATH"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pai-roadmap", "roadmaps.db")
}

func (o *rootOptions) openHistory() (*planner.SQLiteStore, error) {
	return planner.NewSQLiteStore(o.historyPath())
}

// newService builds a planner service. With a nil store results are kept in
// memory only.
func (o *rootOptions) newService(store planner.Store) (*planner.Service, error) {
	overrides, err := planner.LoadOverrides(o.overrides)
	if err != nil {
		return nil, err
	}
	return planner.NewService(planner.ServiceConfig{Store: store, Overrides: overrides})
}
