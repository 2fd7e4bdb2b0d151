package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse saved roadmaps",
	}
	cmd.AddCommand(newHistoryListCmd(root), newHistoryShowCmd(root))
	return cmd
}

func newHistoryListCmd(root *rootOptions) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved roadmaps, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.openHistory()
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer s.Close()

			list, err := s.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				b, _ := json.MarshalIndent(list, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tWEEKS\tHOURS/WEEK\tMODE\tROADMAPS\tFEASIBLE")
			for _, r := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f\t%s\t%d\t%t\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.WeeksToExam, r.HoursPerWeek, r.HoursMode, r.RoadmapCount, r.Feasible)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Max results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newHistoryShowCmd(root *rootOptions) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved roadmap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.openHistory()
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer s.Close()

			rec, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeRecord(cmd, rec, format, out)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "Output format: json or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}
