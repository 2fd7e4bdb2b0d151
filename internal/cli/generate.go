package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-roadmap/internal/curriculum"
	"github.com/p-n-ai/pai-roadmap/internal/planner"
	"github.com/p-n-ai/pai-roadmap/internal/roadmap"
)

type generateOptions struct {
	input  string
	course string
	levels string
	weeks  int
	hours  float64
	format string
	out    string
	save   bool
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a roadmap",
		Long: `Generate a roadmap from a JSON request (--input, or stdin when neither --input nor --course is set)
or from a course overview file plus a levels file (--course, --levels, --weeks).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", `JSON request file ("-" for stdin)`)
	cmd.Flags().StringVarP(&opts.course, "course", "c", "", "Course overview file (YAML or JSON)")
	cmd.Flags().StringVarP(&opts.levels, "levels", "l", "", "Section levels file (YAML or JSON)")
	cmd.Flags().IntVarP(&opts.weeks, "weeks", "w", 0, "Weeks to exam (with --course)")
	cmd.Flags().Float64Var(&opts.hours, "hours", 0, "Fixed hours per week; omit to let the solver choose")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatJSON, "Output format: json or xlsx")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Store the result in the local history database")
	cmd.MarkFlagsMutuallyExclusive("input", "course")
	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions) error {
	raw, err := opts.request(cmd)
	if err != nil {
		return err
	}

	var store planner.Store
	if opts.save {
		s, err := root.openHistory()
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer s.Close()
		store = s
	}
	svc, err := root.newService(store)
	if err != nil {
		return err
	}

	rec, err := svc.Generate(cmd.Context(), raw, nil)
	if err != nil {
		return err
	}
	for _, rm := range rec.Result.Roadmaps {
		for _, w := range rm.Metadata.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
		}
	}
	if opts.save {
		fmt.Fprintf(cmd.ErrOrStderr(), "saved %s\n", rec.ID)
	}
	return writeRecord(cmd, rec, opts.format, opts.out)
}

// request returns the raw JSON request described by the flags.
func (o *generateOptions) request(cmd *cobra.Command) ([]byte, error) {
	if o.course == "" {
		if o.input == "" || o.input == "-" {
			return io.ReadAll(cmd.InOrStdin())
		}
		data, err := os.ReadFile(o.input)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return data, nil
	}

	overview, err := curriculum.LoadOverview(o.course)
	if err != nil {
		return nil, err
	}
	in := roadmap.Input{
		WeeksToExam:           o.weeks,
		LevelsBySection:       map[string]int{},
		CourseModularOverview: overview,
	}
	if o.levels != "" {
		levels, err := curriculum.LoadLevels(o.levels)
		if err != nil {
			return nil, err
		}
		in.LevelsBySection = levels
	}
	if cmd.Flags().Changed("hours") {
		h := o.hours
		in.HoursPerWeek = &h
	}
	return json.Marshal(in)
}
