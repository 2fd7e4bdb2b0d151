package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-roadmap/internal/export"
	"github.com/p-n-ai/pai-roadmap/internal/planner"
)

const (
	formatJSON = "json"
	formatXLSX = "xlsx"
)

// writeRecord renders rec to --out (or stdout) in the requested format.
func writeRecord(cmd *cobra.Command, rec *planner.Record, format, out string) error {
	switch format {
	case formatJSON:
		return withOutput(cmd, out, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		})
	case formatXLSX:
		if out == "" {
			return fmt.Errorf("--format xlsx requires --out")
		}
		return withOutput(cmd, out, func(w io.Writer) error {
			return export.WriteWorkbook(w, rec.Result)
		})
	}
	return fmt.Errorf("unknown format %q (want json or xlsx)", format)
}

func withOutput(cmd *cobra.Command, out string, write func(io.Writer) error) error {
	if out == "" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
