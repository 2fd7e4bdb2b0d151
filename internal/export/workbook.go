// Package export renders generated roadmaps as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-roadmap/internal/roadmap"
)

// Sheet names, in workbook order.
const (
	SheetSummary = "Summary"
	SheetSprints = "Sprints"
	SheetItems   = "Items"
	SheetBacklog = "Backlog"
)

var headers = map[string][]any{
	SheetSummary: {"Roadmap", "Exam part", "Level", "Sections", "Required min", "Allocated min", "Focus reasons"},
	SheetSprints: {"Roadmap", "Sprint", "Weeks", "Available min", "Planning min", "Planned min", "Unused min", "Utilization %", "Focus", "Checkpoint"},
	SheetItems: {"Roadmap", "Sprint", "Exam part", "Section", "Submodule", "Category", "Phase", "Learning min",
		"Unique Q", "Retake Q", "Practice min", "Total min", "Partial", "Chunk"},
	SheetBacklog: {"Roadmap", "Exam part", "Remaining min"},
}

// WriteWorkbook writes res as an .xlsx document to w.
func WriteWorkbook(w io.Writer, res *roadmap.Result) error {
	f, err := Workbook(res)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Workbook builds the spreadsheet for res. Every roadmap of the result
// shares the sheets and is told apart by the Roadmap column.
func Workbook(res *roadmap.Result) (*excelize.File, error) {
	if res == nil {
		return nil, fmt.Errorf("result is nil")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	w := &sheetWriter{f: f, next: map[string]int{}}
	for _, name := range []string{SheetSummary, SheetSprints, SheetItems, SheetBacklog} {
		if name != SheetSummary {
			if _, err := f.NewSheet(name); err != nil {
				f.Close()
				return nil, fmt.Errorf("create sheet %s: %w", name, err)
			}
		}
		w.row(name, headers[name]...)
		if err := f.SetRowStyle(name, 1, 1, bold); err != nil {
			f.Close()
			return nil, fmt.Errorf("style header %s: %w", name, err)
		}
		_ = f.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}

	for _, rm := range res.Roadmaps {
		label := string(rm.Metadata.GeneratedMode)
		writeSummary(w, label, rm)
		writeSprints(w, label, rm)
		writeBacklog(w, label, rm)
	}
	if w.err != nil {
		f.Close()
		return nil, w.err
	}

	_ = f.SetColWidth(SheetSummary, "G", "G", 60)
	_ = f.SetColWidth(SheetItems, "D", "E", 32)
	f.SetActiveSheet(0)
	return f, nil
}

func writeSummary(w *sheetWriter, label string, rm roadmap.Roadmap) {
	for _, ps := range rm.ExamPartsSummary {
		w.row(SheetSummary,
			label,
			ps.DisplayName,
			ps.Level,
			strings.Join(ps.MappedSections, ", "),
			ps.RequiredMinutes,
			ps.AllocatedMinutes,
			strings.Join(ps.FocusReasons, "; "),
		)
	}
}

func writeSprints(w *sheetWriter, label string, rm roadmap.Roadmap) {
	for _, sp := range rm.Sprints {
		focus := make([]string, len(sp.FocusExamPartsRanked))
		for i, p := range sp.FocusExamPartsRanked {
			focus[i] = p.DisplayName()
		}
		w.row(SheetSprints,
			label,
			sp.SprintNumber,
			fmt.Sprintf("%d-%d", sp.WeekStartIndex+1, sp.WeekEndIndex+1),
			sp.AvailableMinutes,
			sp.PlanningMinutes,
			sp.Totals.PlannedTotalMinutes,
			sp.Totals.UnusedMinutes,
			sp.Totals.UtilizationPct,
			strings.Join(focus, " > "),
			checkpointSummary(sp.Checkpoint),
		)
		for _, it := range sp.Items {
			w.row(SheetItems,
				label,
				sp.SprintNumber,
				it.ExamPart.DisplayName(),
				it.SectionTitle,
				it.SubmoduleName,
				string(it.ContentCategory),
				string(it.Phase),
				it.PlannedLearningMinutes,
				it.PlannedPracticeQuestionsUnique,
				it.PlannedPracticeQuestionsRetake,
				it.PlannedPracticeMinutes,
				it.PlannedTotalMinutes,
				it.IsPartial,
				it.ModuleChunkLabel,
			)
		}
	}
}

func writeBacklog(w *sheetWriter, label string, rm roadmap.Roadmap) {
	for _, part := range roadmap.AllParts {
		w.row(SheetBacklog, label, part.DisplayName(), rm.EndState.RemainingBacklogMinutesByExamPart[part])
	}
}

// checkpointSummary renders the per-part checkpoint types of a sprint.
func checkpointSummary(cp roadmap.Checkpoint) string {
	var parts []string
	for _, part := range roadmap.AllParts {
		pc, ok := cp.ByExamPart[part]
		if !ok {
			continue
		}
		if pc.CheckpointQuestions > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s %dq/%.0fmin", part.DisplayName(), pc.Type, pc.CheckpointQuestions, pc.TimeLimitMinutes))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", part.DisplayName(), pc.Type))
	}
	return strings.Join(parts, "; ")
}

// sheetWriter appends rows to sheets and keeps the first error.
type sheetWriter struct {
	f    *excelize.File
	next map[string]int
	err  error
}

func (w *sheetWriter) row(sheet string, values ...any) {
	if w.err != nil {
		return
	}
	w.next[sheet]++
	cell, err := excelize.CoordinatesToCellName(1, w.next[sheet])
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("write %s row %d: %w", sheet, w.next[sheet], err)
	}
}
