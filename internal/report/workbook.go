// Package report exports a subject's progress as an XLSX workbook.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-studypack/internal/subject"
)

const (
	TopicsSheet = "Topics"
	GrowthSheet = "Growth"
)

var (
	topicHeader  = []any{"Topic", "Day", "Questions", "Correct", "Depth score", "Completed"}
	growthHeader = []any{"Day", "Average score", "Date"}
)

// WriteWorkbook renders per-topic performance and the growth trend of s.
func WriteWorkbook(w io.Writer, s *subject.Subject) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TopicsSheet); err != nil {
		return fmt.Errorf("naming topics sheet: %w", err)
	}
	if _, err := f.NewSheet(GrowthSheet); err != nil {
		return fmt.Errorf("adding growth sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	topicRows := make([][]any, len(s.Topics))
	for i, t := range s.Topics {
		p := t.Performance
		topicRows[i] = []any{t.Name, t.DayNo, p.TotalQuestions, p.CorrectAnswers, p.TopicDepthScore, yesNo(p.Completed)}
	}
	if err := writeSheet(f, TopicsSheet, topicHeader, topicRows, bold); err != nil {
		return err
	}

	growthRows := make([][]any, len(s.Progress.GrowthTrend))
	for i, pt := range s.Progress.GrowthTrend {
		growthRows[i] = []any{pt.DayNumber, pt.AvgScore, pt.Date.Format("2006-01-02")}
	}
	if err := writeSheet(f, GrowthSheet, growthHeader, growthRows, bold); err != nil {
		return err
	}

	if err := f.SetColWidth(TopicsSheet, "A", "A", 40); err != nil {
		return err
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: s.Name + " progress"}); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
