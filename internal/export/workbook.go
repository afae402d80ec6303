package export

import (
	"fmt"
	"time"

	"github.com/lotuseval/placement-backend/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	detailsSheet = "Details"
)

var detailHeader = []interface{}{"#", "Question", "Chosen Answer", "Correct Answer", "Outcome", "Category", "Difficulty"}

// ResultWorkbook renders a result as an .xlsx file with a Summary and a
// Details sheet.
func ResultWorkbook(r model.ExamResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(detailsSheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	summary := [][]interface{}{
		{"Name", r.Candidate.Name},
		{"Phone", r.Candidate.Phone},
		{"Graduation Year", r.Candidate.GraduationYear},
		{"University", r.Candidate.University},
		{"Exam Type", r.ExamType},
		{"Score (%)", r.Score},
		{"Correct", r.Correct},
		{"Incorrect", r.Incorrect},
		{"Timed Out", r.TimedOut},
		{"Total Questions", r.Total},
		{"Time Taken", formatDuration(time.Duration(r.TimeTakenSeconds) * time.Second)},
		{"Started At", r.StartedAt.Format(time.RFC3339)},
		{"Finished At", r.FinishedAt.Format(time.RFC3339)},
	}
	for i, row := range summary {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), bold); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 18)
	_ = f.SetColWidth(summarySheet, "B", "B", 40)

	if err := setRow(f, detailsSheet, 1, detailHeader); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(detailsSheet, "A1", "G1", bold); err != nil {
		return nil, err
	}
	for i, d := range r.Details {
		row := []interface{}{d.Position, d.Question, d.ChosenAnswer, d.CorrectAnswer, string(d.Outcome), d.Category, d.Difficulty}
		if err := setRow(f, detailsSheet, i+2, row); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(detailsSheet, "B", "D", 45)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func formatDuration(d time.Duration) string {
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %02ds", m, s)
}
