package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// ExportReportPDF renders a report as a one-section A4 document.
func ExportReportPDF(rep *SurveyReport, w io.Writer) error {
	if rep == nil {
		return NewInvalidError("report required")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.MultiCell(0, 8, tr(rep.Title), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	line := func(format string, args ...any) {
		pdf.CellFormat(0, 6, tr(fmt.Sprintf(format, args...)), "", 1, "L", false, 0, "")
	}
	line("Responses: %d (completed %d)", rep.TotalResponses, rep.Completed)
	if rep.Questionnaire {
		line("Graded: %d  Passed: %d  Pass rate: %.1f%%", rep.Graded, rep.Passed, rep.PassRate)
		line("Average score: %.2f (%.1f%%)", rep.AverageScore, rep.AveragePercent)
	} else {
		line("Pending: %d  Approved: %d  Rejected: %d", rep.Pending, rep.Approved, rep.Rejected)
	}
	pdf.Ln(4)

	for i, q := range rep.Questions {
		pdf.SetFont("Arial", "B", 12)
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, q.Text)), "", "L", false)
		pdf.SetFont("Arial", "", 11)
		line("Answered: %d", q.Answered)
		switch {
		case len(q.OptionCounts) > 0:
			for j, n := range q.OptionCounts {
				line("  %s: %d", q.Options[j], n)
			}
		case q.TrueCount > 0 || q.FalseCount > 0:
			line("  true: %d  false: %d", q.TrueCount, q.FalseCount)
		case len(q.Samples) > 0:
			line("  %s", strings.Join(q.Samples, " | "))
		}
		if rep.Questionnaire && q.Correct > 0 {
			line("  correct: %d", q.Correct)
		}
		pdf.Ln(2)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
