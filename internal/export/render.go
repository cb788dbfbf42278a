package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/projectdash/dashboard-backend/internal/projects/domain"
)

// Renderer writes a project snapshot in one format.
type Renderer interface {
	Render(w io.Writer, p *domain.Project) error
	ContentType() string
	Extension() string
}

var taskHeader = []string{"Title", "Status", "Priority", "Assignee", "Deadline", "Estimated hours", "Time spent"}

func taskRow(t domain.Task) []string {
	return []string{
		t.Title,
		string(t.Status),
		string(t.Priority),
		t.Assignee,
		formatDate(t.Deadline),
		formatHours(t.EstimatedHours),
		formatHours(t.TimeSpent),
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CSVRenderer writes a project header block followed by one row per task.
type CSVRenderer struct{}

func (CSVRenderer) ContentType() string { return "text/csv; charset=utf-8" }
func (CSVRenderer) Extension() string   { return ".csv" }

func (CSVRenderer) Render(w io.Writer, p *domain.Project) error {
	cw := csv.NewWriter(w)
	records := [][]string{
		{"Project", csvText(p.Name)},
		{"Description", csvText(deref(p.Description))},
		{"Status", string(p.Status)},
		{"Priority", string(p.Priority)},
		{"Deadline", formatDate(p.Deadline)},
		{"Estimated hours", formatHours(p.EstimatedHours)},
		{},
		taskHeader,
	}
	for _, t := range p.Tasks {
		t.Title = csvText(t.Title)
		t.Assignee = csvText(t.Assignee)
		records = append(records, taskRow(t))
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// csvText quotes free text that a spreadsheet would otherwise evaluate as
// a formula.
func csvText(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

// PDFRenderer produces an A4 report with a summary and a task table.
type PDFRenderer struct{}

func (PDFRenderer) ContentType() string { return "application/pdf" }
func (PDFRenderer) Extension() string   { return ".pdf" }

var pdfColumnWidths = []float64{50, 24, 20, 30, 24, 22, 20}

func (PDFRenderer) Render(w io.Writer, p *domain.Project) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(p.Name), false)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			tableHeader(pdf)
		}
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(p.Name), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	summary := [][2]string{
		{"Status", string(p.Status)},
		{"Priority", string(p.Priority)},
		{"Deadline", formatDate(p.Deadline)},
		{"Estimated hours", formatHours(p.EstimatedHours)},
		{"Tasks", strconv.Itoa(len(p.Tasks))},
	}
	for _, kv := range summary {
		pdf.CellFormat(40, 6, kv[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(kv[1]), "", 1, "L", false, 0, "")
	}
	if d := deref(p.Description); d != "" {
		pdf.Ln(2)
		pdf.MultiCell(0, 5, tr(d), "", "L", false)
	}
	pdf.Ln(4)

	tableHeader(pdf)
	pdf.SetFont("Helvetica", "", 8)
	for _, t := range p.Tasks {
		for i, cell := range taskRow(t) {
			pdf.CellFormat(pdfColumnWidths[i], 6, tr(cell), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func tableHeader(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range taskHeader {
		pdf.CellFormat(pdfColumnWidths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 8)
}
