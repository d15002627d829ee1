// Package export writes the full task list in portable formats.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/nibzard/tasklist/internal/todo"
)

// Supported formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
)

// Formats lists the supported export formats.
func Formats() []string {
	return []string{FormatJSON, FormatCSV, FormatPDF}
}

// ParseFormat normalizes a format name.
func ParseFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	switch f {
	case FormatJSON, FormatCSV, FormatPDF:
		return f, nil
	}
	return "", &todo.InvalidInputError{
		Field: "format",
		Value: format,
		Err:   fmt.Errorf("want one of %s", strings.Join(Formats(), ", ")),
	}
}

// FormatFromPath guesses the format from a file extension.
// It returns "" when the extension is not a known format.
func FormatFromPath(path string) string {
	f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return ""
	}
	return f
}

// Exporter renders every task of a list.
type Exporter struct {
	list *todo.List
}

// NewExporter creates an exporter over list.
func NewExporter(list *todo.List) *Exporter {
	return &Exporter{list: list}
}

// Export writes all tasks, ordered by deadline, to w in the given format.
func (e *Exporter) Export(ctx context.Context, w io.Writer, format string) error {
	f, err := ParseFormat(format)
	if err != nil {
		return err
	}
	tasks, err := e.list.All(ctx)
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}

	switch f {
	case FormatJSON:
		return writeJSON(w, tasks)
	case FormatCSV:
		return writeCSV(w, tasks)
	default:
		return writePDF(w, tasks, e.list.Today())
	}
}

// document is the JSON export layout, matching the task collection of the
// json store.
type document struct {
	Tasks []todo.Task `json:"task"`
}

func writeJSON(w io.Writer, tasks []todo.Task) error {
	if tasks == nil {
		tasks = []todo.Task{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(document{Tasks: tasks})
}

func writeCSV(w io.Writer, tasks []todo.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "task", "deadline"}); err != nil {
		return err
	}
	for _, t := range tasks {
		if err := cw.Write([]string{strconv.FormatInt(t.ID, 10), t.Description, t.Deadline.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writePDF(w io.Writer, tasks []todo.Task, today todo.Date) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Tasks", true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Tasks")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(40, 6, "Exported "+today.String())
	pdf.Ln(10)

	if len(tasks) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(40, 6, "Nothing to do!")
	} else {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(15, 7, "#", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 7, "Deadline", "1", 0, "C", false, 0, "")
		pdf.CellFormat(0, 7, "Task", "1", 1, "L", false, 0, "")

		pdf.SetFont("Arial", "", 10)
		for i, t := range tasks {
			if t.Deadline.Before(today) {
				pdf.SetTextColor(180, 0, 0)
			} else {
				pdf.SetTextColor(0, 0, 0)
			}
			pdf.CellFormat(15, 6, strconv.Itoa(i+1), "1", 0, "C", false, 0, "")
			pdf.CellFormat(30, 6, t.Deadline.String(), "1", 0, "C", false, 0, "")
			pdf.CellFormat(0, 6, tr(t.Description), "1", 1, "L", false, 0, "")
		}
		pdf.SetTextColor(0, 0, 0)
	}

	return pdf.Output(w)
}
