package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/jung-kurt/gofpdf"

	"todo-list/internal/logger"
	"todo-list/internal/models"
	"todo-list/internal/view"
)

// Options - настройки экспорта
type Options struct {
	// FontPath - TTF-шрифт с кириллицей для pdf. Без него текст
	// переводится в cp1252 и символы вне этой кодировки теряются
	FontPath string
}

// Export сериализует задачи в json (формат хранилища), csv или pdf
func Export(tasks []models.Task, format string) ([]byte, error) {
	return ExportWith(tasks, format, Options{})
}

func ExportWith(tasks []models.Task, format string, opts Options) ([]byte, error) {
	if tasks == nil {
		tasks = []models.Task{}
	}

	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(tasks, "", "  ")
	case "csv":
		var b bytes.Buffer
		w := csv.NewWriter(&b)
		_ = w.Write([]string{"id", "text", "date", "completed"})
		for _, t := range tasks {
			_ = w.Write([]string{strconv.FormatInt(t.ID, 10), t.Text, t.Date, strconv.FormatBool(t.Completed)})
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	case "pdf":
		return exportPDF(tasks, opts.FontPath)
	default:
		return nil, fmt.Errorf("неизвестный формат %s", format)
	}
}

func exportPDF(tasks []models.Task, fontPath string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")

	family := "Arial"
	tr := func(s string) string { return s }
	if fontPath != "" {
		family = "unicode"
		pdf.AddUTF8Font(family, "", fontPath)
		pdf.AddUTF8Font(family, "B", fontPath)
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("шрифт %s: %w", fontPath, err)
		}
	} else {
		// Встроенные шрифты gofpdf понимают только cp1252
		tr = pdf.UnicodeTranslatorFromDescriptor("")
		if hasNonLatin(tasks) {
			logger.Warn(context.Background(), "В задачах есть символы вне cp1252, задайте pdf_font для pdf")
		}
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 14)
	pdf.Cell(40, 10, "Todo List")
	pdf.Ln(12)
	pdf.SetFont(family, "", 10)

	if len(tasks) == 0 {
		pdf.Cell(40, 6, "No tasks found")
	}

	for _, t := range tasks {
		mark := "[ ]"
		if t.Completed {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s (Due: %s)", mark, t.Text, view.FormatDueDate(t.Date))
		pdf.MultiCell(0, 6, tr(line), "0", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func hasNonLatin(tasks []models.Task) bool {
	for _, t := range tasks {
		for _, r := range t.Text {
			if r > unicode.MaxLatin1 {
				return true
			}
		}
	}
	return false
}
