package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"todo-list/internal/models"
)

// Формат отображения даты (как toLocaleDateString в en-US)
const displayLayout = "1/2/2006"

//go:embed templates/page.html
var templatesFS embed.FS

var pageTemplate = template.Must(
	template.New("page.html").
		Funcs(template.FuncMap{"dueDate": FormatDueDate}).
		ParseFS(templatesFS, "templates/page.html"),
)

// FormatDueDate переводит ISO-дату в формат для показа.
// Нераспознанная строка возвращается как есть
func FormatDueDate(iso string) string {
	t, err := time.Parse(models.DateLayout, iso)
	if err != nil {
		return iso
	}
	return t.Format(displayLayout)
}

// WriteText печатает видимые элементы по одному на строку
func (v *View) WriteText(w io.Writer) error {
	if v.emptyVisible {
		_, err := fmt.Fprintln(w, "No tasks found")
		return err
	}

	for _, it := range v.Visible() {
		status := "Pending"
		if it.Task.Completed {
			status = "Completed"
		}
		if _, err := fmt.Fprintf(w, "%d: %s (Due: %s) [%s]\n",
			it.Task.ID, it.Task.Text, FormatDueDate(it.Task.Date), status); err != nil {
			return err
		}
	}
	return nil
}

type pageData struct {
	Items   []Item
	Filter  models.Filter
	Filters []models.Filter
	Empty   bool
	Error   string
}

// WriteHTML рендерит страницу целиком. errMsg показывается над формой
func (v *View) WriteHTML(w io.Writer, errMsg string) error {
	return pageTemplate.Execute(w, pageData{
		Items:   v.Items(),
		Filter:  v.filter,
		Filters: []models.Filter{models.FilterAll, models.FilterCompleted, models.FilterUncompleted},
		Empty:   v.emptyVisible,
		Error:   errMsg,
	})
}
