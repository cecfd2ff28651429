// Package ui provides the terminal interface on top of the controller.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"todo-list/internal/controller"
	"todo-list/internal/models"
	"todo-list/internal/view"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeConfirm
)

// Model - модель bubbletea. Всё состояние списка живёт в контроллере,
// здесь только курсор и ввод
type Model struct {
	ctx    context.Context
	c      *controller.Controller
	mode   mode
	cursor int
	text   string
	date   string
	field  int
	status string
	err    error
}

func NewModel(ctx context.Context, c *controller.Controller) *Model {
	return &Model{ctx: ctx, c: c}
}

// Run запускает TUI и блокируется до выхода
func Run(ctx context.Context, c *controller.Controller) error {
	program := tea.NewProgram(NewModel(ctx, c), tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := program.Run()
	if err != nil {
		return err
	}
	if m, ok := finalModel.(*Model); ok && m.err != nil {
		return m.err
	}
	return nil
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if key.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.mode {
	case modeAdd:
		return m.updateAdd(key)
	case modeConfirm:
		return m.updateConfirm(key)
	default:
		return m.updateList(key)
	}
}

func (m *Model) updateList(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.c.Snapshot()
	items := visibleItems(visible.Items)

	switch key.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case " ", "x":
		if it, ok := m.selected(items); ok {
			m.fail(m.c.Toggle(m.ctx, it.Task.ID))
		}
	case "d":
		if it, ok := m.selected(items); ok {
			if m.fail(m.c.Delete(m.ctx, it.Task.ID)) {
				m.status = "Задача удалена"
			}
		}
	case "D":
		m.mode = modeConfirm
	case "a":
		m.mode = modeAdd
		m.text, m.date, m.field = "", "", 0
		m.status = ""
	case "1":
		m.c.SetFilter(models.FilterAll)
	case "2":
		m.c.SetFilter(models.FilterCompleted)
	case "3":
		m.c.SetFilter(models.FilterUncompleted)
	}

	m.clampCursor()
	return m, nil
}

func (m *Model) updateAdd(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.mode = modeList
		m.status = ""
	case tea.KeyTab, tea.KeyShiftTab:
		m.field = 1 - m.field
	case tea.KeyBackspace:
		m.editField(func(s string) string {
			r := []rune(s)
			if len(r) == 0 {
				return s
			}
			return string(r[:len(r)-1])
		})
	case tea.KeyEnter:
		_, err := m.c.Submit(m.ctx, models.CreateTaskRequest{Text: m.text, Date: m.date})
		if errors.Is(err, controller.ErrValidation) {
			m.status = err.Error()
			return m, nil
		}
		if m.fail(err) {
			m.status = "Задача добавлена"
		}
		m.mode = modeList
	case tea.KeyRunes, tea.KeySpace:
		m.editField(func(s string) string { return s + string(key.Runes) })
	}
	return m, nil
}

func (m *Model) updateConfirm(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "y", "Y":
		deleted, err := m.c.DeleteAll(m.ctx, func(string) bool { return true })
		if m.fail(err) && deleted {
			m.status = "Все задачи удалены"
		}
	default:
		m.status = "Отменено"
	}
	m.mode = modeList
	m.clampCursor()
	return m, nil
}

func (m *Model) View() string {
	snap := m.c.Snapshot()
	items := visibleItems(snap.Items)

	var b strings.Builder
	b.WriteString("Todo List\n")
	fmt.Fprintf(&b, "Фильтр: %s\n\n", snap.Filter)

	if snap.Empty {
		b.WriteString("  Задач нет\n")
	}
	for i, it := range items {
		cursor := "  "
		if i == m.cursor && m.mode == modeList {
			cursor = "> "
		}
		mark := "[ ]"
		if it.Task.Completed {
			mark = "[x]"
		}
		fmt.Fprintf(&b, "%s%s %s  Due: %s\n", cursor, mark, it.Task.Text, view.FormatDueDate(it.Task.Date))
	}

	b.WriteString("\n")
	switch m.mode {
	case modeAdd:
		textCursor, dateCursor := "_", ""
		if m.field == 1 {
			textCursor, dateCursor = "", "_"
		}
		fmt.Fprintf(&b, "Задача: %s%s\nДата (ГГГГ-ММ-ДД): %s%s\n", m.text, textCursor, m.date, dateCursor)
		b.WriteString("tab - поле, enter - добавить, esc - отмена\n")
	case modeConfirm:
		b.WriteString(controller.ConfirmClearPrompt + " (y/n)\n")
	default:
		b.WriteString("a добавить  space выполнено  d удалить  D удалить все  1/2/3 фильтр  q выход\n")
	}

	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}
	return b.String()
}

func (m *Model) selected(items []view.Item) (view.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(items) {
		return view.Item{}, false
	}
	return items[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(visibleItems(m.c.Snapshot().Items))
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) editField(fn func(string) string) {
	if m.field == 0 {
		m.text = fn(m.text)
	} else {
		m.date = fn(m.date)
	}
}

// fail показывает ошибку в строке статуса. Возвращает true, если ошибки нет
func (m *Model) fail(err error) bool {
	if err != nil {
		m.status = "Ошибка: " + err.Error()
		return false
	}
	return true
}

func visibleItems(items []view.Item) []view.Item {
	out := items[:0:0]
	for _, it := range items {
		if it.Visible {
			out = append(out, it)
		}
	}
	return out
}
