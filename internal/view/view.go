// Package view держит отображаемую проекцию списка задач.
//
// View не хранит авторитетного состояния: она строится заново из
// TaskManager при загрузке и точечно обновляется после каждой мутации.
// У каждого элемента две независимые оси состояния: видимость (только
// ApplyFilter её пересчитывает) и выполненность (только ToggleTaskVisual).
package view

import (
	"todo-list/internal/models"
)

// Item - один отображаемый элемент списка
type Item struct {
	Task    models.Task `json:"task"`
	Visible bool        `json:"visible"`
}

type View struct {
	items        []Item
	filter       models.Filter
	emptyVisible bool
}

func New() *View {
	return &View{filter: models.FilterAll, emptyVisible: true}
}

// RenderTask добавляет элемент в конец списка. Новый элемент сразу получает
// видимость по текущему фильтру
func (v *View) RenderTask(task models.Task) {
	v.items = append(v.items, Item{
		Task:    task,
		Visible: v.filter.Match(task.Completed),
	})
}

// RemoveTaskVisual сразу убирает все элементы с этим ID и пересчитывает
// сообщение "нет задач". Повторный вызов с тем же ID ничего не делает
func (v *View) RemoveTaskVisual(id int64) {
	kept := v.items[:0]
	for _, it := range v.items {
		if it.Task.ID != id {
			kept = append(kept, it)
		}
	}
	v.items = kept
	v.UpdateEmptyMessage()
}

// ToggleTaskVisual переключает отметку выполнения. Видимость не меняется
func (v *View) ToggleTaskVisual(id int64) {
	for i := range v.items {
		if v.items[i].Task.ID == id {
			v.items[i].Task.Completed = !v.items[i].Task.Completed
			return
		}
	}
}

func (v *View) ApplyFilter(mode models.Filter) {
	v.filter = mode
	for i := range v.items {
		v.items[i].Visible = mode.Match(v.items[i].Task.Completed)
	}
}

// UpdateEmptyMessage показывает сообщение, только когда в списке нет ни одного
// элемента. Скрытые фильтром элементы считаются
func (v *View) UpdateEmptyMessage() {
	v.emptyVisible = len(v.items) == 0
}

// Clear убирает все элементы
func (v *View) Clear() {
	v.items = nil
	v.UpdateEmptyMessage()
}

// Items возвращает копию всех элементов, включая скрытые
func (v *View) Items() []Item {
	out := make([]Item, len(v.items))
	copy(out, v.items)
	return out
}

// Visible возвращает только видимые элементы
func (v *View) Visible() []Item {
	out := make([]Item, 0, len(v.items))
	for _, it := range v.items {
		if it.Visible {
			out = append(out, it)
		}
	}
	return out
}

func (v *View) Filter() models.Filter { return v.filter }

func (v *View) EmptyMessageVisible() bool { return v.emptyVisible }

func (v *View) Len() int { return len(v.items) }
