package models

import (
	"errors"
	"fmt"
	"strings"
)

// DateLayout - формат даты в хранилище (ISO, как у <input type="date">)
const DateLayout = "2006-01-02"

// Task - единственная сущность списка. Поля совпадают с сохранённым форматом
type Task struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Date      string `json:"date"`
	Completed bool   `json:"completed"`
}

// Структура только для входящих запросов (HTTP, CLI, бот, TUI)
type CreateTaskRequest struct {
	Text string `json:"text"`
	Date string `json:"date"`
}

type Filter string

const (
	FilterAll         Filter = "all"
	FilterCompleted   Filter = "completed"
	FilterUncompleted Filter = "uncompleted"
)

var ErrInvalidFilter = errors.New("неизвестный фильтр")

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterAll, FilterCompleted, FilterUncompleted:
		return f, nil
	case "":
		return FilterAll, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
}

// Match сообщает, должна ли задача быть видна при этом фильтре
func (f Filter) Match(completed bool) bool {
	switch f {
	case FilterCompleted:
		return completed
	case FilterUncompleted:
		return !completed
	default:
		return true
	}
}
