package logger

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(LevelInfo))
}

// SetLevel задает минимальный уровень логирования
func SetLevel(l Level) {
	currentLevel.Store(int32(l))
}

// ParseLevel переводит строку из конфигурации в уровень. Неизвестное значение -> info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func enabled(l Level) bool {
	return int32(l) >= currentLevel.Load()
}

func Debug(ctx context.Context, msg string, fields ...any) {
	write(ctx, LevelDebug, "DEBUG", msg, fields)
}

func Info(ctx context.Context, msg string, fields ...any) {
	write(ctx, LevelInfo, "INFO", msg, fields)
}

func Warn(ctx context.Context, msg string, fields ...any) {
	write(ctx, LevelWarn, "WARN", msg, fields)
}

// Error пишет сообщение и ошибку (если она есть) в формате "msg: err"
func Error(ctx context.Context, err error, msg string, fields ...any) {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	write(ctx, LevelError, "ERROR", msg, fields)
}

func write(_ context.Context, l Level, tag, msg string, fields []any) {
	if !enabled(l) {
		return
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(tag)
	b.WriteString("] ")
	b.WriteString(msg)

	// Поля передаются парами ключ-значение
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
		} else {
			fmt.Fprintf(&b, " %v", fields[i])
		}
	}

	log.Print(b.String())
}
