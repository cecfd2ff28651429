package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(nil, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Key != "todos" {
		t.Errorf("Неверные значения по умолчанию: %+v", cfg.Storage)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("Ожидался :8080, получено %s", cfg.HTTPAddr)
	}
}

func TestLoadPriority(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	tomlPath := filepath.Join(dir, "custom.toml")
	data := `
log_level = "debug"
http_addr = ":9000"

[storage]
driver = "redis"
dsn = "from-file"
redis_db = 3
`
	if err := os.WriteFile(tomlPath, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TODO_HTTP_ADDR=:7000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TODO_STORAGE", "postgres")
	// godotenv пишет прямо в окружение процесса, t.Setenv вернёт значение после теста
	t.Setenv("TODO_HTTP_ADDR", "")
	os.Unsetenv("TODO_HTTP_ADDR")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Load(fs, []string{"-config", tomlPath, "-dsn", "from-flag"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("log_level из файла: получено %q", cfg.LogLevel)
	}
	if cfg.Storage.RedisDB != 3 {
		t.Errorf("redis_db из файла: получено %d", cfg.Storage.RedisDB)
	}
	if cfg.HTTPAddr != ":7000" {
		t.Errorf(".env должен перекрывать файл: получено %q", cfg.HTTPAddr)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Errorf("окружение должно перекрывать файл: получено %q", cfg.Storage.Driver)
	}
	if cfg.Storage.DSN != "from-flag" {
		t.Errorf("флаг должен перекрывать всё: получено %q", cfg.Storage.DSN)
	}
}

func TestLoadConfigPathFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("http_addr = \":9100\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TODO_CONFIG=other.toml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TODO_CONFIG", "")
	os.Unsetenv("TODO_CONFIG")

	cfg, err := Load(nil, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9100" {
		t.Errorf("TODO_CONFIG из .env должен выбрать файл: получено %q", cfg.HTTPAddr)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	if _, err := Load(fs, []string{"-config", "nope.toml"}); err == nil {
		t.Error("Ожидалась ошибка для отсутствующего файла конфигурации")
	}
}

func TestLoadBadRedisDB(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TODO_REDIS_DB", "abc")

	if _, err := Load(nil, nil); err == nil {
		t.Error("Ожидалась ошибка для нечислового TODO_REDIS_DB")
	}
}

// chdir — замена t.Chdir (Go 1.24+): меняет рабочий каталог и восстанавливает его после теста
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
