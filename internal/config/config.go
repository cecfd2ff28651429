// Package config собирает настройки приложения из нескольких источников.
//
// Порядок приоритета (каждый следующий перекрывает предыдущий):
//  1. значения по умолчанию
//  2. TOML-файл (todo.toml или путь из -config / TODO_CONFIG)
//  3. файл .env (переменные окружения, уже заданные в процессе, не перекрываются;
//     может задавать и TODO_CONFIG)
//  4. переменные окружения TODO_*
//  5. флаги командной строки
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const DefaultConfigFile = "todo.toml"

type Config struct {
	LogLevel      string        `toml:"log_level"`
	HTTPAddr      string        `toml:"http_addr"`
	TelegramToken string        `toml:"telegram_token"`
	PDFFont       string        `toml:"pdf_font"` // TTF-шрифт с кириллицей для pdf
	Storage       StorageConfig `toml:"storage"`
}

type StorageConfig struct {
	// memory | sqlite | sqlite3 | mysql | postgres | redis
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
	// Имя записи, под которой лежит весь список
	Key string `toml:"key"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		HTTPAddr: ":8080",
		Storage: StorageConfig{
			Driver:      "sqlite",
			DSN:         "./data/todoapp.db",
			Key:         "todos",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "todo:",
		},
	}
}

// Load загружает конфигурацию. flags может быть nil - тогда флаги не разбираются
func Load(flags *flag.FlagSet, args []string) (*Config, error) {
	cfg := Default()

	var fl flagValues
	if flags != nil {
		fl.register(flags)
		if err := flags.Parse(args); err != nil {
			return nil, fmt.Errorf("разбор флагов: %w", err)
		}
	}

	// .env читаем до выбора TOML-файла, чтобы в нём можно было задать TODO_CONFIG
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("загрузка .env: %w", err)
	}

	path := DefaultConfigFile
	explicit := false
	if v := os.Getenv("TODO_CONFIG"); v != "" {
		path, explicit = v, true
	}
	if fl.configFile != "" {
		path, explicit = fl.configFile, true
	}
	if err := loadFile(cfg, path, explicit); err != nil {
		return nil, err
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	if flags != nil {
		fl.apply(flags, cfg)
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string, explicit bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("файл конфигурации %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("разбор %s: %w", path, err)
	}
	return nil
}

func loadFromEnv(cfg *Config) error {
	setString(&cfg.LogLevel, "TODO_LOG_LEVEL")
	setString(&cfg.HTTPAddr, "TODO_HTTP_ADDR")
	setString(&cfg.TelegramToken, "TODO_TELEGRAM_TOKEN")
	setString(&cfg.PDFFont, "TODO_PDF_FONT")
	setString(&cfg.Storage.Driver, "TODO_STORAGE")
	setString(&cfg.Storage.DSN, "TODO_DSN")
	setString(&cfg.Storage.Key, "TODO_STORAGE_KEY")
	setString(&cfg.Storage.RedisAddr, "TODO_REDIS_ADDR")
	setString(&cfg.Storage.RedisPassword, "TODO_REDIS_PASSWORD")
	setString(&cfg.Storage.RedisPrefix, "TODO_REDIS_PREFIX")

	if v := os.Getenv("TODO_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TODO_REDIS_DB должен быть числом: %w", err)
		}
		cfg.Storage.RedisDB = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

type flagValues struct {
	configFile string
	logLevel   string
	httpAddr   string
	driver     string
	dsn        string
}

func (f *flagValues) register(flags *flag.FlagSet) {
	flags.StringVar(&f.configFile, "config", "", "Path to TOML config file")
	flags.StringVar(&f.logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	flags.StringVar(&f.httpAddr, "addr", "", "HTTP listen address")
	flags.StringVar(&f.driver, "storage", "", "Storage driver (memory|sqlite|sqlite3|mysql|postgres|redis)")
	flags.StringVar(&f.dsn, "dsn", "", "Storage DSN")
}

// apply переносит в cfg только явно заданные флаги
func (f *flagValues) apply(flags *flag.FlagSet, cfg *Config) {
	flags.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "log-level":
			cfg.LogLevel = f.logLevel
		case "addr":
			cfg.HTTPAddr = f.httpAddr
		case "storage":
			cfg.Storage.Driver = f.driver
		case "dsn":
			cfg.Storage.DSN = f.dsn
		}
	})
}
