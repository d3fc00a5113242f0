package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"

	ClickModeSync  = "sync"
	ClickModeAsync = "async"
)

type Config struct {
	App     AppConfig
	Log     LogConfig
	Storage StorageConfig
	DB      DBConfig
	SQLite  SQLiteConfig
	Redis   RedisConfig
	Cache   CacheConfig
	Click   ClickConfig
	CORS    CORSConfig
}

type AppConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // json | console
}

type StorageConfig struct {
	Driver string // postgres | sqlite | redis
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type SQLiteConfig struct {
	URL string // file:shortener.db или libsql://...
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type ClickConfig struct {
	Mode    string // sync | async
	Timeout time.Duration
	Workers int
	Buffer  int
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load читает конфигурацию из .env (если файл есть) и переменных окружения
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom читает конфигурацию из указанного dotenv-файла. Отсутствие файла не считается ошибкой.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	cfg.App.Port = v.GetString("APP_PORT")
	cfg.App.ShutdownTimeout = v.GetDuration("SHUTDOWN_TIMEOUT")

	cfg.Log.Level = strings.ToLower(v.GetString("LOG_LEVEL"))
	cfg.Log.Format = strings.ToLower(v.GetString("LOG_FORMAT"))

	cfg.Storage.Driver = strings.ToLower(v.GetString("STORAGE_DRIVER"))

	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")
	cfg.DB.SSLMode = v.GetString("DB_SSLMODE")

	cfg.SQLite.URL = v.GetString("SQLITE_URL")

	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	cfg.Cache.Enabled = v.GetBool("CACHE_ENABLED")
	cfg.Cache.TTL = v.GetDuration("CACHE_TTL")

	cfg.Click.Mode = strings.ToLower(v.GetString("CLICK_MODE"))
	cfg.Click.Timeout = v.GetDuration("CLICK_TIMEOUT")
	cfg.Click.Workers = v.GetInt("CLICK_WORKERS")
	cfg.Click.Buffer = v.GetInt("CLICK_BUFFER")

	// Формат: https://dash.example.com,http://localhost:3000
	cfg.CORS.AllowedOrigins = parseList(v.GetString("CORS_ALLOWED_ORIGINS"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "5s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STORAGE_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "shortener")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_URL", "file:shortener.db")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_TTL", "24h")
	v.SetDefault("CLICK_MODE", ClickModeSync)
	v.SetDefault("CLICK_TIMEOUT", "2s")
	v.SetDefault("CLICK_WORKERS", 3)
	v.SetDefault("CLICK_BUFFER", 1000)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres, DriverSQLite, DriverRedis:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.Click.Mode {
	case ClickModeSync, ClickModeAsync:
	default:
		return fmt.Errorf("unknown CLICK_MODE %q", c.Click.Mode)
	}

	if c.App.Port == "" {
		return errors.New("APP_PORT must not be empty")
	}
	if c.App.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be > 0, got %v", c.App.ShutdownTimeout)
	}
	if c.Click.Timeout <= 0 {
		return fmt.Errorf("CLICK_TIMEOUT must be > 0, got %v", c.Click.Timeout)
	}
	if c.Click.Mode == ClickModeAsync && (c.Click.Workers < 1 || c.Click.Buffer < 1) {
		return fmt.Errorf("CLICK_WORKERS and CLICK_BUFFER must be >= 1 in async mode")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be > 0, got %v", c.Cache.TTL)
	}

	return nil
}

// parseList разбирает список через запятую, пропуская пустые элементы
func parseList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
