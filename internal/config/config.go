// Пакет config — загрузка и валидация конфигурации SIBO
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Бэкенды хранилища записей.
const (
	StoreBackendFile     = "file"
	StoreBackendPostgres = "postgres"
)

// Config содержит все параметры конфигурации SIBO.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Хранилище ---

	// Директория файлов коллекций (users.json, scholarships.json, ...)
	DataDir string
	// Директория загруженных PDF-документов
	UploadDir string
	// Максимальный размер загружаемого документа в байтах
	MaxUploadSize int64
	// Бэкенд хранилища записей: file или postgres
	StoreBackend string

	// --- PostgreSQL (только для StoreBackend = postgres) ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Сессии ---

	// Секрет подписи токена сессии (пустой — случайный ключ на время жизни процесса)
	SessionSecret string
	// Флаг Secure для cookie сессии
	SecureCookie bool
	// Стоимость bcrypt для хеширования паролей
	BcryptCost int

	// --- Защита входа ---

	// Максимум попыток входа с одного адреса за окно
	LoginRateLimit int
	// Окно ограничения попыток входа
	LoginRateWindow time.Duration
	// Адрес Redis для распределённого лимитера (пустой — in-memory)
	RedisAddr string
	// Доверенные обратные прокси: только от них принимается X-Forwarded-For
	TrustedProxies []netip.Prefix

	// --- Кэш ---

	// Размер LRU-кэша стипендий
	CacheSize int
	// TTL записи в кэше стипендий
	CacheTTL time.Duration

	// --- Начальные данные ---

	AdminEmail    string
	AdminPassword string
	AdminName     string
	// Создавать демонстрационные стипендии при пустом хранилище
	SeedDemo bool

	// --- topologymetrics ---

	// Группа в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// SIBO_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("SIBO_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("SIBO_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SIBO_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("SIBO_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SIBO_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("SIBO_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SIBO_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Хранилище ---

	cfg.DataDir = getEnvDefault("SIBO_DATA_DIR", "./data")
	cfg.UploadDir = getEnvDefault("SIBO_UPLOAD_DIR", filepath.Join(cfg.DataDir, "uploads"))

	cfg.MaxUploadSize, err = getEnvInt64("SIBO_MAX_UPLOAD_SIZE", 10*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("SIBO_MAX_UPLOAD_SIZE: %w", err)
	}
	if cfg.MaxUploadSize < 1024 || cfg.MaxUploadSize > 100*1024*1024 {
		return nil, fmt.Errorf("SIBO_MAX_UPLOAD_SIZE: значение %d вне допустимого диапазона 1024-104857600", cfg.MaxUploadSize)
	}

	cfg.StoreBackend = getEnvDefault("SIBO_STORE_BACKEND", StoreBackendFile)
	switch cfg.StoreBackend {
	case StoreBackendFile:
	case StoreBackendPostgres:
		if err := cfg.loadDatabase(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("SIBO_STORE_BACKEND: недопустимое значение %q, допустимые: file, postgres", cfg.StoreBackend)
	}

	// --- Сессии ---

	cfg.SessionSecret = getEnvDefault("SIBO_SESSION_SECRET", "")

	cfg.SecureCookie, err = getEnvBool("SIBO_SECURE_COOKIE", false)
	if err != nil {
		return nil, fmt.Errorf("SIBO_SECURE_COOKIE: %w", err)
	}

	// SIBO_BCRYPT_COST — границы совпадают с bcrypt.MinCost/MaxCost
	cfg.BcryptCost, err = getEnvInt("SIBO_BCRYPT_COST", 10)
	if err != nil {
		return nil, fmt.Errorf("SIBO_BCRYPT_COST: %w", err)
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, fmt.Errorf("SIBO_BCRYPT_COST: значение %d вне допустимого диапазона 4-31", cfg.BcryptCost)
	}

	// --- Защита входа ---

	cfg.LoginRateLimit, err = getEnvInt("SIBO_LOGIN_RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("SIBO_LOGIN_RATE_LIMIT: %w", err)
	}
	if cfg.LoginRateLimit < 0 {
		return nil, fmt.Errorf("SIBO_LOGIN_RATE_LIMIT: значение %d не может быть отрицательным", cfg.LoginRateLimit)
	}

	cfg.LoginRateWindow, err = getEnvDuration("SIBO_LOGIN_RATE_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SIBO_LOGIN_RATE_WINDOW: %w", err)
	}

	cfg.RedisAddr = getEnvDefault("SIBO_REDIS_ADDR", "")

	cfg.TrustedProxies, err = parsePrefixes(getEnvDefault("SIBO_TRUSTED_PROXIES", ""))
	if err != nil {
		return nil, fmt.Errorf("SIBO_TRUSTED_PROXIES: %w", err)
	}

	// --- Кэш ---

	cfg.CacheSize, err = getEnvInt("SIBO_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("SIBO_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 1 || cfg.CacheSize > 100000 {
		return nil, fmt.Errorf("SIBO_CACHE_SIZE: значение %d вне допустимого диапазона 1-100000", cfg.CacheSize)
	}

	cfg.CacheTTL, err = getEnvDuration("SIBO_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SIBO_CACHE_TTL: %w", err)
	}

	// --- Начальные данные ---

	cfg.AdminEmail = strings.TrimSpace(getEnvDefault("SIBO_ADMIN_EMAIL", ""))
	cfg.AdminPassword = getEnvDefault("SIBO_ADMIN_PASSWORD", "")
	cfg.AdminName = getEnvDefault("SIBO_ADMIN_NAME", "Administrator")
	if cfg.AdminEmail != "" && cfg.AdminPassword == "" {
		return nil, fmt.Errorf("SIBO_ADMIN_PASSWORD: обязательна при заданной SIBO_ADMIN_EMAIL")
	}

	cfg.SeedDemo, err = getEnvBool("SIBO_SEED_DEMO", false)
	if err != nil {
		return nil, fmt.Errorf("SIBO_SEED_DEMO: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("SIBO_DEPHEALTH_GROUP", "sibo")

	cfg.DephealthCheckInterval, err = getEnvDuration("SIBO_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SIBO_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("SIBO_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SIBO_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// loadDatabase загружает параметры PostgreSQL. Вызывается только
// для бэкенда postgres, поэтому переменные обязательны лишь в этом режиме.
func (c *Config) loadDatabase() error {
	var err error

	c.DBHost, err = getEnvRequired("SIBO_DB_HOST")
	if err != nil {
		return err
	}

	c.DBPort, err = getEnvInt("SIBO_DB_PORT", 5432)
	if err != nil {
		return fmt.Errorf("SIBO_DB_PORT: %w", err)
	}

	c.DBName, err = getEnvRequired("SIBO_DB_NAME")
	if err != nil {
		return err
	}

	c.DBUser, err = getEnvRequired("SIBO_DB_USER")
	if err != nil {
		return err
	}

	c.DBPassword, err = getEnvRequired("SIBO_DB_PASSWORD")
	if err != nil {
		return err
	}

	c.DBSSLMode = getEnvDefault("SIBO_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[c.DBSSLMode] {
		return fmt.Errorf("SIBO_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", c.DBSSLMode)
	}

	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL для лейблов topologymetrics.
// Пароль в URL не включается.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.User(c.DBUser),
		Host:   fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:   "/" + c.DBName,
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 — то же, что getEnvInt, для размеров в байтах.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parsePrefixes разбирает список адресов и подсетей через запятую.
// Одиночный адрес трактуется как подсеть /32 (/128 для IPv6).
func parsePrefixes(val string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("некорректная подсеть %q", item)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("некорректный адрес %q", item)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
