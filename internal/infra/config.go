package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/xela07ax/userhub/internal/monitor"
)

// Config — корневая структура конфигурации всего бэкенда.
type Config struct {
	Server   ServerConfig        `mapstructure:"server"`
	Database DatabaseConfig      `mapstructure:"database"`
	Redis    RedisConfig         `mapstructure:"redis"`
	Auth     AuthConfig          `mapstructure:"auth"`
	Logger   LoggerConfig        `mapstructure:"logger"`
	Sinks    SinksConfig         `mapstructure:"sinks"`
	Alerts   monitor.AlertConfig `mapstructure:"alerts"`
	Analyzer AnalyzerConfig      `mapstructure:"analyzer"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (Pub/Sub и Cache).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig содержит пути к RSA ключам и настройки JWT.
type AuthConfig struct {
	PublicKeyPath  string        `mapstructure:"public_key_path"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	// Лимит на попытки логина: защита от перебора паролей
	LoginRatePerSec float64 `mapstructure:"login_rate_per_sec"`
	LoginBurst      int     `mapstructure:"login_burst"`
	PublicKey       []byte
	PrivateKey      []byte
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// SinksConfig — получатели структурированных событий. Console включен всегда,
// остальные — по наличию настроек. Отсутствие адреса OpenSearch — не ошибка,
// а выключенный sink.
type SinksConfig struct {
	// Таймаут одного вызова доставки во внешний sink
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	File struct {
		Path      string `mapstructure:"path"`
		MaxSize   int64  `mapstructure:"max_size"` // Байты
		Retention int    `mapstructure:"retention"`
	} `mapstructure:"file"`

	Store struct {
		MinLevel      string        `mapstructure:"min_level"`
		BatchSize     int           `mapstructure:"batch_size"`
		FlushInterval time.Duration `mapstructure:"flush_interval"`
	} `mapstructure:"store"`

	OpenSearch struct {
		Addresses   []string `mapstructure:"addresses"`
		IndexPrefix string   `mapstructure:"index_prefix"`
	} `mapstructure:"opensearch"`
}

// AnalyzerConfig — параметры агрегатов Analyzer.
type AnalyzerConfig struct {
	P95ThresholdMS int64 `mapstructure:"p95_threshold_ms"`
	MaxWindowHours int   `mapstructure:"max_window_hours"` // Потолок для ?hours= в API
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")    // имя файла без расширения
	v.SetConfigType("yaml")      // формат
	v.AddConfigPath(".")         // ищем в корне
	v.AddConfigPath("./configs") // и в папке с конфигами

	// 2. Настройка переменных окружения (ENV)
	// Позволяет перекрывать конфиг: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Валидация порогов алертов. Кривой порог — ошибка загрузки,
	// никаких молчаливых подстановок
	if err := cfg.Alerts.Validate(); err != nil {
		return nil, err
	}

	// 7. Загрузка ключей из Файла ИЛИ из ENV
	// Сначала проверяем, не лежит ли сам PEM-ключ в ENV (для Docker/K8s)
	// Если нет — читаем файл по указанному пути
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")
	cfg.Auth.PrivateKey = loadKeyResource(cfg.Auth.PrivateKeyPath, "AUTH_PRIVATE_KEY_DATA")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.login_rate_per_sec", 5)
	v.SetDefault("auth.login_burst", 10)

	v.SetDefault("sinks.write_timeout", 3*time.Second)
	v.SetDefault("sinks.file.path", "logs/app.log")
	v.SetDefault("sinks.file.max_size", int64(100*1024*1024)) // 100MB
	v.SetDefault("sinks.file.retention", 10)
	v.SetDefault("sinks.store.min_level", "ERROR")
	v.SetDefault("sinks.store.batch_size", 100)
	v.SetDefault("sinks.store.flush_interval", time.Second)

	// Пороги из продовой практики: >10 ошибок за 5 минут, >5 отказов
	// логина за 10 минут с одного адреса
	v.SetDefault("alerts.error_rate_threshold", 10)
	v.SetDefault("alerts.error_rate_window", 5*time.Minute)
	v.SetDefault("alerts.failed_auth_threshold", 5)
	v.SetDefault("alerts.failed_auth_window", 10*time.Minute)
	v.SetDefault("alerts.latency_p95_threshold_ms", 5000)
	v.SetDefault("alerts.latency_window", 15*time.Minute)
	v.SetDefault("alerts.security_anomaly_threshold", 20)
	v.SetDefault("alerts.security_anomaly_window", 10*time.Minute)

	v.SetDefault("analyzer.p95_threshold_ms", 5000)
	v.SetDefault("analyzer.max_window_hours", 168)
}

// loadKeyResource — универсальный хелпер архитектора
func loadKeyResource(path string, envDataKey string) []byte {
	// Если ключ прилетел напрямую в ENV (Base64 или PEM)
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	// Иначе читаем файл по пути из конфига
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
