// Package config предоставляет структуры и функции для загрузки конфигурации сервиса.
//
// Конфигурация читается из YAML-файла по пути CONFIG_PATH (если он задан) и
// перекрывается переменными окружения. Для локальной разработки подхватывается .env.
package config

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DefaultJWTSecret — небезопасное значение по умолчанию; в prod запуск с ним запрещён.
const DefaultJWTSecret = "change-this-secret-in-prod"

// Окружения запуска.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env      string     `yaml:"env" env:"APP_ENV" env-default:"local"`
	HTTP     HTTPServer `yaml:"http_server"`
	GRPC     GRPCServer `yaml:"grpc_server"`
	Database Database   `yaml:"database"`
	Redis    Redis      `yaml:"redis_connection"`
	RabbitMQ RabbitMQ   `yaml:"rabbitmq"`
	JWT      JWTToken   `yaml:"jwttoken"`
	Cache    Cache      `yaml:"cache"`
	Security Security   `yaml:"security"`
}

// HTTPServer структура для настройки HTTP-сервера.
type HTTPServer struct {
	Address        string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":4000"`
	Timeout        time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"15s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000,http://localhost:5173"`
}

// GRPCServer структура для настройки внутреннего gRPC-справочника тенантов.
type GRPCServer struct {
	Address string `yaml:"address" env:"GRPC_ADDRESS" env-default:":4001"`
}

// Database описывает подключение к мастер-базе.
//
// URL имеет приоритет; если он пуст и включён SSM, строка подключения собирается
// из параметров AWS Parameter Store.
type Database struct {
	URL            string `yaml:"url" env:"DATABASE_URL"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	MaxOpenConns   int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	SSM            SSM    `yaml:"ssm"`
}

// SSM описывает имена параметров в AWS Systems Manager Parameter Store.
type SSM struct {
	Enabled       bool   `yaml:"enabled" env:"SSM_ENABLED"`
	Region        string `yaml:"region" env:"AWS_REGION" env-default:"ap-south-1"`
	FullURLParam  string `yaml:"full_url_param" env:"MASTER_DB_SSM_PARAM" env-default:"/prod/master-db-url"`
	Prefix        string `yaml:"prefix" env:"MASTER_DB_SSM_PREFIX" env-default:"/eatwithme"`
	DefaultDBName string `yaml:"default_db_name" env-default:"master-db"`
	SSLMode       string `yaml:"sslmode" env:"MASTER_DB_SSLMODE" env-default:"require"`
}

// Redis структура для настройки подключения к redis. Пустой адрес отключает кэш.
type Redis struct {
	Address     string        `yaml:"address" env:"REDIS_ADDRESS"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user" env:"REDIS_USER"`
	DB          int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries  int           `yaml:"max_retries" env-default:"3"`
	DialTimeout time.Duration `yaml:"dial_timeout" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeout" env-default:"3s"`
}

// RabbitMQ структура для публикации доменных событий. Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string        `yaml:"exchange" env-default:"admin.events"`
	Retries    int           `yaml:"retries" env-default:"3"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// JWTToken структура для работы с jwt-токеном администратора.
type JWTToken struct {
	SecretKey string        `yaml:"secret_key" env:"ADMIN_JWT_SECRET" env-default:"change-this-secret-in-prod"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"ADMIN_JWT_TTL" env-default:"168h"`
}

// Cache задаёт время жизни закэшированных ответов.
type Cache struct {
	PlansTTL     time.Duration `yaml:"plans_ttl" env-default:"5m"`
	AnalyticsTTL time.Duration `yaml:"analytics_ttl" env-default:"30s"`
}

// Security задаёт ключ сервисных маршрутов и ограничение частоты входа.
type Security struct {
	ServiceKey     string  `yaml:"service_key" env:"TENANT_SERVICE_KEY"`
	LoginRateLimit float64 `yaml:"login_rate_limit" env-default:"0.2"`
	LoginBurst     int     `yaml:"login_burst" env-default:"5"`
}

// Load читает конфигурацию и проверяет её.
func Load() (*Config, error) {
	const op = "config.Load"

	// .env нужен только локально, его отсутствие не ошибка.
	_ = godotenv.Load()

	var cfg Config
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("%s: config file %s: %w", op, configPath, err)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.HTTP.Address = ":" + port
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает конфиг и завершает процесс при ошибке.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	if c.Database.URL == "" && !c.Database.SSM.Enabled {
		return errors.New("database: set DATABASE_URL or enable ssm")
	}
	if c.Env == EnvProd {
		if c.JWT.SecretKey == DefaultJWTSecret {
			return errors.New("jwt: default secret is not allowed in prod")
		}
		if c.Security.ServiceKey == "" {
			return errors.New("security: service key is required in prod")
		}
	}
	return nil
}

// UsesDefaultSecret сообщает, что токены подписываются значением по умолчанию.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWT.SecretKey == DefaultJWTSecret
}

// LogValue реализует slog.LogValuer; секреты в лог не попадают.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("env", c.Env),
		slog.String("http_address", c.HTTP.Address),
		slog.String("grpc_address", c.GRPC.Address),
		slog.Bool("database_url_set", c.Database.URL != ""),
		slog.Bool("ssm_enabled", c.Database.SSM.Enabled),
		slog.String("redis_address", c.Redis.Address),
		slog.Bool("rabbitmq_enabled", c.RabbitMQ.URL != ""),
		slog.Duration("token_ttl", c.JWT.TokenTTL),
	)
}
