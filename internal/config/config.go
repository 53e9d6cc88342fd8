// Package config содержит логику чтения конфигурации сервиса fundvault.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress  = "localhost:8080"
	defaultPriceOracle = "https://api.coingecko.com/api/v3"
)

// Config содержит параметры конфигурации сервиса fundvault.
type Config struct {
	RunAddress         string `env:"RUN_ADDRESS"`
	DatabaseURI        string `env:"DATABASE_URI"`
	PriceOracleAddress string `env:"PRICE_ORACLE_ADDRESS"`

	JWTSecret     string `env:"JWT_SECRET"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	TwoFactorCode string `env:"TWO_FACTOR_CODE" envDefault:"123456"`

	RabbitMQURL          string `env:"RABBITMQ_URL"`
	NotificationExchange string `env:"NOTIFICATION_EXCHANGE" envDefault:"fundvault.notifications"`

	// CORSAllowedOrigins перечисляет источники, которым разрешены запросы с cookie; пустой список отключает CORS.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	RedisURL      string        `env:"REDIS_URL"`
	PriceCacheTTL time.Duration `env:"PRICE_CACHE_TTL" envDefault:"60s"`

	// ProfitDistributionSchedule задаётся cron-выражением; пустое значение отключает автоматическое распределение.
	ProfitDistributionSchedule string `env:"PROFIT_DISTRIBUTION_SCHEDULE"`
}

// Parse считывает конфигурацию из файла .env, переменных окружения и флагов командной строки.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envPriceOracle := cfg.PriceOracleAddress

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.PriceOracleAddress, "p", defaultPriceOracle, "price oracle base URL")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envPriceOracle != "" {
		cfg.PriceOracleAddress = envPriceOracle
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.PriceOracleAddress == "" {
		cfg.PriceOracleAddress = defaultPriceOracle
	}

	return cfg, nil
}
