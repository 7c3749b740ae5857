// Package config содержит логику чтения конфигурации консоли автомойки.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Драйверы хранилища.
const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

// Config содержит параметры конфигурации консоли.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	StoreDriver string `env:"STORE_DRIVER"`
	DatabaseURI string `env:"DATABASE_URI"`
	BoltPath    string `env:"BOLT_PATH"`

	SessionSecret     string `env:"SESSION_SECRET"`
	AdminUsername     string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
	// AdminPassword хешируется при запуске, если хеш не задан.
	AdminPassword string `env:"ADMIN_PASSWORD"`

	CountryCode string   `env:"COUNTRY_CODE" envDefault:"91"`
	ShopName    string   `env:"SHOP_NAME" envDefault:"Four Win Cars"`
	TimeZone    string   `env:"TIME_ZONE" envDefault:"Asia/Kolkata"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envStoreDriver := cfg.StoreDriver
	envDatabaseURI := cfg.DatabaseURI
	envBoltPath := cfg.BoltPath

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.StoreDriver, "s", "", "store driver: memory, bolt or postgres")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.BoltPath, "b", "carwash.db", "bolt database file")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envStoreDriver != "" {
		cfg.StoreDriver = envStoreDriver
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envBoltPath != "" {
		cfg.BoltPath = envBoltPath
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = DriverBolt
		if cfg.DatabaseURI != "" {
			cfg.StoreDriver = DriverPostgres
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность параметров.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverBolt:
		if c.BoltPath == "" {
			return errors.New("bolt store requires BOLT_PATH")
		}
	case DriverPostgres:
		if c.DatabaseURI == "" {
			return errors.New("postgres store requires DATABASE_URI")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}

	if c.AdminPasswordHash == "" && c.AdminPassword == "" {
		return errors.New("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location возвращает часовой пояс, в котором считаются календарные дни.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}
