// Package config はサーバーの設定を読み込みます。
// 優先順位: 環境変数 > .env > CONFIG_FILE (YAML) > デフォルト値
package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ストアのドライバー
const (
	DriverMongo    = "mongo"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// 実行モード
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvMock        = "mock"
)

// Config はサーバーの設定です。
type Config struct {
	Port          string        `yaml:"port" env:"PORT"`
	AppEnv        string        `yaml:"app_env" env:"APP_ENV"`
	StoreDriver   string        `yaml:"store_driver" env:"STORE_DRIVER"`
	MongoURI      string        `yaml:"mongo_uri" env:"MONGO_URI"`
	MongoDatabase string        `yaml:"mongo_database" env:"MONGO_DATABASE"`
	DatabaseDSN   string        `yaml:"database_dsn" env:"DATABASE_DSN"`
	UseMockDB     bool          `yaml:"use_mock_db" env:"USE_MOCK_DB"`
	HealthTimeout time.Duration `yaml:"store_health_timeout" env:"STORE_HEALTH_TIMEOUT"`
	CORSOrigins   []string      `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	StaticDir     string        `yaml:"static_dir" env:"STATIC_DIR"`
}

// Default はデフォルト値の設定を返します。
func Default() *Config {
	return &Config{
		Port:          "5000",
		AppEnv:        EnvDevelopment,
		StoreDriver:   DriverMongo,
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "task-manager",
		HealthTimeout: 2 * time.Second,
		CORSOrigins:   []string{"http://localhost:3000"},
		StaticDir:     "frontend/build",
	}
}

// Load は .env と CONFIG_FILE を読み込んでから環境変数を反映します。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	// 空のファイルは io.EOF になる
	if err := yaml.NewDecoder(f).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Validate は設定値の整合性を確認します。
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" && !c.ForceFallback() {
			return errors.New("MONGO_URI is required for the mongo store")
		}
	case DriverMySQL, DriverPostgres, DriverSQLite:
		if c.DatabaseDSN == "" && !c.ForceFallback() {
			return fmt.Errorf("DATABASE_DSN is required for the %s store", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %q", c.StoreDriver)
	}
	if c.HealthTimeout <= 0 {
		return errors.New("STORE_HEALTH_TIMEOUT must be positive")
	}
	return nil
}

// ForceFallback はストアに接続せずインメモリだけで動かす場合に true を返します。
func (c *Config) ForceFallback() bool {
	return c.UseMockDB || c.AppEnv == EnvMock
}

// Addr はリッスンアドレスを返します。
func (c *Config) Addr() string {
	return ":" + c.Port
}
