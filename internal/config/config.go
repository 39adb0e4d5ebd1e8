package config

import (
	"fmt"
	"time"

	coreconfig "github.com/go-core-fx/config"
	"github.com/shopspring/decimal"
)

type Config struct {
	StoreID     string `koanf:"store_id"`
	CashierID   string `koanf:"cashier_id"`
	CashierName string `koanf:"cashier_name"`

	RemoteDriver string `koanf:"remote_driver"`
	RemoteURL    string `koanf:"remote_url"`
	RemoteAPIKey string `koanf:"remote_api_key"`
	DatabaseURL  string `koanf:"database_url"`

	LocalDriver string `koanf:"local_driver"`
	LocalPath   string `koanf:"local_path"`
	RedisURL    string `koanf:"redis_url"`

	TaxRate       float64       `koanf:"tax_rate"`
	ProbeInterval time.Duration `koanf:"probe_interval"`
	HTTPAddr      string        `koanf:"http_addr"`
	Timeout       time.Duration `koanf:"timeout"`
	LogFile       string        `koanf:"log_file"`
	Debug         bool          `koanf:"debug"`
}

func New() (Config, error) {
	cfg := Default()

	if err := coreconfig.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}

func Default() Config {
	return Config{
		RemoteDriver:  "rest",
		LocalDriver:   "sqlite",
		LocalPath:     "./pos-umkm.db",
		TaxRate:       11,
		ProbeInterval: 10 * time.Second,
		HTTPAddr:      "127.0.0.1:8787",
		Timeout:       20 * time.Second,
		LogFile:       "./pos-umkm.log",
	}
}

// Tax returns the configured tax rate in percent.
func (c Config) Tax() decimal.Decimal {
	return decimal.NewFromFloat(c.TaxRate)
}
