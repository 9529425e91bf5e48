// Package config holds the run configuration, fixed at startup.
package config

import (
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// Cache backend selectors.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config is decoded once from viper (flags, config file, environment)
// and never mutated afterwards.
type Config struct {
	Address       string  `mapstructure:"address"`
	Alias         string  `mapstructure:"alias"`
	ChainID       string  `mapstructure:"chain-id"`
	StartHeight   uint64  `mapstructure:"start-height"`
	EndHeight     uint64  `mapstructure:"end-height"`
	TokenPerBlock float64 `mapstructure:"token-per-block"`
	FeePercentage float64 `mapstructure:"fee-percentage"`
	Output        string  `mapstructure:"output"`
	Node          string  `mapstructure:"node"`

	CacheFile    string `mapstructure:"cache-file"`
	CacheBackend string `mapstructure:"cache-backend"`
	PostgresDSN  string `mapstructure:"postgres-dsn"`

	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	MetricsListen  string        `mapstructure:"metrics-listen"`
	Attachment     string        `mapstructure:"attachment"`
	PaymentFee     int64         `mapstructure:"payment-fee"`
	LogLevel       string        `mapstructure:"log-level"`
}

// Validate checks the configuration before the run starts.
func (c Config) Validate() error {
	if c.Address == "" {
		return errors.New("address must be set")
	}
	if c.Node == "" {
		return errors.New("node must be set")
	}
	if _, err := url.ParseRequestURI(c.Node); err != nil {
		return errors.WithMessagef(err, "invalid node URL %q", c.Node)
	}
	if c.EndHeight < c.StartHeight {
		return errors.Errorf("end-height %d is below start-height %d", c.EndHeight, c.StartHeight)
	}
	if c.FeePercentage < 0 || c.FeePercentage > 100 {
		return errors.Errorf("fee-percentage %v is outside [0, 100]", c.FeePercentage)
	}
	if c.Output == "" {
		return errors.New("output must be set")
	}
	switch c.CacheBackend {
	case BackendFile:
		if c.CacheFile == "" {
			return errors.New("cache-file must be set for the file backend")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres-dsn must be set for the postgres backend")
		}
	default:
		return errors.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	return nil
}
