/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ttlcache

import (
	"fmt"
	"time"

	"github.com/acronis/go-cachekit/config"
	"github.com/acronis/go-cachekit/reclaim"
)

const cfgDefaultKeyPrefix = "ttlcache"

const (
	cfgKeyDefaultTTL          = "defaultTTL"
	cfgKeySweepInterval       = "sweepInterval"
	cfgKeySweepQuota          = "sweepQuota"
	cfgKeyDispatchConcurrency = "dispatchConcurrency"
)

// Default values.
const (
	DefaultTTL                 = 24 * time.Hour
	DefaultSweepInterval       = 5 * time.Minute
	DefaultSweepQuota          = 20
	DefaultDispatchConcurrency = reclaim.DefaultDispatchConcurrency
)

// Config represents a set of configuration parameters for Cache.
type Config struct {
	// DefaultTTL is used by Put.
	DefaultTTL config.TimeDuration `mapstructure:"defaultTTL" yaml:"defaultTTL" json:"defaultTTL"`

	// SweepInterval is the delay between sweep passes. Zero disables the periodic sweep.
	SweepInterval config.TimeDuration `mapstructure:"sweepInterval" yaml:"sweepInterval" json:"sweepInterval"`

	// SweepQuota is the maximum number of entries a sweep pass inspects.
	SweepQuota int `mapstructure:"sweepQuota" yaml:"sweepQuota" json:"sweepQuota"`

	// DispatchConcurrency limits the number of eviction callbacks running at the same time.
	DispatchConcurrency int `mapstructure:"dispatchConcurrency" yaml:"dispatchConcurrency" json:"dispatchConcurrency"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config with the given key prefix ("ttlcache" if empty).
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		DefaultTTL:          config.TimeDuration(DefaultTTL),
		SweepInterval:       config.TimeDuration(DefaultSweepInterval),
		SweepQuota:          DefaultSweepQuota,
		DispatchConcurrency: DefaultDispatchConcurrency,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyDefaultTTL, DefaultTTL.String())
	dp.SetDefault(cfgKeySweepInterval, DefaultSweepInterval.String())
	dp.SetDefault(cfgKeySweepQuota, DefaultSweepQuota)
	dp.SetDefault(cfgKeyDispatchConcurrency, DefaultDispatchConcurrency)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	ttl, err := dp.GetDuration(cfgKeyDefaultTTL)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return dp.WrapKeyErr(cfgKeyDefaultTTL, fmt.Errorf("must be positive"))
	}
	c.DefaultTTL = config.TimeDuration(ttl)

	interval, err := dp.GetDuration(cfgKeySweepInterval)
	if err != nil {
		return err
	}
	if interval < 0 {
		return dp.WrapKeyErr(cfgKeySweepInterval, fmt.Errorf("must not be negative"))
	}
	c.SweepInterval = config.TimeDuration(interval)

	if c.SweepQuota, err = dp.GetInt(cfgKeySweepQuota); err != nil {
		return err
	}
	if c.SweepQuota <= 0 {
		return dp.WrapKeyErr(cfgKeySweepQuota, fmt.Errorf("must be positive"))
	}

	if c.DispatchConcurrency, err = dp.GetInt(cfgKeyDispatchConcurrency); err != nil {
		return err
	}
	if c.DispatchConcurrency <= 0 {
		return dp.WrapKeyErr(cfgKeyDispatchConcurrency, fmt.Errorf("must be positive"))
	}
	return nil
}

// Validate checks a Config filled in code rather than by a config.Loader.
func (c *Config) Validate() error {
	if c.DefaultTTL <= 0 {
		return fmt.Errorf("%s: must be positive, got %s", cfgKeyDefaultTTL, c.DefaultTTL)
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("%s: must not be negative, got %s", cfgKeySweepInterval, c.SweepInterval)
	}
	if c.SweepQuota <= 0 {
		return fmt.Errorf("%s: must be positive, got %d", cfgKeySweepQuota, c.SweepQuota)
	}
	if c.DispatchConcurrency < 0 {
		return fmt.Errorf("%s: must not be negative, got %d", cfgKeyDispatchConcurrency, c.DispatchConcurrency)
	}
	return nil
}
