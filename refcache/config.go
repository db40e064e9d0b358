/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package refcache

import (
	"fmt"

	"github.com/acronis/go-cachekit/config"
	"github.com/acronis/go-cachekit/reclaim"
)

const cfgDefaultKeyPrefix = "refcache"

const (
	cfgKeyStrength            = "strength"
	cfgKeySoftCapacity        = "softCapacity"
	cfgKeyDispatchConcurrency = "dispatchConcurrency"
)

// Default values.
const (
	DefaultStrength            = reclaim.StrengthSoft
	DefaultSoftCapacity        = reclaim.DefaultSoftCapacity
	DefaultDispatchConcurrency = reclaim.DefaultDispatchConcurrency
)

// Config represents a set of configuration parameters for Slot and Keyed caches.
type Config struct {
	// Strength defines when a cached value may be reclaimed (weak, soft or counted).
	Strength reclaim.Strength `mapstructure:"strength" yaml:"strength" json:"strength"`

	// SoftCapacity is the number of most recently used values pinned when Strength is soft.
	// It is ignored if a shared retainer is passed via Options.
	SoftCapacity int `mapstructure:"softCapacity" yaml:"softCapacity" json:"softCapacity"`

	// DispatchConcurrency limits the number of teardowns running at the same time.
	DispatchConcurrency int `mapstructure:"dispatchConcurrency" yaml:"dispatchConcurrency" json:"dispatchConcurrency"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config with the given key prefix ("refcache" if empty).
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Strength:            DefaultStrength,
		SoftCapacity:        DefaultSoftCapacity,
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
	dp.SetDefault(cfgKeyStrength, string(DefaultStrength))
	dp.SetDefault(cfgKeySoftCapacity, DefaultSoftCapacity)
	dp.SetDefault(cfgKeyDispatchConcurrency, DefaultDispatchConcurrency)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	strengthStr, err := dp.GetStringFromSet(cfgKeyStrength, reclaim.AvailableStrengths, true)
	if err != nil {
		return err
	}
	if c.Strength, err = reclaim.ParseStrength(strengthStr); err != nil {
		return dp.WrapKeyErr(cfgKeyStrength, err)
	}

	if c.SoftCapacity, err = dp.GetInt(cfgKeySoftCapacity); err != nil {
		return err
	}
	if c.SoftCapacity <= 0 {
		return dp.WrapKeyErr(cfgKeySoftCapacity, fmt.Errorf("must be positive"))
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
	if _, err := reclaim.ParseStrength(string(c.Strength)); err != nil {
		return fmt.Errorf("%s: %w", cfgKeyStrength, err)
	}
	if c.Strength == reclaim.StrengthSoft && c.SoftCapacity <= 0 {
		return fmt.Errorf("%s: must be positive, got %d", cfgKeySoftCapacity, c.SoftCapacity)
	}
	if c.DispatchConcurrency < 0 {
		return fmt.Errorf("%s: must not be negative, got %d", cfgKeyDispatchConcurrency, c.DispatchConcurrency)
	}
	return nil
}
