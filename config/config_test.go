/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type testSweepConfig struct {
	Interval time.Duration
	Quota    int
	Mode     string
	Buffer   uint64
}

func (c *testSweepConfig) KeyPrefix() string { return "sweep" }

func (c *testSweepConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("interval", "5m")
	dp.SetDefault("quota", 20)
	dp.SetDefault("mode", "lazy")
	dp.SetDefault("buffer", "1M")
}

func (c *testSweepConfig) Set(dp DataProvider) error {
	var err error
	if c.Interval, err = dp.GetDuration("interval"); err != nil {
		return err
	}
	if c.Quota, err = dp.GetInt("quota"); err != nil {
		return err
	}
	if c.Mode, err = dp.GetStringFromSet("mode", []string{"lazy", "eager"}, true); err != nil {
		return err
	}
	if c.Buffer, err = dp.GetSizeInBytes("buffer"); err != nil {
		return err
	}
	return nil
}

func TestLoader_LoadFromReader(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := &testSweepConfig{}
		require.NoError(t, NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, cfg))
		require.Equal(t, 5*time.Minute, cfg.Interval)
		require.Equal(t, 20, cfg.Quota)
		require.Equal(t, "lazy", cfg.Mode)
		require.Equal(t, uint64(1024*1024), cfg.Buffer)
	})

	t.Run("prefixed yaml values", func(t *testing.T) {
		cfg := &testSweepConfig{}
		data := "sweep:\n  interval: 1500ms\n  quota: 3\n  mode: EAGER\n  buffer: 2Mi\n"
		require.NoError(t, NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(data), DataTypeYAML, cfg))
		require.Equal(t, 1500*time.Millisecond, cfg.Interval)
		require.Equal(t, 3, cfg.Quota)
		require.Equal(t, "EAGER", cfg.Mode)
		require.Equal(t, uint64(2*1024*1024), cfg.Buffer)
	})

	t.Run("value outside of set", func(t *testing.T) {
		cfg := &testSweepConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"sweep":{"mode":"never"}}`), DataTypeJSON, cfg)
		require.EqualError(t, err, `sweep.mode: unknown value "never", should be one of [lazy eager]`)
	})

	t.Run("malformed duration", func(t *testing.T) {
		cfg := &testSweepConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"sweep":{"interval":"soon"}}`), DataTypeJSON, cfg)
		require.ErrorContains(t, err, "sweep.interval")
	})
}

func TestLoader_EnvVars(t *testing.T) {
	t.Setenv("CACHEKIT_SWEEP_QUOTA", "7")
	cfg := &testSweepConfig{}
	require.NoError(t, NewDefaultLoader("cachekit").LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, cfg))
	require.Equal(t, 7, cfg.Quota)
}

func TestTimeDuration(t *testing.T) {
	var holder struct {
		TTL TimeDuration `json:"ttl" yaml:"ttl"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"ttl":"24h"}`), &holder))
	require.Equal(t, 24*time.Hour, holder.TTL.Duration())

	require.NoError(t, json.Unmarshal([]byte(`{"ttl":1000}`), &holder))
	require.Equal(t, time.Microsecond, holder.TTL.Duration())

	require.NoError(t, yaml.Unmarshal([]byte("ttl: 2000ms\n"), &holder))
	require.Equal(t, 2*time.Second, holder.TTL.Duration())

	require.Error(t, json.Unmarshal([]byte(`{"ttl":"-1s"}`), &holder))
	require.Error(t, yaml.Unmarshal([]byte("ttl: tomorrow\n"), &holder))

	out, err := json.Marshal(TimeDuration(90 * time.Second))
	require.NoError(t, err)
	require.Equal(t, `"1m30s"`, string(out))
}

func TestByteSize(t *testing.T) {
	var b ByteSize
	require.NoError(t, b.UnmarshalText([]byte("250M")))
	require.Equal(t, ByteSize(250*1024*1024), b)
	require.NoError(t, b.UnmarshalText([]byte("1Gi")))
	require.Equal(t, ByteSize(1024*1024*1024), b)
	require.NoError(t, b.UnmarshalJSON([]byte("42")))
	require.Equal(t, ByteSize(42), b)
	require.Error(t, b.UnmarshalText([]byte("-1")))
	require.Error(t, b.UnmarshalText([]byte("lots")))
}

func TestViperAdapter_UnmarshalKey(t *testing.T) {
	va := NewViperAdapter()
	require.NoError(t, va.SetFromReader(bytes.NewBufferString("cache:\n  ttl: 90s\n  size: 4K\n"), DataTypeYAML))

	var dst struct {
		TTL  TimeDuration `mapstructure:"ttl"`
		Size ByteSize     `mapstructure:"size"`
	}
	require.NoError(t, va.UnmarshalKey("cache", &dst, WithTypedDurations()))
	require.Equal(t, 90*time.Second, dst.TTL.Duration())
	require.Equal(t, ByteSize(4096), dst.Size)
}
