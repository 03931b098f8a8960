package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Text.Intern)
	assert.Equal(t, 4, cfg.Driver.MaxReaders)
	assert.Equal(t, 1, cfg.Driver.MaxWriters)
	assert.Equal(t, 250*time.Millisecond, cfg.Driver.BusyTimeout.Std())
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("log:\n  level: debug\n  format: json\ndriver:\n  busy_timeout: 1.5s\n"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "stderr", cfg.Log.Output)
	assert.True(t, cfg.Text.Intern)
	assert.Equal(t, 4, cfg.Driver.MaxReaders)
	assert.Equal(t, 1500*time.Millisecond, cfg.Driver.BusyTimeout.Std())

	lc := cfg.LoggingConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "json", lc.Format)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad yaml", "log: [", "parse config"},
		{"bad duration", "driver:\n  busy_timeout: soon\n", "invalid duration"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad format", "log:\n  format: xml\n", "log.format"},
		{"negative readers", "driver:\n  max_readers: -1\n", "driver.max_readers"},
		{"negative writers", "driver:\n  max_writers: -2\n", "driver.max_writers"},
		{"negative timeout", "driver:\n  busy_timeout: -1s\n", "driver.busy_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tinycol.yml")
	require.NoError(t, os.WriteFile(path, []byte("text:\n  intern: false\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Text.Intern)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestDurationRoundTrip(t *testing.T) {
	out, err := yaml.Marshal(Default())
	require.NoError(t, err)
	assert.Contains(t, string(out), "busy_timeout: 250ms")

	cfg, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
