package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.Detector.Backend = "ollama"
	cfg.Detector.URL = "http://localhost:11434"
	cfg.Policy.Swelling.Multiplier = 1.2
	cfg.Policy.Anthropometry.ScaleTolerance = 0.15
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Fatalf("config changed on round trip (-want +got):\n%s", diff)
	}
}

func TestLoadFromFile_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"policy":{"swelling":{"threshold_weeks":8,"multiplier":1.1}}}`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8.0, cfg.Policy.Swelling.ThresholdWeeks)
	assert.Equal(t, 0.44, cfg.Policy.Anthropometry.MidBustRatio)
	assert.Equal(t, "llamacpp", cfg.Detector.Backend)
}

func TestLoadFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFromFile(filepath.Join(dir, "config.yaml"))
	assert.ErrorContains(t, err, ".json extension")

	_, err = LoadFromFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"detector":`), 0o644))
	_, err = LoadFromFile(bad)
	assert.ErrorContains(t, err, "failed to parse")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown backend", func(c *Config) { c.Detector.Backend = "gemini" }, "Backend"},
		{"bad url", func(c *Config) { c.Detector.URL = "not a url" }, "URL"},
		{"no model", func(c *Config) { c.Detector.Model = "" }, "Model"},
		{"quality", func(c *Config) { c.Photo.SendQuality = 0 }, "SendQuality"},
		{"send format", func(c *Config) { c.Photo.SendFormat = "gif" }, "SendFormat"},
		{"log level", func(c *Config) { c.Log.Level = "chatty" }, "Level"},
		{"policy", func(c *Config) { c.Policy.Swelling.Multiplier = -1 }, "swelling.multiplier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("BRAFIT_BACKEND", "ollama")
	t.Setenv("BRAFIT_MODEL", "llava:13b")
	t.Setenv("BRAFIT_TIMEOUT", "90s")
	t.Setenv("BRAFIT_MIN_CONFIDENCE", "0.6")
	t.Setenv("BRAFIT_LOG_LEVEL", "debug")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "ollama", cfg.Detector.Backend)
	assert.Equal(t, "llava:13b", cfg.Detector.Model)
	assert.Equal(t, 90*time.Second, cfg.Detector.Timeout)
	assert.Equal(t, 0.6, cfg.Policy.Landmarks.MinConfidence)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "http://localhost:8080", cfg.Detector.URL)

	t.Setenv("BRAFIT_TIMEOUT", "soon")
	assert.Error(t, Default().ApplyEnv())
}

func TestTable(t *testing.T) {
	cfg := Default()
	table, err := cfg.Table()
	require.NoError(t, err)
	assert.NotEmpty(t, table.Bands)

	cfg.Calibration.TablePath = filepath.Join(t.TempDir(), "missing.json")
	_, err = cfg.Table()
	assert.Error(t, err)
}

func TestProcessing(t *testing.T) {
	p := Default().Processing()
	assert.Equal(t, "jpg", p.Format)
	assert.Equal(t, 1536, p.MaxDim)
}
