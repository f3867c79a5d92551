package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/brafit"
	"github.com/menta2k/brafit/internal/config"
	"github.com/menta2k/brafit/internal/logging"
)

const frontJSON = `{"landmarks":[
  {"name":"left_shoulder","x":0.644,"y":0.30,"confidence":0.9},
  {"name":"right_shoulder","x":0.356,"y":0.30,"confidence":0.9},
  {"name":"left_hip","x":0.58,"y":0.70,"confidence":0.9},
  {"name":"right_hip","x":0.42,"y":0.70,"confidence":0.9}
]}`

const sideJSON = `{"landmarks":[
  {"name":"left_shoulder","x":0.50,"y":0.30,"z":-0.05,"confidence":0.9},
  {"name":"right_shoulder","x":0.50,"y":0.30,"z":0.05,"confidence":0.8},
  {"name":"left_hip","x":0.51,"y":0.70,"confidence":0.9},
  {"name":"right_hip","x":0.49,"y":0.70,"confidence":0.8}
]}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_LandmarkFiles(t *testing.T) {
	dir := t.TempDir()
	o := options{
		front:   writeFile(t, dir, "front.json", frontJSON),
		side:    writeFile(t, dir, "side.json", sideJSON),
		weeks:   3,
		band:    34,
		refKind: "torso_length",
		refCM:   50,
		out:     filepath.Join(dir, "report.json"),
	}

	require.NoError(t, run(context.Background(), o, config.Default(), logging.Discard()))

	data, err := os.ReadFile(o.out)
	require.NoError(t, err)
	var report brafit.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "34D", report.Size.Label)
	assert.True(t, report.Volume.Applied)
}

func TestRun_BandReference(t *testing.T) {
	dir := t.TempDir()
	o := options{
		front:   writeFile(t, dir, "front.json", frontJSON),
		side:    writeFile(t, dir, "side.json", sideJSON),
		weeks:   12,
		band:    34,
		refKind: "band",
		out:     filepath.Join(dir, "report.json"),
	}

	require.NoError(t, run(context.Background(), o, config.Default(), logging.Discard()))

	data, err := os.ReadFile(o.out)
	require.NoError(t, err)
	var report brafit.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.True(t, report.Calibrated)
	assert.Equal(t, "34FF", report.Size.Label)
}

func TestRun_MixedInputs(t *testing.T) {
	dir := t.TempDir()
	o := options{
		front: writeFile(t, dir, "front.json", frontJSON),
		side:  filepath.Join(dir, "side.jpg"),
	}
	err := run(context.Background(), o, config.Default(), logging.Discard())
	assert.ErrorContains(t, err, "both be photos")
}

func TestRun_UnsupportedPhoto(t *testing.T) {
	dir := t.TempDir()
	o := options{
		front: filepath.Join(dir, "front.txt"),
		side:  filepath.Join(dir, "side.jpg"),
		weeks: 10,
	}
	err := run(context.Background(), o, config.Default(), logging.Discard())
	assert.ErrorContains(t, err, "unsupported photo")
	assert.ErrorContains(t, err, "front.txt")
}

func TestRun_BadLandmarkFile(t *testing.T) {
	dir := t.TempDir()
	o := options{
		front: writeFile(t, dir, "front.json", `{"pose_landmarks": []}`),
		side:  writeFile(t, dir, "side.json", sideJSON),
		weeks: 10,
	}
	err := run(context.Background(), o, config.Default(), logging.Discard())
	assert.ErrorContains(t, err, "front.json")
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BRAFIT_MODEL", "from-env")

	cfg, err := loadConfig(options{
		backend:       "ollama",
		model:         "from-flag",
		explicitFlags: map[string]bool{"backend": true, "model": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Detector.Backend)
	assert.Equal(t, "http://localhost:11434", cfg.Detector.URL)
	assert.Equal(t, "from-flag", cfg.Detector.Model)

	_, err = loadConfig(options{backend: "gpt", explicitFlags: map[string]bool{"backend": true}})
	assert.Error(t, err)
}

func TestNewVisionClient(t *testing.T) {
	_, err := newVisionClient(config.DetectorConfig{Backend: "ollama", URL: "http://localhost:11434"})
	assert.NoError(t, err)
	_, err = newVisionClient(config.DetectorConfig{Backend: "llamacpp"})
	assert.NoError(t, err)
	_, err = newVisionClient(config.DetectorConfig{Backend: "other"})
	assert.Error(t, err)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "12345678", shortID("12345678-aaaa"))
	assert.Equal(t, "unknown", shortID("unknown"))
}
