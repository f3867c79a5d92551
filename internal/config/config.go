package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/menta2k/brafit/internal/logging"
	"github.com/menta2k/brafit/pkg/engine"
	"github.com/menta2k/brafit/pkg/processing"
	"github.com/menta2k/brafit/pkg/sizing"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "BRAFIT_"

// maxConfigSize bounds configuration files read from disk
const maxConfigSize = 1 << 20

// Config holds the application configuration
type Config struct {
	Detector    DetectorConfig    `json:"detector"`
	Photo       PhotoConfig       `json:"photo"`
	Policy      engine.Policy     `json:"policy"`
	Calibration CalibrationConfig `json:"calibration"`
	Log         logging.Config    `json:"log"`
}

// DetectorConfig selects the vision backend used to find landmarks
type DetectorConfig struct {
	Backend string        `json:"backend" validate:"oneof=ollama llamacpp"`
	URL     string        `json:"url" validate:"omitempty,url"`
	Model   string        `json:"model" validate:"required"`
	Timeout time.Duration `json:"timeout" validate:"gte=0"`
}

// PhotoConfig controls how photos are checked and sent to the model
type PhotoConfig struct {
	SendFormat  string `json:"send_format" validate:"oneof=jpg png"`
	SendMaxDim  int    `json:"send_max_dim" validate:"gte=0"`
	SendQuality int    `json:"send_quality" validate:"gte=1,lte=100"`
	MinSize     int    `json:"min_size" validate:"gte=1"`
}

// CalibrationConfig points at an external calibration table. An empty path
// selects the embedded default.
type CalibrationConfig struct {
	TablePath string `json:"table_path,omitempty"`
}

// Default returns a configuration with default values
func Default() *Config {
	photo := processing.DefaultConfig()
	return &Config{
		Detector: DetectorConfig{
			Backend: "llamacpp",
			URL:     "http://localhost:8080",
			Model:   "openbmb/minicpm-v4.5",
			Timeout: 5 * time.Minute,
		},
		Photo: PhotoConfig{
			SendFormat:  photo.Format,
			SendMaxDim:  photo.MaxDim,
			SendQuality: photo.Quality,
			MinSize:     photo.MinSize,
		},
		Policy: engine.DefaultPolicy(),
		Log:    logging.DefaultConfig(),
	}
}

// LoadFromFile loads configuration from a JSON file. Fields absent from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	cleanPath := filepath.Clean(filename)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from BRAFIT_* environment variables
func (c *Config) ApplyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	str("BACKEND", &c.Detector.Backend)
	str("URL", &c.Detector.URL)
	str("MODEL", &c.Detector.Model)
	str("CALIBRATION", &c.Calibration.TablePath)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)

	if v, ok := os.LookupEnv(EnvPrefix + "TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Detector.Timeout = d
	}
	if v, ok := os.LookupEnv(EnvPrefix + "MIN_CONFIDENCE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sMIN_CONFIDENCE: %w", EnvPrefix, err)
		}
		c.Policy.Landmarks.MinConfidence = f
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("invalid config policy: %w", err)
	}
	return nil
}

// Processing converts the photo section into processor settings
func (c *Config) Processing() processing.Config {
	return processing.Config{
		Format:  c.Photo.SendFormat,
		MaxDim:  c.Photo.SendMaxDim,
		Quality: c.Photo.SendQuality,
		MinSize: c.Photo.MinSize,
	}
}

// Table loads the calibration table, falling back to the embedded default
func (c *Config) Table() (*sizing.Table, error) {
	if c.Calibration.TablePath == "" {
		return sizing.DefaultTable(), nil
	}
	return sizing.LoadTable(c.Calibration.TablePath)
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "brafit", "config.json")
}
