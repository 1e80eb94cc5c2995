package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/menta2k/nutrivision/pkg/detection"
	"github.com/menta2k/nutrivision/pkg/geometry"
	"github.com/menta2k/nutrivision/pkg/processing"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "NUTRIVISION_"

// Backends accepted in model.backend
const (
	BackendOllama   = "ollama"
	BackendLlamaCPP = "llamacpp"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	Model     ModelConfig     `json:"model"`
	Image     ImageConfig     `json:"image"`
	Detection DetectionConfig `json:"detection"`
	Nutrition NutritionConfig `json:"nutrition"`
	Logging   LoggingConfig   `json:"logging"`
}

// ServerConfig holds configuration for the HTTP API
type ServerConfig struct {
	Addr           string   `json:"addr"`
	AllowedOrigins []string `json:"allowed_origins"`
	MaxUploadMB    int      `json:"max_upload_mb"`
}

// ModelConfig selects and addresses the vision model backend
type ModelConfig struct {
	Backend        string `json:"backend"`
	URL            string `json:"url"`
	Name           string `json:"name"`
	APIKey         string `json:"api_key,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ImageConfig holds configuration for image preparation
type ImageConfig struct {
	TargetSize  int `json:"target_size"`
	JPEGQuality int `json:"jpeg_quality"`
}

// DetectionConfig holds configuration for the reconciliation pipeline
type DetectionConfig struct {
	OffsetX               int      `json:"offset_x"`
	OffsetY               int      `json:"offset_y"`
	MinBoxSize            int      `json:"min_box_size"`
	MinIngredients        int      `json:"min_ingredients"`
	PrimaryConfidence     float64  `json:"primary_confidence"`
	AlternativeConfidence float64  `json:"alternative_confidence"`
	ConfidenceVariation   float64  `json:"confidence_variation"`
	OverlapThreshold      float64  `json:"overlap_threshold"`
	ExtraNonFood          []string `json:"extra_non_food,omitempty"`
	PrimaryColor          string   `json:"primary_color"`
	AlternativeColor      string   `json:"alternative_color"`
}

// NutritionConfig points at an optional replacement nutrition table
type NutritionConfig struct {
	TablePath string `json:"table_path,omitempty"`
}

// LoggingConfig holds configuration for log output
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Default returns a configuration with default values
func Default() *Config {
	d := detection.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr: ":8000",
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
				"http://localhost:5174",
			},
			MaxUploadMB: 20,
		},
		Model: ModelConfig{
			Backend:        BackendOllama,
			URL:            "http://localhost:11434",
			Name:           d.Model,
			TimeoutSeconds: int(d.ModelTimeout / time.Second),
		},
		Image: ImageConfig{
			TargetSize:  processing.DefaultTargetSize,
			JPEGQuality: processing.DefaultJPEGQuality,
		},
		Detection: DetectionConfig{
			OffsetX:               d.Offset.X,
			OffsetY:               d.Offset.Y,
			MinBoxSize:            d.MinBoxSize,
			MinIngredients:        d.MinIngredients,
			PrimaryConfidence:     d.PrimaryConfidence,
			AlternativeConfidence: d.AlternativeConfidence,
			ConfidenceVariation:   d.ConfidenceVariation,
			OverlapThreshold:      d.OverlapThreshold,
			PrimaryColor:          "#00ff00",
			AlternativeColor:      "#ff0000",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Keys missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads filename if it exists (defaults otherwise), then applies .env
// and environment overrides and validates the result
func Load(filename string) (*Config, error) {
	config := Default()
	if filename != "" {
		loaded, err := LoadFromFile(filename)
		switch {
		case err == nil:
			config = loaded
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
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

// ApplyEnv overrides fields from NUTRIVISION_* environment variables
func (c *Config) ApplyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
		return nil
	}

	str("ADDR", &c.Server.Addr)
	if v := os.Getenv(EnvPrefix + "ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	str("BACKEND", &c.Model.Backend)
	str("MODEL_URL", &c.Model.URL)
	str("MODEL", &c.Model.Name)
	str("API_KEY", &c.Model.APIKey)
	str("NUTRITION_TABLE", &c.Nutrition.TablePath)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	if v := os.Getenv(EnvPrefix + "EXTRA_NON_FOOD"); v != "" {
		c.Detection.ExtraNonFood = splitList(v)
	}

	for key, dst := range map[string]*int{
		"MAX_UPLOAD_MB":   &c.Server.MaxUploadMB,
		"MODEL_TIMEOUT":   &c.Model.TimeoutSeconds,
		"TARGET_SIZE":     &c.Image.TargetSize,
		"JPEG_QUALITY":    &c.Image.JPEGQuality,
		"OFFSET_X":        &c.Detection.OffsetX,
		"OFFSET_Y":        &c.Detection.OffsetY,
		"MIN_BOX_SIZE":    &c.Detection.MinBoxSize,
		"MIN_INGREDIENTS": &c.Detection.MinIngredients,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}

	switch c.Model.Backend {
	case BackendOllama, BackendLlamaCPP:
	default:
		return fmt.Errorf("model.backend must be %q or %q, got %q", BackendOllama, BackendLlamaCPP, c.Model.Backend)
	}

	if c.Model.Name == "" {
		return fmt.Errorf("model.name cannot be empty")
	}

	if c.Image.TargetSize < 1 {
		return fmt.Errorf("image.target_size must be positive")
	}

	if c.Image.JPEGQuality < 1 || c.Image.JPEGQuality > 100 {
		return fmt.Errorf("image.jpeg_quality must be between 1 and 100")
	}

	if c.Detection.MinBoxSize < 0 {
		return fmt.Errorf("detection.min_box_size cannot be negative")
	}

	if c.Detection.MinIngredients < 0 {
		return fmt.Errorf("detection.min_ingredients cannot be negative")
	}

	if c.Detection.OverlapThreshold < 0 || c.Detection.OverlapThreshold > 1 {
		return fmt.Errorf("detection.overlap_threshold must be between 0 and 1")
	}

	for name, v := range map[string]float64{
		"primary_confidence":     c.Detection.PrimaryConfidence,
		"alternative_confidence": c.Detection.AlternativeConfidence,
		"confidence_variation":   c.Detection.ConfidenceVariation,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("detection.%s must be between 0 and 1", name)
		}
	}

	// Confidences are drawn from [base, base+variation]
	if c.Detection.PrimaryConfidence+c.Detection.ConfidenceVariation > 1 {
		return fmt.Errorf("detection.primary_confidence plus confidence_variation cannot exceed 1")
	}
	if c.Detection.AlternativeConfidence+c.Detection.ConfidenceVariation > 1 {
		return fmt.Errorf("detection.alternative_confidence plus confidence_variation cannot exceed 1")
	}

	if _, err := processing.ParseColor(c.Detection.PrimaryColor); err != nil {
		return fmt.Errorf("detection.primary_color: %w", err)
	}
	if _, err := processing.ParseColor(c.Detection.AlternativeColor); err != nil {
		return fmt.Errorf("detection.alternative_color: %w", err)
	}

	return nil
}

// DetectionSettings converts the file settings into pipeline settings.
// Colours must have passed Validate.
func (c *Config) DetectionSettings() detection.Config {
	d := detection.DefaultConfig()
	d.Model = c.Model.Name
	d.TargetSize = c.Image.TargetSize
	d.Offset = geometry.Offset{X: c.Detection.OffsetX, Y: c.Detection.OffsetY}
	d.MinBoxSize = c.Detection.MinBoxSize
	d.MinIngredients = c.Detection.MinIngredients
	d.PrimaryConfidence = c.Detection.PrimaryConfidence
	d.AlternativeConfidence = c.Detection.AlternativeConfidence
	d.ConfidenceVariation = c.Detection.ConfidenceVariation
	d.OverlapThreshold = c.Detection.OverlapThreshold
	if col, err := processing.ParseColor(c.Detection.PrimaryColor); err == nil {
		d.PrimaryColor = col
	}
	if col, err := processing.ParseColor(c.Detection.AlternativeColor); err == nil {
		d.AlternativeColor = col
	}
	d.ModelTimeout = c.ModelTimeout()
	return d
}

// ModelTimeout returns the model call timeout as a duration
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.Model.TimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "nutrivision", "config.json")
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
