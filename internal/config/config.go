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

	"github.com/joho/godotenv"

	"github.com/dentalai/dentalsynth/pkg/annotation"
	"github.com/dentalai/dentalsynth/pkg/client"
	"github.com/dentalai/dentalsynth/pkg/conditions"
	"github.com/dentalai/dentalsynth/pkg/dataset"
	"github.com/dentalai/dentalsynth/pkg/pipeline"
	"github.com/dentalai/dentalsynth/pkg/processing"
	"github.com/dentalai/dentalsynth/pkg/review"
	"github.com/dentalai/dentalsynth/pkg/synth"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DENTALSYNTH_"

// Config holds the application configuration
type Config struct {
	Generator  GeneratorConfig       `json:"generator"`
	Render     synth.Config          `json:"render"`
	Annotation annotation.Limits     `json:"annotation"`
	Output     OutputConfig          `json:"output"`
	Train      pipeline.TrainConfig  `json:"train"`
	Export     pipeline.ExportConfig `json:"export"`
	Review     ReviewConfig          `json:"review"`
	LogFile    string                `json:"log_file,omitempty"`
}

// GeneratorConfig holds dataset generation settings
type GeneratorConfig struct {
	Count         int      `json:"count"`
	TrainSplit    float64  `json:"train_split"`
	Seed          int64    `json:"seed"`
	MaxConditions int      `json:"max_conditions"`
	Classes       []string `json:"classes"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Dir     string `json:"dir"`
	Format  string `json:"format"`
	Quality int    `json:"quality"`
	Catalog string `json:"catalog,omitempty"` // sqlite path, empty disables
}

// ReviewConfig holds the vision model used to audit labels
type ReviewConfig struct {
	Backend      string        `json:"backend"`
	Host         string        `json:"host"`
	Model        string        `json:"model"`
	IoUThreshold float64       `json:"iou_threshold"`
	MaxImageDim  int           `json:"max_image_dim"`
	Timeout      time.Duration `json:"timeout"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Generator: GeneratorConfig{
			Count:         1000,
			TrainSplit:    0.8,
			Seed:          1,
			MaxConditions: 4,
			Classes:       conditions.Names(),
		},
		Render:     synth.DefaultConfig(),
		Annotation: annotation.DefaultLimits(),
		Output: OutputConfig{
			Dir:     "dental_dataset",
			Format:  processing.FormatJPG,
			Quality: 95,
		},
		Train:  pipeline.DefaultTrainConfig(),
		Export: pipeline.DefaultExportConfig(),
		Review: ReviewConfig{
			Backend:      client.BackendOllama,
			Host:         "http://localhost:11434",
			Model:        "qwen2.5vl:7b",
			IoUThreshold: review.DefaultIoUThreshold,
			MaxImageDim:  review.DefaultMaxImageDim,
			Timeout:      300 * time.Second,
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Missing fields keep their defaults.
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

// Load reads filename when it exists, applies .env and environment overrides,
// and validates the result. An empty filename uses GetConfigPath.
func Load(filename string) (*Config, error) {
	explicit := filename != ""
	if !explicit {
		filename = GetConfigPath()
	}

	config := Default()
	if _, err := os.Stat(filename); err == nil {
		loaded, err := LoadFromFile(filename)
		if err != nil {
			return nil, err
		}
		config = loaded
	} else if explicit {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

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

// ApplyEnv loads .env from the working directory if present and applies
// DENTALSYNTH_* overrides.
func (c *Config) ApplyEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	c.Generator.Count = getEnvAsInt("COUNT", c.Generator.Count)
	c.Generator.TrainSplit = getEnvAsFloat("TRAIN_SPLIT", c.Generator.TrainSplit)
	c.Generator.Seed = getEnvAsInt64("SEED", c.Generator.Seed)
	if classes := getEnv("CLASSES", ""); classes != "" {
		c.Generator.Classes = splitList(classes)
	}

	c.Render.Style = synth.Style(getEnv("STYLE", string(c.Render.Style)))
	c.Render.Width = getEnvAsInt("WIDTH", c.Render.Width)
	c.Render.Height = getEnvAsInt("HEIGHT", c.Render.Height)

	c.Output.Dir = getEnv("OUTPUT_DIR", c.Output.Dir)
	c.Output.Format = getEnv("FORMAT", c.Output.Format)
	c.Output.Quality = getEnvAsInt("QUALITY", c.Output.Quality)
	c.Output.Catalog = getEnv("CATALOG", c.Output.Catalog)

	c.Train.Device = getEnv("DEVICE", c.Train.Device)

	c.Review.Backend = getEnv("BACKEND", c.Review.Backend)
	c.Review.Host = getEnv("HOST", c.Review.Host)
	c.Review.Model = getEnv("MODEL", c.Review.Model)

	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Generator.Count < 1 {
		return invalid("generator.count must be positive")
	}
	if c.Generator.TrainSplit < dataset.MinTrainSplit || c.Generator.TrainSplit > dataset.MaxTrainSplit {
		return invalid("generator.train_split must be between %.1f and %.1f", dataset.MinTrainSplit, dataset.MaxTrainSplit)
	}
	if c.Generator.MaxConditions < 1 {
		return invalid("generator.max_conditions must be positive")
	}
	if len(c.Generator.Classes) == 0 {
		return invalid("generator.classes cannot be empty")
	}
	if _, _, err := conditions.ParseSet(c.Generator.Classes); err != nil {
		return invalid("generator.classes: %v", err)
	}

	if err := c.Render.Validate(); err != nil {
		return invalid("render: %v", err)
	}
	if err := c.Annotation.Validate(); err != nil {
		return invalid("annotation: %v", err)
	}

	if c.Output.Dir == "" {
		return invalid("output.dir cannot be empty")
	}
	if _, err := processing.NormalizeFormat(c.Output.Format); err != nil {
		return invalid("output.format: %v", err)
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return invalid("output.quality must be between 1 and 100")
	}

	if err := c.Train.Validate(); err != nil {
		return invalid("train: %v", err)
	}
	if err := c.Export.Validate(); err != nil {
		return invalid("export: %v", err)
	}

	if c.Review.Backend != client.BackendOllama && c.Review.Backend != client.BackendLlamaCpp {
		return invalid("review.backend must be %s or %s", client.BackendOllama, client.BackendLlamaCpp)
	}
	if c.Review.IoUThreshold < 0 || c.Review.IoUThreshold > 1 {
		return invalid("review.iou_threshold must be between 0 and 1")
	}

	return nil
}

// DatasetOptions builds generation options rooted at Output.Dir. The second
// return value lists class names that were given as aliases.
func (c *Config) DatasetOptions() (dataset.Options, []string, error) {
	set, aliased, err := conditions.ParseSet(c.Generator.Classes)
	if err != nil {
		return dataset.Options{}, nil, invalid("generator.classes: %v", err)
	}
	opts := dataset.Options{
		Root:          c.Output.Dir,
		Count:         c.Generator.Count,
		TrainSplit:    c.Generator.TrainSplit,
		Render:        c.Render,
		Format:        c.Output.Format,
		Quality:       c.Output.Quality,
		Seed:          c.Generator.Seed,
		MaxConditions: c.Generator.MaxConditions,
		Classes:       set,
		Limits:        c.Annotation,
	}
	if err := opts.Validate(); err != nil {
		return dataset.Options{}, nil, invalid("%v", err)
	}
	return opts, aliased, nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "dentalsynth", "config.json")
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
