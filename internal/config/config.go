// Package config loads plan-judge configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (PLAN_JUDGE_*, plus DEFAULT_MODEL, TEMPERATURE
//     and <CRITERION>_WEIGHT)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. explicit path (--config)
//  2. .plan-judge.yaml in current directory
//  3. ~/.config/plan-judge/config.yaml
//
// Criterion weights are loaded here but their sum is checked by the run, so
// that a bad weight set is reported as a configuration failure of the run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/timvw/plan-judge/internal/model"
	"gopkg.in/yaml.v3"
)

const (
	ModeAutomated = "automated"
	ModeManual    = "manual"
)

// Config holds all plan-judge configuration.
type Config struct {
	// LLM settings
	Provider    string   `yaml:"provider" validate:"omitempty,oneof=anthropic openai gemini"`
	Model       string   `yaml:"model" validate:"required"`
	BaseURL     string   `yaml:"base_url" validate:"omitempty,url"`
	APIKey      string   `yaml:"api_key"`
	MaxTokens   int64    `yaml:"max_tokens" validate:"gte=0"`
	Temperature *float64 `yaml:"temperature" validate:"omitempty,gte=0,lte=2"`

	// Evaluation settings
	Mode         string                `yaml:"mode" validate:"oneof=automated manual"`
	OutputDir    string                `yaml:"output_dir"`
	PromptDir    string                `yaml:"prompt_dir"`
	ResponseDir  string                `yaml:"response_dir"`
	Parallel     int                   `yaml:"parallel" validate:"gte=1"`
	Timeout      string                `yaml:"timeout"` // Go duration string, e.g. "10m"
	TopN         int                   `yaml:"top_n"`
	GapThreshold *float64              `yaml:"gap_threshold" validate:"omitempty,gte=0,lte=10"`
	Criteria     []model.CriterionSpec `yaml:"criteria" validate:"dive"`

	// Score cache
	CacheTTL string `yaml:"cache_ttl"` // Go duration string, e.g. "24h"
	CacheDir string `yaml:"cache_dir"`

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs, e.g. "Authorization=Basic abc123"

	// Parsed durations (not from YAML, set after loading)
	TimeoutDuration  time.Duration `yaml:"-"`
	CacheTTLDuration time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	temperature := 0.1
	gap := 5.0
	return &Config{
		Model:        "claude-sonnet-4-5",
		MaxTokens:    2048,
		Temperature:  &temperature,
		Mode:         ModeAutomated,
		OutputDir:    "outputs",
		Parallel:     8,
		Timeout:      "10m",
		TopN:         3,
		GapThreshold: &gap,
		Criteria:     model.DefaultCriteria(),
		CacheTTL:     "24h",
	}
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values. path may be empty to
// search the default locations.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	path, data, err := findConfigFile(path)
	switch {
	case err == nil:
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	case !errors.Is(err, errNoConfigFile):
		return nil, err
	}

	// Environment variables override everything
	if err := mergeEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.Provider == "" {
		cfg.Provider = InferProvider(cfg.Model)
	}
	applyAzureBaseURL(cfg)
	if cfg.PromptDir == "" {
		cfg.PromptDir = filepath.Join(cfg.OutputDir, "prompts")
	}
	if cfg.ResponseDir == "" {
		cfg.ResponseDir = filepath.Join(cfg.OutputDir, "responses")
	}

	cfg.TimeoutDuration, err = parseDurationOrDisable(cfg.Timeout, 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout %q: %w", cfg.Timeout, err)
	}
	cfg.CacheTTLDuration, err = parseDurationOrDisable(cfg.CacheTTL, 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid cache TTL %q: %w", cfg.CacheTTL, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field-level constraints. Weight sums and top_n are
// checked when the run starts.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	seen := make(map[string]bool, len(c.Criteria))
	for _, crit := range c.Criteria {
		if seen[crit.Name] {
			return fmt.Errorf("invalid configuration: duplicate criterion %q", crit.Name)
		}
		seen[crit.Name] = true
	}
	return nil
}

// Weights returns the criterion name -> weight mapping.
func (c *Config) Weights() map[string]float64 {
	return model.Weights(c.Criteria)
}

// TemperatureValue returns the sampling temperature.
func (c *Config) TemperatureValue() float64 {
	if c.Temperature == nil {
		return 0.1
	}
	return *c.Temperature
}

// GapThresholdValue returns the champion gap threshold.
func (c *Config) GapThresholdValue() float64 {
	if c.GapThreshold == nil {
		return 5.0
	}
	return *c.GapThreshold
}

var errNoConfigFile = errors.New("no config file found")

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile(explicit string) (string, []byte, error) {
	if explicit != "" {
		data, err := os.ReadFile(explicit)
		if err != nil {
			return "", nil, fmt.Errorf("reading config file: %w", err)
		}
		return explicit, data, nil
	}

	// 1. Current directory
	if data, err := os.ReadFile(".plan-judge.yaml"); err == nil {
		return ".plan-judge.yaml", data, nil
	}

	// 2. XDG config dir / ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "plan-judge", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, errNoConfigFile
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Provider != "" {
		cfg.Provider = file.Provider
	}
	if file.Model != "" {
		cfg.Model = file.Model
	}
	if file.BaseURL != "" {
		cfg.BaseURL = file.BaseURL
	}
	if file.APIKey != "" {
		cfg.APIKey = file.APIKey
	}
	if file.MaxTokens > 0 {
		cfg.MaxTokens = file.MaxTokens
	}
	if file.Temperature != nil {
		cfg.Temperature = file.Temperature
	}
	if file.Mode != "" {
		cfg.Mode = file.Mode
	}
	if file.OutputDir != "" {
		cfg.OutputDir = file.OutputDir
	}
	if file.PromptDir != "" {
		cfg.PromptDir = file.PromptDir
	}
	if file.ResponseDir != "" {
		cfg.ResponseDir = file.ResponseDir
	}
	if file.Parallel > 0 {
		cfg.Parallel = file.Parallel
	}
	if file.Timeout != "" {
		cfg.Timeout = file.Timeout
	}
	if file.TopN != 0 {
		cfg.TopN = file.TopN
	}
	if file.GapThreshold != nil {
		cfg.GapThreshold = file.GapThreshold
	}
	if len(file.Criteria) > 0 {
		cfg.Criteria = mergeCriteria(cfg.Criteria, file.Criteria)
	}
	if file.CacheTTL != "" {
		cfg.CacheTTL = file.CacheTTL
	}
	if file.CacheDir != "" {
		cfg.CacheDir = file.CacheDir
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeCriteria replaces the criterion set with the file's. A file entry
// naming a built-in criterion inherits the built-in title, description and
// rubric unless it sets its own.
func mergeCriteria(builtin, file []model.CriterionSpec) []model.CriterionSpec {
	known := make(map[string]model.CriterionSpec, len(builtin))
	for _, c := range builtin {
		known[c.Name] = c
	}
	out := make([]model.CriterionSpec, 0, len(file))
	for _, c := range file {
		if b, ok := known[c.Name]; ok {
			if c.Title == "" {
				c.Title = b.Title
			}
			if c.Description == "" {
				c.Description = b.Description
			}
			if len(c.Rubric) == 0 {
				c.Rubric = b.Rubric
			}
		}
		out = append(out, c)
	}
	return out
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) error {
	if v := os.Getenv("PLAN_JUDGE_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("DEFAULT_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("PLAN_JUDGE_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("PLAN_JUDGE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("PLAN_JUDGE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("PLAN_JUDGE_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("PLAN_JUDGE_PROMPT_DIR"); v != "" {
		cfg.PromptDir = v
	}
	if v := os.Getenv("PLAN_JUDGE_RESPONSE_DIR"); v != "" {
		cfg.ResponseDir = v
	}
	if v := os.Getenv("PLAN_JUDGE_TIMEOUT"); v != "" {
		cfg.Timeout = v
	}
	if v := os.Getenv("PLAN_JUDGE_CACHE_TTL"); v != "" {
		cfg.CacheTTL = v
	}
	if v := os.Getenv("PLAN_JUDGE_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"PLAN_JUDGE_PARALLEL", &cfg.Parallel},
		{"PLAN_JUDGE_TOP_N", &cfg.TopN},
	}
	for _, e := range ints {
		if v := os.Getenv(e.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", e.key, v, err)
			}
			*e.dst = n
		}
	}
	if v := os.Getenv("PLAN_JUDGE_MAX_TOKENS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid PLAN_JUDGE_MAX_TOKENS %q: %w", v, err)
		}
		cfg.MaxTokens = n
	}

	floats := []struct {
		key string
		dst **float64
	}{
		{"TEMPERATURE", &cfg.Temperature},
		{"PLAN_JUDGE_TEMPERATURE", &cfg.Temperature},
		{"PLAN_JUDGE_GAP_THRESHOLD", &cfg.GapThreshold},
	}
	for _, e := range floats {
		if v := os.Getenv(e.key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", e.key, v, err)
			}
			*e.dst = &f
		}
	}

	// Per-criterion weights, e.g. STRATEGIC_WEIGHT=0.5
	for i := range cfg.Criteria {
		key := strings.ToUpper(cfg.Criteria[i].Name) + "_WEIGHT"
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			cfg.Criteria[i].Weight = f
		}
	}

	// API key fallbacks, by provider
	if cfg.APIKey == "" {
		cfg.APIKey = firstEnv(apiKeyEnv(cfg.Provider, cfg.Model)...)
	}
	return nil
}

func apiKeyEnv(provider, modelName string) []string {
	if provider == "" {
		provider = InferProvider(modelName)
	}
	switch provider {
	case "openai":
		return []string{"AZURE_OPENAI_API_KEY", "OPENAI_API_KEY"}
	case "gemini":
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	default:
		return []string{"ANTHROPIC_API_KEY"}
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// applyAzureBaseURL derives the Azure endpoint from AZURE_RESOURCE_NAME.
func applyAzureBaseURL(cfg *Config) {
	if cfg.BaseURL != "" {
		return
	}
	if rn := os.Getenv("AZURE_RESOURCE_NAME"); rn != "" {
		switch cfg.Provider {
		case "anthropic":
			cfg.BaseURL = fmt.Sprintf("https://%s.services.ai.azure.com/anthropic/", rn)
		case "openai":
			cfg.BaseURL = fmt.Sprintf("https://%s.openai.azure.com/openai/v1", rn)
		}
	}
}

// InferProvider guesses the provider from a model name.
func InferProvider(modelName string) string {
	m := strings.ToLower(modelName)
	switch {
	case strings.HasPrefix(m, "gemini"):
		return "gemini"
	case strings.HasPrefix(m, "gpt"), strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"), strings.HasPrefix(m, "o4"):
		return "openai"
	default:
		return "anthropic"
	}
}

// parseDurationOrDisable parses a duration string. "0", "off", "disable" return 0.
// Empty string returns the fallback value.
func parseDurationOrDisable(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	if s == "0" || s == "off" || s == "disable" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// IsAzureEndpoint returns true if the URL is an Azure endpoint.
func IsAzureEndpoint(url string) bool {
	return strings.Contains(url, ".azure.com") || strings.Contains(url, ".azure.us")
}
