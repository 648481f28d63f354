// Package config loads assessment settings from defaults, an optional config
// file and ASSESS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/sweetpotato0/procedure-assess/contrib/provider"
	errorskg "github.com/sweetpotato0/procedure-assess/errors"
)

// EnvPrefix prefixes every environment override, e.g. ASSESS_LLM_MODEL.
const EnvPrefix = "ASSESS"

// Config is the full application configuration.
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm"`
	Search     SearchConfig     `mapstructure:"search"`
	Assessment AssessmentConfig `mapstructure:"assessment"`
	Output     OutputConfig     `mapstructure:"output"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Log        LogConfig        `mapstructure:"log"`
}

// LLMConfig selects the completion backend. Model answers the assessment
// prompts; ReaderModel answers questions about the record itself.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	ReaderModel string  `mapstructure:"reader_model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	// MaxCalls caps backend calls per client; 0 means unlimited.
	MaxCalls int `mapstructure:"max_calls"`
}

// SearchConfig configures the web search client.
type SearchConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// AssessmentConfig controls the pipeline.
type AssessmentConfig struct {
	Criteria       string `mapstructure:"criteria"`
	CriteriaDir    string `mapstructure:"criteria_dir"`
	Concurrency    int    `mapstructure:"concurrency"`
	ProfileRetries int    `mapstructure:"profile_retries"`
}

// OutputConfig controls where reports are written.
type OutputConfig struct {
	Dir  string `mapstructure:"dir"`
	HTML bool   `mapstructure:"html"`
}

// TelemetryConfig controls tracing.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"llm.provider":               "",
	"llm.model":                  "gpt-4o",
	"llm.reader_model":           "gpt-4o-mini",
	"llm.api_key":                "",
	"llm.base_url":               "",
	"llm.temperature":            0.0,
	"llm.max_tokens":             4096,
	"llm.max_calls":              0,
	"search.endpoint":            "https://html.duckduckgo.com/html/",
	"search.max_results":         5,
	"search.timeout":             "20s",
	"assessment.criteria":        "colonoscopy",
	"assessment.criteria_dir":    "",
	"assessment.concurrency":     1,
	"assessment.profile_retries": 3,
	"output.dir":                 ".",
	"output.html":                false,
	"telemetry.enabled":          false,
	"telemetry.endpoint":         "",
	"telemetry.service_name":     "procedure-assess",
	"log.level":                  "info",
	"log.format":                 "text",
}

// apiKeyEnv lists the conventional credential variable of each backend.
var apiKeyEnv = map[provider.Name]string{
	provider.OpenAI:    "OPENAI_API_KEY",
	provider.Anthropic: "ANTHROPIC_API_KEY",
	provider.Gemini:    "GEMINI_API_KEY",
}

// New returns a viper instance with defaults and environment bindings set.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and returns the finalized configuration. It does not validate;
// call Validate once command-line overrides are applied.
func Load(path string) (*Config, error) {
	return LoadFrom(New(), path)
}

// LoadFrom is Load over a caller-supplied viper instance, which lets the CLI
// bind its flags first.
func LoadFrom(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: config file %s: %w", errorskg.ErrNotFound, path, err)
			}
			return nil, fmt.Errorf("%w: read config %s: %w", errorskg.ErrConfiguration, path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config: %w", errorskg.ErrConfiguration, err)
	}
	cfg.Finalize()
	return cfg, nil
}

// Finalize fills derived settings: the provider is inferred from the model,
// a reader model served by another backend falls back to the main model and
// a missing API key is read from the provider's own variable.
func (c *Config) Finalize() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = string(provider.Infer(c.LLM.Model))
	}
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	if c.LLM.ReaderModel == "" || string(provider.Infer(c.LLM.ReaderModel)) != c.LLM.Provider {
		c.LLM.ReaderModel = c.LLM.Model
	}
	if c.LLM.APIKey == "" {
		if env, ok := apiKeyEnv[provider.Name(c.LLM.Provider)]; ok {
			c.LLM.APIKey = os.Getenv(env)
		}
	}
}

// Validate checks every section and reports all problems at once. A missing
// credential is an errors.ErrConfiguration.
func (c *Config) Validate() error {
	var errs []error
	if err := ValidateLLMConfig(c.LLM.Provider, c.LLM.APIKey, c.LLM.Model, c.LLM.Temperature, c.LLM.MaxTokens); err != nil {
		errs = append(errs, err)
	}
	if err := NewValidator().RequireNonNegative("llm.max_calls", c.LLM.MaxCalls).Error(); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateSearchConfig(c.Search.Endpoint, c.Search.MaxResults); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateAssessmentConfig(c.Assessment.Criteria, c.Assessment.Concurrency, c.Assessment.ProfileRetries); err != nil {
		errs = append(errs, err)
	}
	if err := NewValidator().
		ValidateOneOf("log.format", c.Log.Format, "text", "json").
		ValidateOneOf("log.level", strings.ToLower(c.Log.Level), "debug", "info", "warn", "error").
		Error(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ProviderConfig returns the backend configuration for model. The configured
// temperature is always forwarded, 0 included.
func (c *Config) ProviderConfig(model string) provider.Config {
	temperature := c.LLM.Temperature
	return provider.Config{
		Provider:    provider.Name(c.LLM.Provider),
		Model:       model,
		APIKey:      c.LLM.APIKey,
		BaseURL:     c.LLM.BaseURL,
		MaxTokens:   int64(c.LLM.MaxTokens),
		Temperature: &temperature,
	}
}
