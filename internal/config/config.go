// Package config persists invoscan settings and resolves them into runtime
// provider configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/sheldonz/invoscan/pkg/invoice"
	"github.com/sheldonz/invoscan/pkg/pipeline"
	"github.com/sheldonz/invoscan/pkg/vision"
)

// FileName is the config file under the user home directory.
const FileName = ".invoscan.json"

// Config holds all persisted invoscan settings. The mapstructure tags are
// the viper keys; the json tags keep Save output loadable again.
type Config struct {
	Provider string `mapstructure:"provider" json:"provider" validate:"required,oneof=ollama volcengine openrouter"`

	Ollama     OllamaConfig     `mapstructure:"ollama" json:"ollama"`
	Volcengine VolcengineConfig `mapstructure:"volcengine" json:"volcengine"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter" json:"openrouter"`

	MaxRetries     int    `mapstructure:"max_retries" json:"max_retries" validate:"min=1,max=10"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" json:"timeout_seconds" validate:"min=1"`
	ScanDir        string `mapstructure:"scan_dir" json:"scan_dir,omitempty"`
	OutputDir      string `mapstructure:"output_dir" json:"output_dir,omitempty"`
	Mode           string `mapstructure:"mode" json:"mode" validate:"oneof=simple full"`

	EnableExcel    bool `mapstructure:"enable_excel" json:"enable_excel"`
	EnableMarkdown bool `mapstructure:"enable_markdown" json:"enable_markdown"`
	EnableRename   bool `mapstructure:"enable_rename" json:"enable_rename"`
	EnableValidate bool `mapstructure:"enable_validate" json:"enable_validate"`
	EnableVerify   bool `mapstructure:"enable_verify" json:"enable_verify"`
	EnableClassify bool `mapstructure:"enable_classify" json:"enable_classify"`

	ExcludeKeywords []string `mapstructure:"exclude_keywords" json:"exclude_keywords"`
}

// OllamaConfig selects a local Ollama server.
type OllamaConfig struct {
	Host  string `mapstructure:"host" json:"host" validate:"required"`
	Port  int    `mapstructure:"port" json:"port" validate:"min=1,max=65535"`
	Model string `mapstructure:"model" json:"model"`
}

// VolcengineConfig selects a Volcengine Ark endpoint.
type VolcengineConfig struct {
	APIKey     string `mapstructure:"api_key" json:"api_key"`
	EndpointID string `mapstructure:"endpoint_id" json:"endpoint_id"`
	Model      string `mapstructure:"model" json:"model"`
}

// OpenRouterConfig selects an OpenRouter model.
type OpenRouterConfig struct {
	APIKey string `mapstructure:"api_key" json:"api_key"`
	Model  string `mapstructure:"model" json:"model"`
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		Provider: vision.ProviderOllama,
		Ollama: OllamaConfig{
			Host:  "localhost",
			Port:  11434,
			Model: vision.GetDefaultModel(vision.ProviderOllama),
		},
		OpenRouter: OpenRouterConfig{
			Model: vision.GetDefaultModel(vision.ProviderOpenRouter),
		},
		MaxRetries:      3,
		TimeoutSeconds:  120,
		Mode:            string(invoice.ModeSimple),
		EnableExcel:     true,
		EnableMarkdown:  true,
		EnableValidate:  true,
		ExcludeKeywords: append([]string(nil), pipeline.DefaultExcludeKeywords...),
	}
}

// DefaultPath returns the config file location in the user home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// Load reads the config file at path, applies environment overrides, and
// validates the result. An empty path searches the home directory and the
// working directory. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".invoscan")
		v.SetConfigType("json")
	}

	v.SetEnvPrefix("INVOSCAN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// API keys are also honored from the providers' conventional variables.
	_ = v.BindEnv("ollama.host", "INVOSCAN_OLLAMA_HOST", "OLLAMA_HOST")
	_ = v.BindEnv("volcengine.api_key", "INVOSCAN_VOLCENGINE_API_KEY", "ARK_API_KEY")
	_ = v.BindEnv("openrouter.api_key", "INVOSCAN_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config as indented JSON. An empty path means the default
// location. Mode 0600 because the file can hold API keys.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ToProviderConfig resolves the active provider section into the runtime
// provider configuration. An empty model falls back to the provider default.
func (c *Config) ToProviderConfig() vision.ProviderConfig {
	pc := vision.DefaultProviderConfig()
	pc.Kind = c.Provider
	pc.MaxRetries = c.MaxRetries
	pc.Timeout = time.Duration(c.TimeoutSeconds) * time.Second

	switch c.Provider {
	case vision.ProviderOllama:
		pc.Host = c.Ollama.Host
		pc.Port = c.Ollama.Port
		pc.Model = c.Ollama.Model
	case vision.ProviderVolcengine:
		pc.APIKey = c.Volcengine.APIKey
		pc.EndpointID = c.Volcengine.EndpointID
		pc.Model = c.Volcengine.Model
	case vision.ProviderOpenRouter:
		pc.APIKey = c.OpenRouter.APIKey
		pc.Model = c.OpenRouter.Model
	}

	if pc.Model == "" {
		pc.Model = vision.GetDefaultModel(c.Provider)
	}
	return pc
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report field names as the config keys, not the Go identifiers.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks the configuration against the struct tags.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Config.")
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(e.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	}
	return fmt.Sprintf("%s fails %s validation", field, e.Tag())
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("provider", d.Provider)
	v.SetDefault("ollama.host", d.Ollama.Host)
	v.SetDefault("ollama.port", d.Ollama.Port)
	v.SetDefault("ollama.model", d.Ollama.Model)
	v.SetDefault("volcengine.api_key", "")
	v.SetDefault("volcengine.endpoint_id", "")
	v.SetDefault("volcengine.model", "")
	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.model", d.OpenRouter.Model)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("timeout_seconds", d.TimeoutSeconds)
	v.SetDefault("scan_dir", "")
	v.SetDefault("output_dir", "")
	v.SetDefault("mode", d.Mode)
	v.SetDefault("enable_excel", d.EnableExcel)
	v.SetDefault("enable_markdown", d.EnableMarkdown)
	v.SetDefault("enable_rename", d.EnableRename)
	v.SetDefault("enable_validate", d.EnableValidate)
	v.SetDefault("enable_verify", d.EnableVerify)
	v.SetDefault("enable_classify", d.EnableClassify)
	v.SetDefault("exclude_keywords", d.ExcludeKeywords)
}
