// Package config loads runtime settings from flags, environment variables,
// an optional provokers.yaml file and built-in defaults, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keys
const (
	KeyDBPath     = "db.path"
	KeyDBDriver   = "db.driver"
	KeyPromptsDir = "prompts.dir"

	KeyModelProvider    = "model.provider"
	KeyModelTimeout     = "model.timeout"
	KeyModelMaxRetries  = "model.max_retries"
	KeyModelTemperature = "model.temperature"

	KeyOpenAIKey      = "providers.openai.api_key"
	KeyOpenAIModel    = "providers.openai.model"
	KeyOpenAIBaseURL  = "providers.openai.base_url"
	KeyOllamaHost     = "providers.ollama.host"
	KeyOllamaModel    = "providers.ollama.model"
	KeyAnthropicKey   = "providers.anthropic.api_key"
	KeyAnthropicModel = "providers.anthropic.model"
	KeyGeminiKey      = "providers.gemini.api_key"
	KeyGeminiModel    = "providers.gemini.model"
	KeyGeminiBaseURL  = "providers.gemini.base_url"

	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"

	KeyTelemetryEnabled = "telemetry.enabled"
	KeyTelemetryStdout  = "telemetry.stdout"
	KeyTelemetryOTLP    = "telemetry.otlp_endpoint"

	KeyServerTransport = "server.transport"
	KeyServerAddr      = "server.addr"
)

// EnvPrefix prefixes every environment variable read by the tool, so that
// db.path is read from PROVOKERS_DB_PATH.
const EnvPrefix = "PROVOKERS"

// FileName is the config file base name searched for when no explicit file
// is given.
const FileName = "provokers"

// Config is the resolved runtime configuration.
type Config struct {
	DB        DB        `json:"db" yaml:"db"`
	Prompts   Prompts   `json:"prompts" yaml:"prompts"`
	Model     Model     `json:"model" yaml:"model"`
	Providers Providers `json:"providers" yaml:"providers"`
	Log       Log       `json:"log" yaml:"log"`
	Telemetry Telemetry `json:"telemetry" yaml:"telemetry"`
	Server    Server    `json:"server" yaml:"server"`

	// File is the config file that was read, if any.
	File string `json:"file,omitempty" yaml:"-"`
}

// DB selects the case database.
type DB struct {
	Path   string `json:"path" yaml:"path"`
	Driver string `json:"driver" yaml:"driver"`
}

// Prompts points at a directory of template overrides.
type Prompts struct {
	Dir string `json:"dir" yaml:"dir"`
}

// Model holds settings shared by every provider.
type Model struct {
	Provider    string        `json:"provider" yaml:"provider"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
	MaxRetries  int           `json:"max_retries" yaml:"max_retries"`
	Temperature float64       `json:"temperature" yaml:"temperature"`
}

// Providers holds per-provider credentials and model names.
type Providers struct {
	OpenAI    OpenAI    `json:"openai" yaml:"openai"`
	Ollama    Ollama    `json:"ollama" yaml:"ollama"`
	Anthropic Anthropic `json:"anthropic" yaml:"anthropic"`
	Gemini    Gemini    `json:"gemini" yaml:"gemini"`
}

type OpenAI struct {
	APIKey  string `json:"-" yaml:"-"`
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url" yaml:"base_url"`
}

type Ollama struct {
	Host  string `json:"host" yaml:"host"`
	Model string `json:"model" yaml:"model"`
}

type Anthropic struct {
	APIKey string `json:"-" yaml:"-"`
	Model  string `json:"model" yaml:"model"`
}

type Gemini struct {
	APIKey  string `json:"-" yaml:"-"`
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url" yaml:"base_url"`
}

// Log configures the process logger.
type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Telemetry configures OpenTelemetry export.
type Telemetry struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	Stdout       bool   `json:"stdout" yaml:"stdout"`
	OTLPEndpoint string `json:"otlp_endpoint" yaml:"otlp_endpoint"`
}

// Server configures the MCP transport.
type Server struct {
	Transport string `json:"transport" yaml:"transport"`
	Addr      string `json:"addr" yaml:"addr"`
}

// New returns a viper instance with defaults and environment bindings
// registered. Callers bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	registerDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional provider variables, after the prefixed ones.
	_ = v.BindEnv(KeyOpenAIKey, "PROVOKERS_PROVIDERS_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv(KeyAnthropicKey, "PROVOKERS_PROVIDERS_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv(KeyGeminiKey, "PROVOKERS_PROVIDERS_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	_ = v.BindEnv(KeyOllamaHost, "PROVOKERS_PROVIDERS_OLLAMA_HOST", "OLLAMA_HOST")
	return v
}

func registerDefaults(v *viper.Viper) {
	v.SetDefault(KeyDBPath, filepath.Join("data", "provokers.db"))
	v.SetDefault(KeyDBDriver, "ncruces")
	v.SetDefault(KeyPromptsDir, "prompts")

	v.SetDefault(KeyModelProvider, "openai")
	v.SetDefault(KeyModelTimeout, "2m")
	v.SetDefault(KeyModelMaxRetries, 0)
	v.SetDefault(KeyModelTemperature, 0.2)

	v.SetDefault(KeyOpenAIModel, "gpt-4o")
	v.SetDefault(KeyOpenAIBaseURL, "https://api.openai.com/v1")
	v.SetDefault(KeyOllamaHost, "http://localhost:11434")
	v.SetDefault(KeyOllamaModel, "llama3")
	v.SetDefault(KeyAnthropicModel, "claude-sonnet-4-5")
	v.SetDefault(KeyGeminiModel, "gemini-2.5-flash")

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")

	v.SetDefault(KeyTelemetryEnabled, false)
	v.SetDefault(KeyTelemetryStdout, false)
	v.SetDefault(KeyTelemetryOTLP, "")

	v.SetDefault(KeyServerTransport, "stdio")
	v.SetDefault(KeyServerAddr, ":8081")
}

// Load reads the config file into v and resolves the Config. An explicit
// file must exist; otherwise ./provokers.yaml and
// $HOME/.config/provokers/provokers.yaml are tried and may be absent.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "provokers"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		DB: DB{
			Path:   v.GetString(KeyDBPath),
			Driver: strings.ToLower(v.GetString(KeyDBDriver)),
		},
		Prompts: Prompts{Dir: v.GetString(KeyPromptsDir)},
		Model: Model{
			Provider:    strings.ToLower(v.GetString(KeyModelProvider)),
			Timeout:     v.GetDuration(KeyModelTimeout),
			MaxRetries:  v.GetInt(KeyModelMaxRetries),
			Temperature: v.GetFloat64(KeyModelTemperature),
		},
		Providers: Providers{
			OpenAI: OpenAI{
				APIKey:  v.GetString(KeyOpenAIKey),
				Model:   v.GetString(KeyOpenAIModel),
				BaseURL: v.GetString(KeyOpenAIBaseURL),
			},
			Ollama: Ollama{
				Host:  v.GetString(KeyOllamaHost),
				Model: v.GetString(KeyOllamaModel),
			},
			Anthropic: Anthropic{
				APIKey: v.GetString(KeyAnthropicKey),
				Model:  v.GetString(KeyAnthropicModel),
			},
			Gemini: Gemini{
				APIKey:  v.GetString(KeyGeminiKey),
				Model:   v.GetString(KeyGeminiModel),
				BaseURL: v.GetString(KeyGeminiBaseURL),
			},
		},
		Log: Log{
			Level:  v.GetString(KeyLogLevel),
			Format: strings.ToLower(v.GetString(KeyLogFormat)),
		},
		Telemetry: Telemetry{
			Enabled:      v.GetBool(KeyTelemetryEnabled),
			Stdout:       v.GetBool(KeyTelemetryStdout),
			OTLPEndpoint: v.GetString(KeyTelemetryOTLP),
		},
		Server: Server{
			Transport: strings.ToLower(v.GetString(KeyServerTransport)),
			Addr:      v.GetString(KeyServerAddr),
		},
		File: v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the tool cannot act on.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DB.Path) == "" {
		errs = append(errs, errors.New("db.path is required"))
	}
	switch c.DB.Driver {
	case "ncruces", "modernc":
	default:
		errs = append(errs, fmt.Errorf("db.driver %q: use ncruces or modernc", c.DB.Driver))
	}
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		errs = append(errs, fmt.Errorf("server.transport %q: use stdio or http", c.Server.Transport))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: use json or console", c.Log.Format))
	}
	if c.Model.Timeout < 0 {
		errs = append(errs, fmt.Errorf("model.timeout must not be negative, got %s", c.Model.Timeout))
	}
	if c.Model.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("model.max_retries must not be negative, got %d", c.Model.MaxRetries))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
