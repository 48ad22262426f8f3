package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider names accepted by the dispatcher, in selector order.
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// SupportedProviders lists the provider names in the order they are offered.
var SupportedProviders = []string{ProviderOpenAI, ProviderAzure, ProviderGemini, ProviderClaude}

const (
	DefaultSystemPrompt    = "You are ChatGPT, a large language model."
	DefaultListenAddr      = "127.0.0.1:5000"
	DefaultLogLevel        = "INFO"
	DefaultOpenAIBaseURL   = "https://api.openai.com/v1"
	DefaultOpenAIModel     = "gpt-3.5-turbo"
	DefaultAzureAPIVersion = "2024-02-15-preview"
	DefaultGeminiBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel     = "gemini-pro"
	DefaultClaudeBaseURL   = "https://api.anthropic.com/v1"
	DefaultClaudeModel     = "claude-3-sonnet-20240229"
	DefaultClaudeMaxTokens = 1024

	// EnvConfigFile names the variable pointing at the YAML file when no
	// path is passed explicitly.
	EnvConfigFile = "CHAT_CONFIG_FILE"
)

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type AzureConfig struct {
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type ClaudeConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// Config is the fully resolved configuration.
type Config struct {
	OpenAI       OpenAIConfig `yaml:"openai"`
	Azure        AzureConfig  `yaml:"azure"`
	Gemini       GeminiConfig `yaml:"gemini"`
	Claude       ClaudeConfig `yaml:"claude"`
	SystemPrompt string       `yaml:"system_prompt"`
	Provider     string       `yaml:"provider"`
	ListenAddr   string       `yaml:"listen_addr"`
	LogLevel     string       `yaml:"log_level"`
}

// Default returns the built-in configuration with no credentials.
func Default() *Config {
	return &Config{
		OpenAI: OpenAIConfig{BaseURL: DefaultOpenAIBaseURL, Model: DefaultOpenAIModel},
		Azure:  AzureConfig{APIVersion: DefaultAzureAPIVersion},
		Gemini: GeminiConfig{BaseURL: DefaultGeminiBaseURL, Model: DefaultGeminiModel},
		Claude: ClaudeConfig{
			BaseURL:   DefaultClaudeBaseURL,
			Model:     DefaultClaudeModel,
			MaxTokens: DefaultClaudeMaxTokens,
		},
		SystemPrompt: DefaultSystemPrompt,
		Provider:     ProviderOpenAI,
		ListenAddr:   DefaultListenAddr,
		LogLevel:     DefaultLogLevel,
	}
}

// Load resolves the configuration. path names an optional YAML file; when
// empty, CHAT_CONFIG_FILE is consulted. A named file that does not exist is
// an error. The result is not validated; call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays the YAML file onto cfg. Keys absent from the file keep
// their current value.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

// applyEnv overrides fields from non-empty environment variables.
func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}

	str(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	str(&c.OpenAI.BaseURL, "OPENAI_API_BASE_URL")
	str(&c.OpenAI.Model, "OPENAI_MODEL")

	str(&c.Azure.APIKey, "AZURE_OPENAI_API_KEY")
	str(&c.Azure.Endpoint, "AZURE_OPENAI_ENDPOINT")
	str(&c.Azure.Deployment, "AZURE_OPENAI_DEPLOYMENT")
	str(&c.Azure.APIVersion, "AZURE_OPENAI_API_VERSION")

	str(&c.Gemini.APIKey, "GEMINI_API_KEY")
	str(&c.Gemini.BaseURL, "GEMINI_API_BASE_URL")
	str(&c.Gemini.Model, "GEMINI_MODEL")

	str(&c.Claude.APIKey, "ANTHROPIC_API_KEY")
	str(&c.Claude.BaseURL, "ANTHROPIC_API_BASE_URL")
	str(&c.Claude.Model, "ANTHROPIC_MODEL")

	str(&c.SystemPrompt, "CHAT_SYSTEM_PROMPT")
	str(&c.Provider, "CHAT_PROVIDER")
	str(&c.ListenAddr, "CHAT_LISTEN_ADDR")
	str(&c.LogLevel, "CHAT_LOG_LEVEL", "LOG_LEVEL")

	if v, ok := lookup("ANTHROPIC_MAX_TOKENS"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("ANTHROPIC_MAX_TOKENS: %w", err)
		}
		c.Claude.MaxTokens = n
	}
	return nil
}

// Validate checks settings that would otherwise fail later. Missing
// credentials are not an error here: they surface as placeholders when a
// provider is used.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("listen address must not be empty"))
	}
	if !validLogLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	if c.Claude.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("claude max_tokens must be positive, got %d", c.Claude.MaxTokens))
	}
	if !slices.Contains(SupportedProviders, c.Provider) {
		errs = append(errs, fmt.Errorf("unsupported provider %q (want one of %s)", c.Provider, strings.Join(SupportedProviders, ", ")))
	}
	return errors.Join(errs...)
}

func validLogLevel(level string) bool {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE", "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
		return true
	default:
		return false
	}
}
