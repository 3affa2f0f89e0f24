package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Generation    Generation    `yaml:"generation"`
	Summarization Summarization `yaml:"summarization"`
	Keywords      Keywords      `yaml:"keywords"`
	Quality       Quality       `yaml:"quality"`
	Sources       Sources       `yaml:"sources"`
	Output        Output        `yaml:"output"`
	Storage       Storage       `yaml:"storage"`
	Server        Server        `yaml:"server"`
	Watch         Watch         `yaml:"watch"`
	Publish       Publish       `yaml:"publish"`
	Logging       Logging       `yaml:"logging"`
}

// Generation configures the article backend.
type Generation struct {
	Provider      string        `yaml:"provider"`
	Model         string        `yaml:"model"`
	OllamaURL     string        `yaml:"ollama_url"`
	OpenAIModel   string        `yaml:"openai_model"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	APIKeyEnv     string        `yaml:"api_key_env"`
	Temperature   float64       `yaml:"temperature"`
	MaxTokens     int           `yaml:"max_tokens"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Summarization configures the headline backend.
type Summarization struct {
	Backend   string `yaml:"backend"` // "huggingface" or "ollama"
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	TokenEnv  string `yaml:"token_env"`
	MinTokens int    `yaml:"min_tokens"`
	MaxTokens int    `yaml:"max_tokens"`
}

type Keywords struct {
	Language string `yaml:"language"`
	Count    int    `yaml:"count"`
}

type Quality struct {
	Threshold        float64 `yaml:"threshold"`
	FallbackKeywords int     `yaml:"fallback_keywords"`
	IncludeKeywords  bool    `yaml:"include_keywords"`
}

type Sources struct {
	Feeds    []Feed        `yaml:"feeds"`
	NewsAPI  NewsAPIConfig `yaml:"newsapi"`
	Limit    int           `yaml:"limit"`
	DaysBack int           `yaml:"days_back"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type NewsAPIConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env"`
	Query     string `yaml:"query"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Storage struct {
	Enabled bool `yaml:"enabled"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Watch struct {
	Schedule string `yaml:"schedule"`
	Timezone string `yaml:"timezone"`
}

type Publish struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	TokenEnv string `yaml:"token_env"`
	ChatID   int64  `yaml:"chat_id"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for newsgen.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "newsgen")
}

// DataDir returns the XDG data directory for newsgen.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "newsgen")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/newsgen/config.yaml > ./config.yaml.
// An empty path with a nil error means no file exists and defaults apply.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads and parses a config YAML file. An empty path yields defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Generation: Generation{
			Provider:    "ollama",
			Model:       "llama3.1",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.7,
			MaxTokens:   1000,
			Timeout:     120 * time.Second,
		},
		Summarization: Summarization{
			Backend:   "huggingface",
			Model:     "csebuetnlp/mT5_multilingual_XLSum",
			BaseURL:   "https://api-inference.huggingface.co",
			TokenEnv:  "HF_API_TOKEN",
			MinTokens: 6,
			MaxTokens: 32,
		},
		Keywords: Keywords{Language: "ru", Count: 6},
		Quality: Quality{
			Threshold:        0.8,
			FallbackKeywords: 3,
		},
		Sources: Sources{
			NewsAPI:  NewsAPIConfig{APIKeyEnv: "NEWSAPI_KEY"},
			Limit:    10,
			DaysBack: 1,
		},
		Storage: Storage{Enabled: true},
		Server:  Server{Port: 8000},
		Watch:   Watch{Schedule: "@every 1h", Timezone: "Local"},
		Publish: Publish{Telegram: TelegramConfig{TokenEnv: "TELEGRAM_BOT_TOKEN"}},
		Logging: Logging{Level: "info"},
	}
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges that the pipeline relies on.
func (c *Config) Validate() error {
	var errs []error
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 1 {
		errs = append(errs, fmt.Errorf("generation.temperature must be within [0,1], got %v", c.Generation.Temperature))
	}
	if c.Generation.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("generation.max_tokens must be positive, got %d", c.Generation.MaxTokens))
	}
	if c.Generation.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("generation.timeout must be positive, got %s", c.Generation.Timeout))
	}
	if c.Keywords.Count < 1 {
		errs = append(errs, fmt.Errorf("keywords.count must be at least 1, got %d", c.Keywords.Count))
	}
	if c.Quality.Threshold < 0 || c.Quality.Threshold > 1 {
		errs = append(errs, fmt.Errorf("quality.threshold must be within [0,1], got %v", c.Quality.Threshold))
	}
	if c.Sources.DaysBack < 1 {
		errs = append(errs, fmt.Errorf("sources.days_back must be at least 1, got %d", c.Sources.DaysBack))
	}
	if c.Summarization.MinTokens > c.Summarization.MaxTokens {
		errs = append(errs, fmt.Errorf("summarization.min_tokens (%d) exceeds max_tokens (%d)",
			c.Summarization.MinTokens, c.Summarization.MaxTokens))
	}
	return errors.Join(errs...)
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
