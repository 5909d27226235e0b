package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Store      StoreConfig      `mapstructure:"store"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
}

type TelegramConfig struct {
	Token       string `mapstructure:"token"`
	Username    string `mapstructure:"username"`
	PollTimeout int    `mapstructure:"poll_timeout"`
}

type StoreConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

type ClassifierConfig struct {
	ModelPath        string `mapstructure:"model_path"`
	Backend          string `mapstructure:"backend"`
	FallbackResponse string `mapstructure:"fallback_response"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

const (
	BackendArtifact = "artifact"
	BackendOpenAI   = "openai"
)

var envBindings = map[string][]string{
	"telegram.token":        {"BOT_TOKEN", "TELEGRAM_BOT_TOKEN"},
	"telegram.username":     {"BOT_USERNAME", "TELEGRAM_BOT_USERNAME"},
	"telegram.poll_timeout": {"BOT_POLL_TIMEOUT"},
	"store.uri":             {"STORE_URI", "MONGO_URI"},
	"store.database":        {"STORE_DATABASE"},
	"store.collection":      {"STORE_COLLECTION"},
	"http.port":             {"PORT"},
	"classifier.model_path": {"MODEL_PATH"},
	"classifier.backend":    {"CLASSIFIER_BACKEND"},
	"openai.api_key":        {"OPENAI_API_KEY"},
	"openai.model":          {"OPENAI_MODEL"},
}

// LoadConfig reads the optional yaml file at path, then applies environment
// overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("store.database", "chatbot")
	v.SetDefault("store.collection", "conversations")
	v.SetDefault("http.port", 5000)
	v.SetDefault("classifier.model_path", "model/intents.json")
	v.SetDefault("classifier.backend", BackendArtifact)
	v.SetDefault("classifier.fallback_response", "I'm not sure how to respond to that.")
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.max_tokens", 16)
	v.SetDefault("openai.temperature", 0.0)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	config.Telegram.Username = MentionHandle(config.Telegram.Username)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if c.Telegram.Username == "" {
		errs = append(errs, errors.New("BOT_USERNAME is required"))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid http port %d", c.HTTP.Port))
	}
	switch c.Classifier.Backend {
	case BackendArtifact:
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai classifier backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown classifier backend %q", c.Classifier.Backend))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// MentionHandle normalizes a bot username into its @-prefixed mention form.
func MentionHandle(username string) string {
	username = strings.TrimSpace(username)
	if username == "" || strings.HasPrefix(username, "@") {
		return username
	}
	return "@" + username
}

// Addr is the dashboard listen address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
