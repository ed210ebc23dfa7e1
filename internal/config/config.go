package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	AppPort      int    `mapstructure:"APP_PORT" validate:"min=1,max=65535"`
	StoreDriver  string `mapstructure:"STORE_DRIVER" validate:"oneof=sqlite redis"`
	DatabasePath string `mapstructure:"DATABASE_PATH" validate:"required_if=StoreDriver sqlite"`
	RedisAddr    string `mapstructure:"REDIS_ADDR" validate:"required_if=StoreDriver redis"`

	LLMProvider   string `mapstructure:"LLM_PROVIDER" validate:"oneof=ollama openai"`
	OllamaURL     string `mapstructure:"OLLAMA_URL" validate:"required_if=LLMProvider ollama"`
	OpenAIAPIKey  string `mapstructure:"OPENAI_API_KEY" validate:"required_if=LLMProvider openai"`
	OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL"`

	MainModel           string `mapstructure:"MAIN_MODEL" validate:"required"`
	SupportModel        string `mapstructure:"SUPPORT_MODEL"`
	ImageModel          string `mapstructure:"IMAGE_MODEL"`
	InitialSystemPrompt string `mapstructure:"INITIAL_SYSTEM_PROMPT"`
	DefaultUserID       string `mapstructure:"DEFAULT_USER_ID" validate:"required"`

	LogLevel string `mapstructure:"LOG_LEVEL"`

	QueueMaxRetries       int           `mapstructure:"QUEUE_MAX_RETRIES" validate:"min=0,max=30"`
	QueueBaseDelay        time.Duration `mapstructure:"QUEUE_BASE_DELAY"`
	GenerationMaxAttempts int           `mapstructure:"GENERATION_MAX_ATTEMPTS" validate:"min=1"`
	GenerationRetryDelay  time.Duration `mapstructure:"GENERATION_RETRY_DELAY"`

	CorsAllowedOrigins []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`
	ShutdownTimeout    time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

// SetDefaults registers every key with viper. Keys without a default would be
// skipped by Unmarshal even when set in the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", 8000)
	v.SetDefault("STORE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_PATH", "/data/flow.db")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("LLM_PROVIDER", "ollama")
	v.SetDefault("OLLAMA_URL", "http://ollama:11434")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("MAIN_MODEL", "llama3")
	v.SetDefault("SUPPORT_MODEL", "")
	v.SetDefault("IMAGE_MODEL", "")
	v.SetDefault("INITIAL_SYSTEM_PROMPT", "You are a helpful assistant.")
	v.SetDefault("DEFAULT_USER_ID", "default-user")
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("QUEUE_MAX_RETRIES", 3)
	v.SetDefault("QUEUE_BASE_DELAY", time.Second)
	v.SetDefault("GENERATION_MAX_ATTEMPTS", 2)
	v.SetDefault("GENERATION_RETRY_DELAY", 500*time.Millisecond)
	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SHUTDOWN_TIMEOUT", 15*time.Second)
}

// LoadConfig reads an optional .env file, then the environment, into a Config.
// Values bound from command-line flags on the global viper take precedence.
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// Load is LoadConfig for an explicit viper instance.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	if c.SupportModel == "" {
		c.SupportModel = c.MainModel
	}

	// CORS_ALLOWED_ORIGINS=a.com,b.com arrives as a single element from the environment.
	var origins []string
	for _, entry := range c.CorsAllowedOrigins {
		for _, origin := range strings.Split(entry, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c.CorsAllowedOrigins = origins
}
