package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	GinMode    string `env:"GIN_MODE" envDefault:"debug"`
	ConfigFile string `env:"CONFIG_FILE"`

	Server struct {
		Port            string        `env:"PORT" envDefault:"8080"`
		StaticDir       string        `env:"STATIC_DIR"`
		AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	} `envPrefix:"SERVER_"`

	Database struct {
		Driver string `env:"DRIVER" envDefault:"sqlite"`
		DSN    string `env:"DSN" envDefault:"file:astrasemi.db?_foreign_keys=on"`
		Seed   bool   `env:"SEED" envDefault:"true"`
	} `envPrefix:"DATABASE_"`

	Redis struct {
		Addr     string `env:"ADDR" envDefault:"localhost:6379"`
		Password string `env:"PASSWORD"`
		DB       int    `env:"DB" envDefault:"0"`
	} `envPrefix:"REDIS_"`

	Session struct {
		Secret string        `env:"SECRET" envDefault:"default-secret-key-change-me"`
		MaxAge time.Duration `env:"MAX_AGE" envDefault:"168h"`
	} `envPrefix:"SESSION_"`

	RateLimit struct {
		Enabled     bool          `env:"ENABLED" envDefault:"true"`
		MaxRequests int           `env:"MAX_REQUESTS" envDefault:"10"`
		Window      time.Duration `env:"WINDOW" envDefault:"1m"`
	} `envPrefix:"RATE_LIMIT_"`

	AI AIConfig `envPrefix:"AI_"`

	RabbitMQ struct {
		DSN            string        `env:"DSN"`
		Queue          string        `env:"QUEUE" envDefault:"notification_queue"`
		PublishTimeout time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"5s"`
	} `envPrefix:"RABBITMQ_"`

	SMTP struct {
		Host        string        `env:"HOST"`
		Port        int           `env:"PORT" envDefault:"465"`
		Username    string        `env:"USERNAME"`
		Password    string        `env:"PASSWORD"`
		From        string        `env:"FROM"`
		DialTimeout time.Duration `env:"DIAL_TIMEOUT" envDefault:"10s"`
	} `envPrefix:"SMTP_"`

	NotifyAdminEmail string `env:"NOTIFY_ADMIN_EMAIL"`

	InitialAdmin struct {
		Username string `env:"USERNAME"`
		Password string `env:"PASSWORD"`
	} `envPrefix:"INITIAL_ADMIN_"`
}

// AIConfig configures the LLM provider. Every field may also be set from the
// YAML overlay named by CONFIG_FILE.
type AIConfig struct {
	Provider        string        `env:"PROVIDER" envDefault:"openai" yaml:"provider"`
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY" yaml:"-"`
	OpenAIBaseURL   string        `env:"OPENAI_BASE_URL" yaml:"openai_base_url"`
	OllamaURL       string        `env:"OLLAMA_URL" envDefault:"http://localhost:11434" yaml:"ollama_url"`
	TextModel       string        `env:"TEXT_MODEL" envDefault:"gpt-4o-mini" yaml:"text_model"`
	VisionModel     string        `env:"VISION_MODEL" envDefault:"gpt-4o" yaml:"vision_model"`
	BriefingTimeout time.Duration `env:"BRIEFING_TIMEOUT" envDefault:"30s" yaml:"briefing_timeout"`
	TextTimeout     time.Duration `env:"TEXT_TIMEOUT" envDefault:"30s" yaml:"text_timeout"`
	ImageTimeout    time.Duration `env:"IMAGE_TIMEOUT" envDefault:"45s" yaml:"image_timeout"`
	GlossaryTimeout time.Duration `env:"GLOSSARY_TIMEOUT" envDefault:"20s" yaml:"glossary_timeout"`
}

// Enabled reports whether a provider has enough configuration to be used.
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case "openai":
		return c.OpenAIAPIKey != ""
	case "ollama":
		return c.OllamaURL != ""
	default:
		return false
	}
}

// IsRelease reports whether gin runs in release mode.
func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}

// Load reads .env (if present), the process environment and the optional
// YAML overlay, in that order.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadWithOptions(env.Options{})
}

// LoadWithOptions parses configuration using the given env options. Tests
// pass an explicit Environment map.
func LoadWithOptions(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	if cfg.ConfigFile != "" {
		if err := overlayYAML(cfg, cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	if cfg.IsRelease() && cfg.Session.Secret == "default-secret-key-change-me" {
		return nil, fmt.Errorf("SESSION_SECRET must be set in release mode")
	}

	return cfg, nil
}

type fileOverlay struct {
	AI *AIConfig `yaml:"ai"`
}

func overlayYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	overlay := fileOverlay{AI: &cfg.AI}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}
