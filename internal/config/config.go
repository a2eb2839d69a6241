package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API      APIConfig      `yaml:"api"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Features FeatureFlags   `yaml:"features"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	AI       AIConfig       `yaml:"ai"`
}

// APIConfig configures the client side of the REST API.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RealtimeConfig configures the chat WebSocket client.
type RealtimeConfig struct {
	WSURL         string        `yaml:"ws_url"`
	TypingTimeout time.Duration `yaml:"typing_timeout"`
}

// FeatureFlags gate optional product surfaces on or off. The core treats them
// as opaque boolean inputs.
type FeatureFlags struct {
	NSFW          bool `yaml:"nsfw"`
	Subscriptions bool `yaml:"subscriptions"`
	RealtimeChat  bool `yaml:"realtime_chat"`
}

// StorageConfig locates the durable client-side state store.
type StorageConfig struct {
	StatePath string `yaml:"state_path"`
}

// ServerConfig configures the bundled stub backend.
type ServerConfig struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// AIConfig configures reply generation in the stub backend. An empty key
// selects canned persona replies.
type AIConfig struct {
	OpenAIKey string `yaml:"openai_key"`
	Model     string `yaml:"model"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CHATSUB_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("CHATSUB_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("CHATSUB_WS_URL"); v != "" {
		c.Realtime.WSURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.AI.OpenAIKey = v
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Name == "" {
		c.Server.Name = "chatsub stub"
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = fmt.Sprintf("http://localhost:%d/api/v1", c.Server.Port)
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 30 * time.Second
	}
	if c.Realtime.WSURL == "" {
		c.Realtime.WSURL = fmt.Sprintf("ws://localhost:%d", c.Server.Port)
	}
	if c.Realtime.TypingTimeout == 0 {
		c.Realtime.TypingTimeout = 3 * time.Second
	}
	if c.Storage.StatePath == "" {
		c.Storage.StatePath = "./data/chatsub.db"
	}
	if c.Auth.AccessTokenTTL == 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL == 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o"
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
