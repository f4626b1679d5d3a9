package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
		// submissions per second per client, 0 disables the limiter
		RateLimit float64 `yaml:"rateLimit"`
		RateBurst int     `yaml:"rateBurst"`
		// client name -> API key; empty disables auth
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		Migrate  bool   `yaml:"migrate"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey        string `yaml:"apiKey"`
		BaseURL       string `yaml:"baseURL"`
		FallbackModel string `yaml:"fallbackModel"`
	} `yaml:"openai"`

	Engine struct {
		Demo              bool   `yaml:"demo"`
		PromptCatalogPath string `yaml:"promptCatalogPath"`
	} `yaml:"engine"`

	Worker struct {
		Slots          int `yaml:"slots"`
		TimeoutSeconds int `yaml:"timeoutSeconds"`
		MaxAttempts    int `yaml:"maxAttempts"`
		BaseBackoffMS  int `yaml:"baseBackoffMS"`
	} `yaml:"worker"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	// per-module model settings, keyed by module type
	Modules map[string]analysis.ModelConfig `yaml:"modules"`
}

// Load baca file config.yaml, then applies env overrides and defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("PROMPT_CATALOG_PATH"); v != "" {
		c.Engine.PromptCatalogPath = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Engine.PromptCatalogPath == "" {
		c.Engine.PromptCatalogPath = "prompts.yaml"
	}
	if c.Worker.Slots <= 0 {
		c.Worker.Slots = 4
	}
	if c.Worker.TimeoutSeconds <= 0 {
		c.Worker.TimeoutSeconds = 300
	}
	if c.Worker.MaxAttempts <= 0 {
		c.Worker.MaxAttempts = 3
	}
	if c.Worker.BaseBackoffMS <= 0 {
		c.Worker.BaseBackoffMS = 2000
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = 5
	}
}

// Validate rejects settings the process cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("database.driver must be mysql or postgres, got %q", c.Database.Driver)
	}
	for name := range c.Modules {
		if _, err := analysis.ParseModuleType(name); err != nil {
			return fmt.Errorf("modules.%s: %w", name, err)
		}
	}
	return nil
}

// LogLevel maps log.level onto slog; unknown values mean info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.Database.Driver == "postgres" {
		return c.PostgresDSN()
	}
	return c.MySQLDSN()
}
