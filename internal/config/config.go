package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// S3 rejects multipart parts smaller than this, except the last one.
const MinPartSize = 5 * 1024 * 1024

type Config struct {
	API struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`

	Server struct {
		Port           int           `yaml:"port"`
		SessionTTL     time.Duration `yaml:"session_ttl"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"server"`

	Log struct {
		Level   string `yaml:"level"`
		Console bool   `yaml:"console"`
	} `yaml:"log"`

	Upload struct {
		PartSize    int64 `yaml:"part_size"`
		Concurrency int   `yaml:"concurrency"`
	} `yaml:"upload"`

	// Preflight checks the S3 object exists before a report is requested.
	Preflight bool `yaml:"preflight"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.API.BaseURL = "http://localhost:8000"
	// report generation runs synchronously on the backend
	cfg.API.Timeout = 15 * time.Minute
	cfg.Server.Port = 3000
	cfg.Server.SessionTTL = 30 * time.Minute
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Log.Level = "info"
	cfg.Log.Console = true
	cfg.Upload.PartSize = 10 * 1024 * 1024
	cfg.Upload.Concurrency = 4
	return &cfg
}

// Path resolves the config file path: the flag wins, then CONFIG_PATH.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("CONFIG_PATH")
}

// Load reads the yaml file at path over the defaults and applies env overrides.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("EMOTION_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("EMOTION_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("EMOTION_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EMOTION_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.Timeout < 0 {
		errs = append(errs, errors.New("api.timeout must not be negative"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Upload.PartSize < MinPartSize {
		errs = append(errs, fmt.Errorf("upload.part_size must be at least %d bytes", MinPartSize))
	}
	if c.Upload.Concurrency < 1 {
		errs = append(errs, errors.New("upload.concurrency must be positive"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address of the web UI.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
