package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port      string `yaml:"port" env:"PORT"`
		PublicURL string `yaml:"public_url" env:"PUBLIC_URL"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
		File  string `yaml:"file" env:"LOG_FILE"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl" env:"QUIZ_TTL"`
	} `yaml:"quiz"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
		TokenTTL  string `yaml:"token_ttl" env:"TOKEN_TTL"`
	} `yaml:"auth"`
	Generation struct {
		Endpoint  string `yaml:"endpoint" env:"GEMINI_ENDPOINT"`
		APIKey    string `yaml:"api_key" env:"GEMINI_API_KEY"`
		Timeout   string `yaml:"timeout" env:"GEMINI_TIMEOUT"`
		PerMinute int    `yaml:"per_minute" env:"GENERATION_PER_MINUTE"`
	} `yaml:"generation"`
	Client struct {
		BackendURL  string `yaml:"backend_url" env:"BACKEND_URL"`
		SessionFile string `yaml:"session_file" env:"SESSION_FILE"`
	} `yaml:"client"`
}

// Load reads YAML config from path and applies environment overrides. A
// missing file is not an error: client commands run without one.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = "http://localhost:" + cfg.Server.Port
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Generation.Endpoint == "" {
		cfg.Generation.Endpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash-lite:generateContent"
	}
	if cfg.Generation.PerMinute == 0 {
		cfg.Generation.PerMinute = 5
	}
	if cfg.Client.BackendURL == "" {
		cfg.Client.BackendURL = "http://localhost:" + cfg.Server.Port
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
