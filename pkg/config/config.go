package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is one backend-access entry of the rotation pool.
type Profile struct {
	Proxy            string            `yaml:"proxy"`
	UserAgent        string            `yaml:"user_agent"`
	SocketTimeoutSec int               `yaml:"socket_timeout_sec"`
	ExtraOptions     map[string]string `yaml:"extra_options"`
}

// RateLimit configures per-client admission control and the optional
// process-wide throttle.
type RateLimit struct {
	// Limit is the max admitted requests per client per window.
	Limit int `yaml:"limit"`
	// WindowSec is the trailing window length.
	WindowSec int `yaml:"window_sec"`
	// GlobalRPS throttles the whole process; 0 disables it.
	GlobalRPS float64 `yaml:"global_rps"`
	// GlobalBurst is the throttle's burst size.
	GlobalBurst int `yaml:"global_burst"`
}

// Config is the startup configuration surface: credentials, limits and the
// backend profile pool all come from here, never from globals.
type Config struct {
	Port            int       `yaml:"port"`
	APIKeys         []string  `yaml:"api_keys"`
	RateLimit       RateLimit `yaml:"rate_limit"`
	OutputDir       string    `yaml:"output_dir"`
	FFmpegPath      string    `yaml:"ffmpeg_path"`
	YtdlpPath       string    `yaml:"ytdlp_path"`
	ProbeTimeoutSec int       `yaml:"probe_timeout_sec"`
	Workers         int       `yaml:"workers"`
	FileTTLMin      int       `yaml:"file_ttl_min"`
	Profiles        []Profile `yaml:"profiles"`
	Debug           bool      `yaml:"debug"`
	// LogJSON switches the structured logger from text to JSON records.
	LogJSON bool `yaml:"log_json"`
}

func (c *Config) Defaults() {
	if c.Port <= 0 {
		c.Port = 8000
	}
	if c.RateLimit.Limit <= 0 {
		c.RateLimit.Limit = 100
	}
	if c.RateLimit.WindowSec <= 0 {
		c.RateLimit.WindowSec = 60
	}
	if c.OutputDir == "" {
		c.OutputDir = "./downloads"
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.YtdlpPath == "" {
		c.YtdlpPath = "yt-dlp"
	}
	if c.ProbeTimeoutSec <= 0 {
		c.ProbeTimeoutSec = 30
	}
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.FileTTLMin <= 0 {
		c.FileTTLMin = 60
	}
}

// Load reads a YAML config file and applies defaults. An empty path yields
// a default config with no API keys, which rejects everything.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.Defaults()
	return cfg, nil
}
