package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Backend struct {
	BaseURL string `yaml:"baseUrl"`
	Token   string `yaml:"token"`   // overridden by PRESENTER_TOKEN
	Timeout string `yaml:"timeout"` // per-request, e.g. 15s
}

type Audio struct {
	Enabled bool   `yaml:"enabled"`
	Backend string `yaml:"backend"` // alsa|pulse|avfoundation
	Device  string `yaml:"device"`
	Dir     string `yaml:"dir"` // clip output directory
}

type Recommend struct {
	Interval string `yaml:"interval"` // window length, e.g. 2m
	Language string `yaml:"language"`
}

type Drafts struct {
	Path string `yaml:"path"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // presenterd
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	Backend   Backend   `yaml:"backend"`
	Audio     Audio     `yaml:"audio"`
	Recommend Recommend `yaml:"recommend"`
	Drafts    Drafts    `yaml:"drafts"`
	Logging   Logging   `yaml:"logging"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend.baseUrl is required")
	}
	if token := os.Getenv("PRESENTER_TOKEN"); token != "" {
		c.Backend.Token = token
	}
	if c.Backend.Token == "" {
		return errors.New("backend.token is required (or set PRESENTER_TOKEN)")
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8787"
	}
	if c.Audio.Backend == "" {
		c.Audio.Backend = "alsa"
	}
	if c.Audio.Device == "" {
		c.Audio.Device = "default"
	}
	if c.Audio.Dir == "" {
		c.Audio.Dir = os.TempDir()
	}
	if c.Recommend.Language == "" {
		c.Recommend.Language = "en"
	}
	if c.Drafts.Path == "" {
		c.Drafts.Path = "./presenterd-drafts.db"
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "presenterd"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}

// BackendTimeout is the per-request deadline for backend calls.
func (c *Config) BackendTimeout() time.Duration {
	return parseDurationOr(15*time.Second, c.Backend.Timeout)
}

// RecommendInterval is the length of one recommendation audio window.
func (c *Config) RecommendInterval() time.Duration {
	return parseDurationOr(2*time.Minute, c.Recommend.Interval)
}

func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
