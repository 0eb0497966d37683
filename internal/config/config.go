package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers accepted by Storage.Driver.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server struct {
		Port          string `yaml:"port"`
		IngestPort    string `yaml:"ingest_port"`
		AdminPassword string `yaml:"admin_password"`
	} `yaml:"server"`
	Storage struct {
		Driver     string `yaml:"driver"`
		Dir        string `yaml:"dir"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	NATS struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
	Serial struct {
		Path string `yaml:"path"`
	} `yaml:"serial"`
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Device DeviceConfig `yaml:"device"`
}

// DeviceConfig drives the `device run` command.
type DeviceConfig struct {
	Name           string `yaml:"name"`
	CollectorURL   string `yaml:"collector_url"`
	Attempts       int    `yaml:"attempts"`
	BaseDelay      string `yaml:"base_delay"`
	AttemptTimeout string `yaml:"attempt_timeout"`
	PollInterval   string `yaml:"poll_interval"`
	RescanGuard    string `yaml:"rescan_guard"`
	AnswerDir      string `yaml:"answer_dir"`
	Prompt         struct {
		PollInterval string `yaml:"poll_interval"`
		Debounce     string `yaml:"debounce"`
		MaxWait      string `yaml:"max_wait"`
	} `yaml:"prompt"`
}

// Load reads YAML config from path and fills in defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Default is the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.IngestPort == "" {
		c.Server.IngestPort = "5000"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverFile
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "data"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/quiz.db"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "quiz"
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "quiz"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Device.Name == "" {
		c.Device.Name = "Team"
	}
	if c.Device.CollectorURL == "" {
		c.Device.CollectorURL = "http://192.168.4.1:5000"
	}
	if c.Device.AnswerDir == "" {
		c.Device.AnswerDir = "sd"
	}
}

// Validate rejects unknown drivers and drivers missing their connection settings.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverFile, DriverSQLite:
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("storage driver redis requires redis.addr")
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("storage driver postgres requires postgres.url")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// Duration parses a duration string or returns the fallback if empty.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
