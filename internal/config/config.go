package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application settings.
type Config struct {
	Portal       PortalConfig       `yaml:"portal"`
	Competitions CompetitionsConfig `yaml:"competitions"`
	KSW          KSWConfig          `yaml:"ksw"`
	Storage      StorageConfig      `yaml:"storage"`
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
	Refresh      RefreshConfig      `yaml:"refresh"`
}

// PortalConfig holds the members' portal connection settings.
type PortalConfig struct {
	BaseURL    string        `yaml:"base_url"`
	MemberID   string        `yaml:"member_id"`
	PIN        string        `yaml:"pin"`
	Interval   time.Duration `yaml:"interval"`
	MaxRetries uint64        `yaml:"max_retries"`
}

// CompetitionsConfig points at the competition rules.
type CompetitionsConfig struct {
	Source string `yaml:"source"`
}

// KSWConfig points at the KSW results CSV.
type KSWConfig struct {
	Source string `yaml:"source"`
}

// StorageConfig holds snapshot storage settings.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// RefreshConfig holds the scheduled snapshot refresh settings. A zero
// Interval disables the job.
type RefreshConfig struct {
	Interval time.Duration `yaml:"interval"`
	CompIDs  []string      `yaml:"compids"`
}

// Defaults returns a Config with every optional setting filled in.
func Defaults() *Config {
	return &Config{
		Portal: PortalConfig{
			BaseURL:    "https://www.botgc.co.uk/",
			Interval:   250 * time.Millisecond,
			MaxRetries: 3,
		},
		Competitions: CompetitionsConfig{Source: "competitions.yaml"},
		Storage:      StorageConfig{DataDir: "~/.botgc-results"},
		Server:       ServerConfig{Addr: ":8080"},
		Log:          LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides. A missing file is not an error: the defaults
// and environment are used on their own.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("MEMBER_ID"); v != "" {
		cfg.Portal.MemberID = v
	}
	if v := getenv("MEMBER_PIN"); v != "" {
		cfg.Portal.PIN = v
	}
	if v := getenv("PORTAL_BASE_URL"); v != "" {
		cfg.Portal.BaseURL = v
	}
	if v := getenv("COMPETITIONS_SOURCE"); v != "" {
		cfg.Competitions.Source = v
	}
	if v := getenv("KSW_SOURCE"); v != "" {
		cfg.KSW.Source = v
	}
	if v := getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REFRESH_INTERVAL value: %w", err)
		}
		cfg.Refresh.Interval = d
	}
	if v := getenv("REFRESH_COMPIDS"); v != "" {
		cfg.Refresh.CompIDs = splitList(v)
	}
	if v := getenv("PORTAL_MAX_RETRIES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid PORTAL_MAX_RETRIES value: %w", err)
		}
		cfg.Portal.MaxRetries = n
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
