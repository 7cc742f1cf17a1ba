package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultUserID             = "local"
	DefaultRefreshInterval    = 30 * time.Second
	DefaultPollInterval       = 2 * time.Second
	DefaultCacheSize          = 64
	DefaultFallbackQuotaBytes = 5 << 20

	// RemoteOff disables the remote tier entirely.
	RemoteOff = "off"
)

type Config struct {
	DataDir            string
	StateDir           string
	DBPath             string
	RemoteDBPath       string
	UserID             string
	Timezone           string
	Location           *time.Location
	RefreshInterval    time.Duration
	PollInterval       time.Duration
	Debounce           time.Duration
	CacheSize          int
	FallbackQuotaBytes int64
	LogLevel           string
	Notify             bool
}

// RemoteEnabled reports whether a remote store is configured.
func (c Config) RemoteEnabled() bool {
	return c.RemoteDBPath != "" && c.RemoteDBPath != RemoteOff
}

func New(dataDir string) (Config, error) {
	if dataDir == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	state := filepath.Join(dataDir, ".recall")
	return Config{
		DataDir:            dataDir,
		StateDir:           state,
		DBPath:             filepath.Join(state, "recall.db"),
		RemoteDBPath:       filepath.Join(state, "remote.db"),
		UserID:             DefaultUserID,
		Location:           time.Local,
		RefreshInterval:    DefaultRefreshInterval,
		PollInterval:       DefaultPollInterval,
		CacheSize:          DefaultCacheSize,
		FallbackQuotaBytes: DefaultFallbackQuotaBytes,
		LogLevel:           "info",
	}, nil
}

type fileConfig struct {
	UserID             string `yaml:"user_id"`
	RemoteDB           string `yaml:"remote_db"`
	Timezone           string `yaml:"timezone"`
	RefreshInterval    string `yaml:"refresh_interval"`
	PollInterval       string `yaml:"poll_interval"`
	Debounce           string `yaml:"debounce"`
	CacheSize          int    `yaml:"cache_size"`
	FallbackQuotaBytes int64  `yaml:"fallback_quota_bytes"`
	LogLevel           string `yaml:"log_level"`
	Notify             bool   `yaml:"notify"`
}

// Load layers, lowest to highest priority: defaults, <data>/.recall/config.yaml,
// <data>/.env, then RECALL_* process environment.
func Load(dataDir string) (Config, error) {
	cfg, err := New(dataDir)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.applyFile(filepath.Join(cfg.StateDir, "config.yaml")); err != nil {
		return Config{}, err
	}
	dotenv, err := godotenv.Read(filepath.Join(dataDir, ".env"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}
	if err := cfg.applyEnv(func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}); err != nil {
		return Config{}, err
	}
	if err := cfg.resolveLocation(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	fc := fileConfig{}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}
	return c.applyEnv(func(key string) string {
		switch key {
		case "RECALL_USER":
			return fc.UserID
		case "RECALL_REMOTE_DB":
			return fc.RemoteDB
		case "RECALL_TIMEZONE":
			return fc.Timezone
		case "RECALL_REFRESH_INTERVAL":
			return fc.RefreshInterval
		case "RECALL_POLL_INTERVAL":
			return fc.PollInterval
		case "RECALL_DEBOUNCE":
			return fc.Debounce
		case "RECALL_CACHE_SIZE":
			if fc.CacheSize > 0 {
				return strconv.Itoa(fc.CacheSize)
			}
		case "RECALL_FALLBACK_QUOTA":
			if fc.FallbackQuotaBytes > 0 {
				return strconv.FormatInt(fc.FallbackQuotaBytes, 10)
			}
		case "RECALL_LOG_LEVEL":
			return fc.LogLevel
		case "RECALL_NOTIFY":
			if fc.Notify {
				return "true"
			}
		}
		return ""
	})
}

func (c *Config) applyEnv(get func(string) string) error {
	if v := strings.TrimSpace(get("RECALL_USER")); v != "" {
		c.UserID = v
	}
	if v := strings.TrimSpace(get("RECALL_REMOTE_DB")); v != "" {
		if v != RemoteOff && !filepath.IsAbs(v) {
			v = filepath.Join(c.DataDir, v)
		}
		c.RemoteDBPath = v
	}
	if v := strings.TrimSpace(get("RECALL_TIMEZONE")); v != "" {
		c.Timezone = v
	}
	if v := strings.TrimSpace(get("RECALL_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(get("RECALL_NOTIFY")); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid RECALL_NOTIFY %q", v)
		}
		c.Notify = on
	}
	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"RECALL_REFRESH_INTERVAL", &c.RefreshInterval},
		{"RECALL_POLL_INTERVAL", &c.PollInterval},
		{"RECALL_DEBOUNCE", &c.Debounce},
	}
	for _, d := range durations {
		v := strings.TrimSpace(get(d.key))
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < 0 {
			return fmt.Errorf("invalid %s %q", d.key, v)
		}
		*d.target = parsed
	}
	if v := strings.TrimSpace(get("RECALL_CACHE_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid RECALL_CACHE_SIZE %q", v)
		}
		c.CacheSize = n
	}
	if v := strings.TrimSpace(get("RECALL_FALLBACK_QUOTA")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid RECALL_FALLBACK_QUOTA %q", v)
		}
		c.FallbackQuotaBytes = n
	}
	return nil
}

func (c *Config) resolveLocation() error {
	if c.Timezone == "" {
		c.Location = time.Local
		return nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc
	return nil
}
