package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/daftuyda/Igris/internal/scoring"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// SchedulerSettings controls the rollover sweep.
type SchedulerSettings struct {
	Interval time.Duration `yaml:"interval"`
	Workers  int           `yaml:"workers"`
}

// FileConfig is the optional YAML file named by CONFIG_FILE.
type FileConfig struct {
	Policy    scoring.Policy    `yaml:"policy"`
	Scheduler SchedulerSettings `yaml:"scheduler"`
}

type Config struct {
	Env             string
	LogLevel        string
	HTTPAddr        string
	StorageBackend  string
	DataDir         string
	SQLitePath      string
	PostgresDSN     string
	DefaultTimezone string
	AuthTokens      map[string]string // token -> user id
	AuthServiceURL  string
	AllowManualEval bool
	ConfigFile      string

	Scheduler SchedulerSettings
	Policy    scoring.Policy
}

var (
	cfg    *Config
	cfgErr error
	once   sync.Once
)

// Load reads the configuration once per process. Later calls return the same
// result.
func Load() (*Config, error) {
	once.Do(func() {
		cfg, cfgErr = FromEnv()
	})
	return cfg, cfgErr
}

// FromEnv builds a Config from .env, the process environment and the optional YAML file.
func FromEnv() (*Config, error) {
	_ = godotenv.Load()

	c := &Config{
		Env:             getEnv("APP_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8088"),
		StorageBackend:  strings.ToLower(getEnv("STORAGE_BACKEND", BackendSQLite)),
		DataDir:         getEnv("DATA_DIR", "data"),
		PostgresDSN:     getEnv("POSTGRES_DSN", ""),
		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "UTC"),
		AuthServiceURL:  getEnv("AUTH_SERVICE_URL", ""),
		ConfigFile:      getEnv("CONFIG_FILE", ""),
		Policy:          scoring.DefaultPolicy(),
		Scheduler: SchedulerSettings{
			Interval: 15 * time.Minute,
			Workers:  4,
		},
	}
	c.SQLitePath = getEnv("SQLITE_PATH", filepath.Join(c.DataDir, "igris.db"))

	if c.ConfigFile != "" {
		fc, err := LoadFile(c.ConfigFile)
		if err != nil {
			return nil, err
		}
		c.Policy = fc.Policy
		if fc.Scheduler.Interval > 0 {
			c.Scheduler.Interval = fc.Scheduler.Interval
		}
		if fc.Scheduler.Workers > 0 {
			c.Scheduler.Workers = fc.Scheduler.Workers
		}
	}

	tokens, err := ParseTokens(os.Getenv("AUTH_TOKENS"))
	if err != nil {
		return nil, err
	}
	c.AuthTokens = tokens

	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SWEEP_INTERVAL: %w", err)
		}
		c.Scheduler.Interval = d
	}
	if v := os.Getenv("SWEEP_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("SWEEP_WORKERS: %w", err)
		}
		c.Scheduler.Workers = n
	}
	if v := os.Getenv("ALLOW_MANUAL_EVALUATION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("ALLOW_MANUAL_EVALUATION: %w", err)
		}
		c.AllowManualEval = b
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile reads a YAML config file. Policy keys left out of the file keep their
// defaults; an explicit 0 turns that rule off.
func LoadFile(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	fc := FileConfig{Policy: scoring.DefaultPolicy()}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &fc, nil
}

// ParseTokens parses "token:userID,token2:userID2".
func ParseTokens(s string) (map[string]string, error) {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, userID, ok := strings.Cut(pair, ":")
		token, userID = strings.TrimSpace(token), strings.TrimSpace(userID)
		if !ok || token == "" || userID == "" {
			return nil, fmt.Errorf("AUTH_TOKENS: malformed entry %q", pair)
		}
		tokens[token] = userID
	}
	return tokens, nil
}

func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	switch c.StorageBackend {
	case BackendFile:
		if c.DataDir == "" {
			return errors.New("DATA_DIR is required when STORAGE_BACKEND=file")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required when STORAGE_BACKEND=sqlite")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of: file, sqlite, postgres (got %q)", c.StorageBackend)
	}
	if c.Scheduler.Interval <= 0 {
		return errors.New("SWEEP_INTERVAL must be positive")
	}
	if c.Scheduler.Workers <= 0 {
		return errors.New("SWEEP_WORKERS must be positive")
	}
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil || c.DefaultTimezone == "" {
		return fmt.Errorf("DEFAULT_TIMEZONE %q is not a valid IANA zone", c.DefaultTimezone)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
