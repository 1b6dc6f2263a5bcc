package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
	BackendMemory   = "memory"
)

type S3Config struct {
	Bucket          string `json:"bucket" env:"LAZYPLAN_S3_BUCKET"`
	Key             string `json:"key" env:"LAZYPLAN_S3_KEY" env-default:"lazyplan.csv"`
	Region          string `json:"region" env:"LAZYPLAN_S3_REGION" env-default:"us-east-1"`
	Endpoint        string `json:"endpoint,omitempty" env:"LAZYPLAN_S3_ENDPOINT"`
	PathStyle       bool   `json:"path_style,omitempty" env:"LAZYPLAN_S3_PATH_STYLE"`
	// Credentials come from the environment only and are never saved.
	AccessKeyID     string `json:"-" env:"LAZYPLAN_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `json:"-" env:"LAZYPLAN_S3_SECRET_ACCESS_KEY"`
}

type Config struct {
	DataPath        string   `json:"data_path" env:"LAZYPLAN_DATA_PATH"`
	Backend         string   `json:"backend" env:"LAZYPLAN_BACKEND" env-default:"file"`
	DBDSN           string   `json:"db_dsn,omitempty" env:"LAZYPLAN_DB_DSN"`
	S3              S3Config `json:"s3"`
	WebEnabled      bool     `json:"web_enabled" env:"LAZYPLAN_WEB_ENABLED"`
	WebPort         int      `json:"web_port" env:"LAZYPLAN_WEB_PORT" env-default:"8080"`
	HistoryCapacity int      `json:"history_capacity" env:"LAZYPLAN_HISTORY_CAPACITY"`
	LogLevel        string   `json:"log_level" env:"LAZYPLAN_LOG_LEVEL" env-default:"INFO"`
}

func Default() Config {
	return Config{
		Backend:  BackendFile,
		WebPort:  8080,
		LogLevel: "INFO",
		S3:       S3Config{Key: "lazyplan.csv", Region: "us-east-1"},
	}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lazyplan", "config.json"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// Load reads the JSON file at path with LAZYPLAN_* environment overrides. A
// missing file falls back to the environment and defaults alone.
func Load(path string) (Config, error) {
	var cfg Config

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		cfg = Config{}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("read env: %w", err)
		}
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.LogLevel = strings.ToUpper(strings.TrimSpace(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	case BackendPostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("backend %q needs db_dsn", c.Backend)
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("backend %q needs s3.bucket", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.WebPort < 0 || c.WebPort > 65535 {
		return fmt.Errorf("invalid web_port %d", c.WebPort)
	}
	if c.HistoryCapacity < 0 {
		return fmt.Errorf("history_capacity must not be negative")
	}
	return nil
}

// ResolveDataPath fills DataPath with a file next to the config when unset.
func (c *Config) ResolveDataPath(configPath string) {
	if c.DataPath != "" {
		return
	}
	name := "lazyplan.csv"
	if c.Backend == BackendSQLite {
		name = "lazyplan.db"
	}
	c.DataPath = filepath.Join(filepath.Dir(configPath), name)
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
