package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is read from a YAML file and then overridden by SOCIALKV_*
// environment variables.
type Config struct {
	Backend           string            `yaml:"backend" env:"SOCIALKV_BACKEND"`
	Databases         Databases         `yaml:"databases"`
	Store             Store             `yaml:"store"`
	Log               Log               `yaml:"log"`
	BenchmarkSettings BenchmarkSettings `yaml:"benchmark_settings"`
}

// Databases holds one DSN per backend. The memory backend needs none.
type Databases struct {
	Postgres string `yaml:"postgres" env:"SOCIALKV_POSTGRES_DSN"`
	MySQL    string `yaml:"mysql" env:"SOCIALKV_MYSQL_DSN"`
	Mongo    string `yaml:"mongo" env:"SOCIALKV_MONGO_URI"`
	Redis    string `yaml:"redis" env:"SOCIALKV_REDIS_URL"`
	SQLite   string `yaml:"sqlite" env:"SOCIALKV_SQLITE_PATH"`
	LevelDB  string `yaml:"leveldb" env:"SOCIALKV_LEVELDB_PATH"`
}

type Store struct {
	// SerializeWrites puts a striped lock around every read-modify-write.
	SerializeWrites bool          `yaml:"serialize_writes" env:"SOCIALKV_SERIALIZE_WRITES"`
	FeedLimit       int           `yaml:"feed_limit" env:"SOCIALKV_FEED_LIMIT"`
	SearchLimit     int           `yaml:"search_limit" env:"SOCIALKV_SEARCH_LIMIT"`
	OnlineWindow    time.Duration `yaml:"online_window" env:"SOCIALKV_ONLINE_WINDOW"`
}

type Log struct {
	Level  string `yaml:"level" env:"SOCIALKV_LOG_LEVEL"`
	Format string `yaml:"format" env:"SOCIALKV_LOG_FORMAT"`
}

type BenchmarkSettings struct {
	DefaultDuration    time.Duration `yaml:"default_duration" env:"SOCIALKV_BENCH_DURATION"`
	DefaultConcurrency int           `yaml:"default_concurrency" env:"SOCIALKV_BENCH_CONCURRENCY"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Backend: "memory",
		Databases: Databases{
			SQLite:  "socialkv.db",
			LevelDB: "socialkv.ldb",
		},
		Store: Store{
			FeedLimit:    20,
			SearchLimit:  10,
			OnlineWindow: 5 * time.Minute,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		BenchmarkSettings: BenchmarkSettings{
			DefaultDuration:    10 * time.Second,
			DefaultConcurrency: 10,
		},
	}
}

// LoadConfig layers the file at path (skipped when path is empty) and then
// the environment over the defaults.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.Store.FeedLimit <= 0 {
		return fmt.Errorf("store.feed_limit must be positive, got %d", c.Store.FeedLimit)
	}
	if c.Store.SearchLimit <= 0 {
		return fmt.Errorf("store.search_limit must be positive, got %d", c.Store.SearchLimit)
	}
	if c.Store.OnlineWindow <= 0 {
		return fmt.Errorf("store.online_window must be positive, got %s", c.Store.OnlineWindow)
	}
	if c.BenchmarkSettings.DefaultConcurrency <= 0 {
		return fmt.Errorf("benchmark_settings.default_concurrency must be positive, got %d", c.BenchmarkSettings.DefaultConcurrency)
	}
	dsn, err := c.DSN(c.Backend)
	if err != nil {
		return err
	}
	if c.Backend != "memory" && strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("backend %s needs a connection string", c.Backend)
	}
	return nil
}

// DSN returns the connection string configured for backend.
func (c *Config) DSN(backend string) (string, error) {
	switch backend {
	case "memory":
		return "", nil
	case "postgres":
		return c.Databases.Postgres, nil
	case "mysql":
		return c.Databases.MySQL, nil
	case "mongo":
		return c.Databases.Mongo, nil
	case "redis":
		return c.Databases.Redis, nil
	case "sqlite":
		return c.Databases.SQLite, nil
	case "leveldb":
		return c.Databases.LevelDB, nil
	default:
		return "", fmt.Errorf("unknown backend %q", backend)
	}
}
