package quell

import (
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
)

// Config describes how to reach the database. DSN wins over the individual
// connection fields when both are set.
type Config struct {
	Driver   string            `yaml:"driver"`
	DSN      string            `yaml:"dsn"`
	Host     string            `yaml:"host"`
	Port     string            `yaml:"port"`
	Database string            `yaml:"database"`
	User     string            `yaml:"user"`
	Password string            `yaml:"password"`
	Params   map[string]string `yaml:"params"`
}

// LoadConfig reads a YAML config file. ${VAR} references are expanded from
// the environment and QUELL_DRIVER / QUELL_DSN override the file.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{Driver: "mysql"}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := ParseConfig(data, cfg); err != nil {
			return nil, err
		}
	}

	if env := os.Getenv("QUELL_DRIVER"); env != "" {
		cfg.Driver = env
	}
	if env := os.Getenv("QUELL_DSN"); env != "" {
		cfg.DSN = env
	}

	return cfg, nil
}

// ParseConfig decodes YAML into cfg and expands environment references.
func ParseConfig(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.DSN = expandEnvVars(cfg.DSN)
	cfg.Host = expandEnvVars(cfg.Host)
	cfg.Port = expandEnvVars(cfg.Port)
	cfg.Database = expandEnvVars(cfg.Database)
	cfg.User = expandEnvVars(cfg.User)
	cfg.Password = expandEnvVars(cfg.Password)
	for k, v := range cfg.Params {
		cfg.Params[k] = expandEnvVars(v)
	}

	return nil
}

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

func (c *Config) Dialect() Dialect {
	return DialectFor(c.Driver)
}

// Connect opens the database described by c.
func (c *Config) Connect() (*sqlx.DB, error) {
	dialect := c.Dialect()

	if c.DSN != "" {
		switch dialect {
		case SQLite:
			return ConnectSqlite(c.DSN)
		case Postgres:
			return sqlx.Open("pgx", c.DSN)
		default:
			return sqlx.Open("mysql", c.DSN)
		}
	}

	switch dialect {
	case SQLite:
		return ConnectSqlite(c.Database)
	case Postgres:
		return ConnectPostgresql(PGConfig{
			Host:     c.Host,
			Port:     defaultString(c.Port, "5432"),
			Database: c.Database,
			User:     c.User,
			Password: c.Password,
		})
	default:
		return ConnectMySQL(MySQLConfig{
			Host:     defaultString(c.Host, "127.0.0.1"),
			Port:     defaultString(c.Port, "3306"),
			Database: c.Database,
			User:     c.User,
			Password: c.Password,
			Params:   c.Params,
		})
	}
}

func defaultString(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
