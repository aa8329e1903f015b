package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cwygoda/scraperr/internal/adapter/sqlite"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	Host            string
	Port            int
	DBPath          string
	SchemaPolicy    string
	AllowedOrigins  []string
	LogLevel        string
	AppEnv          string
	ShutdownTimeout time.Duration
}

// fileConfig mirrors Config in a config file. Zero values are ignored.
type fileConfig struct {
	Host            string   `toml:"host" yaml:"host"`
	Port            int      `toml:"port" yaml:"port"`
	DBPath          string   `toml:"db" yaml:"db"`
	SchemaPolicy    string   `toml:"schema_policy" yaml:"schema_policy"`
	AllowedOrigins  []string `toml:"allowed_origins" yaml:"allowed_origins"`
	LogLevel        string   `toml:"log_level" yaml:"log_level"`
	AppEnv          string   `toml:"env" yaml:"env"`
	ShutdownTimeout string   `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DefaultDBPath returns the default database path using XDG_DATA_HOME.
func DefaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "scraperr", "database.db")
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load builds Config from, in increasing precedence: defaults, the file
// named by -config, explicitly set flags and SCRAPERR_* environment
// variables. A .env file in the working directory is loaded first.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	var configPath, origins string

	fset := flag.NewFlagSet("scraperr", flag.ContinueOnError)
	fset.StringVar(&configPath, "config", "", "Config file (.toml, .yaml or .yml)")
	fset.StringVar(&cfg.Host, "host", "0.0.0.0", "HTTP listen host")
	fset.IntVar(&cfg.Port, "port", 8000, "HTTP server port")
	fset.StringVar(&cfg.DBPath, "db", DefaultDBPath(), "SQLite database path")
	fset.StringVar(&cfg.SchemaPolicy, "schema-policy", "fail", "On incompatible jobs table: fail or recreate (drops all jobs)")
	fset.StringVar(&origins, "allowed-origins", "*", "Comma-separated CORS origins")
	fset.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fset.StringVar(&cfg.AppEnv, "env", "development", "Environment (development, production)")
	fset.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	cfg.AllowedOrigins = splitList(origins)

	if configPath != "" {
		set := make(map[string]bool)
		fset.Visit(func(f *flag.Flag) { set[f.Name] = true })
		if err := cfg.applyFile(configPath, set); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string, set map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	// Flags given on the command line win over the file
	if fc.Host != "" && !set["host"] {
		c.Host = fc.Host
	}
	if fc.Port != 0 && !set["port"] {
		c.Port = fc.Port
	}
	if fc.DBPath != "" && !set["db"] {
		c.DBPath = fc.DBPath
	}
	if fc.SchemaPolicy != "" && !set["schema-policy"] {
		c.SchemaPolicy = fc.SchemaPolicy
	}
	if len(fc.AllowedOrigins) > 0 && !set["allowed-origins"] {
		c.AllowedOrigins = fc.AllowedOrigins
	}
	if fc.LogLevel != "" && !set["log-level"] {
		c.LogLevel = fc.LogLevel
	}
	if fc.AppEnv != "" && !set["env"] {
		c.AppEnv = fc.AppEnv
	}
	if fc.ShutdownTimeout != "" && !set["shutdown-timeout"] {
		d, err := time.ParseDuration(fc.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("shutdown_timeout: %w", err)
		}
		c.ShutdownTimeout = d
	}
	return nil
}

func (c *Config) applyEnv() error {
	if host := os.Getenv("SCRAPERR_HOST"); host != "" {
		c.Host = host
	}
	if port := os.Getenv("SCRAPERR_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("SCRAPERR_PORT: %w", err)
		}
		c.Port = p
	}
	if db := os.Getenv("SCRAPERR_DB"); db != "" {
		c.DBPath = db
	}
	if policy := os.Getenv("SCRAPERR_SCHEMA_POLICY"); policy != "" {
		c.SchemaPolicy = policy
	}
	if origins := os.Getenv("SCRAPERR_ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}
	if level := os.Getenv("SCRAPERR_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if env := os.Getenv("SCRAPERR_ENV"); env != "" {
		c.AppEnv = env
	}
	if timeout := os.Getenv("SCRAPERR_SHUTDOWN_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("SCRAPERR_SHUTDOWN_TIMEOUT: %w", err)
		}
		c.ShutdownTimeout = d
	}
	return nil
}

func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, err := sqlite.ParseSchemaPolicy(c.SchemaPolicy); err != nil {
		return err
	}
	if c.DBPath == "" {
		return errors.New("database path is required")
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
