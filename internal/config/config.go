// Package config loads database connection configuration from environment
// variables and an optional config file. The password is never logged or
// exposed to tool responses.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Env var names. Each one overrides the matching config file value.
const (
	EnvDriver    = "DB_DRIVER"
	EnvHost      = "DB_HOST"
	EnvPort      = "DB_PORT"
	EnvName      = "DB_NAME"
	EnvUser      = "DB_USER"
	EnvPassword  = "DB_PASSWORD"
	EnvSchema    = "DB_SCHEMA"
	EnvReadOnly  = "DB_READ_ONLY"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
	EnvLogFile   = "LOG_FILE"
)

// DefaultConfigDir is the directory for the optional config file.
// Config file path: ~/.sqltools-mcp/config.yaml
const DefaultConfigDir = ".sqltools-mcp"
const ConfigFileName = "config.yaml"

// Supported drivers.
const (
	DriverPostgres  = "postgres"
	DriverMySQL     = "mysql"
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite"
)

var defaultPorts = map[string]int{
	DriverPostgres:  5432,
	DriverMySQL:     3306,
	DriverSQLServer: 1433,
	DriverSQLite:    0,
}

// Config is resolved once at startup and passed explicitly to every
// component. The password is stored but never included in logs or tool output.
type Config struct {
	Driver   string
	Host     string
	Port     int // 0 selects the driver default
	Name     string
	User     string
	Schema   string
	ReadOnly bool

	LogLevel  string
	LogFormat string
	LogFile   string

	HTTPAddr    string
	MetricsAddr string

	password string
}

// Default returns the configuration used when neither a file nor env vars
// are present.
func Default() *Config {
	return &Config{
		Driver:    DriverPostgres,
		Host:      "localhost",
		Name:      "agency",
		User:      "postgres",
		Schema:    "app",
		LogLevel:  "info",
		LogFormat: "text",
		HTTPAddr:  ":8080",
		password:  "postgres",
	}
}

// Load builds the configuration: defaults, then the config file at path
// (or ~/.sqltools-mcp/config.yaml when path is empty and the file exists),
// then environment variables.
func Load(path string) (*Config, error) {
	c := Default()

	// 1) Optional config file (base)
	if path == "" {
		p, err := configFilePath()
		if err != nil {
			return nil, fmt.Errorf("config path: %w", err)
		}
		path = p
	}
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	// 2) Env overrides
	if err := c.loadEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	c.Driver = NormalizeDriver(c.Driver)
	return c, nil
}

// NormalizeDriver trims and lower-cases a driver name.
func NormalizeDriver(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func configFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	p := filepath.Join(home, DefaultConfigDir, ConfigFileName)
	_, err = os.Stat(p)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return p, nil
}

type fileFormat struct {
	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Name     string `yaml:"name"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Schema   string `yaml:"schema"`
		ReadOnly *bool  `yaml:"read_only"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`
	HTTPAddr    string `yaml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.applyFile(data)
}

func (c *Config) applyFile(data []byte) error {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	setString(&c.Driver, f.Database.Driver)
	setString(&c.Host, f.Database.Host)
	if f.Database.Port != 0 {
		c.Port = f.Database.Port
	}
	setString(&c.Name, f.Database.Name)
	setString(&c.User, f.Database.User)
	setString(&c.password, f.Database.Password)
	setString(&c.Schema, f.Database.Schema)
	if f.Database.ReadOnly != nil {
		c.ReadOnly = *f.Database.ReadOnly
	}
	setString(&c.LogLevel, f.Log.Level)
	setString(&c.LogFormat, f.Log.Format)
	setString(&c.LogFile, f.Log.File)
	setString(&c.HTTPAddr, f.HTTPAddr)
	setString(&c.MetricsAddr, f.MetricsAddr)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *Config) loadEnv(lookup func(string) (string, bool)) error {
	env := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	env(EnvDriver, &c.Driver)
	env(EnvHost, &c.Host)
	env(EnvName, &c.Name)
	env(EnvUser, &c.User)
	env(EnvSchema, &c.Schema)
	env(EnvLogLevel, &c.LogLevel)
	env(EnvLogFormat, &c.LogFormat)
	env(EnvLogFile, &c.LogFile)
	// An empty password is a valid override.
	if v, ok := lookup(EnvPassword); ok {
		c.password = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		c.Port = p
	}
	if v, ok := lookup(EnvReadOnly); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: invalid boolean %q", EnvReadOnly, v)
		}
		c.ReadOnly = b
	}
	return nil
}

// Validate reports the first configuration problem, if any.
func (c *Config) Validate() error {
	if _, ok := defaultPorts[c.Driver]; !ok {
		return fmt.Errorf("unsupported driver %q (want postgres, mysql, sqlserver or sqlite)", c.Driver)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Name == "" {
		return errors.New("database name is required")
	}
	if c.Driver != DriverSQLite && c.Host == "" {
		return errors.New("database host is required")
	}
	if c.Schema == "" || strings.ContainsAny(c.Schema, "\"`[]; \t\n") {
		return fmt.Errorf("invalid schema %q", c.Schema)
	}
	return nil
}

// EffectivePort returns the configured port or the driver's default.
func (c *Config) EffectivePort() int {
	if c.Port != 0 {
		return c.Port
	}
	return defaultPorts[c.Driver]
}

// Password returns the database password. For use only by the db layer; never log the result.
func (c *Config) Password() string {
	return c.password
}

// SetPassword replaces the password, e.g. for tests.
func (c *Config) SetPassword(p string) {
	c.password = p
}

// Target describes the database without credentials. Safe to log.
func (c *Config) Target() string {
	if c.Driver == DriverSQLite {
		return c.Driver + ":" + c.Name
	}
	return fmt.Sprintf("%s://%s@%s:%d/%s", c.Driver, c.User, c.Host, c.EffectivePort(), c.Name)
}

// String redacts the password.
func (c *Config) String() string {
	return fmt.Sprintf("driver=%s target=%s schema=%s read_only=%t password=***",
		c.Driver, c.Target(), c.Schema, c.ReadOnly)
}
