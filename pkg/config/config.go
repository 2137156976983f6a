package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// configFile is read from the working directory when present.
const configFile = "config.yaml"

// Config holds all configuration for ekaya-sqlrunner.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, client secrets) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	// Folder holding the .sql scripts
	Scripts ScriptsConfig `yaml:"scripts"`

	// Execution limits
	Query QueryConfig `yaml:"query"`

	// Target database the scripts run against
	Datasource DatasourceConfig `yaml:"datasource"`

	// Optional PostgreSQL store for run history
	History HistoryConfig `yaml:"history"`
}

// ScriptsConfig locates the script catalog.
type ScriptsConfig struct {
	Dir string `yaml:"dir" env:"SCRIPTS_DIR" env-default:"./sql"`
}

// QueryConfig bounds script execution.
type QueryConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds" env:"QUERY_TIMEOUT_SECONDS" env-default:"300"`
	MaxRows        int `yaml:"max_rows" env:"QUERY_MAX_ROWS" env-default:"1000"`
}

// DatasourceConfig holds the connection settings of the target database.
// Type selects the registered adapter ("mssql" or "postgres").
type DatasourceConfig struct {
	Type     string `yaml:"type" env:"DATASOURCE_TYPE" env-default:"mssql"`
	Host     string `yaml:"host" env:"DATASOURCE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DATASOURCE_PORT" env-default:"0"` // 0 uses the adapter default
	Instance string `yaml:"instance" env:"DATASOURCE_INSTANCE" env-default:""`
	Database string `yaml:"database" env:"DATASOURCE_DATABASE" env-default:""`
	User     string `yaml:"user" env:"DATASOURCE_USER" env-default:""`
	Password string `yaml:"-" env:"DATASOURCE_PASSWORD"` // Secret - not in YAML

	// SQL Server Azure AD service principal
	AuthMethod   string `yaml:"auth_method" env:"DATASOURCE_AUTH_METHOD" env-default:""`
	TenantID     string `yaml:"tenant_id" env:"DATASOURCE_TENANT_ID" env-default:""`
	ClientID     string `yaml:"client_id" env:"DATASOURCE_CLIENT_ID" env-default:""`
	ClientSecret string `yaml:"-" env:"DATASOURCE_CLIENT_SECRET"` // Secret - not in YAML

	Encrypt                bool   `yaml:"encrypt" env:"DATASOURCE_ENCRYPT" env-default:"true"`
	TrustServerCertificate bool   `yaml:"trust_server_certificate" env:"DATASOURCE_TRUST_SERVER_CERTIFICATE" env-default:"false"`
	ConnectionTimeout      int    `yaml:"connection_timeout" env:"DATASOURCE_CONNECTION_TIMEOUT" env-default:"30"`
	MaxOpenConns           int    `yaml:"max_open_conns" env:"DATASOURCE_MAX_OPEN_CONNS" env-default:"10"`
	SSLMode                string `yaml:"ssl_mode" env:"DATASOURCE_SSL_MODE" env-default:""` // postgres only
}

// HistoryConfig holds the run-history PostgreSQL database configuration.
type HistoryConfig struct {
	Enabled        bool   `yaml:"enabled" env:"HISTORY_ENABLED" env-default:"false"`
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ekaya"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ekaya_sqlrunner"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"5"`
	MigrationsPath string `yaml:"migrations_path" env:"HISTORY_MIGRATIONS_PATH" env-default:"./migrations"`
	RetentionDays  int    `yaml:"retention_days" env:"HISTORY_RETENTION_DAYS" env-default:"30"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// Without a config.yaml only the environment and defaults apply.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(configFile); err == nil {
		if err := cleanenv.ReadConfig(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", configFile, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", configFile, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Validate TLS configuration
	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	// Use HTTPS scheme if TLS is configured
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Scripts.Dir) == "" {
		return errors.New("scripts.dir must not be blank")
	}
	if c.Query.TimeoutSeconds <= 0 {
		return fmt.Errorf("query.timeout_seconds must be positive, got %d", c.Query.TimeoutSeconds)
	}
	if c.Query.MaxRows < 0 {
		return fmt.Errorf("query.max_rows must not be negative, got %d", c.Query.MaxRows)
	}
	if strings.TrimSpace(c.Datasource.Type) == "" {
		return errors.New("datasource.type must not be blank")
	}
	if c.History.Enabled && strings.TrimSpace(c.History.MigrationsPath) == "" {
		return errors.New("history.migrations_path must not be blank when history is enabled")
	}
	return nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist and be readable.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	// Both must be provided together or both empty
	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	// If both provided, verify files exist (actual readability checked by tls.LoadX509KeyPair at startup)
	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// ToMap converts the datasource settings into the generic map adapter
// factories consume. Empty values are left out so adapters apply their own defaults.
func (d *DatasourceConfig) ToMap() map[string]any {
	m := map[string]any{
		"host":                     d.Host,
		"database":                 d.Database,
		"encrypt":                  d.Encrypt,
		"trust_server_certificate": d.TrustServerCertificate,
	}
	set := func(key, value string) {
		if value != "" {
			m[key] = value
		}
	}
	set("instance", d.Instance)
	set("user", d.User)
	set("password", d.Password)
	set("auth_method", d.AuthMethod)
	set("tenant_id", d.TenantID)
	set("client_id", d.ClientID)
	set("client_secret", d.ClientSecret)
	set("ssl_mode", d.SSLMode)

	if d.Port > 0 {
		m["port"] = d.Port
	}
	if d.ConnectionTimeout > 0 {
		m["connection_timeout"] = d.ConnectionTimeout
	}
	if d.MaxOpenConns > 0 {
		m["max_open_conns"] = d.MaxOpenConns
	}
	return m
}

// URL returns the run-history database as a postgres:// URL, the form both
// pgxpool and golang-migrate accept.
func (h *HistoryConfig) URL() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(h.User, h.Password),
		Host:   net.JoinHostPort(ResolveHostForDocker(h.Host), strconv.Itoa(h.Port)),
		Path:   "/" + h.Database,
	}
	q := url.Values{}
	q.Set("sslmode", h.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
