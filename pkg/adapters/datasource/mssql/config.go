package mssql

import (
	"fmt"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string
	// Instance is the named instance, e.g. SQLEXPRESS. Port is ignored when set.
	Instance string

	// AuthMethod determines which authentication to use
	// Options: "sql", "service_principal"
	AuthMethod string

	// SQL Authentication fields
	Username string
	Password string

	// Service Principal (Azure AD) fields
	TenantID     string
	ClientID     string
	ClientSecret string

	// Connection options
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
	MaxOpenConns           int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromMap creates a Config from a generic config map and auto-detects auth method.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Port:              DefaultPort(),
		Encrypt:           true,
		ConnectionTimeout: DefaultConnectionTimeout(),
	}

	// Required fields
	if host, ok := config["host"].(string); ok && host != "" {
		cfg.Host = host
	} else {
		return nil, fmt.Errorf("host is required")
	}

	if port, ok := intValue(config["port"]); ok {
		cfg.Port = port
	}

	if database, ok := config["database"].(string); ok && database != "" {
		cfg.Database = database
	} else {
		return nil, fmt.Errorf("database is required")
	}

	if instance, ok := config["instance"].(string); ok {
		cfg.Instance = instance
	}

	// Optional connection settings
	if encrypt, ok := config["encrypt"].(bool); ok {
		cfg.Encrypt = encrypt
	} else if encryptStr, ok := config["encrypt"].(string); ok {
		// Support string values: "true", "false", "strict"
		cfg.Encrypt = encryptStr == "true" || encryptStr == "strict"
	}

	if trust, ok := config["trust_server_certificate"].(bool); ok {
		cfg.TrustServerCertificate = trust
	}

	if timeout, ok := intValue(config["connection_timeout"]); ok {
		cfg.ConnectionTimeout = timeout
	}

	if maxOpen, ok := intValue(config["max_open_conns"]); ok {
		cfg.MaxOpenConns = maxOpen
	}

	// Auto-detect auth method or use explicitly provided
	if authMethod, ok := config["auth_method"].(string); ok && authMethod != "" {
		cfg.AuthMethod = authMethod
	} else {
		// Priority: client_id > username/user (non-empty)
		if clientID, hasClientID := config["client_id"].(string); hasClientID && clientID != "" {
			cfg.AuthMethod = "service_principal"
		} else if username, hasUsername := config["username"].(string); hasUsername && username != "" {
			cfg.AuthMethod = "sql"
		} else if user, hasUser := config["user"].(string); hasUser && user != "" {
			cfg.AuthMethod = "sql"
		} else {
			return nil, fmt.Errorf("could not auto-detect auth method; no credentials provided")
		}
	}

	// Parse auth-specific fields based on detected method
	switch cfg.AuthMethod {
	case "sql":
		if username, ok := config["username"].(string); ok && username != "" {
			cfg.Username = username
		} else if user, ok := config["user"].(string); ok && user != "" {
			cfg.Username = user
		} else {
			return nil, fmt.Errorf("username is required for SQL authentication")
		}

		if password, ok := config["password"].(string); ok {
			cfg.Password = password
		}

	case "service_principal":
		if tenantID, ok := config["tenant_id"].(string); ok {
			cfg.TenantID = tenantID
		} else {
			return nil, fmt.Errorf("tenant_id is required for service principal authentication")
		}

		if clientID, ok := config["client_id"].(string); ok {
			cfg.ClientID = clientID
		} else {
			return nil, fmt.Errorf("client_id is required for service principal authentication")
		}

		if clientSecret, ok := config["client_secret"].(string); ok {
			cfg.ClientSecret = clientSecret
		} else {
			return nil, fmt.Errorf("client_secret is required for service principal authentication")
		}

	default:
		return nil, fmt.Errorf("invalid auth method: %s (must be sql or service_principal)", cfg.AuthMethod)
	}

	return cfg, nil
}

// Validate checks if the config has all required fields for the selected auth method.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Instance == "" && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.AuthMethod {
	case "sql":
		if c.Username == "" {
			return fmt.Errorf("username is required for SQL authentication")
		}
	case "service_principal":
		if c.TenantID == "" {
			return fmt.Errorf("tenant_id is required for service principal")
		}
		if c.ClientID == "" {
			return fmt.Errorf("client_id is required for service principal")
		}
		if c.ClientSecret == "" {
			return fmt.Errorf("client_secret is required for service principal")
		}
	default:
		return fmt.Errorf("invalid auth method: %s", c.AuthMethod)
	}

	return nil
}

// intValue accepts the numeric shapes produced by YAML, JSON and Go callers.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64: // JSON numbers are float64
		return int(n), true
	default:
		return 0, false
	}
}
