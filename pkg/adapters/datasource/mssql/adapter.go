package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	_ "github.com/microsoft/go-mssqldb"         // SQL Server driver
	_ "github.com/microsoft/go-mssqldb/azuread" // Azure AD support

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/config"
)

// openDB opens a pool for the configured auth method. It does not connect.
func openDB(cfg *Config) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch cfg.AuthMethod {
	case "sql":
		db, err = sql.Open("sqlserver", buildSQLAuthConnectionString(cfg))
	case "service_principal":
		db, err = sql.Open("azuresql", buildServicePrincipalConnectionString(cfg))
	default:
		return nil, fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", cfg.AuthMethod, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return db, nil
}

// connectionOptions holds the query options shared by every auth method.
func connectionOptions(cfg *Config) url.Values {
	query := url.Values{}
	query.Add("database", cfg.Database)

	if cfg.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}

	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}

	if cfg.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", cfg.ConnectionTimeout))
	}
	return query
}

// serverURL builds the scheme-less host part, honoring named instances.
// When running in Docker, localhost resolves to host.docker.internal.
func serverURL(cfg *Config, user *url.Userinfo) *url.URL {
	u := &url.URL{
		Scheme: "sqlserver",
		User:   user,
		Host:   net.JoinHostPort(config.ResolveHostForDocker(cfg.Host), strconv.Itoa(cfg.Port)),
	}
	if cfg.Instance != "" {
		u.Host = config.ResolveHostForDocker(cfg.Host)
		u.Path = cfg.Instance
	}
	return u
}

func buildSQLAuthConnectionString(cfg *Config) string {
	u := serverURL(cfg, url.UserPassword(cfg.Username, cfg.Password))
	u.RawQuery = connectionOptions(cfg).Encode()
	return u.String()
}

func buildServicePrincipalConnectionString(cfg *Config) string {
	query := connectionOptions(cfg)
	query.Add("fedauth", "ActiveDirectoryServicePrincipal")
	query.Add("user id", cfg.ClientID)
	query.Add("password", cfg.ClientSecret)
	query.Add("tenant id", cfg.TenantID)

	u := serverURL(cfg, nil)
	u.RawQuery = query.Encode()
	return u.String()
}
