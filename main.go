package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-sqlrunner/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-sqlrunner/pkg/adapters/datasource/postgres"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/config"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/database"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/handlers"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/middleware"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/repositories"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

// retentionInterval is how often old run history is pruned.
const retentionInterval = 24 * time.Hour

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// newLogger builds a development logger for local work and a JSON
// production logger everywhere else.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("scripts_dir", cfg.Scripts.Dir),
		zap.String("datasource_type", cfg.Datasource.Type),
		zap.String("datasource_host", cfg.Datasource.Host),
		zap.String("datasource_database", cfg.Datasource.Database),
		zap.Bool("history_enabled", cfg.History.Enabled),
		zap.Strings("adapters", registeredTypes()))

	// The server starts without a datasource so scripts can still be browsed
	// and validated; runs then answer 503 until the process is restarted.
	executor, err := datasource.NewQueryExecutor(ctx, cfg.Datasource.Type, cfg.Datasource.ToMap(), logger)
	if err != nil {
		logger.Error("Datasource unavailable, running without one",
			zap.String("type", cfg.Datasource.Type),
			zap.Error(err))
		executor = nil
	} else {
		defer func() {
			if err := executor.Close(); err != nil {
				logger.Warn("Failed to close datasource", zap.Error(err))
			}
		}()
	}

	var history services.RunHistoryService
	if cfg.History.Enabled {
		db, err := openHistory(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		history = services.NewRunHistoryService(repositories.NewRunHistoryRepository(db), logger)
		history.RunScheduler(ctx, cfg.History.RetentionDays, retentionInterval)
	}

	catalog := services.NewScriptCatalog(cfg.Scripts.Dir, logger)
	runner := services.NewQueryRunner(catalog, executor, history, services.RunnerConfig{
		Timeout: time.Duration(cfg.Query.TimeoutSeconds) * time.Second,
		MaxRows: cfg.Query.MaxRows,
	}, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewScriptsHandler(catalog, runner, logger).RegisterRoutes(mux, middleware.ScriptRequestLogger(logger))
	handlers.NewRunsHandler(history, logger).RegisterRoutes(mux)
	handlers.NewDatasourceHandler(runner, cfg.Datasource.Type, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
		// Script runs may take up to the query timeout.
		WriteTimeout: time.Duration(cfg.Query.TimeoutSeconds)*time.Second + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		useTLS := cfg.TLSCertPath != ""
		logger.Info("Starting ekaya-sqlrunner",
			zap.String("addr", server.Addr),
			zap.Bool("tls", useTLS),
			zap.String("version", cfg.Version))

		var err error
		if useTLS {
			err = server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// openHistory connects to the run-history database and applies migrations.
func openHistory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*database.DB, error) {
	url := cfg.History.URL()

	migrationDB, err := database.OpenMigrationDB(url)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database for migrations: %w", err)
	}
	err = database.RunMigrations(migrationDB, cfg.History.MigrationsPath, logger)
	_ = migrationDB.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            url,
		MaxConnections: cfg.History.MaxConnections,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}
	logger.Info("Run history enabled",
		zap.String("host", cfg.History.Host),
		zap.String("database", cfg.History.Database),
		zap.Int("retention_days", cfg.History.RetentionDays))
	return db, nil
}

func registeredTypes() []string {
	adapters := datasource.RegisteredAdapters()
	types := make([]string, len(adapters))
	for i, a := range adapters {
		types[i] = a.Type
	}
	return types
}
