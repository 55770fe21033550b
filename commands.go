package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/example/todo-app/config"
	"github.com/example/todo-app/modules/httpserver"
	"github.com/example/todo-app/modules/ratelimit"
	"github.com/example/todo-app/modules/todo"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// configFile is set by the --config flag.
var configFile string

var rootCmd = &cobra.Command{
	Use:           "todo-app",
	Short:         "Todo App serves a small task tracking API",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (default)",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the todos table if it does not exist",
	RunE:  runMigrate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (default: ./config.yaml if present)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	log.Println("=== Todo App ===")

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log.Printf("Configuration:")
	log.Printf("  Environment: %s", cfg.Environment)
	log.Printf("  HTTP Address: %s", cfg.HTTP.Addr)
	log.Printf("  Database Driver: %s", cfg.Database.Driver)
	log.Printf("  Rate Limiting: %t", cfg.RateLimit.Enabled)

	logLevel := mono.LogLevelInfo
	if cfg.Log.Level == "error" {
		logLevel = mono.LogLevelError
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	logger := app.Logger()

	todoModule := todo.NewModule(cfg.Database, logger.WithModule("todo"))

	var rateLimitModule *ratelimit.Module
	if cfg.RateLimit.Enabled {
		rateLimitModule = ratelimit.NewModule(cfg.RateLimit, logger.WithModule("rate-limiter"))
	}

	httpModule := httpserver.NewModule(cfg.HTTP, todoModule, rateLimitModule, logger.WithModule("http-server"))

	// Register modules (order matters: store first, HTTP last)
	if err := app.Register(todoModule); err != nil {
		return fmt.Errorf("failed to register todo module: %w", err)
	}
	if rateLimitModule != nil {
		if err := app.Register(rateLimitModule); err != nil {
			return fmt.Errorf("failed to register rate-limiter module: %w", err)
		}
	}
	if err := app.Register(httpModule); err != nil {
		return fmt.Errorf("failed to register http-server module: %w", err)
	}

	if err := app.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := mono.LogLevelInfo
	if cfg.Log.Level == "error" {
		logLevel = mono.LogLevelError
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	logger := app.Logger().WithModule("migrate")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := todo.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to open todo store: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	logger.Info("Schema ready", "driver", store.Driver())
	return nil
}

func printStartupInfo(cfg *config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (%s):", cfg.HTTP.Addr)
	log.Println("  GET    /api/health       - Database connectivity")
	log.Println("  GET    /api/todos        - List todos, newest first")
	log.Println("  POST   /api/todos        - Create a todo {\"title\": \"...\"}")
	log.Println("  GET    /api/todos/stats  - Completion statistics")
	log.Println("  PUT    /api/todos/:id    - Set completion {\"completed\": true}")
	log.Println("  DELETE /api/todos/:id    - Delete a todo")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
