package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dbrest/internal/config"
	"dbrest/internal/logger"
	"dbrest/internal/server"
)

var configFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "api",
	Short: "api exposes the tables of a relational database as a REST API",
	Long: `api reflects the tables of a PostgreSQL, MySQL, SQL Server or SQLite
database at startup and serves CRUD endpoints for each of them, plus
plain-text and PNG descriptions of the schema.

Configuration comes from the environment (a .env file is loaded when present)
and an optional YAML file given with --config or CONFIG_FILE.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Print the exposed tables and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *server.App) error {
			fmt.Fprint(cmd.OutOrStdout(), app.Introspection.TablesText())
			return nil
		})
	},
}

var relationshipsCmd = &cobra.Command{
	Use:   "relationships",
	Short: "Print the foreign key relationships and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *server.App) error {
			fmt.Fprint(cmd.OutOrStdout(), app.Introspection.RelationshipsText())
			return nil
		})
	},
}

var revokeTTL time.Duration

var revokeCmd = &cobra.Command{
	Use:   "revoke <jti>",
	Short: "Revoke a token by its jti claim (requires REDIS_ADDR)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Auth.RedisAddr == "" {
			return errors.New("REDIS_ADDR is not configured")
		}

		app := &server.App{Config: cfg}
		if err := app.ConnectRedis(cmd.Context(), cfg.Auth.RedisAddr); err != nil {
			return err
		}
		defer app.Close()

		if err := app.Revocations.Blacklist(cmd.Context(), args[0], revokeTTL); err != nil {
			return fmt.Errorf("failed to revoke %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "revoked %s for %s\n", args[0], revokeTTL)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	revokeCmd.Flags().DurationVar(&revokeTTL, "ttl", 30*24*time.Hour, "How long the revocation is kept")
	rootCmd.AddCommand(serveCmd, tablesCmd, relationshipsCmd, revokeCmd)
}

func loadConfig() (config.AppConfig, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return cfg, fmt.Errorf("error loading config: %w", err)
	}
	logger.SetDebug(cfg.Server.Debug)
	return cfg, nil
}

func withApp(cmd *cobra.Command, fn func(app *server.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Server.StartupTimeout)*time.Second)
	defer cancel()

	app, err := server.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	srv, app, err := server.NewServer(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return serveUntilSignal(srv, quit)
}

// serveUntilSignal runs srv until a signal arrives on quit, then shuts it
// down gracefully. A listener failure is returned instead.
func serveUntilSignal(srv *http.Server, quit <-chan os.Signal) error {
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server error: %w", err)
	case <-quit:
	}

	logger.Info("Shutting down server gracefully ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server Shutdown: %v", err)
	}
	logger.Info("Server exiting")
	return nil
}
