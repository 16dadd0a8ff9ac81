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

	"shoppingmart/internal/auth"
	"shoppingmart/internal/config"
	"shoppingmart/internal/handlers"
	"shoppingmart/internal/logger"
	"shoppingmart/internal/metrics"
	"shoppingmart/internal/service"
	"shoppingmart/internal/storage"
)

var Version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "shoppingmart",
		Short:         "ShoppingMart product and pricing service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (environment overrides it)")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(checkConfigCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", map[string]interface{}{
			"error": err.Error(),
		})
		logger.Sync()
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func checkConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate configuration without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration ok: port=%s audit_sinks=%v\n", cfg.Port, cfg.AuditSinks)
			return nil
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(cfg *config.Config) error {
	gate, err := auth.NewGate(cfg.ServiceSecret, cfg.TokenSecret)
	if err != nil {
		return err
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()

	db, err := storage.Open(startCtx, cfg.DatabaseURL, cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	sink, closeSinks, err := buildAuditSink(startCtx, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	reg := metrics.NewRegistry()
	svc := service.New(db, gate, sink, service.WithMetrics(reg))
	router := handlers.NewRouter(handlers.New(svc, cfg.ServiceSecret), reg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,  // Max time to read request
		WriteTimeout: 10 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Keep-alive timeout
	}

	logger.Info("starting HTTP server", map[string]interface{}{
		"port":          cfg.Port,
		"read_timeout":  "10s",
		"write_timeout": "10s",
		"idle_timeout":  "120s",
		"audit_sinks":   cfg.AuditSinks,
	})

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-c:
	}
	logger.Info("shutting down server", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("server shutdown complete", nil)
	return nil
}
