package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/solatis/gfb/internal/core/auth"
	"github.com/solatis/gfb/internal/core/config"
	"github.com/solatis/gfb/internal/core/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the compiler over gRPC and HTTP",
	Long: `Serve starts the gRPC filter service and the HTTP API. With a filter
registry configured, every request needs an API key and compiled filters can be
persisted; without one the compiler is served anonymously.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
	serveCmd.Flags().String("http-addr", ":8080", "HTTP API address (empty disables it)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("http-addr") {
		cfg.HTTP.Addr, _ = cmd.Flags().GetString("http-addr")
	}

	database, store, err := openRegistry(cfg, false)
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
	}

	var authenticator *auth.Authenticator
	if store != nil {
		secrets, err := config.HMACSecrets()
		if err != nil {
			return fmt.Errorf("failed to load HMAC secrets: %w", err)
		}
		if len(secrets) == 0 {
			return fmt.Errorf("no HMAC secrets configured (set GFB_HMAC_SECRET environment variable)")
		}
		authenticator = auth.NewAuthenticator(secrets, store.Queries())
	} else {
		slog.Warn("no filter registry configured, serving without authentication")
	}

	service, err := newService(cfg, store)
	if err != nil {
		return err
	}

	grpcServer, err := server.NewGRPCServer(&cfg.Server, service, authenticator, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}
	var httpServer *server.HTTPServer
	if cfg.HTTP.Addr != "" {
		httpServer, err = server.NewHTTPServer(service, server.HTTPOptions{
			Addr:           cfg.HTTP.Addr,
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxDocumentKB:  cfg.Server.MaxDocumentKB,
			Authenticator:  authenticator,
			Logger:         slog.Default(),
		})
		if err != nil {
			return fmt.Errorf("failed to create HTTP server: %w", err)
		}
	}

	slog.Info("starting gfb", "version", Version, "grpc_host", cfg.Server.Host, "grpc_port", cfg.Server.Port, "http_addr", cfg.HTTP.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return grpcServer.Start(gctx) })
	if httpServer != nil {
		g.Go(func() error { return httpServer.Start(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		var firstErr error
		if httpServer != nil {
			firstErr = httpServer.Shutdown(shutdownCtx)
		}
		if err := grpcServer.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = err
		}
		return firstErr
	})

	return g.Wait()
}
