package cli

import (
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/tapwars/internal/factory"
	"github.com/Tyrowin/tapwars/internal/server"
)

const (
	httpShutdownTimeout = 10 * time.Second
	hubShutdownTimeout  = 5 * time.Second
)

func newServeCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the game server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, cfg)
		},
	}
	addServeFlags(cmd, cfg)
	return cmd
}

func addServeFlags(cmd *cobra.Command, cfg *Config) {
	cmd.Flags().StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Listen address (env: SERVER_PORT)")
	cmd.Flags().StringVar(&cfg.Server.AdminToken, "admin-token", cfg.Server.AdminToken, "Administrator secret (env: ADMIN_TOKEN)")
	cmd.Flags().StringVar(&cfg.Server.IconDir, "icon-dir", cfg.Server.IconDir, "Directory for uploaded icons (env: ICON_DIR)")
	cmd.Flags().StringSliceVar(&cfg.Server.AllowedOrigins, "allowed-origins", cfg.Server.AllowedOrigins, "Allowed WebSocket origins, * for any (env: ALLOWED_ORIGINS)")
}

func runServe(cmd *cobra.Command, cfg *Config) error {
	logger, err := newLogger(cfg.LogLevel, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	factoryCfg, err := cfg.FactoryConfig(logger)
	if err != nil {
		return err
	}

	app, err := factory.New(factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := app.Storage.Close(); err != nil {
			logger.Warn("error closing storage", slog.Any("error", err))
		}
	}()

	app.Server.Start()
	httpServer := server.CreateServer(app.Server.Config().Port, app.Server.Routes())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer, logger)
	}()

	logger.Info("tapwars started",
		slog.String("addr", httpServer.Addr),
		slog.String("storage", factoryCfg.StorageType))

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			serveErr = err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	if err := server.ShutdownServer(httpServer, httpShutdownTimeout, logger); err != nil && serveErr == nil {
		serveErr = err
	}
	if err := app.Server.Hub().Shutdown(hubShutdownTimeout); err != nil {
		logger.Warn("hub shutdown incomplete", slog.Any("error", err))
	}

	logger.Info("server stopped")
	return serveErr
}
