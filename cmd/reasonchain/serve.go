package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashutoshrp06/reasonchain/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve reasoning runs over HTTP and WebSocket",
	Long: `Start an HTTP server that streams reasoning runs.

Endpoints:
  POST /api/reason   {"prompt": "..."} streams one JSON emission per line
                     (server-sent events with Accept: text/event-stream)
  GET  /ws/reason    send {"prompt": "..."}, receive emissions as messages
  GET  /api/info     backend and tool information
  GET  /health       liveness check`,
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
}

func runServe() {
	cfg := mustLoadConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	logger := createLogger()
	defer logger.Sync()

	controller, err := newController(cfg, logger)
	if err != nil {
		printError("Failed to initialize reasoning controller", err)
		os.Exit(1)
	}

	logger.Info("Starting server",
		zap.String("addr", cfg.Server.Addr),
		zap.String("backend", controller.BackendName()),
		zap.Bool("tools", controller.ToolsEnabled()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.New(controller, logger).ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		logger.Error("Server failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server stopped successfully")
}
