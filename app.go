package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"territory-planner/internal/cli"
	"territory-planner/internal/config"
	"territory-planner/internal/logging"
	"territory-planner/internal/server"
)

// App struct holds the Wails application state
type App struct {
	ctx    context.Context
	cfg    *config.Config
	server *server.Server
	logger *zap.Logger
	url    string
}

// NewApp creates a new App application struct
func NewApp() *App {
	cfg, err := config.Load(cli.DefaultConfigPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Server.Addr = "127.0.0.1:0" // 0 = random available port

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// Start the HTTP server immediately (before window opens)
	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	addr, err := srv.Start()
	if err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	app := &App{cfg: cfg, server: srv, logger: logger}
	app.url = fmt.Sprintf("http://%s", addr)
	logger.Info("internal HTTP server running", zap.String("url", app.url))

	return app
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	// Navigate the WebView to the internal server immediately
	go func() {
		runtime.WindowExecJS(ctx, fmt.Sprintf(`window.location.href = "%s"`, a.url))
	}()
}

// shutdown is called when the app closes
func (a *App) shutdown(ctx context.Context) {
	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("error shutting down server", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
