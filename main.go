package main

import (
	"embed"
	"log"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"

	"territory-planner/internal/config"
)

//go:embed frontend/*
var assets embed.FS

func main() {
	app := NewApp()
	if err := wails.Run(appOptions(app, app.cfg.Window)); err != nil {
		log.Fatal(err)
	}
}

// appOptions sizes the window from config and binds the app lifecycle
func appOptions(app *App, win config.WindowConfig) *options.App {
	return &options.App{
		Title:       win.Title,
		Width:       win.Width,
		Height:      win.Height,
		MinWidth:    win.MinWidth,
		MinHeight:   win.MinHeight,
		AssetServer: &assetserver.Options{Assets: assets},
		OnStartup:   app.startup,
		OnShutdown:  app.shutdown,
		Bind:        []interface{}{app},
		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   win.Title,
				Message: "Sales territory planning and optimization",
			},
		},
		Linux: &linux.Options{
			ProgramName:      win.Title,
			WebviewGpuPolicy: linux.WebviewGpuPolicyAlways,
		},
	}
}
