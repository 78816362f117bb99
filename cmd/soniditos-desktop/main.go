package main

import (
	"embed"
	"log/slog"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/windows"

	"github.com/soniditos/soniditos-desktop/internal/config"
)

//go:embed all:frontend/dist
var assets embed.FS

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCommand(version, commit, buildDate).Execute(); err != nil {
		os.Exit(1)
	}
}

// run opens the window and blocks until the application quits. A second
// launch hands its arguments to the running instance and returns.
func run(cfg *config.Config, logger *slog.Logger) error {
	content, err := newContentProxy(cfg.App.URL, assets, pageScript(), logger)
	if err != nil {
		return err
	}

	app := NewApp(cfg, logger)

	return wails.Run(&options.App{
		Title:     "Soniditos",
		Width:     cfg.App.Width,
		Height:    cfg.App.Height,
		MinWidth:  cfg.App.Width,
		MinHeight: cfg.App.Height,
		// Close is routed through OnBeforeClose so the controller sees it
		HideWindowOnClose: false,
		AssetServer: &assetserver.Options{
			Handler: content,
		},
		BackgroundColour: &options.RGBA{R: 0x11, G: 0x14, B: 0x1A, A: 255},
		OnStartup:        app.startup,
		OnDomReady:       app.domReady,
		OnBeforeClose:    app.beforeClose,
		OnShutdown:       app.shutdown,
		SingleInstanceLock: &options.SingleInstanceLock{
			UniqueId:               config.InstanceID,
			OnSecondInstanceLaunch: app.onSecondInstance,
		},
		Windows: windowsOptions(cfg.App.Zoom),
		Linux: &linux.Options{
			ProgramName: config.AppName,
		},
	})
}

// windowsOptions pins the WebView2 zoom. Wails v2 cannot change it once the
// window exists, so the user zoom controls stay disabled and the per-load
// reset only has the CSS zoom left to undo.
func windowsOptions(zoom float64) *windows.Options {
	if zoom <= 0 {
		zoom = config.DefaultZoom
	}
	return &windows.Options{
		ZoomFactor:           zoom,
		IsZoomControlEnabled: false,
	}
}
