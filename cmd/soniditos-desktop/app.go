package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"fyne.io/systray"
	"github.com/fsnotify/fsnotify"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/soniditos/soniditos-desktop/internal/bridge"
	"github.com/soniditos/soniditos-desktop/internal/config"
	"github.com/soniditos/soniditos-desktop/internal/events"
	"github.com/soniditos/soniditos-desktop/internal/presence"
	"github.com/soniditos/soniditos-desktop/internal/window"
	"github.com/soniditos/soniditos-desktop/pkg/discord"
)

// App owns the window controller, tray, page bridge and presence poller for
// the lifetime of the process.
type App struct {
	ctx context.Context

	cfg     *config.Config
	logger  *slog.Logger
	bus     *events.Bus
	session *discord.Client
	tray    *TrayManager

	controller *window.Controller
	bridge     *bridge.Bridge
	poller     *presence.Poller

	execJS      func(js string)
	unsubscribe []func()
}

// NewApp creates a new App application struct
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	bus := events.NewBus()
	a := &App{
		cfg:     cfg,
		logger:  logger,
		bus:     bus,
		session: discord.NewClient(logger),
		tray:    NewTrayManager(bus, logger),
		execJS:  func(string) {},
	}
	a.unsubscribe = append(a.unsubscribe, bus.SubscribeTypes(a.logMetadata, events.MediaMetadata))
	return a
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.execJS = func(js string) { runtime.WindowExecJS(ctx, js) }

	a.controller = window.NewController(ctx, &wailsWindow{ctx: ctx}, a.logger, a.cfg.App.Zoom)
	a.unsubscribe = append(a.unsubscribe, a.controller.Subscribe(a.bus))

	a.bridge = bridge.New(wailsRuntime{ctx: ctx}, a.logger)
	a.poller = presence.NewPoller(a.logger,
		presence.FileLoader(a.cfg.Presence.ConfigFile),
		a.session,
		a.bridge,
		presence.OptionsFromConfig(a.cfg.Presence),
	)

	a.unsubscribe = append(a.unsubscribe, a.bus.SubscribeTypes(a.onContentLoaded, events.ContentLoaded))

	// Only the window-control signals and the metadata channel reach Go
	for _, t := range events.UISignals {
		a.unsubscribe = append(a.unsubscribe, runtime.EventsOn(ctx, string(t), a.forward(t)))
	}

	go systray.Run(a.tray.OnReady, a.tray.OnExit)
	go a.watchCustomCSS(ctx)
}

// pageScript is run ahead of the remote page and again on every DOM ready
func pageScript() string {
	return bridge.InstallScript(
		string(events.WindowClose),
		string(events.WindowMinimize),
		string(events.WindowMaximize),
		string(events.MediaMetadata),
	)
}

// contentLoaded is the payload of events.ContentLoaded
type contentLoaded struct {
	First bool `json:"first"`
}

// domReady is called after every (re)load of the content
func (a *App) domReady(ctx context.Context) {
	a.execJS(pageScript())

	first := a.controller.ContentLoaded()
	a.injectCustomCSS()
	a.bus.Publish(events.NewEvent(events.ContentLoaded, contentLoaded{First: first}))
}

// onContentLoaded starts presence once the first page of a window is ready
func (a *App) onContentLoaded(e events.Event) {
	var loaded contentLoaded
	if err := json.Unmarshal(e.Data, &loaded); err != nil || !loaded.First {
		return
	}
	go a.poller.Start(a.controller.Context())
}

// beforeClose intercepts the native close; true keeps the window alive
func (a *App) beforeClose(ctx context.Context) bool {
	return a.controller.BeforeClose()
}

// shutdown is called when the app closes
func (a *App) shutdown(ctx context.Context) {
	if a.poller != nil {
		a.poller.Stop()
	}
	if err := a.session.Close(); err != nil {
		a.logger.Debug("Closing presence session", "error", err)
	}
	if a.bridge != nil {
		a.bridge.Close()
	}
	for _, off := range a.unsubscribe {
		off()
	}
	a.tray.Stop()
	systray.Quit()
}

// onSecondInstance surfaces the running window when the app is launched again
func (a *App) onSecondInstance(data options.SecondInstanceData) {
	a.logger.Info("Second instance launched", "args", data.Args, "workingDirectory", data.WorkingDirectory)
	a.bus.Publish(events.NewEvent(events.SecondInstance, data.Args))
}

// forward publishes a runtime event from the page on the bus
func (a *App) forward(t events.EventType) func(data ...any) {
	return func(data ...any) {
		var payload any
		switch len(data) {
		case 0:
		case 1:
			payload = data[0]
		default:
			payload = data
		}
		a.bus.Publish(events.NewEvent(t, payload))
	}
}

// logMetadata records metadata pushed by the page; nothing else consumes it
func (a *App) logMetadata(e events.Event) {
	a.logger.Debug("Media metadata from page", "metadata", string(e.Data))
}

// getCustomCSSPath returns the path to the custom CSS file
func (a *App) getCustomCSSPath() string {
	return customCSSPath(a.cfg)
}

// GetCustomCSS returns the custom CSS content from the config directory
func (a *App) GetCustomCSS() string {
	content, err := os.ReadFile(a.getCustomCSSPath())
	if err != nil {
		return "" // Return empty if file doesn't exist
	}
	return string(content)
}

// injectCustomCSS applies (or removes) the user stylesheet in the page
func (a *App) injectCustomCSS() {
	a.execJS(bridge.CSSScript(a.GetCustomCSS()))
}

// watchCustomCSS re-injects the stylesheet whenever custom.css changes
func (a *App) watchCustomCSS(ctx context.Context) {
	cssPath := a.getCustomCSSPath()
	if err := watchFile(ctx, cssPath, a.injectCustomCSS); err != nil {
		a.logger.Debug("Custom CSS not watched", "path", cssPath, "error", err)
	}
}

// watchFile calls onChange whenever path is written, created or removed,
// until ctx is done. The parent directory is watched so the file may appear later.
func watchFile(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		_ = watcher.Close()
	}()

	dir := filepath.Dir(path)
	// Create config directory if it doesn't exist
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		return err
	}

	name := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) == name && event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
				onChange()
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
