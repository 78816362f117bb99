package main

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/soniditos/soniditos-desktop/internal/bridge"
)

// wailsWindow drives the native window through the Wails runtime.
type wailsWindow struct {
	ctx context.Context
}

func (w *wailsWindow) Show()       { runtime.WindowShow(w.ctx) }
func (w *wailsWindow) Hide()       { runtime.WindowHide(w.ctx) }
func (w *wailsWindow) Minimise()   { runtime.WindowMinimise(w.ctx) }
func (w *wailsWindow) Unminimise() { runtime.WindowUnminimise(w.ctx) }
func (w *wailsWindow) Maximise()   { runtime.WindowMaximise(w.ctx) }
func (w *wailsWindow) Unmaximise() { runtime.WindowUnmaximise(w.ctx) }

// Create brings back a closed window. Wails owns a single native window for
// the process lifetime, so this reloads the content into it and shows it.
func (w *wailsWindow) Create() {
	runtime.WindowReloadApp(w.ctx)
	runtime.WindowShow(w.ctx)
}

// Close hides the window; the process exit that follows destroys it.
func (w *wailsWindow) Close() { runtime.WindowHide(w.ctx) }

func (w *wailsWindow) IsMaximised() bool { return runtime.WindowIsMaximised(w.ctx) }
func (w *wailsWindow) IsMinimised() bool { return runtime.WindowIsMinimised(w.ctx) }

// SetZoom resets the page scale. The Wails v2 runtime has no webview zoom
// setter, so the engine zoom is pinned at startup (ZoomFactor with zoom
// controls disabled) and this resets the CSS zoom the page can change.
func (w *wailsWindow) SetZoom(factor float64) {
	runtime.WindowExecJS(w.ctx, bridge.ZoomScript(factor))
}

func (w *wailsWindow) Quit() { runtime.Quit(w.ctx) }

// wailsRuntime lets the page bridge run scripts and listen for their results.
type wailsRuntime struct {
	ctx context.Context
}

func (r wailsRuntime) ExecJS(js string) {
	runtime.WindowExecJS(r.ctx, js)
}

func (r wailsRuntime) On(event string, fn func(data ...any)) func() {
	return runtime.EventsOn(r.ctx, event, fn)
}
