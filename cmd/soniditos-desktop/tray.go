package main

import (
	_ "embed"
	"log/slog"
	"sync"

	"fyne.io/systray"

	"github.com/soniditos/soniditos-desktop/internal/events"
)

//go:embed assets/tray-icon.png
var trayIcon []byte

const (
	trayTooltip   = "open.soniditos.com"
	menuShowLabel = "Show application"
	menuQuitLabel = "Close"
)

// TrayManager handles the system tray functionality
type TrayManager struct {
	bus    *events.Bus
	logger *slog.Logger

	mShow    *systray.MenuItem
	mQuit    *systray.MenuItem
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTrayManager creates a new tray manager
func NewTrayManager(bus *events.Bus, logger *slog.Logger) *TrayManager {
	return &TrayManager{
		bus:      bus,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// OnReady is called when systray is ready
func (t *TrayManager) OnReady() {
	systray.SetIcon(trayIcon)
	systray.SetTooltip(trayTooltip)

	// Left click surfaces the window, right click opens the menu
	systray.SetOnTapped(t.show)

	t.mShow = systray.AddMenuItem(menuShowLabel, "Show the window")
	t.mQuit = systray.AddMenuItem(menuQuitLabel, "Quit the application")

	go t.handleClicks(t.mShow.ClickedCh, t.mQuit.ClickedCh)
}

// handleClicks turns menu clicks into bus events until quit or Stop
func (t *TrayManager) handleClicks(show, quit <-chan struct{}) {
	for {
		select {
		case <-show:
			t.show()
		case <-quit:
			t.logger.Info("Quit requested from tray")
			t.bus.Publish(events.NewEvent(events.TrayQuit, nil))
			return
		case <-t.stopChan:
			return
		}
	}
}

func (t *TrayManager) show() {
	t.bus.Publish(events.NewEvent(events.TrayShow, nil))
}

// Stop ends the click handler
func (t *TrayManager) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// OnExit is called when systray exits
func (t *TrayManager) OnExit() {
	t.Stop()
}
