// Package window implements the window lifecycle state machine: close-to-tray,
// minimize/maximize toggling, show/activate recreation, single-instance
// surfacing and the zoom reset applied after every content load.
package window

import (
	"context"
	"log/slog"
	"sync"

	"github.com/soniditos/soniditos-desktop/internal/events"
)

// Manager is the window-manager port the controller drives.
type Manager interface {
	Show()
	Hide()
	Minimise()
	Unminimise()
	Maximise()
	Unmaximise()
	// Create builds a new window after the previous one was closed.
	Create()
	Close()
	SetZoom(factor float64)
	// Quit terminates the process.
	Quit()

	// IsMaximised and IsMinimised report the native window flags, which the
	// title-bar buttons change without going through the controller.
	IsMaximised() bool
	IsMinimised() bool
}

// nativeFlags is the window-manager view sampled at the start of a dispatch
type nativeFlags struct {
	maximised bool
	minimised bool
}

// Controller owns the single window handle and serialises every transition.
type Controller struct {
	// dispatchMu orders whole dispatches; mu guards the fields below and is
	// never held while calling into the Manager, which may re-enter BeforeClose.
	dispatchMu sync.Mutex
	mu         sync.Mutex

	wm       Manager
	logger   *slog.Logger
	zoom     float64
	parent   context.Context
	state    State
	quitting bool
	loads    int
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewController creates a controller for a window that is already shown in
// the normal state. Window contexts derive from parent.
func NewController(parent context.Context, wm Manager, logger *slog.Logger, zoom float64) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if zoom <= 0 {
		zoom = 1.0
	}
	c := &Controller{
		wm:     wm,
		logger: logger,
		zoom:   zoom,
		parent: parent,
		state:  VisibleNormal,
	}
	c.ctx, c.cancel = context.WithCancel(parent)
	return c
}

// State returns the current window state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Quitting reports whether a quit has been requested
func (c *Controller) Quitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quitting
}

// Context returns the lifetime context of the current window. It is
// cancelled when the window reaches Closed.
func (c *Controller) Context() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

// Dispatch applies an action and returns the resulting state.
func (c *Controller) Dispatch(a Action) State {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	native := nativeFlags{maximised: c.wm.IsMaximised(), minimised: c.wm.IsMinimised()}

	c.mu.Lock()
	from := c.state
	c.reconcile(native)
	ops := c.transition(a, native)
	to := c.state
	c.mu.Unlock()

	for _, op := range ops {
		op()
	}

	if from != to {
		c.logger.Debug("Window transition", "action", a.String(), "from", from.String(), "to", to.String())
	}
	return to
}

// reconcile adopts the native flags for an on-screen window. Hidden and
// Closed are controller states the window manager cannot report.
// Caller holds mu.
func (c *Controller) reconcile(native nativeFlags) {
	switch c.state {
	case VisibleNormal, VisibleMaximized, Minimized:
		c.state = onScreenState(native)
	}
}

func onScreenState(native nativeFlags) State {
	switch {
	case native.minimised:
		return Minimized
	case native.maximised:
		return VisibleMaximized
	default:
		return VisibleNormal
	}
}

// transition updates the state for a and returns the Manager calls to make.
// Caller holds mu.
func (c *Controller) transition(a Action, native nativeFlags) []func() {
	switch a {
	case ActionClose:
		if c.state == Closed {
			return nil
		}
		if !c.quitting {
			c.state = Hidden
			return []func(){c.wm.Hide}
		}
		c.markClosed()
		return []func(){c.wm.Close}

	case ActionMinimize:
		if c.state == Closed {
			return nil
		}
		c.state = Minimized
		return []func(){c.wm.Minimise}

	case ActionMaximize:
		if c.state == Closed {
			return nil
		}
		if native.maximised {
			c.resize(VisibleNormal)
			return []func(){c.wm.Unmaximise}
		}
		c.resize(VisibleMaximized)
		return []func(){c.wm.Maximise}

	case ActionUnmaximize:
		if c.state == Closed || !native.maximised {
			return nil
		}
		c.resize(VisibleNormal)
		return []func(){c.wm.Unmaximise}

	case ActionShow, ActionSecondInstance:
		return c.surface(native)

	case ActionActivate:
		if c.state != Closed {
			return nil
		}
		return c.surface(native)

	case ActionQuit:
		c.quitting = true
		if c.state == Closed {
			return []func(){c.wm.Quit}
		}
		c.markClosed()
		return []func(){c.wm.Close, c.wm.Quit}
	}

	return nil
}

// surface brings the window on screen, creating it when none exists. A
// minimised window is restored; a maximised one stays maximised.
// Caller holds mu.
func (c *Controller) surface(native nativeFlags) []func() {
	if c.state == Closed {
		c.ctx, c.cancel = context.WithCancel(c.parent)
		c.loads = 0
		c.state = VisibleNormal
		return []func(){c.wm.Create}
	}

	ops := []func(){c.wm.Show}
	if native.minimised {
		ops = []func(){c.wm.Unminimise, c.wm.Show}
	}
	c.state = onScreenState(nativeFlags{maximised: native.maximised})
	return ops
}

// resize records a maximise toggle. A hidden window stays hidden.
// Caller holds mu.
func (c *Controller) resize(to State) {
	if c.state != Hidden {
		c.state = to
	}
}

// markClosed enters the terminal state and stops timers bound to the window.
// Caller holds mu.
func (c *Controller) markClosed() {
	c.state = Closed
	if c.cancel != nil {
		c.cancel()
	}
}

// BeforeClose is the native close hook. It returns true when the close must
// be cancelled because the window was hidden instead.
func (c *Controller) BeforeClose() bool {
	c.mu.Lock()
	if c.quitting || c.state == Closed {
		if c.state != Closed {
			c.markClosed()
		}
		c.mu.Unlock()
		return false
	}
	c.state = Hidden
	c.mu.Unlock()

	c.wm.Hide()
	c.logger.Debug("Window close intercepted, hidden to tray")
	return true
}

// ContentLoaded forces the zoom baseline after a (re)load and reports
// whether this was the first load of the current window.
func (c *Controller) ContentLoaded() bool {
	c.mu.Lock()
	c.loads++
	first := c.loads == 1
	zoom := c.zoom
	c.mu.Unlock()

	c.wm.SetZoom(zoom)
	return first
}

// HandleEvent maps bus events onto actions.
func (c *Controller) HandleEvent(e events.Event) {
	switch e.Type {
	case events.WindowClose:
		c.Dispatch(ActionClose)
	case events.WindowMinimize:
		c.Dispatch(ActionMinimize)
	case events.WindowMaximize:
		c.Dispatch(ActionMaximize)
	case events.TrayShow:
		c.Dispatch(ActionShow)
	case events.TrayQuit:
		c.Dispatch(ActionQuit)
	case events.SecondInstance:
		c.Dispatch(ActionSecondInstance)
	}
}

// Subscribe attaches the controller to the window-control events of a bus.
func (c *Controller) Subscribe(bus *events.Bus) func() {
	return bus.SubscribeTypes(c.HandleEvent,
		events.WindowClose,
		events.WindowMinimize,
		events.WindowMaximize,
		events.TrayShow,
		events.TrayQuit,
		events.SecondInstance,
	)
}
