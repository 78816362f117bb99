package window

// State is the lifecycle state of the application window.
type State int

const (
	// Hidden means the window exists but is not shown (closed to tray).
	Hidden State = iota
	// VisibleNormal is the initial state.
	VisibleNormal
	VisibleMaximized
	Minimized
	// Closed is terminal for the current window; only show/activate create a new one.
	Closed
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case VisibleNormal:
		return "visible-normal"
	case VisibleMaximized:
		return "visible-maximized"
	case Minimized:
		return "minimized"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Visible reports whether the window is on screen.
func (s State) Visible() bool {
	return s == VisibleNormal || s == VisibleMaximized
}

// Action is a request that drives the window state machine.
type Action int

const (
	// ActionClose is the content's close button or the native close.
	ActionClose Action = iota
	ActionMinimize
	// ActionMaximize toggles between maximized and normal.
	ActionMaximize
	ActionUnmaximize
	// ActionShow comes from the tray menu or a tray tap.
	ActionShow
	// ActionActivate is the OS asking for a window; it only acts when none exists.
	ActionActivate
	// ActionSecondInstance is a second launch routed to this process.
	ActionSecondInstance
	// ActionQuit comes from the tray "Close" entry and terminates the process.
	ActionQuit
)

func (a Action) String() string {
	switch a {
	case ActionClose:
		return "close"
	case ActionMinimize:
		return "minimize"
	case ActionMaximize:
		return "maximize"
	case ActionUnmaximize:
		return "unmaximize"
	case ActionShow:
		return "show"
	case ActionActivate:
		return "activate"
	case ActionSecondInstance:
		return "second-instance"
	case ActionQuit:
		return "quit"
	default:
		return "unknown"
	}
}
