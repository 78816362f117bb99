package config

import "time"

// Application identity
const (
	// AppName is the program name used for the window title, tray and Linux ProgramName
	AppName = "soniditos-desktop"

	// InstanceID is the unique identifier for the single-instance lock
	InstanceID = "com.soniditos.desktop"

	// ConfigDirName is the name of the config directory within XDG_CONFIG_HOME
	ConfigDirName = "soniditos"

	// ConfigFilename is the base filename for the shell config
	ConfigFilename = "soniditos.yaml"

	// PresenceConfigFilename is the base filename for the presence record {ClientID, Button1}
	PresenceConfigFilename = "presence.json"

	// CustomCSSFilename is the base filename for the optional user stylesheet
	CustomCSSFilename = "custom.css"

	// EnvPrefix is the prefix for environment variable overrides
	EnvPrefix = "SONIDITOS"
)

// Window defaults
const (
	// DefaultURL is the remote web application loaded into the window
	DefaultURL = "https://open.soniditos.com"

	// DefaultWidth is the initial and minimum window width
	DefaultWidth = 1281

	// DefaultHeight is the initial and minimum window height
	DefaultHeight = 850

	// DefaultZoom is the zoom factor forced after every content load
	DefaultZoom = 1.0
)

// Presence defaults
const (
	// DefaultPresenceInterval is the cadence of presence update attempts
	DefaultPresenceInterval = 1 * time.Second

	// DefaultElapsedPollInterval is the retry cadence for the elapsed-time label lookup
	DefaultElapsedPollInterval = 2 * time.Second

	// DefaultElapsedTimeout bounds the elapsed-time label lookup; zero means retry until found
	DefaultElapsedTimeout = time.Duration(0)

	// MinPollInterval is the minimum allowed interval for either timer
	MinPollInterval = 100 * time.Millisecond

	// DefaultElapsedSelector locates the "m:ss" elapsed-time label in the player bar
	DefaultElapsedSelector = "div.text-xs.text-muted.flex-shrink-0.min-w-40.text-right span"

	// DefaultMediaIDKey is the localStorage key holding the cued media id
	DefaultMediaIDKey = "player.web-player.cuedMediaId"

	// DefaultTrackURL is the base of the presence button link
	DefaultTrackURL = "https://open.soniditos.com/track"

	// DefaultAbsentText renders metadata the page did not provide
	DefaultAbsentText = "null"

	// DefaultActivityType is the presence activity type tag (2 = listening)
	DefaultActivityType = 2

	// MissingElapsedOmit leaves the start timestamp empty when no elapsed label was found
	MissingElapsedOmit = "omit"

	// MissingElapsedZero treats a missing elapsed label as zero elapsed time
	MissingElapsedZero = "zero"
)

// Logging constants
const (
	// LogLevelDebug represents debug log level
	LogLevelDebug = "debug"

	// LogLevelInfo represents info log level
	LogLevelInfo = "info"

	// LogLevelWarn represents warning log level
	LogLevelWarn = "warn"

	// LogLevelError represents error log level
	LogLevelError = "error"

	// LogFormatText represents text log format
	LogFormatText = "text"

	// LogFormatJSON represents JSON log format
	LogFormatJSON = "json"

	// LogFormatPretty represents the colourised terminal format
	LogFormatPretty = "pretty"
)
