package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	App      AppConfig
	Logging  LoggingConfig
	Presence PresenceConfig

	// Internal viper instance
	v *viper.Viper
}

// AppConfig represents the window configuration
type AppConfig struct {
	URL       string
	Width     int
	Height    int
	Zoom      float64
	CustomCSS string `mapstructure:"custom_css"`
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// PresenceConfig represents the presence poller configuration
type PresenceConfig struct {
	ConfigFile          string        `mapstructure:"config_file"`
	Interval            time.Duration // Cadence of update attempts
	ElapsedPollInterval time.Duration `mapstructure:"elapsed_poll_interval"`
	ElapsedTimeout      time.Duration `mapstructure:"elapsed_timeout"` // Zero retries until found
	MissingElapsed      string        `mapstructure:"missing_elapsed"`
	ElapsedSelector     string        `mapstructure:"elapsed_selector"`
	MediaIDKey          string        `mapstructure:"media_id_key"`
	TrackURL            string        `mapstructure:"track_url"`
	AbsentText          string        `mapstructure:"absent_text"`
	ActivityType        int           `mapstructure:"activity_type"`
}

// SetDefaults registers default values on a viper instance
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.url", DefaultURL)
	v.SetDefault("app.width", DefaultWidth)
	v.SetDefault("app.height", DefaultHeight)
	v.SetDefault("app.zoom", DefaultZoom)
	v.SetDefault("app.custom_css", "")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.format", LogFormatText)
	v.SetDefault("presence.config_file", "")
	v.SetDefault("presence.interval", DefaultPresenceInterval)
	v.SetDefault("presence.elapsed_poll_interval", DefaultElapsedPollInterval)
	v.SetDefault("presence.elapsed_timeout", DefaultElapsedTimeout)
	v.SetDefault("presence.missing_elapsed", MissingElapsedOmit)
	v.SetDefault("presence.elapsed_selector", DefaultElapsedSelector)
	v.SetDefault("presence.media_id_key", DefaultMediaIDKey)
	v.SetDefault("presence.track_url", DefaultTrackURL)
	v.SetDefault("presence.absent_text", DefaultAbsentText)
	v.SetDefault("presence.activity_type", DefaultActivityType)
}

// Load loads configuration from a file and environment variables.
// Flags already bound on v take precedence over both. A nil v uses a fresh instance.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetConfigType("yaml")
	SetDefaults(v)

	if configFile != "" {
		slog.Info("Using config file from command line", "path", configFile)
	} else {
		configFile = GetDefaultConfigPath()
	}
	v.SetConfigFile(configFile)

	// A missing file means defaults; an unreadable or malformed one is an error
	if _, err := os.Stat(configFile); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		slog.Debug("Loaded config file", "path", configFile)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			URL:       v.GetString("app.url"),
			Width:     v.GetInt("app.width"),
			Height:    v.GetInt("app.height"),
			Zoom:      v.GetFloat64("app.zoom"),
			CustomCSS: v.GetString("app.custom_css"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Presence: PresenceConfig{
			ConfigFile:          v.GetString("presence.config_file"),
			Interval:            ValidatePollInterval(v.GetDuration("presence.interval"), DefaultPresenceInterval),
			ElapsedPollInterval: ValidatePollInterval(v.GetDuration("presence.elapsed_poll_interval"), DefaultElapsedPollInterval),
			ElapsedTimeout:      v.GetDuration("presence.elapsed_timeout"),
			MissingElapsed:      ValidateMissingElapsed(v.GetString("presence.missing_elapsed")),
			ElapsedSelector:     v.GetString("presence.elapsed_selector"),
			MediaIDKey:          v.GetString("presence.media_id_key"),
			TrackURL:            strings.TrimRight(v.GetString("presence.track_url"), "/"),
			AbsentText:          v.GetString("presence.absent_text"),
			ActivityType:        v.GetInt("presence.activity_type"),
		},
		v: v,
	}

	if cfg.App.Zoom <= 0 {
		cfg.App.Zoom = DefaultZoom
	}
	if cfg.Presence.ElapsedTimeout < 0 {
		cfg.Presence.ElapsedTimeout = 0
	}
	if cfg.Presence.ConfigFile == "" {
		cfg.Presence.ConfigFile = filepath.Join(filepath.Dir(configFile), PresenceConfigFilename)
	}

	return cfg, nil
}

// Path returns the config file path this configuration was loaded from
func (c *Config) Path() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}
