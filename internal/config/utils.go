package config

import (
	"os"
	"path/filepath"
	"time"
)

// GetConfigBaseDir returns the base directory for configuration files
func GetConfigBaseDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, ConfigDirName)
	}
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, ConfigDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", ConfigDirName)
}

// GetConfigPath returns the full path to a configuration file
func GetConfigPath(filename string) string {
	return filepath.Join(GetConfigBaseDir(), filename)
}

// GetDefaultConfigPath returns the full path to the shell configuration file
func GetDefaultConfigPath() string {
	return GetConfigPath(ConfigFilename)
}

// GetCustomCSSPath returns the full path to the optional user stylesheet
func GetCustomCSSPath() string {
	return GetConfigPath(CustomCSSFilename)
}

// ValidatePollInterval clamps a timer interval to the minimum allowed value.
// Zero or negative values fall back to def.
func ValidatePollInterval(interval, def time.Duration) time.Duration {
	if interval <= 0 {
		return def
	}
	if interval < MinPollInterval {
		return MinPollInterval
	}
	return interval
}

// ValidateMissingElapsed returns a known missing-elapsed policy, defaulting to omit
func ValidateMissingElapsed(policy string) string {
	switch policy {
	case MissingElapsedOmit, MissingElapsedZero:
		return policy
	default:
		return MissingElapsedOmit
	}
}
