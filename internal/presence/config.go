package presence

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/viper"

	apperrors "github.com/soniditos/soniditos-desktop/internal/errors"
)

// Config is the presence record read from presence.json
type Config struct {
	ClientID string `mapstructure:"ClientID"`
	Button1  string `mapstructure:"Button1"`
}

// ConfigLoader loads the presence record
type ConfigLoader func() (*Config, error)

// FileLoader returns a loader reading the JSON record at path
func FileLoader(path string) ConfigLoader {
	return func() (*Config, error) { return LoadConfig(path) }
}

// LoadConfig reads {ClientID, Button1} from a JSON file. A missing file,
// malformed JSON or an empty ClientID is an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, apperrors.InvalidInputf("presence config path is empty")
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NotFoundf("presence config %s", path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, apperrors.Wrapf(err, "read presence config %s", path)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.Wrapf(err, "decode presence config %s", path)
	}
	if cfg.ClientID == "" {
		return nil, apperrors.InvalidInputf("presence config %s has no ClientID", path)
	}
	return cfg, nil
}
