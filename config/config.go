package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/EdmondVirelle/cyber-qin/keymap"
	"github.com/EdmondVirelle/cyber-qin/player"
)

// Config is the persisted user configuration.
type Config struct {
	SchemeID     string   `json:"scheme,omitempty"`
	Transpose    int      `json:"transpose,omitempty"`
	MaxPolyphony int      `json:"maxPolyphony,omitempty"`
	Speed        float64  `json:"speed,omitempty"`
	CountInBeats int      `json:"countInBeats"`
	Loop         bool     `json:"loop,omitempty"`
	AutoConnect  []string `json:"autoConnect,omitempty"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SchemeID:     keymap.DefaultID(),
		Speed:        1.0,
		CountInBeats: player.DefaultCountIn,
	}
}

// ConfigDir returns the config directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "cyber-qin"), nil
}

// ConfigPath returns the full path to config.json.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

// normalize fills in zero values and clamps out-of-range settings so a
// hand-edited file cannot wedge the app.
func (c *Config) normalize() {
	if c.SchemeID == "" {
		c.SchemeID = keymap.DefaultID()
	}
	if c.Speed == 0 {
		c.Speed = 1.0
	}
	if c.Speed < player.SpeedMin {
		c.Speed = player.SpeedMin
	}
	if c.Speed > player.SpeedMax {
		c.Speed = player.SpeedMax
	}
	if c.Transpose < keymap.TransposeMin {
		c.Transpose = keymap.TransposeMin
	}
	if c.Transpose > keymap.TransposeMax {
		c.Transpose = keymap.TransposeMax
	}
	if c.MaxPolyphony < 0 {
		c.MaxPolyphony = 0
	}
	if c.CountInBeats < 0 {
		c.CountInBeats = 0
	}
}

// Save writes the config to disk.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ShouldAutoConnect reports whether the named port is on the auto-connect
// list.
func (c *Config) ShouldAutoConnect(port string) bool {
	for _, name := range c.AutoConnect {
		if name == port {
			return true
		}
	}
	return false
}
