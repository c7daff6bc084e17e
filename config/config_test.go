package config

import (
	"testing"

	"github.com/EdmondVirelle/cyber-qin/keymap"
	"github.com/EdmondVirelle/cyber-qin/player"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.SchemeID != keymap.DefaultID() {
		t.Errorf("SchemeID = %q, want %q", cfg.SchemeID, keymap.DefaultID())
	}
	if cfg.Speed != 1.0 {
		t.Errorf("Speed = %v, want 1.0", cfg.Speed)
	}
	if cfg.CountInBeats != player.DefaultCountIn {
		t.Errorf("CountInBeats = %d, want %d", cfg.CountInBeats, player.DefaultCountIn)
	}
}

func TestNormalizeClamps(t *testing.T) {
	cfg := &Config{
		Speed:        9.0,
		Transpose:    99,
		MaxPolyphony: -1,
		CountInBeats: -3,
	}
	cfg.normalize()
	if cfg.Speed != player.SpeedMax {
		t.Errorf("Speed = %v, want %v", cfg.Speed, player.SpeedMax)
	}
	if cfg.Transpose != keymap.TransposeMax {
		t.Errorf("Transpose = %d, want %d", cfg.Transpose, keymap.TransposeMax)
	}
	if cfg.MaxPolyphony != 0 {
		t.Errorf("MaxPolyphony = %d, want 0", cfg.MaxPolyphony)
	}
	if cfg.CountInBeats != 0 {
		t.Errorf("CountInBeats = %d, want 0", cfg.CountInBeats)
	}
}

func TestNormalizeFillsEmpty(t *testing.T) {
	cfg := &Config{}
	cfg.normalize()
	if cfg.SchemeID != keymap.DefaultID() {
		t.Errorf("SchemeID = %q, want default", cfg.SchemeID)
	}
	if cfg.Speed != 1.0 {
		t.Errorf("Speed = %v, want 1.0", cfg.Speed)
	}
}

func TestShouldAutoConnect(t *testing.T) {
	cfg := &Config{AutoConnect: []string{"Roland FP-30", "Arturia KeyLab"}}
	if !cfg.ShouldAutoConnect("Roland FP-30") {
		t.Error("listed port not matched")
	}
	if cfg.ShouldAutoConnect("Casio CT-S1") {
		t.Error("unlisted port matched")
	}
}
