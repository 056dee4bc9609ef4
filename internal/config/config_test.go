package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		if err := cfg.Validate(); err != nil {
			t.Errorf("default config should validate, got %v", err)
		}
	})

	t.Run("rejects negative sleep", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Sleep = -1 * time.Second
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidSleep) {
			t.Errorf("expected ErrInvalidSleep, got %v", err)
		}
	})

	t.Run("rejects zero cooldown", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Cooldown = 0
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidCooldown) {
			t.Errorf("expected ErrInvalidCooldown, got %v", err)
		}
	})

	t.Run("rejects unknown filetype", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Filetypes = []string{"EPUB", "DOCX"}
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidFiletype) {
			t.Errorf("expected ErrInvalidFiletype, got %v", err)
		}
	})

	t.Run("rejects negative page cap", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.MaxPages = -1
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidMaxPages) {
			t.Errorf("expected ErrInvalidMaxPages, got %v", err)
		}
	})
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	t.Run("missing file yields zero settings", func(t *testing.T) {
		t.Parallel()

		s, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yml"))
		if err != nil {
			t.Fatalf("missing settings file should not error: %v", err)
		}
		if s.DownloadDir != "" || len(s.Filetypes) != 0 {
			t.Errorf("expected zero settings, got %+v", s)
		}
	})

	t.Run("save and reload", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "conf", "settings.yml")
		in := &Settings{
			DownloadDir:     "/data/fics",
			Filetypes:       []string{"EPUB", "PDF"},
			SleepSeconds:    2,
			SaveSecrets:     true,
			Username:        "reader",
			Password:        "hunter2",
			UpdateFiletypes: []string{"EPUB"},
		}
		if err := in.Save(path); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		out, err := LoadSettings(path)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if out.DownloadDir != in.DownloadDir || out.Username != "reader" {
			t.Errorf("round trip mismatch: %+v", out)
		}
	})

	t.Run("secrets dropped unless opted in", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "settings.yml")
		in := &Settings{Username: "reader", Password: "hunter2"}
		if err := in.Save(path); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		out, err := LoadSettings(path)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if out.Username != "" || out.Password != "" {
			t.Error("credentials persisted without saveSecrets")
		}
	})
}

func TestSettingsApply(t *testing.T) {
	t.Parallel()

	t.Run("fills unset values only", func(t *testing.T) {
		t.Parallel()

		s := &Settings{DownloadDir: "/remembered", Filetypes: []string{"EPUB"}, SleepSeconds: 3}
		cfg := NewConfig()
		cfg.Filetypes = []string{"PDF"} // set by flag, must win

		s.Apply(cfg)

		if cfg.DownloadDir != "/remembered" {
			t.Errorf("expected remembered download dir, got %q", cfg.DownloadDir)
		}
		if len(cfg.Filetypes) != 1 || cfg.Filetypes[0] != "PDF" {
			t.Errorf("flag filetypes overridden: %v", cfg.Filetypes)
		}
		if cfg.Sleep != 3*time.Second {
			t.Errorf("expected remembered sleep, got %v", cfg.Sleep)
		}
	})
}
