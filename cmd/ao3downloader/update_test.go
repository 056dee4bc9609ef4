package main

import (
	"slices"
	"testing"

	"github.com/Mn3m0syn3/ao3downloader/internal/config"
)

// TestUpdateFolder tests the corpus folder resolution order.
func TestUpdateFolder(t *testing.T) {
	t.Parallel()

	rt := &runtime{
		cfg:      &config.Config{DownloadDir: "/downloads"},
		settings: &config.Settings{UpdateDir: "/library"},
	}

	t.Run("argument wins", func(t *testing.T) {
		t.Parallel()
		if folder := updateFolder(rt, []string{"/arg"}); folder != "/arg" {
			t.Errorf("expected /arg, got %q", folder)
		}
	})

	t.Run("remembered folder next", func(t *testing.T) {
		t.Parallel()
		if folder := updateFolder(rt, nil); folder != "/library" {
			t.Errorf("expected /library, got %q", folder)
		}
	})

	t.Run("download directory last", func(t *testing.T) {
		t.Parallel()
		bare := &runtime{
			cfg:      &config.Config{DownloadDir: "/downloads"},
			settings: &config.Settings{},
		}
		if folder := updateFolder(bare, nil); folder != "/downloads" {
			t.Errorf("expected /downloads, got %q", folder)
		}
	})
}

// TestScanFiletypes tests the local scan format resolution order.
func TestScanFiletypes(t *testing.T) {
	t.Parallel()

	t.Run("flag wins and is uppercased", func(t *testing.T) {
		t.Parallel()
		cmd := NewUpdateCmd()
		if err := cmd.Flags().Set("scan-filetypes", "epub,pdf"); err != nil {
			t.Fatalf("set flag: %v", err)
		}
		rt := &runtime{settings: &config.Settings{UpdateFiletypes: []string{"MOBI"}}}

		formats, err := scanFiletypes(cmd, rt)
		if err != nil {
			t.Fatalf("scan filetypes: %v", err)
		}
		if !slices.Equal(formats, []string{"EPUB", "PDF"}) {
			t.Errorf("expected [EPUB PDF], got %v", formats)
		}
	})

	t.Run("remembered formats next", func(t *testing.T) {
		t.Parallel()
		cmd := NewUpdateCmd()
		rt := &runtime{settings: &config.Settings{UpdateFiletypes: []string{"MOBI"}}}

		formats, err := scanFiletypes(cmd, rt)
		if err != nil {
			t.Fatalf("scan filetypes: %v", err)
		}
		if !slices.Equal(formats, []string{"MOBI"}) {
			t.Errorf("expected [MOBI], got %v", formats)
		}
	})

	t.Run("all kinds last", func(t *testing.T) {
		t.Parallel()
		cmd := NewUpdateCmd()
		rt := &runtime{settings: &config.Settings{}}

		formats, err := scanFiletypes(cmd, rt)
		if err != nil {
			t.Fatalf("scan filetypes: %v", err)
		}
		if !slices.Equal(formats, config.DownloadKinds) {
			t.Errorf("expected %v, got %v", config.DownloadKinds, formats)
		}
	})
}
