package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mn3m0syn3/ao3downloader/internal/config"
	"github.com/Mn3m0syn3/ao3downloader/internal/fetch"
	"github.com/Mn3m0syn3/ao3downloader/internal/logbook"
	"github.com/Mn3m0syn3/ao3downloader/internal/storage"
)

// runtime bundles the collaborators every network command needs, built
// once from flags and the persisted settings.
type runtime struct {
	cfg      *config.Config
	settings *config.Settings
	client   *fetch.Client
	store    *storage.Store
	ledger   *logbook.Writer
}

// newRuntime builds the runtime for a command: flags merged with the
// settings file, configuration validated, logger installed, and the
// fetch client, artifact store, and ledger constructed.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, settings, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	store, err := storage.NewStore(cfg.DownloadDir)
	if err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}
	ledger, err := logbook.NewWriter(cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("opening activity ledger: %w", err)
	}

	client := fetch.New(
		fetch.WithDelay(cfg.Sleep),
		fetch.WithCooldown(cfg.Cooldown),
	)

	return &runtime{
		cfg:      cfg,
		settings: settings,
		client:   client,
		store:    store,
		ledger:   ledger,
	}, nil
}

// login authenticates when credentials are configured. A rejected login
// clears any stored credentials so a bad password is not replayed on
// the next run.
func (rt *runtime) login(ctx context.Context) error {
	if rt.cfg.Username == "" {
		return nil
	}
	if err := rt.client.Login(ctx, rt.cfg.Username, rt.cfg.Password); err != nil {
		if errors.Is(err, fetch.ErrAuthentication) {
			rt.settings.ClearCredentials()
			if saveErr := rt.settings.Save(config.SettingsFile()); saveErr != nil {
				slog.Warn("could not update settings", "error", saveErr)
			}
		}
		return fmt.Errorf("logging in as %s: %w", rt.cfg.Username, err)
	}
	slog.Info("logged in", "user", rt.cfg.Username)
	return nil
}

// remember persists this run's folders, file types, delay, and token so
// the next run needs no flags. It is a no-op unless --remember is set.
func (rt *runtime) remember(cmd *cobra.Command) {
	ok, err := cmd.Flags().GetBool("remember")
	if err != nil || !ok {
		return
	}

	s := rt.settings
	s.DownloadDir = rt.cfg.DownloadDir
	s.Filetypes = rt.cfg.Filetypes
	s.SleepSeconds = int(rt.cfg.Sleep / time.Second)
	if secrets, err := cmd.Flags().GetBool("save-secrets"); err == nil && secrets {
		s.SaveSecrets = true
	}
	if s.SaveSecrets {
		s.Username = rt.cfg.Username
		s.Password = rt.cfg.Password
	}
	if err := s.Save(config.SettingsFile()); err != nil {
		slog.Warn("could not save settings", "error", err)
	}
}

// addCrawlFlags registers the flags shared by every command that talks
// to the archive.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("download-dir", "d", config.DefaultDownloadDir(),
		"Directory downloaded works are written to")
	cmd.Flags().String("log-file", config.DefaultLogFile(),
		"Path of the activity ledger")
	cmd.Flags().StringSliceP("filetypes", "f", nil,
		"Artifact kinds to download: AZW3, EPUB, HTML, MOBI, PDF (default EPUB)")
	cmd.Flags().Bool("images", false,
		"Also download images embedded in each work")
	cmd.Flags().Bool("series", false,
		"Follow series links found on listing pages")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum listing pages to traverse (0 = unbounded)")
	cmd.Flags().Duration("sleep", config.DefaultSleep,
		"Politeness delay after each archive request")
	cmd.Flags().StringP("username", "u", "",
		"Archive username, required for restricted works")
	cmd.Flags().String("password", "",
		"Archive password")
	cmd.Flags().Bool("remember", false,
		"Persist folders, file types, and delay to the settings file")
	cmd.Flags().Bool("save-secrets", false,
		"Store credentials in the settings file when --remember is set")
}

// buildConfig creates a Config from cobra command flags, filling gaps
// from the settings file. It also returns the loaded settings so
// commands can write remembered values back.
func buildConfig(cmd *cobra.Command) (*config.Config, *config.Settings, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.DownloadDir, err = flags.GetString("download-dir"); err != nil {
		return nil, nil, err
	}
	if cfg.LogFile, err = flags.GetString("log-file"); err != nil {
		return nil, nil, err
	}
	if cfg.Filetypes, err = flags.GetStringSlice("filetypes"); err != nil {
		return nil, nil, err
	}
	if cfg.Images, err = flags.GetBool("images"); err != nil {
		return nil, nil, err
	}
	if cfg.Series, err = flags.GetBool("series"); err != nil {
		return nil, nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, nil, err
	}
	if cfg.Sleep, err = flags.GetDuration("sleep"); err != nil {
		return nil, nil, err
	}
	if cfg.Username, err = flags.GetString("username"); err != nil {
		return nil, nil, err
	}
	if cfg.Password, err = flags.GetString("password"); err != nil {
		return nil, nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	for i, ft := range cfg.Filetypes {
		cfg.Filetypes[i] = strings.ToUpper(ft)
	}

	settings, err := config.LoadSettings(config.SettingsFile())
	if err != nil {
		return nil, nil, fmt.Errorf("loading settings: %w", err)
	}
	settings.Apply(cfg)

	if len(cfg.Filetypes) == 0 {
		cfg.Filetypes = []string{"EPUB"}
	}
	return cfg, settings, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates a structured logger writing to stderr.
func setupLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	return slog.New(handler)
}

// signalContext returns a context cancelled by SIGINT or SIGTERM, so an
// interrupted traversal stops between requests with its ledger intact.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("received shutdown signal, stopping")
		cancel()
	}()

	return ctx, cancel
}
