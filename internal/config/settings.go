package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the persisted portion of the configuration: the values a
// user should not have to re-enter on every run. It is stored as YAML
// under the XDG config directory.
type Settings struct {
	// DownloadDir is the remembered artifact output folder.
	DownloadDir string `yaml:"downloadDir,omitempty"`

	// UpdateDir is the remembered local corpus folder for update runs.
	UpdateDir string `yaml:"updateDir,omitempty"`

	// Filetypes are the remembered download kinds.
	Filetypes []string `yaml:"filetypes,omitempty"`

	// UpdateFiletypes are the remembered corpus formats to scan.
	UpdateFiletypes []string `yaml:"updateFiletypes,omitempty"`

	// SleepSeconds is the remembered politeness delay in seconds.
	SleepSeconds int `yaml:"sleepSeconds,omitempty"`

	// SaveSecrets controls whether credentials are written back.
	SaveSecrets bool `yaml:"saveSecrets,omitempty"`

	// Username and Password are stored only when SaveSecrets is set.
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// PinboardToken is the Pinboard API token for bookmark imports.
	PinboardToken string `yaml:"pinboardToken,omitempty"`
}

// LoadSettings reads the settings file at path. A missing file is not an
// error: it returns zero-valued Settings so first runs work unconfigured.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-owned settings path
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, err
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes the settings back to path, creating parent directories as
// needed. Credentials are dropped unless SaveSecrets is set.
func (s *Settings) Save(path string) error {
	out := *s
	if !out.SaveSecrets {
		out.Username = ""
		out.Password = ""
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ClearCredentials removes stored credentials, used after a failed login
// so a bad password is not replayed on the next run.
func (s *Settings) ClearCredentials() {
	s.Username = ""
	s.Password = ""
}

// Apply copies remembered values onto a runtime Config, without
// overriding anything already set by a flag.
func (s *Settings) Apply(c *Config) {
	if c.DownloadDir == DefaultDownloadDir() && s.DownloadDir != "" {
		c.DownloadDir = s.DownloadDir
	}
	if len(c.Filetypes) == 0 && len(s.Filetypes) > 0 {
		c.Filetypes = s.Filetypes
	}
	if c.Sleep == DefaultSleep && s.SleepSeconds > 0 {
		c.Sleep = secondsToDuration(s.SleepSeconds)
	}
	if c.Username == "" {
		c.Username = s.Username
	}
	if c.Password == "" {
		c.Password = s.Password
	}
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
