// Package config provides configuration management for ranobe-dl.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/ini.v1"
)

// Config holds the user-facing settings shared by every command.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\ranobe-dl\config
//   - Unix: ~/.config/ranobe-dl/config
//
// INI format:
//
//	[ranobelib]
//	api_url = https://api.cdnlibs.org/api/manga/
//	site_url = https://ranobelib.me
//
//	[download]
//	save_directory = /home/user/books
//	download_cover = true
//	download_images = true
//	group_by_volumes = false
//	add_translator = false
type Config struct {
	// RanobeLIB endpoints. Overridable for mirrors.
	APIURL  string `ini:"api_url"`
	SiteURL string `ini:"site_url"`

	// Download behavior
	Download DownloadConfig
}

// DownloadConfig contains settings specific to downloading chapters.
type DownloadConfig struct {
	// SaveDirectory is the base directory for downloaded novels.
	// Default: current working directory.
	SaveDirectory string `ini:"save_directory"`

	// DownloadCover fetches the novel cover image alongside the text.
	DownloadCover bool `ini:"download_cover"`

	// DownloadImages fetches images embedded in chapter bodies.
	DownloadImages bool `ini:"download_images"`

	// GroupByVolumes writes chapters into one subdirectory per volume.
	GroupByVolumes bool `ini:"group_by_volumes"`

	// AddTranslator appends the translating team's name to chapter titles.
	AddTranslator bool `ini:"add_translator"`
}

// Validation errors
var (
	ErrMissingAPIURL  = errors.New("api_url is required")
	ErrMissingSiteURL = errors.New("site_url is required")
)

// DefaultPath returns the default path for the config file.
// - Windows: %USERPROFILE%\.config\ranobe-dl\config
// - Unix: ~/.config/ranobe-dl/config
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config"), nil
}

// Dir returns the directory holding the config and credential files.
func Dir() (string, error) {
	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		return filepath.Join(userProfile, ".config", "ranobe-dl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ranobe-dl"), nil
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		APIURL:  "https://api.cdnlibs.org/api/manga/",
		SiteURL: "https://ranobelib.me",
		Download: DownloadConfig{
			SaveDirectory:  "",
			DownloadCover:  true,
			DownloadImages: true,
			GroupByVolumes: false,
			AddTranslator:  false,
		},
	}
}

// Load loads configuration from an INI file.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, nil // Return defaults if we can't determine path
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // Return defaults if config doesn't exist
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	libSection := iniFile.Section("ranobelib")
	cfg.APIURL = libSection.Key("api_url").MustString(cfg.APIURL)
	cfg.SiteURL = libSection.Key("site_url").MustString(cfg.SiteURL)

	dlSection := iniFile.Section("download")
	cfg.Download.SaveDirectory = dlSection.Key("save_directory").String()
	cfg.Download.DownloadCover = dlSection.Key("download_cover").MustBool(true)
	cfg.Download.DownloadImages = dlSection.Key("download_images").MustBool(true)
	cfg.Download.GroupByVolumes = dlSection.Key("group_by_volumes").MustBool(false)
	cfg.Download.AddTranslator = dlSection.Key("add_translator").MustBool(false)

	return cfg, nil
}

// Save saves configuration to an INI file.
// Creates parent directories if they don't exist.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	libSection, err := iniFile.NewSection("ranobelib")
	if err != nil {
		return fmt.Errorf("failed to create ranobelib section: %w", err)
	}
	libSection.Key("api_url").SetValue(cfg.APIURL)
	libSection.Key("site_url").SetValue(cfg.SiteURL)

	dlSection, err := iniFile.NewSection("download")
	if err != nil {
		return fmt.Errorf("failed to create download section: %w", err)
	}
	dlSection.Key("save_directory").SetValue(cfg.Download.SaveDirectory)
	dlSection.Key("download_cover").SetValue(fmt.Sprintf("%t", cfg.Download.DownloadCover))
	dlSection.Key("download_images").SetValue(fmt.Sprintf("%t", cfg.Download.DownloadImages))
	dlSection.Key("group_by_volumes").SetValue(fmt.Sprintf("%t", cfg.Download.GroupByVolumes))
	dlSection.Key("add_translator").SetValue(fmt.Sprintf("%t", cfg.Download.AddTranslator))

	// Temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks if the configuration is usable.
// Returns nil if valid, or an error describing what's wrong.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.APIURL) == "" {
		return ErrMissingAPIURL
	}
	if strings.TrimSpace(cfg.SiteURL) == "" {
		return ErrMissingSiteURL
	}
	return nil
}

// SaveDir resolves the directory downloads are written to: the configured
// save_directory, or the current working directory when unset.
func (cfg *Config) SaveDir() (string, error) {
	if dir := strings.TrimSpace(cfg.Download.SaveDirectory); dir != "" {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return wd, nil
}
