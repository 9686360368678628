/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"rangecard/internal/imaging"
	applog "rangecard/internal/log"
	"rangecard/internal/render"
	"rangecard/internal/storage"
	"rangecard/internal/undo"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type StorageConfig struct {
	Backend string `yaml:"backend"` // "file" | "sqlite" | "memory"
	// Path of the card file or database; empty selects a file in the config directory.
	Path string `yaml:"path"`
}

type SeedConfig struct {
	// URL is an http(s) address or a local file path of a card used when nothing is stored.
	URL       string `yaml:"url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type PrintConfig struct {
	AssetsDir string `yaml:"assets_dir"`
	DPI       int    `yaml:"dpi"`
}

type ImageConfig struct {
	MaxBytes    int `yaml:"max_bytes"`
	MaxWidth    int `yaml:"max_width"`
	MaxHeight   int `yaml:"max_height"`
	JPEGQuality int `yaml:"jpeg_quality"`
}

type HistoryConfig struct {
	MaxDepth int `yaml:"max_depth"`
	MaxBytes int `yaml:"max_bytes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Storage       StorageConfig `yaml:"storage"`
	Seed          SeedConfig    `yaml:"seed"`
	Server        ServerConfig  `yaml:"server"`
	Print         PrintConfig   `yaml:"print"`
	Image         ImageConfig   `yaml:"image"`
	History       HistoryConfig `yaml:"history"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	img := imaging.DefaultOptions()
	return AppConfig{
		ConfigVersion: 1,
		Storage:       StorageConfig{Backend: storage.BackendFile},
		Seed:          SeedConfig{TimeoutMs: 5000},
		Server:        ServerConfig{Addr: "127.0.0.1:8080"},
		Print:         PrintConfig{DPI: 150},
		Image:         ImageConfig{MaxBytes: img.MaxBytes, MaxWidth: img.MaxWidth, MaxHeight: img.MaxHeight, JPEGQuality: img.JPEGQuality},
		History:       HistoryConfig{MaxDepth: undo.DefaultDepth},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile     = "RC_CONFIG"
	EnvStorageBackend = "RC_STORAGE_BACKEND"
	EnvStoragePath    = "RC_STORAGE_PATH"
	EnvSeedURL        = "RC_SEED_URL"
	EnvSeedTimeoutMs  = "RC_SEED_TIMEOUT_MS"
	EnvServerAddr     = "RC_SERVER_ADDR"
	EnvAssetsDir      = "RC_ASSETS_DIR"
	EnvPrintDPI       = "RC_PRINT_DPI"
	EnvImageMaxBytes  = "RC_IMAGE_MAX_BYTES"
	// EnvLogLevel Logging envs, shared with the log package
	EnvLogLevel  = "RC_LOG_LEVEL"
	EnvLogFormat = "RC_LOG_FORMAT"
	EnvLogSource = "RC_LOG_SOURCE"
	EnvLogFile   = "RC_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "rangecard"
	keyringToken   = "seed_token"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
// A missing entry reads as an empty token.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) {
	v, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return v, err
}

func (osKeyring) Set(service, key, value string) error { return keyring.Set(service, key, value) }

func (osKeyring) Delete(service, key string) error {
	if err := keyring.Delete(service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "RangeCard")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "RangeCard")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "rangecard")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "rangecard")
		}
	}
	if base == "" || base == "rangecard" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the config file path; RC_CONFIG overrides the per-user default.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// It also loads the seed token from the keyring (not kept inside the struct; returned separately).
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, "", err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit config file. A missing file is not an error;
// a malformed one is.
func LoadFrom(path string) (AppConfig, string, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	tok, err := tokenStore.Get(keyringService, keyringToken)
	if err != nil {
		// no keychain available: run without a token
		applog.WithComponent("config").Debug("keyring unavailable", slog.Any("err", err))
		tok = ""
	}
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg, token)
}

func SaveTo(path string, cfg AppConfig, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// SetToken stores the seed token in the keyring without touching the config file.
func SetToken(token string) error { return tokenStore.Set(keyringService, keyringToken, token) }

// DeleteToken removes the seed token from the keyring.
func DeleteToken() error { return tokenStore.Delete(keyringService, keyringToken) }

// UseTokenStore swaps the keyring backend and returns a func restoring the previous one.
func UseTokenStore(ts TokenStore) (restore func()) {
	prev := tokenStore
	tokenStore = ts
	return func() { tokenStore = prev }
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.ToLower(strings.TrimSpace(src.Storage.Backend)); v != "" {
		dst.Storage.Backend = v
	}
	if v := strings.TrimSpace(src.Storage.Path); v != "" {
		dst.Storage.Path = v
	}
	if v := strings.TrimSpace(src.Seed.URL); v != "" {
		dst.Seed.URL = v
	}
	if src.Seed.TimeoutMs > 0 {
		dst.Seed.TimeoutMs = src.Seed.TimeoutMs
	}
	if v := strings.TrimSpace(src.Server.Addr); v != "" {
		dst.Server.Addr = v
	}
	if v := strings.TrimSpace(src.Print.AssetsDir); v != "" {
		dst.Print.AssetsDir = v
	}
	if src.Print.DPI > 0 {
		dst.Print.DPI = src.Print.DPI
	}
	if src.Image.MaxBytes > 0 {
		dst.Image.MaxBytes = src.Image.MaxBytes
	}
	if src.Image.MaxWidth > 0 {
		dst.Image.MaxWidth = src.Image.MaxWidth
	}
	if src.Image.MaxHeight > 0 {
		dst.Image.MaxHeight = src.Image.MaxHeight
	}
	if src.Image.JPEGQuality > 0 {
		dst.Image.JPEGQuality = src.Image.JPEGQuality
	}
	if src.History.MaxDepth > 0 {
		dst.History.MaxDepth = src.History.MaxDepth
	}
	if src.History.MaxBytes > 0 {
		dst.History.MaxBytes = src.History.MaxBytes
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvStorageBackend)); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoragePath)); v != "" {
		cfg.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSeedURL)); v != "" {
		cfg.Seed.URL = v
	}
	if n, ok := envInt(EnvSeedTimeoutMs); ok {
		cfg.Seed.TimeoutMs = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAssetsDir)); v != "" {
		cfg.Print.AssetsDir = v
	}
	if n, ok := envInt(EnvPrintDPI); ok {
		cfg.Print.DPI = n
	}
	if n, ok := envInt(EnvImageMaxBytes); ok {
		cfg.Image.MaxBytes = n
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

var envKeys = map[string]string{
	"storage.backend":  EnvStorageBackend,
	"storage.path":     EnvStoragePath,
	"seed.url":         EnvSeedURL,
	"seed.timeout_ms":  EnvSeedTimeoutMs,
	"server.addr":      EnvServerAddr,
	"print.assets_dir": EnvAssetsDir,
	"print.dpi":        EnvPrintDPI,
	"image.max_bytes":  EnvImageMaxBytes,
	"logging.level":    EnvLogLevel,
	"logging.format":   EnvLogFormat,
	"logging.source":   EnvLogSource,
	"logging.file":     EnvLogFile,
}

// LogOptions maps the logging section onto logger options.
func (c AppConfig) LogOptions() applog.Options {
	return applog.Options{Level: c.Logging.Level, Format: c.Logging.Format, AddSource: c.Logging.Source, File: c.Logging.File}
}

func (c AppConfig) ImageOptions() imaging.Options {
	return imaging.Options{MaxBytes: c.Image.MaxBytes, MaxWidth: c.Image.MaxWidth, MaxHeight: c.Image.MaxHeight, JPEGQuality: c.Image.JPEGQuality}
}

func (c AppConfig) RenderOptions() render.Options { return render.Options{AssetsDir: c.Print.AssetsDir} }

func (c AppConfig) HistoryConfig() undo.Config {
	return undo.Config{MaxDepth: c.History.MaxDepth, MaxBytes: c.History.MaxBytes}
}

// SeedSource builds the seed fetcher for token.
func (c AppConfig) SeedSource(token string) storage.Seed {
	return storage.Seed{Source: c.Seed.URL, Token: token, Timeout: time.Duration(c.Seed.TimeoutMs) * time.Millisecond}
}

// StoragePath resolves the configured path, defaulting to a file next to the config.
func (c AppConfig) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if c.Storage.Backend == storage.BackendSQLite {
		return filepath.Join(dir, "rangecard.db"), nil
	}
	return filepath.Join(dir, storage.CardFileName), nil
}

// OpenStore opens the configured storage backend.
func (c AppConfig) OpenStore() (storage.Store, error) {
	if c.Storage.Backend == storage.BackendMemory {
		return storage.Open(storage.BackendMemory, "")
	}
	path, err := c.StoragePath()
	if err != nil {
		return nil, err
	}
	return storage.Open(c.Storage.Backend, path)
}
