// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for ragchat.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/ragchat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ragchat configuration.
type Config struct {
	Server  ServerConfig  `toml:"server" json:"server"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Log     LogConfig     `toml:"log" json:"log"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// ServerConfig locates the backend.
type ServerConfig struct {
	// BaseURL is the API root, e.g. http://localhost:8090/api/v1
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds ordinary requests. Streams are not bounded.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// UploadTimeoutSecs bounds file uploads and Git analysis requests.
	UploadTimeoutSecs int `toml:"upload_timeout_secs" json:"upload_timeout_secs"`
	// UserAgent is sent with every request.
	UserAgent string `toml:"user_agent" json:"user_agent"`
}

// Timeout returns TimeoutSecs as a duration.
func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// UploadTimeout returns UploadTimeoutSecs as a duration.
func (s ServerConfig) UploadTimeout() time.Duration {
	return time.Duration(s.UploadTimeoutSecs) * time.Second
}

// ChatConfig holds the generation options sent with every message.
type ChatConfig struct {
	// Model is the backend model name.
	Model string `toml:"model" json:"model"`
	// UseTool lets the backend call tools while generating.
	UseTool bool `toml:"use_tool" json:"use_tool"`
	// Tag restricts retrieval to one knowledge tag. Empty or "default" disables retrieval.
	Tag string `toml:"tag" json:"tag"`
}

// StorageConfig controls local state.
type StorageConfig struct {
	// DataDir holds cookies, the cache database and logs.
	DataDir string `toml:"data_dir" json:"data_dir"`
	// CacheEnabled keeps a local copy of conversations for offline reading.
	CacheEnabled bool `toml:"cache_enabled" json:"cache_enabled"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level" json:"level"`
	// Encoding is json or console.
	Encoding string `toml:"encoding" json:"encoding"`
	// File is the TUI log file, relative to the data dir unless absolute.
	File string `toml:"file" json:"file"`
	// Development enables stack traces on warnings and looser sampling.
	Development bool `toml:"development" json:"development"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// SidebarWidth is the conversation list width in cells.
	SidebarWidth int `toml:"sidebar_width" json:"sidebar_width"`
	// DropDir is watched for files to add to the upload selection.
	// Relative to the data dir unless absolute. Empty disables it.
	DropDir string `toml:"drop_dir" json:"drop_dir"`
	// Markdown renders assistant replies as markdown.
	Markdown bool `toml:"markdown" json:"markdown"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// DefaultBaseURL is the backend location used when none is configured.
const DefaultBaseURL = "http://localhost:8090/api/v1"

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:           DefaultBaseURL,
			TimeoutSecs:       30,
			UploadTimeoutSecs: 300,
			UserAgent:         "ragchat-tui",
		},
		Chat: ChatConfig{
			Model:   "deepseek-chat",
			UseTool: false,
		},
		Storage: StorageConfig{
			DataDir:      "~/.ragchat",
			CacheEnabled: true,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
			File:     "ragchat.log",
		},
		UI: UIConfig{
			Theme:        "auto",
			SidebarWidth: 32,
			DropDir:      "inbox",
			Markdown:     true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the ragchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ragchat"), nil
}

// ConfigPath returns the path to the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the expanded data directory.
func (c *Config) DataDir() string {
	return util.ExpandHome(c.Storage.DataDir)
}

// CookiePath returns where the session cookies are kept.
func (c *Config) CookiePath() string {
	return filepath.Join(c.DataDir(), "cookies.json")
}

// LogPath returns the TUI log file path.
func (c *Config) LogPath() string {
	return c.underDataDir(c.Log.File)
}

// DropPath returns the drop zone directory, or "" when disabled.
func (c *Config) DropPath() string {
	if c.UI.DropDir == "" {
		return ""
	}
	return c.underDataDir(c.UI.DropDir)
}

func (c *Config) underDataDir(p string) string {
	p = util.ExpandHome(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir(), p)
}

// ensureSecurePermissions tightens a config file to 0600.
// SECURITY: Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads the default config file, falling back to defaults when it does
// not exist. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from path. A missing file yields the
// defaults with environment overrides applied.
func LoadFromPath(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, statErr)
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys missing from the file keep
// cfg's current values.
func LoadTOML(cfg *Config, path string) error {
	// SECURITY: Check and fix file permissions if needed
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadDotEnv exports the variables of a .env file. Variables already set in
// the environment win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// fillDefaults fills in zero values a file may have cleared.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = defaults.Server.BaseURL
	}
	if cfg.Server.TimeoutSecs == 0 {
		cfg.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}
	if cfg.Server.UploadTimeoutSecs == 0 {
		cfg.Server.UploadTimeoutSecs = defaults.Server.UploadTimeoutSecs
	}
	if cfg.Server.UserAgent == "" {
		cfg.Server.UserAgent = defaults.Server.UserAgent
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = defaults.Chat.Model
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = defaults.Storage.DataDir
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Encoding == "" {
		cfg.Log.Encoding = defaults.Log.Encoding
	}
	if cfg.Log.File == "" {
		cfg.Log.File = defaults.Log.File
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.SidebarWidth == 0 {
		cfg.UI.SidebarWidth = defaults.UI.SidebarWidth
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# ragchat configuration file\n")
	buf.WriteString("# Values can be overridden with RAGCHAT_* environment variables.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validThemes    = map[string]bool{"dark": true, "light": true, "auto": true}
	validLevels    = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validEncodings = map[string]bool{"json": true, "console": true}
)

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Server.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "server.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]/path", c.Server.BaseURL),
		})
	}
	if c.Server.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "server.timeout_secs", Message: "must not be negative"})
	}
	if c.Server.UploadTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "server.upload_timeout_secs", Message: "must not be negative"})
	}
	if strings.TrimSpace(c.Chat.Model) == "" {
		errs = append(errs, ValidationError{Field: "chat.model", Message: "must not be empty"})
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}
	if !validEncodings[strings.ToLower(c.Log.Encoding)] {
		errs = append(errs, ValidationError{
			Field:   "log.encoding",
			Message: fmt.Sprintf("invalid encoding '%s', must be one of: json, console", c.Log.Encoding),
		})
	}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}
	if c.UI.SidebarWidth < 16 || c.UI.SidebarWidth > 80 {
		errs = append(errs, ValidationError{
			Field:   "ui.sidebar_width",
			Message: fmt.Sprintf("sidebar width %d out of range (16-80)", c.UI.SidebarWidth),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - RAGCHAT_BASE_URL: overrides server.base_url
//   - RAGCHAT_MODEL: overrides chat.model
//   - RAGCHAT_TAG: overrides chat.tag
//   - RAGCHAT_USE_TOOL: "1"/"true" or "0"/"false"
//   - RAGCHAT_DATA_DIR: overrides storage.data_dir
//   - RAGCHAT_LOG_LEVEL: overrides log.level
//   - RAGCHAT_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv("RAGCHAT_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("RAGCHAT_MODEL"); v != "" {
		c.Chat.Model = v
	}
	if v, ok := os.LookupEnv("RAGCHAT_TAG"); ok {
		c.Chat.Tag = v
	}
	if v := os.Getenv("RAGCHAT_USE_TOOL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RAGCHAT_USE_TOOL: %w", err)
		}
		c.Chat.UseTool = b
	}
	if v := os.Getenv("RAGCHAT_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("RAGCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("RAGCHAT_THEME"); v != "" {
		c.UI.Theme = v
	}
	return nil
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value by its TOML key path, e.g. "chat.model".
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set parses value into the field at key and validates the result. The
// config is left unchanged on error.
func (c *Config) Set(key, value string) error {
	next := *c
	field, err := next.lookup(key)
	if err != nil {
		return err
	}
	if err := setFieldValue(field, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// lookup walks the struct by toml tags.
func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(strings.TrimSpace(key), ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown key: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("key '%s' is a section", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("key '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("toml") == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", value)
		}
		field.SetBool(b)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("expected an integer, got %q", value)
		}
		field.SetInt(int64(n))
	default:
		return fmt.Errorf("unsupported type %s", field.Kind())
	}
	return nil
}

// Keys returns every settable key in file order.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, section.Tag.Get("toml")+"."+section.Type.Field(j).Tag.Get("toml"))
		}
	}
	return keys
}
