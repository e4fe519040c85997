// Package config holds the validated option set recognized by walletflow.
// Options may come from an on-disk YAML file, command-line flags, or both;
// unknown keys in the file are rejected rather than silently ignored.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Wallet modes recognized by the harness. Only MetaMask-compatible wallets
// are currently driven; the enumeration exists so new modes are an explicit
// decision rather than a free-form string.
const (
	WalletModeMetaMask = "metamask"
)

// Default values for options left unset.
const (
	DefaultTimeoutMs = 30000
	DefaultDebugPort = 9222
)

// Options is the enumerated, validated option set for a walletflow run.
type Options struct {
	// Headed runs the browser with a visible window.
	Headed bool `yaml:"headed"`

	// WalletMode selects the wallet extension dialect being driven.
	WalletMode string `yaml:"wallet_mode"`

	// TimeoutMs bounds popup waits and locator operations, in milliseconds.
	TimeoutMs int `yaml:"timeout_ms"`

	// KeepOpen leaves the browser running after teardown so a later
	// invocation can reattach to it.
	KeepOpen bool `yaml:"keep_open"`

	// Network is the human-readable target network name.
	Network string `yaml:"network"`

	// UserDataDir is the persistent browser profile directory. Wallet
	// unlock/import state lives here, not in the harness.
	UserDataDir string `yaml:"user_data_dir"`

	// ExtensionPath is the unpacked wallet extension directory loaded on
	// fresh launches.
	ExtensionPath string `yaml:"extension_path"`

	// BrowserPath is an explicit Chromium executable. Empty means discover
	// one from the usual install locations.
	BrowserPath string `yaml:"browser_path"`

	// DebugPort is the local debugging endpoint used for reattachment.
	DebugPort int `yaml:"debug_port"`

	// ScreenshotDir receives diagnostic screenshots. Empty disables them.
	ScreenshotDir string `yaml:"screenshot_dir"`
}

// Default returns the option set used when no file or flags override it.
func Default() Options {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Options{
		WalletMode:  WalletModeMetaMask,
		TimeoutMs:   DefaultTimeoutMs,
		DebugPort:   DefaultDebugPort,
		UserDataDir: filepath.Join(home, ".walletflow", "profile"),
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".walletflow", "config.yaml"), nil
}

// Load reads options from a YAML file, layered over Default(). A missing
// file is not an error; unknown keys are.
func Load(path string) (Options, error) {
	opts := Default()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&opts); err != nil {
		return opts, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	return opts, nil
}

// Save writes options to a YAML file atomically (temp file + rename).
func Save(path string, opts Options) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(opts)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp config file: %w", err)
	}

	return nil
}

// Validate checks the option set for structurally invalid values.
func (o Options) Validate() error {
	if o.TimeoutMs <= 0 {
		return fmt.Errorf("timeout_ms must be positive, got %d", o.TimeoutMs)
	}
	if o.DebugPort < 1 || o.DebugPort > 65535 {
		return fmt.Errorf("debug_port must be in [1, 65535], got %d", o.DebugPort)
	}
	switch o.WalletMode {
	case WalletModeMetaMask:
	default:
		return fmt.Errorf("unrecognized wallet_mode %q", o.WalletMode)
	}
	return nil
}
