package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := Default()

	assert.Equal(t, WalletModeMetaMask, opts.WalletMode)
	assert.Equal(t, DefaultTimeoutMs, opts.TimeoutMs)
	assert.Equal(t, DefaultDebugPort, opts.DebugPort)
	assert.False(t, opts.Headed)
	assert.NoError(t, opts.Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	opts, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), opts)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("headed: true\ntimeout_ms: 5000\nnetwork: sepolia\n")
	require.NoError(t, os.WriteFile(path, content, 0600))

	opts, err := Load(path)
	require.NoError(t, err)

	assert.True(t, opts.Headed)
	assert.Equal(t, 5000, opts.TimeoutMs)
	assert.Equal(t, "sepolia", opts.Network)
	// Untouched fields keep defaults
	assert.Equal(t, WalletModeMetaMask, opts.WalletMode)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not_an_option: 1\n"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	opts := Default()
	opts.Headed = true
	opts.Network = "polygon"
	require.NoError(t, Save(path, opts))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, opts, loaded)

	// No temp file left behind
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(o *Options) {},
		},
		{
			name:    "zero timeout",
			mutate:  func(o *Options) { o.TimeoutMs = 0 },
			wantErr: "timeout_ms",
		},
		{
			name:    "negative timeout",
			mutate:  func(o *Options) { o.TimeoutMs = -5 },
			wantErr: "timeout_ms",
		},
		{
			name:    "port out of range",
			mutate:  func(o *Options) { o.DebugPort = 70000 },
			wantErr: "debug_port",
		},
		{
			name:    "unknown wallet mode",
			mutate:  func(o *Options) { o.WalletMode = "phantom" },
			wantErr: "wallet_mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Default()
			tt.mutate(&opts)

			err := opts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
