package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks default filling and rejection of unusable values.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Nil config.
	err := Validate(nil)
	require.Error(t, err)

	// Empty config picks up every default.
	cfg := new(Config)

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultFreezer, cfg.FreezerPath)
	require.Equal(t, DefaultOutputName, cfg.OutputName)
	require.Equal(t, DefaultStageTimeout, cfg.StageTimeout)
	require.Equal(t, DefaultRetryBackoff, cfg.RetryBackoff)

	// Output name must not be a path.
	cfg = &Config{
		OutputName: filepath.Join("dist", "RetinaLogixPro"),
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Negative retries.
	cfg = &Config{
		RetryAttempts: -1,
	}

	err = Validate(cfg)
	require.Error(t, err)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		FreezerPath:   "/opt/tools/pyinstaller",
		PackagerPath:  "/opt/tools/iscc",
		EntryPoint:    "app.py",
		OutputName:    "App",
		StageTimeout:  time.Minute,
		RetryAttempts: 2,
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.FreezerPath, loaded.FreezerPath)
	require.Equal(t, cfg.PackagerPath, loaded.PackagerPath)
	require.Equal(t, cfg.EntryPoint, loaded.EntryPoint)
	require.Equal(t, cfg.OutputName, loaded.OutputName)
	require.Equal(t, cfg.StageTimeout, loaded.StageTimeout)
	require.Equal(t, cfg.RetryAttempts, loaded.RetryAttempts)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoadMissingFile verifies a missing settings file yields defaults, not an error.
func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}
