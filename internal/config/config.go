package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the build pipeline settings shared by the release-builder commands.
type Config struct {
	// FreezerPath is the executable that bundles the application into a standalone binary.
	FreezerPath string `yaml:"freezer_path"`
	// PackagerPath is the executable that compiles the installer script into an installer.
	PackagerPath string `yaml:"packager_path"`
	// EntryPoint is the application source file handed to the freezer.
	EntryPoint string `yaml:"entry_point"`
	// OutputName is the base name of the frozen executable, without extension.
	OutputName string `yaml:"output_name"`
	// DistDir is where the freezer places the frozen executable.
	DistDir string `yaml:"dist_dir"`
	// InstallerSpec is the declarative build script consumed by the packager.
	InstallerSpec string `yaml:"installer_spec"`
	// InstallerOutputDir is where the packager places the installer artifact.
	InstallerOutputDir string `yaml:"installer_output_dir"`
	// StageTimeout bounds each external tool invocation.
	StageTimeout time.Duration `yaml:"stage_timeout"`
	// HistoryFile is the SQLite database recording past pipeline runs.
	HistoryFile string `yaml:"history_file"`
	// RetryAttempts is the number of extra attempts for retryable stage
	// failures (tool failed to start, or timed out). Deterministic build
	// failures are never retried.
	RetryAttempts int `yaml:"retry_attempts"`
	// RetryBackoff is the pause between retry attempts.
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

const (
	// DefaultConfigFilename is the default filename for pipeline settings.
	DefaultConfigFilename = "release-builder.yaml"

	// DefaultFreezer is the conventional freezing tool executable name.
	DefaultFreezer = "pyinstaller"

	// DefaultPackager is the conventional installer builder executable name.
	DefaultPackager = "iscc"

	// DefaultEntryPoint is the application entry-point source file.
	DefaultEntryPoint = "retina_metadata_gui.py"

	// DefaultOutputName is the base name of the frozen executable.
	DefaultOutputName = "RetinaLogixPro"

	// DefaultDistDir is the conventional freezer output directory.
	DefaultDistDir = "dist"

	// DefaultInstallerSpec is the installer build script path.
	DefaultInstallerSpec = "installer_script.iss"

	// DefaultInstallerOutputDir is the conventional packager output directory.
	DefaultInstallerOutputDir = "installer_output"

	// DefaultStageTimeout bounds a single external tool run.
	DefaultStageTimeout = 10 * time.Minute

	// DefaultHistoryFilename is the default run history database path.
	DefaultHistoryFilename = "release-builder-history.db"

	// DefaultRetryBackoff is the pause between retry attempts when retries are enabled.
	DefaultRetryBackoff = 2 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errOutputNameIsPath is returned when the output name contains path separators.
	errOutputNameIsPath = errors.New("output name must be a bare file name, not a path")
	// errNegativeRetries is returned when retry attempts are negative.
	errNegativeRetries = errors.New("retry attempts must not be negative")
)

// Default returns a configuration filled with the conventional values.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates essential fields.
// A missing file is not an error: defaults are returned so the pipeline can run
// from a clean checkout without a settings file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	} else if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills in defaults for omitted fields and rejects unusable values.
// Existence of the referenced files is checked by the pipeline validator,
// not here: a config may legitimately be written before the files exist.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	// The freezer receives the output name as a bare name and decides the
	// destination itself; a path here would silently change the artifact location.
	if cfg.OutputName != filepath.Base(cfg.OutputName) {
		return fmt.Errorf("%w: %q", errOutputNameIsPath, cfg.OutputName)
	}

	if cfg.RetryAttempts < 0 {
		return errNegativeRetries
	}

	return nil
}

// applyDefaults replaces zero values with the conventional defaults.
func applyDefaults(cfg *Config) {
	if cfg.FreezerPath == "" {
		cfg.FreezerPath = DefaultFreezer
	}

	if cfg.PackagerPath == "" {
		cfg.PackagerPath = DefaultPackager
	}

	if cfg.EntryPoint == "" {
		cfg.EntryPoint = DefaultEntryPoint
	}

	if cfg.OutputName == "" {
		cfg.OutputName = DefaultOutputName
	}

	if cfg.DistDir == "" {
		cfg.DistDir = DefaultDistDir
	}

	if cfg.InstallerSpec == "" {
		cfg.InstallerSpec = DefaultInstallerSpec
	}

	if cfg.InstallerOutputDir == "" {
		cfg.InstallerOutputDir = DefaultInstallerOutputDir
	}

	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = DefaultStageTimeout
	}

	if cfg.HistoryFile == "" {
		cfg.HistoryFile = DefaultHistoryFilename
	}

	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
}
