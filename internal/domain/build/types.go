package build

import (
	"runtime"
	"time"
)

// Stage identifies one step of the release pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageValidate Stage = "validate"
	StageFreeze   Stage = "freeze"
	StagePackage  Stage = "package"
)

// Target identifies the application to freeze.
// It is immutable once constructed; stages receive copies, never pointers.
type Target struct {
	// EntryPoint is the application source file handed to the freezer.
	EntryPoint string
	// OutputName is the base name of the frozen executable, without extension.
	OutputName string
	// SingleFile requests a one-file bundle instead of a directory tree.
	SingleFile bool
	// Windowed suppresses the console window of the frozen executable.
	Windowed bool
}

// ExecutableName returns the frozen executable file name for the current platform.
func (t Target) ExecutableName() string {
	return t.OutputName + ExecutableExtension()
}

// ExecutableExtension returns ".exe" on Windows and "" elsewhere.
func ExecutableExtension() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}

	return ""
}

// FreezeArtifact is the standalone executable produced by the freeze stage.
// It is created only after the artifact was verified present and non-empty,
// and is never mutated afterwards.
type FreezeArtifact struct {
	// Path is the verified location of the frozen executable.
	Path string
	// Size is the file size observed at verification time, in bytes.
	Size int64
}

// InstallerSpec references the declarative build script consumed by the packager.
// Its contents are opaque to the pipeline.
type InstallerSpec struct {
	// Path is the location of the installer script.
	Path string
}

// InstallerArtifact is the produced installer package.
type InstallerArtifact struct {
	// Dir is the output directory holding the installer files.
	Dir string
	// Files lists the artifact file names found in Dir after packaging.
	Files []string
}

// StageResult is the outcome of one pipeline stage, consumed by the
// controller for gating decisions and the final report.
type StageResult struct {
	// Stage names the step this result belongs to.
	Stage Stage
	// Success reports whether the stage completed and its artifact verified.
	Success bool
	// ExitCode is the external tool's exit code, or -1 when it never ran to completion.
	ExitCode int
	// OutputTail is the trailing portion of the tool's combined output.
	OutputTail string
	// Elapsed is the wall-clock stage duration.
	Elapsed time.Duration
	// Err holds the failure classified per the pipeline error taxonomy, nil on success.
	Err error
}
