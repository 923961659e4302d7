package pipeline

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/retinalogix/release-builder/internal/config"
	"github.com/retinalogix/release-builder/internal/domain/build"
)

// validateEnvironment probes the external tools and input files before any
// work begins. It collects every problem instead of stopping at the first,
// so one run yields one complete diagnostic report. Read-only: no side effects.
func validateEnvironment(cfg *config.Config, skipFreeze bool) *build.ValidationError {
	var problems []string

	if skipFreeze {
		// Re-packaging an existing artifact: the frozen executable replaces
		// the freezer and entry point as the required input.
		if _, err := build.VerifyFreezeArtifact(frozenExecutablePath(cfg)); err != nil {
			problems = append(problems,
				fmt.Sprintf("frozen executable %s: absent or empty (required by --skip-freeze)", frozenExecutablePath(cfg)))
		}
	} else {
		if _, err := exec.LookPath(cfg.FreezerPath); err != nil {
			problems = append(problems, fmt.Sprintf("freezing tool %s: %v", cfg.FreezerPath, err))
		}

		if problem := checkInputFile("entry point", cfg.EntryPoint); problem != "" {
			problems = append(problems, problem)
		}
	}

	if _, err := exec.LookPath(cfg.PackagerPath); err != nil {
		problems = append(problems, fmt.Sprintf("installer builder %s: %v", cfg.PackagerPath, err))
	}

	if problem := checkInputFile("installer spec", cfg.InstallerSpec); problem != "" {
		problems = append(problems, problem)
	}

	if len(problems) == 0 {
		return nil
	}

	return &build.ValidationError{Problems: problems}
}

// checkInputFile reports a problem string for a missing or non-regular input
// file, or "" when the file is usable.
func checkInputFile(role, path string) string {
	info, err := os.Stat(path)

	switch {
	case err != nil:
		return fmt.Sprintf("%s %s: %v", role, path, err)
	case info.IsDir():
		return fmt.Sprintf("%s %s: is a directory", role, path)
	default:
		return ""
	}
}
