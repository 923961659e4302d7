package build

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// VerifyFreezeArtifact checks that the frozen executable exists at the given
// path and is non-empty. On success it returns the immutable artifact record;
// otherwise an ArtifactMissingError attributed to the freeze stage.
func VerifyFreezeArtifact(path string) (*FreezeArtifact, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return nil, &ArtifactMissingError{Stage: StageFreeze, Path: path}
	}

	return &FreezeArtifact{
		Path: path,
		Size: info.Size(),
	}, nil
}

// VerifyInstallerArtifact checks that the packager produced at least one file
// in the conventional output directory and returns the artifact record listing
// them in stable order.
func VerifyInstallerArtifact(dir string) (*InstallerArtifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ArtifactMissingError{Stage: StagePackage, Path: dir}
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", filepath.Join(dir, entry.Name()), err)
		}

		if info.Size() == 0 {
			continue
		}

		files = append(files, entry.Name())
	}

	if len(files) == 0 {
		return nil, &ArtifactMissingError{Stage: StagePackage, Path: dir}
	}

	sort.Strings(files)

	return &InstallerArtifact{
		Dir:   dir,
		Files: files,
	}, nil
}
