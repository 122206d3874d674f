package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DefaultArtifactName is the artifact file name used when the caller
// does not choose one.
const DefaultArtifactName = "container.go"

// WriteArtifact publishes the generated source as dir/name and returns
// the path. An existing artifact is authoritative: when the target path
// is already present it is returned untouched, whatever its content, and
// recompiling requires deleting it first. Publication is atomic: the
// source lands in a uniquely named temporary file and is renamed into
// place, so concurrent compilers and readers never observe a partial
// artifact.
func WriteArtifact(dir, name string, src []byte) (string, error) {
	if name == "" {
		name = DefaultArtifactName
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}

	target := filepath.Join(dir, name)
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp", uuid.NewString()))
	if err := os.WriteFile(tmp, src, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("publish artifact: %w", err)
	}
	return target, nil
}
