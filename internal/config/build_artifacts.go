// Adapted from internal/config/build_artifact_detector.go:
// sniff a handful of well-known manifest files to add the right exclude
// globs automatically, so a fresh checkout doesn't need a hand-written
// .codeintel.kdl just to skip "target/" or "node_modules/".
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// DetectBuildArtifactExcludes inspects well-known manifest files under root
// and returns glob patterns for their build-output directories.
func DetectBuildArtifactExcludes(root string) []string {
	var out []string
	out = append(out, detectNodeOutputs(root)...)
	out = append(out, detectRustOutputs(root)...)
	out = append(out, detectPythonOutputs(root)...)
	return out
}

func detectNodeOutputs(root string) []string {
	path := filepath.Join(root, "package.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var pkg map[string]any
	if json.Unmarshal(data, &pkg) != nil {
		return nil
	}
	patterns := []string{"**/node_modules/**"}
	if deps, ok := pkg["devDependencies"].(map[string]any); ok {
		if _, ok := deps["typescript"]; ok {
			patterns = append(patterns, "**/dist/**", "**/build/**")
		}
	}
	return patterns
}

func detectRustOutputs(root string) []string {
	path := filepath.Join(root, "Cargo.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var manifest struct {
		Package struct {
			Name string `toml:"name"`
		} `toml:"package"`
	}
	if toml.Unmarshal(data, &manifest) != nil {
		return nil
	}
	return []string{"**/target/**"}
}

func detectPythonOutputs(root string) []string {
	for _, name := range []string{"pyproject.toml", "setup.py"} {
		if _, err := os.Stat(filepath.Join(root, name)); err == nil {
			return []string{"**/__pycache__/**", "**/*.egg-info/**", "**/.venv/**"}
		}
	}
	return nil
}
