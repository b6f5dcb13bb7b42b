// Package workspace stores an addon project on disk: addon.yml for metadata and
// identifiers, scripts/main.js for the script text.
package workspace

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/eykd/mcaddon-go/internal/project"
)

const (
	// ProjectFile is the project descriptor file name.
	ProjectFile = "addon.yml"
	// ScriptFile is the script path relative to the project directory.
	ScriptFile = "scripts/main.js"
)

// ErrNotInitialized is returned by Load when the directory has no addon.yml.
var ErrNotInitialized = errors.New("project not initialized; run 'mca init' first")

// fileHeader is the first line of every addon.yml.
const fileHeader = "# mca addon project\n"

// projectFile is the YAML shape of addon.yml.
type projectFile struct {
	Metadata    project.Metadata    `yaml:"metadata"`
	Identifiers project.Identifiers `yaml:"identifiers"`
}

// Marshal renders the addon.yml content for p. The script is not included.
func Marshal(p *project.Project) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(projectFile{Metadata: p.Metadata, Identifiers: p.Identifiers}); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ProjectFile, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ProjectFile, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal parses addon.yml content and pairs it with script.
func Unmarshal(data []byte, script string) (*project.Project, error) {
	var pf projectFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ProjectFile, err)
	}
	return &project.Project{
		Metadata:      pf.Metadata,
		Identifiers:   pf.Identifiers,
		ScriptContent: script,
	}, nil
}

// Exists reports whether dir contains addon.yml.
func Exists(dir string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, ProjectFile))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Load reads the project stored in dir. A missing script file loads as an empty script.
func Load(dir string) (*project.Project, error) {
	data, err := os.ReadFile(filepath.Join(dir, ProjectFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("reading %s: %w", ProjectFile, err)
	}
	script, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(ScriptFile)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", ScriptFile, err)
	}
	return Unmarshal(data, string(script))
}

// Save writes p into dir, creating dir/scripts when needed. Each file is replaced
// atomically; the script is written first so addon.yml never points at a stale script
// from an interrupted save of a new project.
func Save(dir string, p *project.Project) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	scriptPath := filepath.Join(dir, filepath.FromSlash(ScriptFile))
	if err := os.MkdirAll(filepath.Dir(scriptPath), 0o755); err != nil {
		return fmt.Errorf("creating scripts directory: %w", err)
	}
	if err := WriteFileAtomic(scriptPath, []byte(p.ScriptContent), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", ScriptFile, err)
	}
	if err := WriteFileAtomic(filepath.Join(dir, ProjectFile), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", ProjectFile, err)
	}
	return nil
}

// WriteFileAtomic writes data to path via a temp file in the same directory and a rename.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".mca-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
