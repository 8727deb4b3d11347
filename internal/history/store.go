// Package history keeps a bounded, local log of release attempts in the
// shipver state directory.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the history file inside the state directory.
const FileName = "history.yaml"

// Status is the furthest point a release attempt reached.
type Status string

const (
	StatusNoRelease Status = "no-release"
	StatusDryRun    Status = "dry-run"
	StatusCommitted Status = "committed"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

// Entry is one release attempt.
type Entry struct {
	Timestamp time.Time `yaml:"timestamp"`
	Command   string    `yaml:"command"`
	Branch    string    `yaml:"branch,omitempty"`
	Version   string    `yaml:"version,omitempty"`
	Tag       string    `yaml:"tag,omitempty"`
	Bump      string    `yaml:"bump,omitempty"`
	Status    Status    `yaml:"status"`
	Commit    string    `yaml:"commit,omitempty"`
	URL       string    `yaml:"url,omitempty"`
	Stage     string    `yaml:"stage,omitempty"`
	Error     string    `yaml:"error,omitempty"`
	ExitCode  int       `yaml:"exit_code"`
	Duration  string    `yaml:"duration"`
}

// File is the on-disk document.
type File struct {
	Entries []Entry `yaml:"entries"`
}

// Path returns the history file location for a state directory.
func Path(stateDir string) string {
	return filepath.Join(stateDir, FileName)
}

// Load reads the history file. A missing file is an empty history.
func Load(stateDir string) (*File, error) {
	data, err := os.ReadFile(Path(stateDir))
	if os.IsNotExist(err) {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing history file: %w", err)
	}
	return &f, nil
}

// Save writes the history file through a temp file and rename.
func Save(stateDir string, f *File) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	tmp, err := os.CreateTemp(stateDir, ".history-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, Path(stateDir)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing history file: %w", err)
	}
	return nil
}

// Filter returns the entries matching status, newest first. An empty
// status matches everything. limit <= 0 means no limit.
func (f *File) Filter(status Status, limit int) []Entry {
	var out []Entry
	for i := len(f.Entries) - 1; i >= 0; i-- {
		e := f.Entries[i]
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Clear deletes the history file. A missing file is not an error.
func Clear(stateDir string) error {
	if err := os.Remove(Path(stateDir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing history file: %w", err)
	}
	return nil
}
