// Package queuefile persists the operator's project queue as YAML so the
// CLI can edit it between invocations.
package queuefile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/irgordon/laraprov/internal/core/domain"
)

type document struct {
	Projects []domain.Project `yaml:"projects"`
}

// Load reads the queue at path. A missing file is an empty queue.
func Load(path string) ([]domain.Project, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse queue file %s: %w", path, err)
	}
	return doc.Projects, nil
}

// Save writes projects to path, replacing it atomically.
func Save(path string, projects []domain.Project) error {
	if projects == nil {
		projects = []domain.Project{}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(document{Projects: projects}); err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".laraprov-queue-*")
	if err != nil {
		return fmt.Errorf("create temp queue file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write queue file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write queue file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// ParseProject splits a NAME=URL command-line project.
func ParseProject(arg string) (name, repoURL string, err error) {
	name, repoURL, ok := strings.Cut(arg, "=")
	if !ok {
		return "", "", fmt.Errorf("project %q: expected NAME=URL", arg)
	}
	return strings.TrimSpace(name), strings.TrimSpace(repoURL), nil
}
