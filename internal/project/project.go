// Package project reads the metadata of the Python project being published.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Metadata is the subset of project metadata the release pipeline needs.
type Metadata struct {
	Name    string
	Version string
	Source  string // file the metadata came from, empty when derived from the directory
}

// pyproject mirrors the parts of pyproject.toml that carry the name.
type pyproject struct {
	Project struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name    string `toml:"name"`
			Version string `toml:"version"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// Read returns the metadata of the project rooted at dir. The [project]
// table of pyproject.toml wins over [tool.poetry]; without either the
// directory name is used.
func Read(dir string) (*Metadata, error) {
	path := filepath.Join(dir, "pyproject.toml")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fromDir(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("reading pyproject.toml: %w", err)
	}

	var doc pyproject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing pyproject.toml: %w", err)
	}

	switch {
	case doc.Project.Name != "":
		return &Metadata{Name: doc.Project.Name, Version: doc.Project.Version, Source: path}, nil
	case doc.Tool.Poetry.Name != "":
		return &Metadata{Name: doc.Tool.Poetry.Name, Version: doc.Tool.Poetry.Version, Source: path}, nil
	}
	return fromDir(dir)
}

func fromDir(dir string) (*Metadata, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &Metadata{Name: filepath.Base(abs)}, nil
}
