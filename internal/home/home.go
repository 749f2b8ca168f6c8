package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDirName is the default name for the docfields home directory.
	DefaultDirName = ".docfields"

	// EnvVar overrides the home directory location.
	EnvVar = "DOCFIELDS_HOME"

	// PagesDirName is the subdirectory for rendered PDF page images.
	PagesDirName = "pages"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// DBFileName is the run database file name.
	DBFileName = "docfields.db"
)

// Dir represents the docfields home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses $DOCFIELDS_HOME, then ~/.docfields.
func New(path string) (*Dir, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// DBPath returns the path to the run database.
func (d *Dir) DBPath() string {
	return filepath.Join(d.path, DBFileName)
}

// PagesPath returns the root of the rendered page cache.
func (d *Dir) PagesPath() string {
	return filepath.Join(d.path, PagesDirName)
}

// PagesDir returns the directory holding rendered pages of one document.
// The document name is reduced to its base name without extension.
func (d *Dir) PagesDir(document string) string {
	base := filepath.Base(document)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "document"
	}
	return filepath.Join(d.PagesPath(), base)
}

// EnsurePagesDir creates the page directory for a document and returns it.
func (d *Dir) EnsurePagesDir(document string) (string, error) {
	dir := d.PagesDir(document)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create pages directory: %w", err)
	}
	return dir, nil
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Creating the pages directory also creates the parent
	if err := os.MkdirAll(d.PagesPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
