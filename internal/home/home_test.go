package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-docfields")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-docfields" {
			t.Errorf("expected path /tmp/test-docfields, got %s", dir.Path())
		}
	})

	t.Run("with env override", func(t *testing.T) {
		t.Setenv(EnvVar, "/tmp/from-env")

		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/from-env" {
			t.Errorf("expected path /tmp/from-env, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		t.Setenv(EnvVar, "")

		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-docfields")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-docfields/config.yaml"},
		{"DBPath", dir.DBPath(), "/tmp/test-docfields/docfields.db"},
		{"PagesPath", dir.PagesPath(), "/tmp/test-docfields/pages"},
		{"PagesDir", dir.PagesDir("/scans/invoice-042.pdf"), "/tmp/test-docfields/pages/invoice-042"},
		{"PagesDir without extension", dir.PagesDir("receipt"), "/tmp/test-docfields/pages/receipt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, tt.got)
			}
		})
	}
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	homeDir := filepath.Join(tmpDir, "docfields-test")

	dir, err := New(homeDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist before EnsureExists")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}

	if _, err := os.Stat(dir.PagesPath()); os.IsNotExist(err) {
		t.Error("pages directory should exist after EnsureExists")
	}

	// Calling again should be idempotent
	if err := dir.EnsureExists(); err != nil {
		t.Errorf("second EnsureExists failed: %v", err)
	}
}

func TestDir_EnsurePagesDir(t *testing.T) {
	dir, _ := New(t.TempDir())

	pages, err := dir.EnsurePagesDir("statement.pdf")
	if err != nil {
		t.Fatalf("EnsurePagesDir failed: %v", err)
	}
	if pages != dir.PagesDir("statement.pdf") {
		t.Errorf("expected %s, got %s", dir.PagesDir("statement.pdf"), pages)
	}
	if info, err := os.Stat(pages); err != nil || !info.IsDir() {
		t.Errorf("expected pages directory to exist: %v", err)
	}
}

func TestDir_ConfigExists(t *testing.T) {
	dir, _ := New(t.TempDir())

	if dir.ConfigExists() {
		t.Error("config should not exist initially")
	}

	if err := os.WriteFile(dir.ConfigPath(), []byte("defaults: {}\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if !dir.ConfigExists() {
		t.Error("config should exist after writing")
	}
}
