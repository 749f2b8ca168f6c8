package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"go.etcd.io/bbolt"

	"github.com/jackzampolin/docfields/internal/fieldschema"
)

var appNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// InputMethods records how documents reach an app.
type InputMethods struct {
	FileUpload bool `json:"file_upload" yaml:"file_upload"`
	S3Sync     bool `json:"s3_sync" yaml:"s3_sync"`
}

// App is a named extraction configuration: a schema plus prompt settings.
type App struct {
	Name         string              `json:"name" yaml:"name"`
	DisplayName  string              `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Description  string              `json:"description,omitempty" yaml:"description,omitempty"`
	Schema       *fieldschema.Schema `json:"schema" yaml:"schema"`
	CustomPrompt string              `json:"custom_prompt,omitempty" yaml:"custom_prompt,omitempty"`
	PageMode     string              `json:"page_mode,omitempty" yaml:"page_mode,omitempty"`
	InputMethods InputMethods        `json:"input_methods" yaml:"input_methods"`
	CreatedAt    time.Time           `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at" yaml:"updated_at"`
}

// Label returns the display name, falling back to the name.
func (a *App) Label() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Name
}

// ValidateApp checks the app name and schema.
func ValidateApp(a *App) error {
	if !appNamePattern.MatchString(a.Name) {
		return fmt.Errorf("%w: app name %q: use lowercase letters, digits, '-' and '_'", ErrInvalid, a.Name)
	}
	if err := fieldschema.Validate(a.Schema); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// PutApp creates or replaces an app. CreatedAt is preserved on update.
func (s *Store) PutApp(ctx context.Context, a *App) error {
	if err := ValidateApp(a); err != nil {
		return err
	}
	return s.update(ctx, func(tx *bbolt.Tx) error {
		now := time.Now().UTC()
		var existing App
		if err := get(tx, bucketApps, a.Name, &existing); err == nil {
			a.CreatedAt = existing.CreatedAt
		} else {
			a.CreatedAt = now
		}
		a.UpdatedAt = now
		return put(tx, bucketApps, a.Name, a)
	})
}

// GetApp returns the app named name.
func (s *Store) GetApp(ctx context.Context, name string) (*App, error) {
	var a App
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		return get(tx, bucketApps, name, &a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListApps returns every app ordered by name.
func (s *Store) ListApps(ctx context.Context) ([]*App, error) {
	var apps []*App
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketApps).ForEach(func(k, v []byte) error {
			var a App
			if err := json.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("failed to decode app %s: %w", k, err)
			}
			apps = append(apps, &a)
			return nil
		})
	})
	return apps, err
}

// DeleteApp removes an app and its prompt overrides. Runs are kept.
func (s *Store) DeleteApp(ctx context.Context, name string) error {
	return s.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketApps)
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("apps %q: %w", name, ErrNotFound)
		}
		if err := b.Delete([]byte(name)); err != nil {
			return err
		}

		prefix := []byte(name + "/")
		c := tx.Bucket(bucketOverrides).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Seek(prefix) {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}
