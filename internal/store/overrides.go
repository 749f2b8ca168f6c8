package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/jackzampolin/docfields/internal/prompts"
)

func overrideKey(appName, key string) string {
	return appName + "/" + key
}

// GetPromptOverride implements prompts.OverrideStore. A missing override is
// (nil, nil).
func (s *Store) GetPromptOverride(ctx context.Context, appName, key string) (*prompts.AppPromptOverride, error) {
	if err := prompts.ValidateKey(key); err != nil {
		return nil, err
	}
	var o prompts.AppPromptOverride
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		return get(tx, bucketOverrides, overrideKey(appName, key), &o)
	})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// SetPromptOverride stores text as appName's version of the prompt key.
func (s *Store) SetPromptOverride(ctx context.Context, appName, key, text, note string) (*prompts.AppPromptOverride, error) {
	if err := prompts.ValidateKey(key); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: override text is empty", ErrInvalid)
	}

	var o prompts.AppPromptOverride
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketApps).Get([]byte(appName)) == nil {
			return fmt.Errorf("apps %q: %w", appName, ErrNotFound)
		}
		now := time.Now().UTC()
		if err := get(tx, bucketOverrides, overrideKey(appName, key), &o); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			o = prompts.AppPromptOverride{AppName: appName, PromptKey: key, CreatedAt: now}
		}
		o.Text, o.Note, o.UpdatedAt = text, note, now
		return put(tx, bucketOverrides, overrideKey(appName, key), o)
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// DeletePromptOverride removes an override so the app falls back to the
// embedded prompt.
func (s *Store) DeletePromptOverride(ctx context.Context, appName, key string) error {
	return s.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketOverrides)
		k := []byte(overrideKey(appName, key))
		if b.Get(k) == nil {
			return fmt.Errorf("prompt override %s: %w", overrideKey(appName, key), ErrNotFound)
		}
		return b.Delete(k)
	})
}

// ListPromptOverrides returns the overrides of one app ordered by key.
func (s *Store) ListPromptOverrides(ctx context.Context, appName string) ([]prompts.AppPromptOverride, error) {
	var out []prompts.AppPromptOverride
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		prefix := []byte(appName + "/")
		c := tx.Bucket(bucketOverrides).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var o prompts.AppPromptOverride
			if err := json.Unmarshal(v, &o); err != nil {
				return fmt.Errorf("failed to decode override %s: %w", k, err)
			}
			out = append(out, o)
		}
		return nil
	})
	return out, err
}
