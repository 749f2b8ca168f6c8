package prompts

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"
)

// validKeyPattern matches valid prompt keys (alphanumeric with dots, underscores).
var validKeyPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._]*$`)

// ValidateKey reports whether key is a well-formed prompt key.
func ValidateKey(key string) error {
	if !validKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid prompt key: %s", key)
	}
	return nil
}

// MemoryOverrides is an in-process OverrideStore.
type MemoryOverrides struct {
	mu        sync.RWMutex
	overrides map[string]AppPromptOverride
}

// NewMemoryOverrides creates an empty override set.
func NewMemoryOverrides() *MemoryOverrides {
	return &MemoryOverrides{overrides: make(map[string]AppPromptOverride)}
}

func overrideKey(appName, key string) string {
	return appName + "/" + key
}

// GetPromptOverride implements OverrideStore.
func (m *MemoryOverrides) GetPromptOverride(_ context.Context, appName, key string) (*AppPromptOverride, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.overrides[overrideKey(appName, key)]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

// Set adds or replaces an override.
func (m *MemoryOverrides) Set(appName, key, text, note string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	o, ok := m.overrides[overrideKey(appName, key)]
	if !ok {
		o = AppPromptOverride{AppName: appName, PromptKey: key, CreatedAt: now}
	}
	o.Text, o.Note, o.UpdatedAt = text, note, now
	m.overrides[overrideKey(appName, key)] = o
	return nil
}

// Clear removes an override.
func (m *MemoryOverrides) Clear(appName, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overrides, overrideKey(appName, key))
}
