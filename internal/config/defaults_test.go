package config

import (
	"errors"
	"testing"
)

func TestDefaultEntries(t *testing.T) {
	entries := DefaultEntries()

	if len(entries) == 0 {
		t.Fatal("DefaultEntries() returned empty slice")
	}

	requiredKeys := []string{
		"ocr_providers.mistral.type",
		"ocr_providers.mistral.api_key",
		"llm_providers.openrouter.type",
		"llm_providers.openai.model",
		"defaults.llm_provider",
		"defaults.page_mode",
		"defaults.structured",
		"defaults.concurrency",
		"store.path",
	}

	keys := make(map[string]bool)
	for _, e := range entries {
		if err := ValidateKey(e.Key); err != nil {
			t.Errorf("default key %q is invalid: %v", e.Key, err)
		}
		if keys[e.Key] {
			t.Errorf("duplicate default key %q", e.Key)
		}
		keys[e.Key] = true
		if e.Description == "" {
			t.Errorf("key %q has no description", e.Key)
		}
	}

	for _, key := range requiredKeys {
		if !keys[key] {
			t.Errorf("DefaultEntries() missing required key: %s", key)
		}
	}
}

func TestGetDefault(t *testing.T) {
	t.Run("existing_key", func(t *testing.T) {
		entry := GetDefault("ocr_providers.mistral.type")
		if entry == nil {
			t.Fatal("GetDefault() returned nil for existing key")
		}
		if entry.Value != "mistral-ocr" {
			t.Errorf("GetDefault() Value = %v, want %q", entry.Value, "mistral-ocr")
		}
	})

	t.Run("non_existent_key", func(t *testing.T) {
		entry := GetDefault("does.not.exist")
		if entry != nil {
			t.Errorf("GetDefault() = %v, want nil for non-existent key", entry)
		}
	})
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"defaults.page_mode", false},
		{"llm_providers.my-local.model", false},
		{"", true},
		{".leading", true},
		{"trailing.", true},
		{"has space", true},
		{"has/slash", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidKey) {
				t.Errorf("ValidateKey(%q) error should wrap ErrInvalidKey", tt.key)
			}
		})
	}
}
