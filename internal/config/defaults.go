package config

import (
	"errors"
	"fmt"
	"unicode"
)

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

// Entry is one documented configuration key.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// DefaultEntries flattens DefaultConfig into documented dotted keys. Every
// key is registered with viper, so each can be overridden from the
// environment (defaults.page_mode -> DOCFIELDS_DEFAULTS_PAGE_MODE).
func DefaultEntries() []Entry {
	d := DefaultConfig()
	var entries []Entry

	// OCR providers
	for _, name := range []string{"mistral"} {
		p := d.OCRProviders[name]
		prefix := "ocr_providers." + name + "."
		entries = append(entries,
			Entry{prefix + "type", p.Type, "OCR provider type"},
			Entry{prefix + "api_key", p.APIKey, "API key (uses environment variable)"},
			Entry{prefix + "rate_limit", p.RateLimit, "Rate limit in requests per second"},
			Entry{prefix + "enabled", p.Enabled, "Whether the provider is enabled"},
		)
	}

	// LLM providers
	for _, name := range []string{"openrouter", "openai"} {
		p := d.LLMProviders[name]
		prefix := "llm_providers." + name + "."
		entries = append(entries,
			Entry{prefix + "type", p.Type, "LLM provider type"},
			Entry{prefix + "model", p.Model, "Default model"},
			Entry{prefix + "api_key", p.APIKey, "API key (uses environment variable)"},
			Entry{prefix + "rate_limit", p.RateLimit, "Rate limit in requests per second"},
			Entry{prefix + "enabled", p.Enabled, "Whether the provider is enabled"},
		)
	}

	entries = append(entries,
		Entry{"defaults.llm_provider", d.Defaults.LLMProvider, "LLM provider used by extract"},
		Entry{"defaults.ocr_provider", d.Defaults.OCRProvider, "OCR provider used when no OCR file is given"},
		Entry{"defaults.page_mode", d.Defaults.PageMode, "combined: one run over all pages; individual: one run per page"},
		Entry{"defaults.structured", d.Defaults.Structured, "Request a JSON-schema response format from the model"},
		Entry{"defaults.temperature", d.Defaults.Temperature, "Sampling temperature"},
		Entry{"defaults.max_tokens", d.Defaults.MaxTokens, "Completion token limit"},
		Entry{"defaults.concurrency", d.Defaults.Concurrency, "Parallel page runs and OCR calls"},
		Entry{"defaults.render_dpi", d.Defaults.RenderDPI, "Resolution for rendering PDF pages to images"},
		Entry{"store.path", d.Store.Path, "Run database path (empty: {home}/docfields.db)"},
	)
	return entries
}

// GetDefault returns the default entry for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}
