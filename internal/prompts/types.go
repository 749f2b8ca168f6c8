// Package prompts manages extraction prompt templates: embedded defaults plus
// per-app overrides.
//
// Resolution order for a given app:
//  1. AppPromptOverride (if the app has one for the key)
//  2. Embedded default (from .tmpl files compiled into the binary)
//
// Every resolved prompt carries the SHA256 of its text so a run record can
// name the exact prompt version it was built from.
package prompts

import (
	"time"
)

// AppPromptOverride replaces one embedded prompt for a single app.
type AppPromptOverride struct {
	AppName   string    `json:"app_name"`
	PromptKey string    `json:"prompt_key"`
	Text      string    `json:"text"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResolvedPrompt is the prompt text chosen for an app.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	IsOverride bool     `json:"is_override"`
	Hash       string   `json:"hash"`
}

// EmbeddedPrompt is a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: extract.single_ocr.user
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 of Text
}
