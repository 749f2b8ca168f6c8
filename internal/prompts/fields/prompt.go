// Package fields drafts a field schema from a sample document image.
package fields

import (
	_ "embed"
	"strings"

	"github.com/jackzampolin/docfields/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

// Prompt keys
const (
	SystemPromptKey = "fields.suggest.system"
	UserPromptKey   = "fields.suggest.user"
)

// SystemPrompt returns the system prompt for schema suggestion.
func SystemPrompt() string {
	return strings.TrimSpace(systemPrompt)
}

// UserPromptData holds the variables of the user prompt template.
type UserPromptData struct {
	Instructions string
}

// UserPrompt renders the user prompt, using override as the template when
// it is non-empty.
func UserPrompt(data UserPromptData, override string) (string, error) {
	text := userPromptTmpl
	if override != "" {
		text = override
	}
	data.Instructions = strings.TrimSpace(data.Instructions)
	return prompts.Render(UserPromptKey, text, data)
}

// RegisterPrompts registers the schema suggestion prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Schema suggestion system prompt",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Schema suggestion user prompt with field type guide and examples",
	})
}
