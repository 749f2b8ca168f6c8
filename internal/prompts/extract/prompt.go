// Package extract assembles field extraction prompts from a field schema,
// OCR evidence and per-app instructions.
package extract

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackzampolin/docfields/internal/evidence"
	"github.com/jackzampolin/docfields/internal/fieldschema"
	"github.com/jackzampolin/docfields/internal/prompts"
	"github.com/jackzampolin/docfields/internal/template"
)

//go:embed system_ocr.tmpl
var systemOCRPrompt string

//go:embed system_vision.tmpl
var systemVisionPrompt string

//go:embed single_ocr.tmpl
var singleOCRTmpl string

//go:embed multi_ocr.tmpl
var multiOCRTmpl string

//go:embed single_vision.tmpl
var singleVisionTmpl string

//go:embed multi_vision.tmpl
var multiVisionTmpl string

// Prompt keys
const (
	SystemOCRPromptKey    = "extract.system.ocr"
	SystemVisionPromptKey = "extract.system.vision"
	SingleOCRPromptKey    = "extract.single_ocr.user"
	MultiOCRPromptKey     = "extract.multi_ocr.user"
	SingleVisionPromptKey = "extract.single_vision.user"
	MultiVisionPromptKey  = "extract.multi_vision.user"
)

// RegisterPrompts registers the extraction prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{Key: SystemOCRPromptKey, Text: systemOCRPrompt, Description: "System prompt for extraction with OCR evidence"})
	r.Register(prompts.EmbeddedPrompt{Key: SystemVisionPromptKey, Text: systemVisionPrompt, Description: "System prompt for image-only extraction"})
	r.Register(prompts.EmbeddedPrompt{Key: SingleOCRPromptKey, Text: singleOCRTmpl, Description: "Single page image with OCR tokens"})
	r.Register(prompts.EmbeddedPrompt{Key: MultiOCRPromptKey, Text: multiOCRTmpl, Description: "All page images with per-page OCR tokens"})
	r.Register(prompts.EmbeddedPrompt{Key: SingleVisionPromptKey, Text: singleVisionTmpl, Description: "Single page image only"})
	r.Register(prompts.EmbeddedPrompt{Key: MultiVisionPromptKey, Text: multiVisionTmpl, Description: "All page images only"})
}

// PromptKeys returns the system and user prompt keys for a strategy.
func PromptKeys(s Strategy) (system, user string) {
	switch s {
	case MultiWithEvidence:
		return SystemOCRPromptKey, MultiOCRPromptKey
	case SingleNoEvidence:
		return SystemVisionPromptKey, SingleVisionPromptKey
	case MultiNoEvidence:
		return SystemVisionPromptKey, MultiVisionPromptKey
	default:
		return SystemOCRPromptKey, SingleOCRPromptKey
	}
}

func defaultTexts(s Strategy) (system, user string) {
	switch s {
	case MultiWithEvidence:
		return systemOCRPrompt, multiOCRTmpl
	case SingleNoEvidence:
		return systemVisionPrompt, singleVisionTmpl
	case MultiNoEvidence:
		return systemVisionPrompt, multiVisionTmpl
	default:
		return systemOCRPrompt, singleOCRTmpl
	}
}

// Input contains the data needed to build an extraction prompt.
type Input struct {
	Schema   *fieldschema.Schema
	Strategy Strategy

	// Pages is the OCR evidence. Single-page strategies use the first page;
	// strategies without evidence ignore it.
	Pages []evidence.Page

	// PageCount is the number of page images sent with the prompt. Defaults
	// to len(Pages), or 1.
	PageCount int

	// Instructions is the app's free-text custom prompt, appended verbatim.
	Instructions string

	// SystemPromptOverride and UserPromptOverride replace the embedded
	// defaults when non-empty.
	SystemPromptOverride string
	UserPromptOverride   string
}

// Prompt is an assembled extraction prompt.
type Prompt struct {
	Strategy   Strategy
	System     string
	User       string
	Targets    []Target
	SystemHash string
	UserHash   string
}

type userPromptData struct {
	Targets       string
	Template      string
	ExampleTokens string
	ExampleOutput string
	Instructions  string
	Evidence      string
	PageCount     int
}

// Build assembles the prompt for in. It performs no I/O.
func Build(in Input) (*Prompt, error) {
	if err := fieldschema.Validate(in.Schema); err != nil {
		return nil, err
	}
	if !in.Strategy.Valid() {
		return nil, fmt.Errorf("unknown extraction strategy %q", in.Strategy)
	}
	if in.Strategy.UsesEvidence() && len(in.Pages) == 0 {
		return nil, &evidence.EvidenceUnavailableError{Reason: fmt.Sprintf("strategy %s needs OCR pages", in.Strategy)}
	}

	rendered, err := template.Render(template.GenerateUnified(in.Schema).Combined())
	if err != nil {
		return nil, err
	}

	targets := Flatten(in.Schema)
	pageCount := in.PageCount
	if pageCount <= 0 {
		pageCount = max(len(in.Pages), 1)
	}
	data := userPromptData{
		Targets:       Numbered(targets),
		Template:      rendered,
		ExampleTokens: tokenLines(exampleTokens),
		ExampleOutput: exampleOutput,
		Instructions:  strings.TrimSpace(in.Instructions),
		PageCount:     pageCount,
	}
	if in.Strategy.UsesEvidence() {
		data.Evidence = renderEvidence(in.Strategy, in.Pages)
	}

	systemText, userText := defaultTexts(in.Strategy)
	if in.SystemPromptOverride != "" {
		systemText = in.SystemPromptOverride
	}
	if in.UserPromptOverride != "" {
		userText = in.UserPromptOverride
	}

	_, userKey := PromptKeys(in.Strategy)
	user, err := prompts.Render(userKey, userText, data)
	if err != nil {
		return nil, err
	}
	system := strings.TrimSpace(systemText)

	return &Prompt{
		Strategy:   in.Strategy,
		System:     system,
		User:       user,
		Targets:    targets,
		SystemHash: prompts.HashText(system),
		UserHash:   prompts.HashText(user),
	}, nil
}

func renderEvidence(s Strategy, pages []evidence.Page) string {
	if !s.Multi() {
		return tokenLines(pages[0].Words)
	}
	var sb strings.Builder
	for i, p := range pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "### Page %d\n", p.Number)
		if len(p.Words) == 0 {
			sb.WriteString("(no text recognized)")
			continue
		}
		sb.WriteString(tokenLines(p.Words))
	}
	return sb.String()
}

// ResolveOverrides fills the prompt overrides of in from the resolver's
// per-app overrides. Embedded defaults leave the fields empty.
func ResolveOverrides(ctx context.Context, r *prompts.Resolver, appName string, in *Input) error {
	if r == nil {
		return errors.New("nil prompt resolver")
	}
	systemKey, userKey := PromptKeys(in.Strategy)

	system, err := r.Resolve(ctx, systemKey, appName)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", systemKey, err)
	}
	if system.IsOverride {
		in.SystemPromptOverride = system.Text
	}

	user, err := r.Resolve(ctx, userKey, appName)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", userKey, err)
	}
	if user.IsOverride {
		in.UserPromptOverride = user.Text
	}
	return nil
}
