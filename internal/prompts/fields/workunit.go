package fields

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jackzampolin/docfields/internal/evidence"
	"github.com/jackzampolin/docfields/internal/fieldschema"
	"github.com/jackzampolin/docfields/internal/providers"
	"github.com/jackzampolin/docfields/internal/response"
)

// Input contains the data needed for a schema suggestion request.
type Input struct {
	Image        evidence.Image
	Instructions string
	Model        string

	// SystemPromptOverride and UserPromptOverride replace the embedded
	// defaults when non-empty.
	SystemPromptOverride string
	UserPromptOverride   string
}

// CreateRequest builds the chat request: the image first, then the prompt.
func CreateRequest(in Input) (*providers.ChatRequest, error) {
	if len(in.Image.Data) == 0 {
		return nil, &evidence.EvidenceUnavailableError{Reason: "sample image is empty"}
	}
	system := in.SystemPromptOverride
	if system == "" {
		system = SystemPrompt()
	}
	user, err := UserPrompt(UserPromptData{Instructions: in.Instructions}, in.UserPromptOverride)
	if err != nil {
		return nil, err
	}

	return &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: system},
			{
				Role:        "user",
				Content:     user,
				Images:      []providers.ImagePart{{Data: in.Image.Data, Format: in.Image.Format}},
				ImagesFirst: true,
			},
		},
		Model:       in.Model,
		Temperature: 0.2,
		MaxTokens:   4096,
		RequestID:   uuid.New().String(),
	}, nil
}

// ParseResult decodes a suggested schema from model output. A bare field
// array is accepted and wrapped as {"fields": [...]}. The result is
// validated before it is returned.
func ParseResult(text string) (*fieldschema.Schema, error) {
	raw, err := response.ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	s, err := fieldschema.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("suggested schema is invalid: %w", err)
	}
	return s, nil
}
