package extract

import (
	"github.com/google/uuid"

	"github.com/jackzampolin/docfields/internal/evidence"
	"github.com/jackzampolin/docfields/internal/fieldschema"
	"github.com/jackzampolin/docfields/internal/providers"
)

// RequestOptions tune the chat request built for a prompt.
type RequestOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int

	// Structured asks the provider for schema-constrained output. The
	// response is parsed the same way either way.
	Structured bool
}

// CreateRequest turns an assembled prompt and its page images into a chat
// request. Single-page strategies put the image ahead of the text;
// multi-page strategies put the text first, followed by the pages in order.
func CreateRequest(p *Prompt, s *fieldschema.Schema, images []evidence.Image, opts RequestOptions) (*providers.ChatRequest, error) {
	parts := make([]providers.ImagePart, 0, len(images))
	for _, img := range images {
		parts = append(parts, providers.ImagePart{Data: img.Data, Format: img.Format})
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	req := &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User, Images: parts, ImagesFirst: !p.Strategy.Multi()},
		},
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   maxTokens,
		RequestID:   uuid.New().String(),
	}

	if opts.Structured {
		rf, err := buildResponseFormat(s)
		if err != nil {
			return nil, err
		}
		req.ResponseFormat = rf
	}
	return req, nil
}
