package evidence

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/docfields/internal/providers"
)

// DefaultOCRConcurrency bounds in-flight OCR requests per document.
const DefaultOCRConcurrency = 4

// Recognize runs ocr over each image, one page per image, and assembles the
// recognized text into an OCRResult. Token ids run sequentially across pages
// in page order.
func Recognize(ctx context.Context, ocr providers.OCRProvider, images []Image, concurrency int) (*OCRResult, error) {
	if len(images) == 0 {
		return nil, &EvidenceUnavailableError{Reason: "no page images to recognize"}
	}
	if concurrency <= 0 {
		concurrency = DefaultOCRConcurrency
	}

	texts := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, img := range images {
		g.Go(func() error {
			res, err := ocr.ProcessImage(gctx, img.Data, i+1)
			if err != nil {
				return fmt.Errorf("failed to recognize page %d (%s): %w", i+1, img.Path, err)
			}
			texts[i] = res.Text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pages := make([]Page, len(texts))
	nextID := 0
	for i, text := range texts {
		pages[i] = PageFromText(i+1, text, nextID)
		nextID += len(pages[i].Words)
	}
	return NewOCRResult(pages), nil
}

// PageFromText splits recognized text into one token per non-blank line,
// numbering tokens from firstID. Markdown heading and emphasis markers are
// dropped from token content.
func PageFromText(number int, text string, firstID int) Page {
	page := Page{Number: number, Text: text}
	for _, line := range strings.Split(text, "\n") {
		content := cleanLine(line)
		if content == "" {
			continue
		}
		page.Words = append(page.Words, Token{
			ID:      firstID + len(page.Words),
			Content: content,
			Page:    number,
		})
	}
	return page
}

func cleanLine(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "#>")
	line = strings.ReplaceAll(line, "**", "")
	return strings.TrimSpace(line)
}
