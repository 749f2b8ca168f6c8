// Package evidence models the OCR tokens and page images an extraction run
// draws on.
package evidence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Token is one recognized text unit. Index trees refer to tokens by ID.
type Token struct {
	ID        int         `json:"id"`
	Content   string      `json:"content"`
	Points    [][]float64 `json:"points,omitempty"`
	RecScore  *float64    `json:"rec_score,omitempty"`
	DetScore  *float64    `json:"det_score,omitempty"`
	Page      int         `json:"page,omitempty"`
	Direction string      `json:"direction,omitempty"`
}

// Page holds the tokens recognized on one page.
type Page struct {
	Number int     `json:"page"`
	Words  []Token `json:"words"`
	Text   string  `json:"text,omitempty"`
}

// OCRResult is an OCR document as produced by the recognition service.
// Either Words (single page) or Pages is populated; Pages returns the
// normalized view.
type OCRResult struct {
	Words      []Token `json:"words,omitempty"`
	Text       string  `json:"text,omitempty"`
	TotalPages int     `json:"total_pages,omitempty"`

	pages []Page
}

type ocrDocument struct {
	Words      []Token         `json:"words"`
	Text       string          `json:"text"`
	TotalPages int             `json:"total_pages"`
	Pages      json.RawMessage `json:"pages"`
}

// DecodeOCR parses an OCR result document. "pages" may be a list of page
// objects or a single page object; entries that are not objects are skipped.
func DecodeOCR(data []byte) (*OCRResult, error) {
	var doc ocrDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse OCR result: %w", err)
	}

	res := &OCRResult{Words: doc.Words, Text: doc.Text, TotalPages: doc.TotalPages}

	raw := bytes.TrimSpace(doc.Pages)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse OCR pages: %w", err)
		}
		for _, e := range entries {
			e = bytes.TrimSpace(e)
			if len(e) == 0 || e[0] != '{' {
				continue
			}
			var p Page
			if err := json.Unmarshal(e, &p); err != nil {
				return nil, fmt.Errorf("failed to parse OCR page %d: %w", len(res.pages)+1, err)
			}
			res.pages = append(res.pages, p)
		}
	case raw[0] == '{':
		var p Page
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to parse OCR page: %w", err)
		}
		res.pages = []Page{p}
	}
	return res, nil
}

// LoadOCRFile reads and decodes an OCR result file.
func LoadOCRFile(path string) (*OCRResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read OCR file: %w", err)
	}
	return DecodeOCR(data)
}

// NewOCRResult builds a result from already-split pages.
func NewOCRResult(pages []Page) *OCRResult {
	return &OCRResult{pages: pages, TotalPages: len(pages)}
}

// Pages returns the result as a list of pages. Without page data the
// top-level words become page 1. Pages without a number are numbered by
// position.
func (r *OCRResult) Pages() []Page {
	if r == nil {
		return nil
	}
	if len(r.pages) == 0 {
		return []Page{{Number: 1, Words: r.Words, Text: r.Text}}
	}
	out := make([]Page, len(r.pages))
	for i, p := range r.pages {
		if p.Number == 0 {
			p.Number = i + 1
		}
		out[i] = p
	}
	return out
}

// Tokens returns every token across all pages in page order.
func (r *OCRResult) Tokens() []Token {
	var out []Token
	for _, p := range r.Pages() {
		out = append(out, p.Words...)
	}
	return out
}

// HasTokens reports whether any page carries at least one token.
func (r *OCRResult) HasTokens() bool {
	for _, p := range r.Pages() {
		if len(p.Words) > 0 {
			return true
		}
	}
	return false
}

// PlainText returns the recognized text, falling back to token contents
// joined by newlines.
func (r *OCRResult) PlainText() string {
	if r == nil {
		return ""
	}
	if r.Text != "" {
		return r.Text
	}
	var lines []string
	for _, t := range r.Tokens() {
		lines = append(lines, t.Content)
	}
	return strings.Join(lines, "\n")
}

// MarshalJSON writes the normalized form.
func (r *OCRResult) MarshalJSON() ([]byte, error) {
	type out struct {
		Words      []Token `json:"words,omitempty"`
		Text       string  `json:"text,omitempty"`
		TotalPages int     `json:"total_pages,omitempty"`
		Pages      []Page  `json:"pages,omitempty"`
	}
	return json.Marshal(out{Words: r.Words, Text: r.Text, TotalPages: r.TotalPages, Pages: r.pages})
}
