package extract

import "fmt"

// Strategy is how a run presents the document to the model.
type Strategy string

const (
	// SingleWithEvidence sends one page image plus its OCR tokens.
	SingleWithEvidence Strategy = "single_ocr"
	// MultiWithEvidence sends every page image plus per-page OCR tokens.
	MultiWithEvidence Strategy = "multi_ocr"
	// SingleNoEvidence sends one page image only.
	SingleNoEvidence Strategy = "single_vision"
	// MultiNoEvidence sends every page image only.
	MultiNoEvidence Strategy = "multi_vision"
)

// Strategies lists every strategy.
var Strategies = []Strategy{SingleWithEvidence, MultiWithEvidence, SingleNoEvidence, MultiNoEvidence}

// Multi reports whether the strategy sends more than one page.
func (s Strategy) Multi() bool {
	return s == MultiWithEvidence || s == MultiNoEvidence
}

// UsesEvidence reports whether OCR tokens are part of the prompt.
func (s Strategy) UsesEvidence() bool {
	return s == SingleWithEvidence || s == MultiWithEvidence
}

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	for _, k := range Strategies {
		if s == k {
			return true
		}
	}
	return false
}

// ParseStrategy converts a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(name)
	if !s.Valid() {
		return "", fmt.Errorf("unknown extraction strategy %q", name)
	}
	return s, nil
}
