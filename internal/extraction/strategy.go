package extraction

import (
	"fmt"

	"github.com/jackzampolin/docfields/internal/prompts/extract"
)

// PageMode controls how a multi-page document is presented.
type PageMode string

const (
	// PageModeCombined sends all pages in one request.
	PageModeCombined PageMode = "combined"
	// PageModeIndividual extracts each page as its own document.
	PageModeIndividual PageMode = "individual"
)

// ParsePageMode converts a page mode name; empty means combined.
func ParsePageMode(name string) (PageMode, error) {
	switch PageMode(name) {
	case "", PageModeCombined:
		return PageModeCombined, nil
	case PageModeIndividual:
		return PageModeIndividual, nil
	default:
		return "", fmt.Errorf("unknown page mode %q", name)
	}
}

// FirstPageOnly is the single-image policy: when a single-page strategy is
// chosen for a document that has more than one page image (individual page
// mode), only the first image and the first page of evidence are sent.
const FirstPageOnly = true

// SelectStrategy picks the strategy once per run. Multiple images in combined
// mode use a multi-page strategy; evidence availability picks the OCR or
// vision-only variant.
func SelectStrategy(imageCount int, mode PageMode, hasEvidence bool) extract.Strategy {
	multi := imageCount > 1 && mode != PageModeIndividual
	switch {
	case multi && hasEvidence:
		return extract.MultiWithEvidence
	case multi:
		return extract.MultiNoEvidence
	case hasEvidence:
		return extract.SingleWithEvidence
	default:
		return extract.SingleNoEvidence
	}
}
