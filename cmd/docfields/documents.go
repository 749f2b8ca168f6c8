package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jackzampolin/docfields/internal/evidence"
	"github.com/jackzampolin/docfields/internal/providers"
)

// Evidence sources recorded in logs.
const (
	sourceOCRFile    = "ocr-file"
	sourcePDFText    = "pdf-text"
	sourceRecognized = "recognized"
	sourceNone       = "none"
)

type document struct {
	Name   string
	Images []evidence.Image
	OCR    *evidence.OCRResult
	Source string
}

type loadOptions struct {
	OCRFile     string
	Recognize   bool
	OCRProvider string
	DPI         int
	Concurrency int
}

// loadDocument reads one PDF or a set of page images in page order and
// gathers the best available evidence for them.
func (e *env) loadDocument(ctx context.Context, reg *providers.Registry, paths []string, opts loadOptions) (*document, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input files")
	}
	doc := &document{Name: filepath.Base(paths[0]), Source: sourceNone}

	isPDF := strings.EqualFold(filepath.Ext(paths[0]), ".pdf")
	switch {
	case isPDF && len(paths) > 1:
		return nil, fmt.Errorf("a PDF must be the only input")
	case isPDF:
		dir, err := e.home.EnsurePagesDir(paths[0])
		if err != nil {
			return nil, err
		}
		imagePaths, err := evidence.RenderPages(ctx, paths[0], dir, opts.DPI)
		if err != nil {
			return nil, err
		}
		if doc.Images, err = evidence.LoadImages(imagePaths); err != nil {
			return nil, err
		}
		if opts.OCRFile == "" {
			ocr, err := evidence.PDFTokens(paths[0])
			switch {
			case err != nil:
				e.logger.Debug("no usable PDF text layer", "file", paths[0], "error", err)
			case ocr.HasTokens():
				doc.OCR, doc.Source = ocr, sourcePDFText
			}
		}
	default:
		for _, p := range paths {
			if !evidence.IsImagePath(p) {
				return nil, fmt.Errorf("unsupported input %s: expected a PDF or png/jpeg/gif/webp images", p)
			}
		}
		images, err := evidence.LoadImages(paths)
		if err != nil {
			return nil, err
		}
		doc.Images = images
		if len(paths) > 1 {
			doc.Name = filepath.Base(filepath.Dir(paths[0]))
		}
	}

	if opts.OCRFile != "" {
		ocr, err := evidence.LoadOCRFile(opts.OCRFile)
		if err != nil {
			return nil, err
		}
		doc.OCR, doc.Source = ocr, sourceOCRFile
	}

	if doc.OCR == nil && opts.Recognize {
		provider, err := e.ocr(reg, opts.OCRProvider)
		if err != nil {
			return nil, err
		}
		ocr, err := evidence.Recognize(ctx, provider, doc.Images, opts.Concurrency)
		if err != nil {
			return nil, err
		}
		doc.OCR, doc.Source = ocr, sourceRecognized
	}

	e.logger.Debug("document loaded", "document", doc.Name, "pages", len(doc.Images), "evidence", doc.Source)
	return doc, nil
}
