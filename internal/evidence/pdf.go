package evidence

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFPageCount returns the number of pages in a PDF.
func PDFPageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(f, conf)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count for %s: %w", filepath.Base(path), err)
	}
	return n, nil
}

// PDFTokens reads the PDF text layer and turns every text row into a token.
// Token ids run across the whole document. Pages without a text layer come
// back empty; a document with no text at all is an EvidenceUnavailableError.
func PDFTokens(path string) (*OCRResult, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, &EvidenceUnavailableError{Reason: "open PDF " + filepath.Base(path), Err: err}
	}
	defer f.Close()

	var pages []Page
	nextID := 0
	for i := 1; i <= reader.NumPage(); i++ {
		page := Page{Number: i}
		p := reader.Page(i)
		if p.V.IsNull() {
			pages = append(pages, page)
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			pages = append(pages, page)
			continue
		}
		var lines []string
		for _, row := range rows {
			tok, ok := rowToken(row, nextID, i)
			if !ok {
				continue
			}
			page.Words = append(page.Words, tok)
			lines = append(lines, tok.Content)
			nextID++
		}
		page.Text = strings.Join(lines, "\n")
		pages = append(pages, page)
	}

	res := NewOCRResult(pages)
	if !res.HasTokens() {
		return nil, &EvidenceUnavailableError{Reason: "PDF " + filepath.Base(path) + " has no text layer"}
	}
	return res, nil
}

// rowToken joins the fragments of one text row and derives a bounding box
// from their positions.
func rowToken(row *pdflib.Row, id, page int) (Token, bool) {
	var sb strings.Builder
	minX, minY, maxX, maxY := 0.0, 0.0, 0.0, 0.0
	for i, t := range row.Content {
		sb.WriteString(t.S)
		x2, y2 := t.X+t.W, t.Y+t.FontSize
		if i == 0 {
			minX, minY, maxX, maxY = t.X, t.Y, x2, y2
			continue
		}
		minX, minY = min(minX, t.X), min(minY, t.Y)
		maxX, maxY = max(maxX, x2), max(maxY, y2)
	}
	content := strings.TrimSpace(sb.String())
	if content == "" {
		return Token{}, false
	}
	return Token{
		ID:      id,
		Content: content,
		Page:    page,
		Points:  [][]float64{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}},
	}, true
}

// RenderPages renders every page of a PDF to PNG with pdftoppm (poppler-utils)
// and returns the image paths in page order.
func RenderPages(ctx context.Context, pdfPath, outDir string, dpi int) ([]string, error) {
	count, err := PDFPageCount(pdfPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if dpi <= 0 {
		dpi = 200
	}

	paths := make([]string, 0, count)
	for n := 1; n <= count; n++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		prefix := filepath.Join(outDir, fmt.Sprintf("page_%04d", n))
		pageStr := strconv.Itoa(n)
		cmd := exec.CommandContext(ctx, "pdftoppm",
			"-png",
			"-f", pageStr,
			"-l", pageStr,
			"-r", strconv.Itoa(dpi),
			"-singlefile",
			pdfPath,
			prefix,
		)
		if output, err := cmd.CombinedOutput(); err != nil {
			return nil, fmt.Errorf("pdftoppm failed on page %d: %w (output: %s)", n, err, string(output))
		}
		out := prefix + ".png"
		if _, err := os.Stat(out); err != nil {
			return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
		}
		paths = append(paths, out)
	}
	return paths, nil
}
