package evidence

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOCR_Pages(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantPages []int
		wantWords []int
	}{
		{
			name:      "legacy words",
			doc:       `{"words":[{"id":0,"content":"Acme Corp"},{"id":1,"content":"Invoice"}],"text":"Acme Corp\nInvoice"}`,
			wantPages: []int{1},
			wantWords: []int{2},
		},
		{
			name:      "page list",
			doc:       `{"pages":[{"page":1,"words":[{"id":0,"content":"a"}]},{"page":2,"words":[{"id":1,"content":"b"},{"id":2,"content":"c"}]}]}`,
			wantPages: []int{1, 2},
			wantWords: []int{1, 2},
		},
		{
			name:      "single page object",
			doc:       `{"pages":{"page":3,"words":[{"id":7,"content":"x"}]}}`,
			wantPages: []int{3},
			wantWords: []int{1},
		},
		{
			name:      "unnumbered pages and junk entries",
			doc:       `{"pages":[{"words":[]},"junk",{"words":[{"id":0,"content":"y"}]}]}`,
			wantPages: []int{1, 2},
			wantWords: []int{0, 1},
		},
		{
			name:      "empty document",
			doc:       `{}`,
			wantPages: []int{1},
			wantWords: []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := DecodeOCR([]byte(tt.doc))
			require.NoError(t, err)

			pages := res.Pages()
			var nums, words []int
			for _, p := range pages {
				nums = append(nums, p.Number)
				words = append(words, len(p.Words))
			}
			assert.Equal(t, tt.wantPages, nums)
			assert.Equal(t, tt.wantWords, words)
		})
	}
}

func TestDecodeOCR_Invalid(t *testing.T) {
	_, err := DecodeOCR([]byte(`{"words": "nope"`))
	assert.Error(t, err)
}

func TestOCRResult_TextAndTokens(t *testing.T) {
	score := 0.98
	res := NewOCRResult([]Page{
		{Number: 1, Words: []Token{{ID: 0, Content: "Acme Corp", RecScore: &score}}},
		{Number: 2, Words: []Token{{ID: 1, Content: "Total 12.50"}}},
	})
	assert.True(t, res.HasTokens())
	assert.Equal(t, "Acme Corp\nTotal 12.50", res.PlainText())
	assert.Len(t, res.Tokens(), 2)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	back, err := DecodeOCR(b)
	require.NoError(t, err)
	assert.Equal(t, res.Pages(), back.Pages())

	empty := NewOCRResult(nil)
	assert.False(t, empty.HasTokens())
}

func TestLoadOCRFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ocr.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"words":[{"id":0,"content":"hello","page":1}]}`), 0o644))

	res, err := LoadOCRFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", res.PlainText())

	_, err = LoadOCRFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	pngHeader := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	path := filepath.Join(dir, "page.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o644))

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, "png", img.Format)
	assert.Equal(t, "image/png", img.MIMEType())

	empty := filepath.Join(dir, "empty.jpg")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = LoadImage(empty)
	var eu *EvidenceUnavailableError
	assert.True(t, errors.As(err, &eu))

	_, err = LoadImages([]string{path, filepath.Join(dir, "missing.png")})
	assert.True(t, errors.As(err, &eu))
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, "jpeg", DetectFormat([]byte("\xff\xd8\xff\xe0")))
	assert.Equal(t, "gif", DetectFormat([]byte("GIF89a")))
	assert.Equal(t, "jpeg", DetectFormat([]byte("plain text")))
}

func TestIsImagePath(t *testing.T) {
	assert.True(t, IsImagePath("scan.JPG"))
	assert.True(t, IsImagePath("a/b/page.webp"))
	assert.False(t, IsImagePath("doc.pdf"))
}

func TestPDFTokens_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	_, err := PDFTokens(path)
	var eu *EvidenceUnavailableError
	assert.True(t, errors.As(err, &eu))

	_, err = PDFPageCount(path)
	assert.Error(t, err)
}
