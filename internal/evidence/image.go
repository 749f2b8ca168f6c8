package evidence

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Image is one page image sent to the model.
type Image struct {
	Path   string
	Data   []byte
	Format string // png, jpeg, gif, webp
}

// MIMEType returns the image/* content type for the format.
func (i Image) MIMEType() string {
	return "image/" + i.Format
}

// LoadImage reads an image file and sniffs its format. Unknown content is
// treated as jpeg.
func LoadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, &EvidenceUnavailableError{Reason: "read image " + filepath.Base(path), Err: err}
	}
	if len(data) == 0 {
		return Image{}, &EvidenceUnavailableError{Reason: "empty image " + filepath.Base(path)}
	}
	return Image{Path: path, Data: data, Format: DetectFormat(data)}, nil
}

// LoadImages reads images in order.
func LoadImages(paths []string) ([]Image, error) {
	images := make([]Image, 0, len(paths))
	for _, p := range paths {
		img, err := LoadImage(p)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

// DetectFormat returns the image format name for data.
func DetectFormat(data []byte) string {
	ct := http.DetectContentType(data)
	if format, ok := strings.CutPrefix(ct, "image/"); ok {
		switch format {
		case "png", "jpeg", "gif", "webp":
			return format
		}
	}
	return "jpeg"
}

// IsImagePath reports whether path has a supported image extension.
func IsImagePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}
