package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// 1x1 PNG
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

func TestMistralOCRClient_ProcessImage(t *testing.T) {
	t.Run("successful OCR", func(t *testing.T) {
		var req mistralOCRRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/ocr" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(map[string]any{
				"model": "mistral-ocr-latest",
				"pages": []map[string]any{{
					"index":      0,
					"markdown":   "# Invoice\n\nTotal: 12.50",
					"dimensions": map[string]int{"width": 800, "height": 1000, "dpi": 200},
				}},
				"usage_info": map[string]int{"pages_processed": 1},
			})
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "k", BaseURL: server.URL, RateLimit: 1000})
		result, err := client.ProcessImage(context.Background(), tinyPNG, 3)
		if err != nil {
			t.Fatalf("ProcessImage() error = %v", err)
		}
		if !result.Success {
			t.Error("expected Success = true")
		}
		if result.Text != "# Invoice\n\nTotal: 12.50" {
			t.Errorf("Text = %q", result.Text)
		}
		if result.Metadata["page_num"] != 3 {
			t.Errorf("page_num = %v, want 3", result.Metadata["page_num"])
		}
		if result.CostUSD != MistralOCRCostPerPage {
			t.Errorf("CostUSD = %f", result.CostUSD)
		}
		if !strings.HasPrefix(req.Document.ImageURL.URL, "data:image/png;base64,") {
			t.Errorf("image url = %q, want png data url", req.Document.ImageURL.URL)
		}
	})

	t.Run("error message extracted", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"unsupported image","type":"invalid_request"}}`))
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "k", BaseURL: server.URL, RateLimit: 1000})
		result, err := client.ProcessImage(context.Background(), tinyPNG, 1)
		if err == nil || !strings.Contains(err.Error(), "unsupported image") {
			t.Fatalf("error = %v, want unsupported image", err)
		}
		if result.Success {
			t.Error("expected Success = false")
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"model":"m","pages":[{"index":0,"markdown":"ok"}]}`))
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{
			APIKey: "k", BaseURL: server.URL, RateLimit: 1000, RetryDelay: time.Millisecond,
		})
		result, err := client.ProcessImage(context.Background(), tinyPNG, 1)
		if err != nil {
			t.Fatalf("ProcessImage() error = %v", err)
		}
		if result.RetryCount != 1 {
			t.Errorf("RetryCount = %d, want 1", result.RetryCount)
		}
	})

	t.Run("no pages", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"model":"m","pages":[]}`))
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "k", BaseURL: server.URL, RateLimit: 1000})
		if _, err := client.ProcessImage(context.Background(), tinyPNG, 1); err == nil {
			t.Error("expected error for empty pages")
		}
	})
}
