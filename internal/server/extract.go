package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/jackzampolin/docfields/internal/evidence"
	"github.com/jackzampolin/docfields/internal/extraction"
	"github.com/jackzampolin/docfields/internal/prompts/extract"
)

// maxUploadMemory bounds the in-memory part of a multipart upload.
const maxUploadMemory = 64 << 20

// ExtractResponse lists the runs recorded for one upload: one run in
// combined page mode, one per page in individual mode.
type ExtractResponse struct {
	Runs   []*extraction.Run `json:"runs"`
	Failed int               `json:"failed,omitempty"`
}

// handleExtract handles POST /api/apps/{name}/extract.
//
// The body is multipart: "pages" carries the page images in order and an
// optional "ocr" part carries an OCR result document. Optional form values:
// document, instructions, provider, model, page_mode, structured, recognize.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	app, err := s.store.GetApp(ctx, r.PathValue("name"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if !app.InputMethods.FileUpload {
		writeError(w, http.StatusForbidden, fmt.Sprintf("app %s does not accept uploads", app.Name))
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["pages"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no pages uploaded")
		return
	}
	images := make([]evidence.Image, 0, len(files))
	for _, fh := range files {
		data, err := readPart(fh)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(data) == 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("page %s is empty", fh.Filename))
			return
		}
		images = append(images, evidence.Image{Path: fh.Filename, Data: data, Format: evidence.DetectFormat(data)})
	}

	defaults := s.defaults()
	var ocr *evidence.OCRResult
	if parts := r.MultipartForm.File["ocr"]; len(parts) > 0 {
		data, err := readPart(parts[0])
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if ocr, err = evidence.DecodeOCR(data); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else if r.FormValue("recognize") == "true" {
		name := defaults.OCRProvider
		provider, err := s.registry.GetOCR(name)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		if ocr, err = evidence.Recognize(ctx, provider, images, defaults.Concurrency); err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
	}

	modeName := defaults.PageMode
	if app.PageMode != "" {
		modeName = app.PageMode
	}
	if v := r.FormValue("page_mode"); v != "" {
		modeName = v
	}
	mode, err := extraction.ParsePageMode(modeName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	structured := defaults.Structured
	if v := r.FormValue("structured"); v != "" {
		if structured, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid structured: "+v)
			return
		}
	}

	providerName := r.FormValue("provider")
	if providerName == "" {
		providerName = defaults.LLMProvider
	}
	llm, err := s.registry.GetLLM(providerName)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	runner, err := extraction.NewRunner(extraction.Config{
		LLM:      llm,
		Store:    s.store,
		Resolver: s.resolver,
		Request: extract.RequestOptions{
			Model:       r.FormValue("model"),
			Temperature: defaults.Temperature,
			MaxTokens:   defaults.MaxTokens,
			Structured:  structured,
		},
		Logger: s.logger,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	document := r.FormValue("document")
	if document == "" {
		document = files[0].Filename
	}
	req := extraction.Request{
		App:          app.Name,
		Document:     document,
		Schema:       app.Schema,
		Instructions: extraction.JoinInstructions(app.CustomPrompt, r.FormValue("instructions")),
		Images:       images,
		OCR:          ocr,
		PageMode:     mode,
	}

	if mode == extraction.PageModeIndividual && len(images) > 1 {
		results, err := runner.RunPages(ctx, req, defaults.Concurrency)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		resp := ExtractResponse{Runs: make([]*extraction.Run, 0, len(results))}
		for _, res := range results {
			if res.Err != nil {
				resp.Failed++
			}
			if res.Run != nil {
				resp.Runs = append(resp.Runs, res.Run)
			}
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	run, _, err := runner.Run(ctx, req)
	if run == nil {
		writeErr(w, err)
		return
	}
	resp := ExtractResponse{Runs: []*extraction.Run{run}}
	if err != nil {
		// The failed run is recorded; report it with the error.
		s.logger.Warn("extraction failed", "app", app.Name, "run", run.ID, "error", err)
		resp.Failed = 1
	}
	writeJSON(w, http.StatusOK, resp)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return data, nil
}
