package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/docfields/internal/evidence"
	"github.com/jackzampolin/docfields/internal/fieldschema"
	"github.com/jackzampolin/docfields/internal/prompts"
	"github.com/jackzampolin/docfields/internal/prompts/extract"
	"github.com/jackzampolin/docfields/internal/providers"
	"github.com/jackzampolin/docfields/internal/response"
)

// RunStore persists run records.
type RunStore interface {
	SaveRun(ctx context.Context, run *Run) error
}

// Config holds the collaborators of a Runner.
type Config struct {
	// LLM is required.
	LLM providers.LLMClient

	// Store is optional; without it runs are not persisted.
	Store RunStore

	// Resolver supplies per-app prompt overrides. Optional.
	Resolver *prompts.Resolver

	// Request tunes every chat request.
	Request extract.RequestOptions

	Logger *slog.Logger
}

// JoinInstructions joins the non-blank instruction parts with blank lines,
// app-level instructions first.
func JoinInstructions(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

// Runner executes extraction runs.
type Runner struct {
	llm      providers.LLMClient
	store    RunStore
	resolver *prompts.Resolver
	opts     extract.RequestOptions
	logger   *slog.Logger
}

// NewRunner creates a runner from cfg.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.LLM == nil {
		return nil, errors.New("extraction runner requires an LLM client")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		llm:      cfg.LLM,
		store:    cfg.Store,
		resolver: cfg.Resolver,
		opts:     cfg.Request,
		logger:   logger,
	}, nil
}

// Request describes one document to extract.
type Request struct {
	App          string
	Document     string
	Schema       *fieldschema.Schema
	Instructions string

	// Images are the page images in page order.
	Images []evidence.Image

	// OCR is the recognized evidence, if any.
	OCR *evidence.OCRResult

	PageMode PageMode
}

// Run performs one extraction. Schema errors are returned before a run is
// created. Other failures mark the run failed and are returned alongside it.
// A model response that is not valid JSON completes the run with the error
// recorded on it.
func (r *Runner) Run(ctx context.Context, req Request) (*Run, *response.Result, error) {
	if err := fieldschema.Validate(req.Schema); err != nil {
		return nil, nil, err
	}

	run := NewRun(req.App, req.Document)
	logger := r.logger.With("run_id", run.ID, "app", req.App)
	if err := r.save(ctx, run); err != nil {
		return nil, nil, err
	}

	var pages []evidence.Page
	if req.OCR.HasTokens() {
		pages = req.OCR.Pages()
	}
	strategy := SelectStrategy(len(req.Images), req.PageMode, len(pages) > 0)
	run.Strategy = strategy

	images := req.Images
	if !strategy.Multi() && FirstPageOnly {
		if len(images) > 1 {
			images = images[:1]
		}
		if len(pages) > 1 {
			pages = pages[:1]
		}
	}
	run.PageCount = len(images)

	if len(images) == 0 {
		return r.fail(ctx, run, &evidence.EvidenceUnavailableError{Reason: "no page images"})
	}
	if err := run.Transition(StatusProcessing); err != nil {
		return run, nil, err
	}
	if err := r.save(ctx, run); err != nil {
		return run, nil, err
	}
	logger.Info("extraction started", "strategy", strategy, "pages", len(images))

	in := extract.Input{
		Schema:       req.Schema,
		Strategy:     strategy,
		Pages:        pages,
		PageCount:    len(images),
		Instructions: req.Instructions,
	}
	if r.resolver != nil {
		if err := extract.ResolveOverrides(ctx, r.resolver, req.App, &in); err != nil {
			return r.fail(ctx, run, err)
		}
	}
	prompt, err := extract.Build(in)
	if err != nil {
		return r.fail(ctx, run, err)
	}
	run.SystemPromptHash = prompt.SystemHash
	run.UserPromptHash = prompt.UserHash

	chatReq, err := extract.CreateRequest(prompt, req.Schema, images, r.opts)
	if err != nil {
		return r.fail(ctx, run, err)
	}

	start := time.Now()
	result, err := r.llm.Chat(ctx, chatReq)
	if result != nil {
		run.Usage = &Usage{
			Provider:         r.llm.Name(),
			Model:            result.ModelUsed,
			PromptTokens:     result.PromptTokens,
			CompletionTokens: result.CompletionTokens,
			ReasoningTokens:  result.ReasoningTokens,
			TotalTokens:      result.TotalTokens,
			CostUSD:          result.CostUSD,
			Attempts:         result.Attempts,
			DurationSeconds:  time.Since(start).Seconds(),
		}
	}
	if err != nil {
		return r.fail(ctx, run, fmt.Errorf("model call failed: %w", err))
	}

	parsed := response.Parse(result.Content, req.Schema)
	if err := run.Complete(parsed); err != nil {
		return r.fail(ctx, run, err)
	}
	if err := r.save(ctx, run); err != nil {
		return run, parsed, err
	}

	if parsed.Err != nil {
		logger.Warn("model response was not valid JSON", "error", parsed.Err)
	} else {
		logger.Info("extraction completed", "issues", len(parsed.Issues))
	}
	return run, parsed, nil
}

// PageResult is the outcome of one page in RunPages.
type PageResult struct {
	Page   int
	Run    *Run
	Result *response.Result
	Err    error
}

// RunPages extracts every page of req as its own single-page run, at most
// concurrency at a time. Per-page failures are reported in the results; the
// returned error is set only when the context ends.
func (r *Runner) RunPages(ctx context.Context, req Request, concurrency int) ([]PageResult, error) {
	if err := fieldschema.Validate(req.Schema); err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var pages []evidence.Page
	if req.OCR.HasTokens() {
		pages = req.OCR.Pages()
	}

	results := make([]PageResult, len(req.Images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, img := range req.Images {
		pageReq := req
		pageReq.Images = []evidence.Image{img}
		pageReq.PageMode = PageModeIndividual
		pageReq.OCR = pageEvidence(pages, i)
		pageReq.Document = fmt.Sprintf("%s#page=%d", req.Document, i+1)

		g.Go(func() error {
			run, res, err := r.Run(gctx, pageReq)
			results[i] = PageResult{Page: i + 1, Run: run, Result: res, Err: err}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// pageEvidence returns the OCR for page index i, matched by page number.
func pageEvidence(pages []evidence.Page, i int) *evidence.OCRResult {
	for _, p := range pages {
		if p.Number == i+1 {
			p.Number = 1
			return evidence.NewOCRResult([]evidence.Page{p})
		}
	}
	return nil
}

func (r *Runner) fail(ctx context.Context, run *Run, cause error) (*Run, *response.Result, error) {
	if err := run.Fail(cause); err != nil {
		return run, nil, errors.Join(cause, err)
	}
	r.logger.Error("extraction failed", "run_id", run.ID, "app", run.App, "error", cause)
	if err := r.save(ctx, run); err != nil {
		return run, nil, errors.Join(cause, err)
	}
	return run, nil, cause
}

func (r *Runner) save(ctx context.Context, run *Run) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}
