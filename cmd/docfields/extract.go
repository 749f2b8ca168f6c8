package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docfields/internal/extraction"
	"github.com/jackzampolin/docfields/internal/fieldschema"
	"github.com/jackzampolin/docfields/internal/output"
	"github.com/jackzampolin/docfields/internal/prompts/extract"
	"github.com/jackzampolin/docfields/internal/store"
)

type extractFlags struct {
	app          string
	schemaFile   string
	instructions string
	ocrFile      string
	recognize    bool
	ocrProvider  string
	provider     string
	model        string
	structured   bool
	pageMode     string
	concurrency  int
	dpi          int
	noSave       bool
}

var extractOpts extractFlags

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf | page images...>",
	Short: "Extract fields from a document",
	Long: `Extract schema fields from one document: a PDF or its page images in order.

The schema comes from a stored app (--app) or a schema file (--schema).
In combined page mode all pages go to the model in one request; in
individual mode every page is its own run.

Examples:
  docfields extract --app invoices invoice.pdf
  docfields extract --schema receipt.yaml --ocr receipt.ocr.json receipt.jpg
  docfields extract --app statements --recognize --page-mode individual p1.png p2.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defaults := e.config.Get().Defaults

		st, err := e.openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		app, err := resolveApp(ctx, st, extractOpts.app, extractOpts.schemaFile)
		if err != nil {
			return err
		}

		modeName := defaults.PageMode
		if app.PageMode != "" {
			modeName = app.PageMode
		}
		if extractOpts.pageMode != "" {
			modeName = extractOpts.pageMode
		}
		mode, err := extraction.ParsePageMode(modeName)
		if err != nil {
			return err
		}

		structured := defaults.Structured
		if cmd.Flags().Changed("structured") {
			structured = extractOpts.structured
		}
		concurrency := defaults.Concurrency
		if extractOpts.concurrency > 0 {
			concurrency = extractOpts.concurrency
		}
		dpi := defaults.RenderDPI
		if extractOpts.dpi > 0 {
			dpi = extractOpts.dpi
		}

		reg := e.registry()
		llm, err := e.llm(reg, extractOpts.provider)
		if err != nil {
			return err
		}

		doc, err := e.loadDocument(ctx, reg, args, loadOptions{
			OCRFile:     extractOpts.ocrFile,
			Recognize:   extractOpts.recognize,
			OCRProvider: extractOpts.ocrProvider,
			DPI:         dpi,
			Concurrency: concurrency,
		})
		if err != nil {
			return err
		}

		runCfg := extraction.Config{
			LLM:      llm,
			Resolver: e.resolver(st),
			Request: extract.RequestOptions{
				Model:       extractOpts.model,
				Temperature: defaults.Temperature,
				MaxTokens:   defaults.MaxTokens,
				Structured:  structured,
			},
			Logger: e.logger,
		}
		if !extractOpts.noSave {
			runCfg.Store = st
		}
		runner, err := extraction.NewRunner(runCfg)
		if err != nil {
			return err
		}

		req := extraction.Request{
			App:          app.Name,
			Document:     doc.Name,
			Schema:       app.Schema,
			Instructions: extraction.JoinInstructions(app.CustomPrompt, extractOpts.instructions),
			Images:       doc.Images,
			OCR:          doc.OCR,
			PageMode:     mode,
		}
		runs, err := extractDocument(ctx, runner, req, concurrency)
		if len(runs) == 1 {
			if perr := output.Print(runs[0]); perr != nil {
				return perr
			}
		} else if len(runs) > 0 {
			if perr := output.Print(runs); perr != nil {
				return perr
			}
		}
		return err
	},
}

// extractDocument runs req, page by page in individual mode, and returns
// every run it recorded.
func extractDocument(ctx context.Context, runner *extraction.Runner, req extraction.Request, concurrency int) ([]*extraction.Run, error) {
	if req.PageMode == extraction.PageModeIndividual && len(req.Images) > 1 {
		results, err := runner.RunPages(ctx, req, concurrency)
		runs := make([]*extraction.Run, 0, len(results))
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
			if r.Run != nil {
				runs = append(runs, r.Run)
			}
		}
		if err != nil {
			return runs, err
		}
		if failed > 0 {
			return runs, fmt.Errorf("%d of %d pages failed", failed, len(results))
		}
		return runs, nil
	}

	run, _, err := runner.Run(ctx, req)
	if run == nil {
		return nil, err
	}
	return []*extraction.Run{run}, err
}

// resolveApp loads the named app, or wraps a schema file as an unsaved app.
func resolveApp(ctx context.Context, st *store.Store, name, schemaFile string) (*store.App, error) {
	switch {
	case name != "" && schemaFile != "":
		return nil, fmt.Errorf("use either --app or --schema, not both")
	case name != "":
		return st.GetApp(ctx, name)
	case schemaFile != "":
		s, err := fieldschema.LoadFile(schemaFile)
		if err != nil {
			return nil, err
		}
		return &store.App{Schema: s}, nil
	default:
		return nil, fmt.Errorf("one of --app or --schema is required")
	}
}

func init() {
	f := extractCmd.Flags()
	f.StringVar(&extractOpts.app, "app", "", "stored app to extract with")
	f.StringVar(&extractOpts.schemaFile, "schema", "", "schema document to extract with (instead of --app)")
	f.StringVar(&extractOpts.instructions, "instructions", "", "extra instructions for this document")
	f.StringVar(&extractOpts.ocrFile, "ocr", "", "OCR result file (words/pages JSON)")
	f.BoolVar(&extractOpts.recognize, "recognize", false, "run an OCR provider when no other evidence is available")
	f.StringVar(&extractOpts.ocrProvider, "ocr-provider", "", "OCR provider for --recognize (default from config)")
	f.StringVar(&extractOpts.provider, "provider", "", "LLM provider (default from config)")
	f.StringVar(&extractOpts.model, "model", "", "model override")
	f.BoolVar(&extractOpts.structured, "structured", false, "request a JSON-schema response format")
	f.StringVar(&extractOpts.pageMode, "page-mode", "", "combined or individual (default from app, then config)")
	f.IntVar(&extractOpts.concurrency, "concurrency", 0, "parallel page runs and OCR calls (default from config)")
	f.IntVar(&extractOpts.dpi, "dpi", 0, "PDF render resolution (default from config)")
	f.BoolVar(&extractOpts.noSave, "no-save", false, "do not record the run")

	rootCmd.AddCommand(extractCmd)
}
