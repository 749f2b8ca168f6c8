package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/docfields/internal/config"
	"github.com/jackzampolin/docfields/internal/evidence"
	"github.com/jackzampolin/docfields/internal/extraction"
	"github.com/jackzampolin/docfields/internal/prompts/extract"
	"github.com/jackzampolin/docfields/internal/providers"
	"github.com/jackzampolin/docfields/internal/store"
)

var (
	watchApp       string
	watchProvider  string
	watchRecognize bool
	watchExisting  bool
	watchSettle    time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Extract every document dropped into a directory",
	Long: `Watch a directory and extract each PDF or image file that appears in it
with the given app. Each file is one document. The app must accept file
uploads.

The config file is watched too: provider changes apply to the next
document without a restart.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dir := args[0]
		if watchApp == "" {
			return fmt.Errorf("--app is required")
		}

		e, err := loadEnv()
		if err != nil {
			return err
		}
		st, err := e.openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		app, err := st.GetApp(ctx, watchApp)
		if err != nil {
			return err
		}
		if !app.InputMethods.FileUpload {
			return fmt.Errorf("app %s does not accept file uploads", app.Name)
		}

		reg := e.registry()
		if e.config.File() != "" {
			e.config.OnChange(func(cfg *config.Config) {
				reg.Reload(cfg.ToProviderRegistryConfig(e.logger))
			})
			e.config.WatchConfig()
		}

		w := &watcher{env: e, store: st, app: app, registry: reg, done: make(map[string]bool)}
		return w.run(ctx, dir)
	},
}

type watcher struct {
	env      *env
	store    *store.Store
	app      *store.App
	registry *providers.Registry

	mu   sync.Mutex
	done map[string]bool
}

func (w *watcher) run(ctx context.Context, dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	concurrency := w.env.config.Get().Defaults.Concurrency
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1) + 1)

	files := make(chan string, 64)
	g.Go(func() error {
		defer close(files)
		return w.collect(gctx, fw, dir, files)
	})

	w.env.logger.Info("watching for documents", "dir", dir, "app", w.app.Name)
	for path := range files {
		g.Go(func() error {
			w.process(gctx, path)
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// collect turns filesystem events into settled document paths. A file is
// queued once it has seen no writes for the settle interval.
func (w *watcher) collect(ctx context.Context, fw *fsnotify.Watcher, dir string, files chan<- string) error {
	if watchExisting {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, entry := range entries {
			if path := filepath.Join(dir, entry.Name()); !entry.IsDir() && isDocument(path) {
				files <- path
			}
		}
	}

	ready := make(chan string, 64)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.env.logger.Warn("watch error", "error", err)
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !isDocument(ev.Name) {
				continue
			}
			if t, ok := timers[ev.Name]; ok {
				t.Reset(watchSettle)
				continue
			}
			name := ev.Name
			timers[name] = time.AfterFunc(watchSettle, func() { ready <- name })
		case path := <-ready:
			delete(timers, path)
			select {
			case files <- path:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (w *watcher) process(ctx context.Context, path string) {
	w.mu.Lock()
	if w.done[path] {
		w.mu.Unlock()
		return
	}
	w.done[path] = true
	w.mu.Unlock()

	logger := w.env.logger.With("app", w.app.Name, "file", path)
	defaults := w.env.config.Get().Defaults

	llm, err := w.env.llm(w.registry, watchProvider)
	if err != nil {
		logger.Error("no LLM provider", "error", err)
		return
	}
	doc, err := w.env.loadDocument(ctx, w.registry, []string{path}, loadOptions{
		Recognize:   watchRecognize,
		DPI:         defaults.RenderDPI,
		Concurrency: defaults.Concurrency,
	})
	if err != nil {
		logger.Error("failed to load document", "error", err)
		return
	}

	mode, err := extraction.ParsePageMode(firstNonEmpty(w.app.PageMode, defaults.PageMode))
	if err != nil {
		logger.Error("bad page mode", "error", err)
		return
	}
	runner, err := extraction.NewRunner(extraction.Config{
		LLM:      llm,
		Store:    w.store,
		Resolver: w.env.resolver(w.store),
		Request: extract.RequestOptions{
			Temperature: defaults.Temperature,
			MaxTokens:   defaults.MaxTokens,
			Structured:  defaults.Structured,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to create runner", "error", err)
		return
	}

	runs, err := extractDocument(ctx, runner, extraction.Request{
		App:          w.app.Name,
		Document:     doc.Name,
		Schema:       w.app.Schema,
		Instructions: w.app.CustomPrompt,
		Images:       doc.Images,
		OCR:          doc.OCR,
		PageMode:     mode,
	}, defaults.Concurrency)
	for _, r := range runs {
		logger.Info("document processed", "run_id", r.ID, "status", r.Status, "evidence", doc.Source)
	}
	if err != nil {
		logger.Error("extraction failed", "error", err)
	}
}

func isDocument(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(path), ".pdf") || evidence.IsImagePath(path)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	watchCmd.Flags().StringVar(&watchApp, "app", "", "app to extract with")
	watchCmd.Flags().StringVar(&watchProvider, "provider", "", "LLM provider (default from config)")
	watchCmd.Flags().BoolVar(&watchRecognize, "recognize", false, "run an OCR provider when a document has no text layer")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also process files already in the directory")
	watchCmd.Flags().DurationVar(&watchSettle, "settle", 2*time.Second, "quiet period before a new file is read")

	rootCmd.AddCommand(watchCmd)
}
