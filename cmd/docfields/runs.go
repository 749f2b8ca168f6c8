package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docfields/internal/extraction"
	"github.com/jackzampolin/docfields/internal/fieldschema"
	"github.com/jackzampolin/docfields/internal/metrics"
	"github.com/jackzampolin/docfields/internal/output"
	"github.com/jackzampolin/docfields/internal/store"
)

var (
	runListApp     string
	runListStatus  string
	runListLimit   int
	runValuesFile  string
	runIndicesFile string

	runStatsApp      string
	runStatsProvider string
	runStatsModel    string
	runStatsBy       string
	runStatsSince    time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Inspect and correct extraction runs",
}

var runGetCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Show a run with its values and indices",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		st, err := e.openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return output.Print(run)
	},
}

// runSummary is the list view of a run.
type runSummary struct {
	ID       string            `json:"id"`
	App      string            `json:"app"`
	Document string            `json:"document,omitempty"`
	Status   extraction.Status `json:"status"`
	Strategy string            `json:"strategy,omitempty"`
	Error    string            `json:"error,omitempty"`
	CostUSD  float64           `json:"cost_usd,omitempty"`
	Created  string            `json:"created"`
}

var runListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		st, err := e.openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(cmd.Context(), store.RunFilter{
			App:    runListApp,
			Status: extraction.Status(runListStatus),
			Limit:  runListLimit,
		})
		if err != nil {
			return err
		}
		out := make([]runSummary, 0, len(runs))
		for _, r := range runs {
			s := runSummary{
				ID:       r.ID,
				App:      r.App,
				Document: r.Document,
				Status:   r.Status,
				Strategy: string(r.Strategy),
				Error:    r.Error,
				Created:  r.CreatedAt.Format("2006-01-02 15:04:05"),
			}
			if r.Usage != nil {
				s.CostUSD = r.Usage.CostUSD
			}
			out = append(out, s)
		}
		return output.Print(out)
	},
}

var runUpdateCmd = &cobra.Command{
	Use:   "update <run-id>",
	Short: "Replace the values of a completed run with corrected ones",
	Long: `Replace the values of a completed run with corrected ones.

The new values are read from --values (a JSON file, or - for stdin). When
the run's app still exists the values are checked against its schema.

Corrected evidence indices may be given with --indices. The stored index
tree is rebuilt to mirror the new values either way: entries that still line
up are kept and the rest are emptied.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if runValuesFile == "" {
			return fmt.Errorf("--values is required")
		}
		if runValuesFile == "-" && runIndicesFile == "-" {
			return fmt.Errorf("only one of --values and --indices can read stdin")
		}
		values, err := readValues(runValuesFile)
		if err != nil {
			return err
		}
		var indices json.RawMessage
		if runIndicesFile != "" {
			if indices, err = readValues(runIndicesFile); err != nil {
				return err
			}
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

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		app, err := st.GetApp(ctx, run.App)
		switch {
		case errors.Is(err, store.ErrNotFound):
			e.logger.Warn("app not found; values not checked against a schema", "app", run.App)
		case err != nil:
			return err
		default:
			if err := fieldschema.ValidateValues(app.Schema, values); err != nil {
				return err
			}
		}

		updated, err := st.UpdateRunValues(ctx, run.ID, values, indices)
		if err != nil {
			return err
		}
		return output.Print(updated)
	},
}

// statusNotStarted is reported for a document with no recorded run.
const statusNotStarted = "not_started"

var runStatusCmd = &cobra.Command{
	Use:   "status <app> <document>",
	Short: "Show the latest run status of a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		st, err := e.openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(cmd.Context(), store.RunFilter{App: args[0]})
		if err != nil {
			return err
		}
		for _, r := range runs {
			if r.Document == args[1] {
				return output.Print(map[string]any{"status": r.Status, "run_id": r.ID, "updated_at": r.UpdatedAt})
			}
		}
		return output.Print(map[string]any{"status": statusNotStarted})
	},
}

var runStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize cost, tokens and latency of finished runs",
	Long: `Summarize cost, tokens and latency of finished runs.

With --by the total cost is broken down by app, provider, model or strategy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := loadEnv()
		if err != nil {
			return err
		}
		st, err := e.openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		q := metrics.NewQuery(st)
		filter := metrics.Filter{
			App:      runStatsApp,
			Provider: runStatsProvider,
			Model:    runStatsModel,
		}
		if runStatsSince > 0 {
			filter.After = time.Now().Add(-runStatsSince)
		}

		switch runStatsBy {
		case "":
			stats, err := q.GetDetailedStats(ctx, filter)
			if err != nil {
				return err
			}
			return output.Print(stats)
		case metrics.ByApp, metrics.ByProvider, metrics.ByModel, metrics.ByStrategy:
			costs, err := q.CostBy(ctx, runStatsBy, filter)
			if err != nil {
				return err
			}
			return output.Print(costs)
		default:
			return fmt.Errorf("unknown breakdown %q (use app, provider, model or strategy)", runStatsBy)
		}
	},
}

func readValues(path string) (json.RawMessage, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read values: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("values are not valid JSON")
	}
	return json.RawMessage(data), nil
}

func init() {
	runListCmd.Flags().StringVar(&runListApp, "app", "", "only runs of this app")
	runListCmd.Flags().StringVar(&runListStatus, "status", "", "pending, processing, completed or failed")
	runListCmd.Flags().IntVar(&runListLimit, "limit", 20, "maximum runs to list (0 for all)")
	runUpdateCmd.Flags().StringVar(&runValuesFile, "values", "", "corrected values JSON file, or - for stdin")
	runUpdateCmd.Flags().StringVar(&runIndicesFile, "indices", "", "corrected evidence indices JSON file, or - for stdin")

	runStatsCmd.Flags().StringVar(&runStatsApp, "app", "", "only runs of this app")
	runStatsCmd.Flags().StringVar(&runStatsProvider, "provider", "", "only runs on this provider")
	runStatsCmd.Flags().StringVar(&runStatsModel, "model", "", "only runs on this model")
	runStatsCmd.Flags().StringVar(&runStatsBy, "by", "", "break cost down by app, provider, model or strategy")
	runStatsCmd.Flags().DurationVar(&runStatsSince, "since", 0, "only runs created within this window (e.g. 24h)")

	runCmd.AddCommand(runGetCmd, runListCmd, runStatsCmd, runStatusCmd, runUpdateCmd)
	rootCmd.AddCommand(runCmd)
}
