package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docfields/internal/evidence"
	"github.com/jackzampolin/docfields/internal/output"
	"github.com/jackzampolin/docfields/internal/prompts/fields"
	"github.com/jackzampolin/docfields/internal/store"
)

var (
	suggestInstructions string
	suggestProvider     string
	suggestModel        string
	suggestSaveApp      string
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Schema authoring helpers",
}

var fieldsSuggestCmd = &cobra.Command{
	Use:   "suggest <sample-image>",
	Short: "Draft a field schema from a sample document",
	Long: `Ask the model to propose a field schema for a sample document image.

The draft is validated before it is printed. With --save-app it is stored
as a new app (or replaces the schema of an existing one).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		img, err := evidence.LoadImage(args[0])
		if err != nil {
			return err
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

		llm, err := e.llm(e.registry(), suggestProvider)
		if err != nil {
			return err
		}

		in := fields.Input{Image: img, Instructions: suggestInstructions, Model: suggestModel}
		resolver := e.resolver(st)
		if suggestSaveApp != "" {
			for key, dst := range map[string]*string{
				fields.SystemPromptKey: &in.SystemPromptOverride,
				fields.UserPromptKey:   &in.UserPromptOverride,
			} {
				p, err := resolver.Resolve(ctx, key, suggestSaveApp)
				if err != nil {
					return err
				}
				if p.IsOverride {
					*dst = p.Text
				}
			}
		}

		req, err := fields.CreateRequest(in)
		if err != nil {
			return err
		}
		res, err := llm.Chat(ctx, req)
		if err != nil {
			return fmt.Errorf("model call failed: %w", err)
		}
		schema, err := fields.ParseResult(res.Content)
		if err != nil {
			return err
		}
		e.logger.Info("schema suggested", "fields", len(schema.Fields), "cost_usd", res.CostUSD)

		if suggestSaveApp == "" {
			return output.Print(schema)
		}

		app, err := st.GetApp(ctx, suggestSaveApp)
		switch {
		case errors.Is(err, store.ErrNotFound):
			app = &store.App{Name: suggestSaveApp, InputMethods: store.InputMethods{FileUpload: true}}
		case err != nil:
			return err
		}
		app.Schema = schema
		if err := st.PutApp(ctx, app); err != nil {
			return err
		}
		return output.Print(app)
	},
}

func init() {
	f := fieldsSuggestCmd.Flags()
	f.StringVar(&suggestInstructions, "instructions", "", "what to focus on, e.g. \"only header fields\"")
	f.StringVar(&suggestProvider, "provider", "", "LLM provider (default from config)")
	f.StringVar(&suggestModel, "model", "", "model override")
	f.StringVar(&suggestSaveApp, "save-app", "", "store the draft as this app's schema")

	fieldsCmd.AddCommand(fieldsSuggestCmd)
	rootCmd.AddCommand(fieldsCmd)
}
