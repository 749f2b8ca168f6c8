package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docfields/internal/extraction"
	"github.com/jackzampolin/docfields/internal/fieldschema"
	"github.com/jackzampolin/docfields/internal/output"
	"github.com/jackzampolin/docfields/internal/store"
)

var (
	appSchemaFile   string
	appDisplayName  string
	appDescription  string
	appCustomPrompt string
	appPageMode     string
	appFileUpload   bool
	appS3Sync       bool
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Manage extraction apps",
}

var appPutCmd = &cobra.Command{
	Use:   "put <name>",
	Short: "Create or replace an app",
	Long: `Create or replace an app from a schema document.

Examples:
  docfields app put invoices --schema invoice.yaml --display-name "Invoices"
  docfields app put receipts --schema receipt.json --page-mode individual`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if appSchemaFile == "" {
			return fmt.Errorf("--schema is required")
		}
		s, err := fieldschema.LoadFile(appSchemaFile)
		if err != nil {
			return err
		}
		if _, err := extraction.ParsePageMode(appPageMode); err != nil {
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

		app := &store.App{
			Name:         args[0],
			DisplayName:  appDisplayName,
			Description:  appDescription,
			Schema:       s,
			CustomPrompt: appCustomPrompt,
			PageMode:     appPageMode,
			InputMethods: store.InputMethods{FileUpload: appFileUpload, S3Sync: appS3Sync},
		}
		if err := st.PutApp(cmd.Context(), app); err != nil {
			return err
		}
		e.logger.Info("app saved", "app", app.Name, "fields", len(s.Fields))
		return output.Print(app)
	},
}

var appGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show an app",
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

		app, err := st.GetApp(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return output.Print(app)
	},
}

// appSummary is the list view of an app.
type appSummary struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Fields      int    `json:"fields"`
	PageMode    string `json:"page_mode,omitempty"`
	UpdatedAt   string `json:"updated_at"`
}

var appListCmd = &cobra.Command{
	Use:   "list",
	Short: "List apps",
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

		apps, err := st.ListApps(cmd.Context())
		if err != nil {
			return err
		}
		out := make([]appSummary, 0, len(apps))
		for _, a := range apps {
			out = append(out, appSummary{
				Name:        a.Name,
				DisplayName: a.Label(),
				Fields:      fieldschema.LeafCount(a.Schema),
				PageMode:    a.PageMode,
				UpdatedAt:   a.UpdatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return output.Print(out)
	},
}

var appDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an app and its prompt overrides (runs are kept)",
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

		if err := st.DeleteApp(cmd.Context(), args[0]); err != nil {
			return err
		}
		e.logger.Info("app deleted", "app", args[0])
		return nil
	},
}

func init() {
	appPutCmd.Flags().StringVar(&appSchemaFile, "schema", "", "schema document (JSON or YAML)")
	appPutCmd.Flags().StringVar(&appDisplayName, "display-name", "", "human-readable name")
	appPutCmd.Flags().StringVar(&appDescription, "description", "", "what documents the app handles")
	appPutCmd.Flags().StringVar(&appCustomPrompt, "prompt", "", "extra instructions added to every extraction")
	appPutCmd.Flags().StringVar(&appPageMode, "page-mode", "", "combined or individual (default from config)")
	appPutCmd.Flags().BoolVar(&appFileUpload, "file-upload", true, "documents arrive by upload or file drop")
	appPutCmd.Flags().BoolVar(&appS3Sync, "s3-sync", false, "documents arrive by bucket sync")

	appCmd.AddCommand(appPutCmd, appGetCmd, appListCmd, appDeleteCmd)
	rootCmd.AddCommand(appCmd)
}
