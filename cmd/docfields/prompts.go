package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docfields/internal/output"
)

var (
	promptsApp     string
	promptTextFile string
	promptNote     string
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect prompts and manage per-app overrides",
}

// promptSummary is the list view of a prompt.
type promptSummary struct {
	Key         string   `json:"key"`
	Description string   `json:"description"`
	Variables   []string `json:"variables,omitempty"`
	Hash        string   `json:"hash"`
	Override    bool     `json:"override,omitempty"`
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List embedded prompts, marking those an app overrides",
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

		resolver := e.resolver(st)
		var out []promptSummary
		for _, p := range resolver.AllEmbedded() {
			s := promptSummary{Key: p.Key, Description: p.Description, Variables: p.Variables, Hash: p.Hash}
			if promptsApp != "" {
				resolved, err := resolver.Resolve(ctx, p.Key, promptsApp)
				if err != nil {
					return err
				}
				s.Override, s.Hash = resolved.IsOverride, resolved.Hash
			}
			out = append(out, s)
		}
		return output.Print(out)
	},
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print the prompt text an app would use",
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

		p, err := e.resolver(st).Resolve(cmd.Context(), args[0], promptsApp)
		if err != nil {
			return err
		}
		return output.Print(p)
	},
}

var promptsSetCmd = &cobra.Command{
	Use:   "set <app> <key>",
	Short: "Override a prompt for one app",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if promptTextFile == "" {
			return fmt.Errorf("--file is required")
		}
		text, err := os.ReadFile(promptTextFile)
		if err != nil {
			return fmt.Errorf("failed to read prompt file: %w", err)
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

		if _, ok := e.resolver(nil).GetEmbedded(args[1]); !ok {
			return fmt.Errorf("prompt not found: %s", args[1])
		}
		o, err := st.SetPromptOverride(cmd.Context(), args[0], args[1], string(text), promptNote)
		if err != nil {
			return err
		}
		return output.Print(o)
	},
}

var promptsResetCmd = &cobra.Command{
	Use:   "reset <app> <key>",
	Short: "Remove an app's prompt override",
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

		return st.DeletePromptOverride(cmd.Context(), args[0], args[1])
	},
}

func init() {
	promptsListCmd.Flags().StringVar(&promptsApp, "app", "", "show overrides of this app")
	promptsShowCmd.Flags().StringVar(&promptsApp, "app", "", "resolve for this app")
	promptsSetCmd.Flags().StringVar(&promptTextFile, "file", "", "file holding the prompt template")
	promptsSetCmd.Flags().StringVar(&promptNote, "note", "", "why the override exists")

	promptsCmd.AddCommand(promptsListCmd, promptsShowCmd, promptsSetCmd, promptsResetCmd)
	rootCmd.AddCommand(promptsCmd)
}
