package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docfields/internal/fieldschema"
	"github.com/jackzampolin/docfields/internal/output"
	"github.com/jackzampolin/docfields/internal/prompts/extract"
	"github.com/jackzampolin/docfields/internal/template"
)

var (
	templatePart   string
	jsonSchemaPart string
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect field schema documents (JSON or YAML)",
}

var schemaValidateCmd = &cobra.Command{
	Use:   "validate <schema-file>",
	Short: "Check a schema document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := fieldschema.LoadFile(args[0])
		if err != nil {
			return err
		}
		return output.Print(map[string]any{
			"valid":  true,
			"fields": len(s.Fields),
			"leaves": fieldschema.LeafCount(s),
		})
	},
}

var schemaNamesCmd = &cobra.Command{
	Use:   "names <schema-file>",
	Short: "List dotted field names in schema order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := fieldschema.LoadFile(args[0])
		if err != nil {
			return err
		}
		return output.Print(fieldschema.FieldNames(s))
	},
}

var schemaTargetsCmd = &cobra.Command{
	Use:   "targets <schema-file>",
	Short: "Print the numbered extraction targets shown to the model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := fieldschema.LoadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), extract.Numbered(extract.Flatten(s)))
		return nil
	},
}

var schemaTemplateCmd = &cobra.Command{
	Use:   "template <schema-file>",
	Short: "Print the empty response template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := fieldschema.LoadFile(args[0])
		if err != nil {
			return err
		}
		u := template.GenerateUnified(s)
		switch templatePart {
		case "values":
			return output.Print(u.Values)
		case "indices":
			return output.Print(u.Indices)
		case "combined", "":
			return output.Print(u.Combined())
		default:
			return fmt.Errorf("unknown --part %q (use values, indices or combined)", templatePart)
		}
	},
}

var schemaJSONSchemaCmd = &cobra.Command{
	Use:   "jsonschema <schema-file>",
	Short: "Print the JSON Schema of the model response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := fieldschema.LoadFile(args[0])
		if err != nil {
			return err
		}
		switch jsonSchemaPart {
		case "values":
			return output.Print(fieldschema.ValueJSONSchema(s))
		case "response", "":
			return output.Print(fieldschema.ResponseJSONSchema(s))
		default:
			return fmt.Errorf("unknown --part %q (use values or response)", jsonSchemaPart)
		}
	},
}

func init() {
	schemaTemplateCmd.Flags().StringVar(&templatePart, "part", "combined", "values, indices or combined")
	schemaJSONSchemaCmd.Flags().StringVar(&jsonSchemaPart, "part", "response", "values or response")

	schemaCmd.AddCommand(schemaValidateCmd, schemaNamesCmd, schemaTargetsCmd, schemaTemplateCmd, schemaJSONSchemaCmd)
	rootCmd.AddCommand(schemaCmd)
}
