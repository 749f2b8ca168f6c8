package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/docfields/internal/output"
)

var (
	ocrProviderName string
	ocrConcurrency  int
	ocrDPI          int
)

var ocrCmd = &cobra.Command{
	Use:   "ocr <file.pdf | page images...>",
	Short: "Recognize a document and print its OCR tokens",
	Long: `Recognize a document with an OCR provider and print the result.

The output (with -o json) is an OCR file that extract accepts via --ocr,
so a document can be recognized once and extracted many times.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defaults := e.config.Get().Defaults
		concurrency := defaults.Concurrency
		if ocrConcurrency > 0 {
			concurrency = ocrConcurrency
		}
		dpi := defaults.RenderDPI
		if ocrDPI > 0 {
			dpi = ocrDPI
		}

		doc, err := e.loadDocument(cmd.Context(), e.registry(), args, loadOptions{
			Recognize:   true,
			OCRProvider: ocrProviderName,
			DPI:         dpi,
			Concurrency: concurrency,
		})
		if err != nil {
			return err
		}
		e.logger.Info("document recognized", "document", doc.Name, "pages", len(doc.Images), "evidence", doc.Source)
		return output.Print(doc.OCR)
	},
}

func init() {
	ocrCmd.Flags().StringVar(&ocrProviderName, "ocr-provider", "", "OCR provider (default from config)")
	ocrCmd.Flags().IntVar(&ocrConcurrency, "concurrency", 0, "parallel page requests (default from config)")
	ocrCmd.Flags().IntVar(&ocrDPI, "dpi", 0, "PDF render resolution (default from config)")

	rootCmd.AddCommand(ocrCmd)
}
