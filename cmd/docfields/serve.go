package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/docfields/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the docfields HTTP server",
	Long: `Start the docfields HTTP API.

The server provides:
  - /health, /status           - liveness and registered providers
  - /api/apps[/{name}]         - app CRUD
  - /api/apps/{name}/extract   - multipart upload of page images (+ OCR)
  - /api/apps/{name}/prompts   - per-app prompt overrides
  - /api/runs[/{id}]           - run history and value corrections
  - /api/metrics/summary|cost  - usage and cost reporting

Provider settings are reloaded when the config file changes.

Examples:
  docfields serve                    # Start on default port 8080
  docfields serve --port 3000        # Start on custom port
  docfields serve --host 0.0.0.0     # Bind to all interfaces`,
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

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			Store:         st,
			Registry:      e.registry(),
			Resolver:      e.resolver(st),
			ConfigManager: e.config,
			Logger:        e.logger,
		})
		if err != nil {
			return err
		}
		if e.config.File() != "" {
			e.config.WatchConfig()
		}

		// Start server (blocks until shutdown)
		return srv.Start(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
