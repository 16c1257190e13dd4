/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the inspection API server",
	Long: `Start the wiredto REST API. Every route under /api/v1 requires the
X-API-Key header; /metrics is open for scraping.

Examples:
  wiredto serve
  wiredto serve --port 9000 --api-key mysecretkey`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := container.Config()
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			cfg.Bind, _ = cmd.Flags().GetString("bind")
		}
		if cmd.Flags().Changed("api-key") {
			cfg.Security.APIKey, _ = cmd.Flags().GetString("api-key")
		}
		if cfg.Security.APIKey == "" || cfg.Security.APIKey == "auto" {
			cmd.Println("Error: no API key configured (run 'wiredto init' or pass --api-key)")
			return errNoAPIKey
		}

		corpus, err := container.Corpus()
		if err != nil {
			return err
		}
		journal, err := container.Journal()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cmd.Printf("Serving on %s (metrics at /metrics)\n", cfg.Address())
		return container.GetServerStarter().StartServer(ctx, corpus, journal, container.ServerConfig())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind")
	serveCmd.Flags().String("api-key", "", "API key for authentication (overrides config)")
}
