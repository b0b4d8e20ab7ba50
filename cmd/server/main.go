// Command server runs the Ride for Vision & Valour site and its admin tools.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"valour-site/internal/config"
	"valour-site/internal/logger"
)

var (
	// cfg and log are loaded before any subcommand runs.
	cfg *config.Config
	log logger.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "valour-site",
	Short: "Ride for Vision & Valour website",
	Long: `valour-site serves the public charity ride site and the admin console.
Run without a subcommand to start the web server.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(outboxCmd)
}

// loadConfig reads configuration and initializes the logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg = c
	log = logger.New(cfg.Log, nil)
	return nil
}
