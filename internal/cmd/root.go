package cmd

import (
	"fmt"
	"os"

	"github.com/matthieukhl/backoffice/internal/config"
	"github.com/matthieukhl/backoffice/internal/database"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "backoffice",
	Short: "Storefront back office - customers, catalogue, orders and reviews",
	Long: `Backoffice serves the REST API of a storefront back office: customers,
products, orders with their line items, and product reviews.

Run it as a server, or use the CLI commands to create the schema,
load sample data and create admin accounts.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connect loads the configuration and opens the database it names
func connect() (*config.Config, *database.DB, error) {
	fmt.Println("📝 Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Printf("🔌 Connecting to %s database...\n", cfg.DB.Driver)
	db, err := database.NewConnection(&cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, db, nil
}
