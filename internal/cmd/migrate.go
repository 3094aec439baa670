package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dropFirst bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	Long: `Creates the back office tables (customers, products, orders,
order_items, reviews, users, auth_tokens) if they do not exist yet.`,
	RunE: migrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&dropFirst, "drop-first", false, "Drop existing tables before creating")
}

func migrate(cmd *cobra.Command, args []string) error {
	fmt.Println("🔧 Migrating database...")

	_, db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if dropFirst {
		fmt.Println("🗑️  Dropping existing tables...")
		if err := db.DropSchema(ctx); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
	}

	fmt.Println("📋 Creating schema...")
	if err := db.SetupSchema(ctx); err != nil {
		return fmt.Errorf("failed to setup schema: %w", err)
	}

	fmt.Println("✅ Schema ready!")
	return nil
}
