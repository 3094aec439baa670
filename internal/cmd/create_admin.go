package cmd

import (
	"errors"
	"fmt"

	"github.com/matthieukhl/backoffice/internal/auth"
	"github.com/matthieukhl/backoffice/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	adminUsername string
	adminEmail    string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create a staff account",
	Long: `Creates a user with the admin role and prints its API token.
Admins may write customers and products and update order statuses.`,
	RunE: createAdmin,
}

func init() {
	rootCmd.AddCommand(createAdminCmd)

	createAdminCmd.Flags().StringVar(&adminUsername, "username", "", "Login name of the admin")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Email of the admin")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Password of the admin")
	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("password")
}

func createAdmin(cmd *cobra.Command, args []string) error {
	if adminUsername == "" || adminPassword == "" {
		return errors.New("--username and --password are required")
	}

	fmt.Printf("👤 Creating admin %s...\n", adminUsername)

	_, db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()

	accounts := auth.NewService(store.New(db), auth.NopCache{}, zap.NewNop())
	session, err := accounts.Register(cmd.Context(), auth.RegisterInput{
		Username: adminUsername,
		Email:    adminEmail,
		Password: adminPassword,
		IsStaff:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	fmt.Printf("✅ Admin created (id %d)\n", session.User.ID)
	fmt.Printf("🔑 Token: %s\n", session.Token)
	return nil
}
