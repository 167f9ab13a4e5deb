package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"bookshelf/internal/auth"
	"bookshelf/internal/config"
	"bookshelf/internal/db"
	"bookshelf/internal/domain"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// createadmin flags
	adminUsername string
	adminEmail    string
	adminPassword string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "manage",
	Short: "Bookshelf maintenance commands",
	Long: `Maintenance commands for the bookshelf site. Database settings are read
from the environment (or a .env file) the same way the server reads them.`,
	SilenceUsage: true,
}

// migrateCmd creates or updates the schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		gdb, err := db.Open(cfg.DSN(), false)
		if err != nil {
			return err
		}
		return db.Migrate(gdb)
	},
}

// createAdminCmd adds a user allowed on the admin surface
var createAdminCmd = &cobra.Command{
	Use:   "createadmin",
	Short: "Create an admin account",
	Long: `Create a user with the admin role.

Examples:
  manage createadmin --username boss --email boss@example.com --password 's3cret-pass'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminPassword == "" {
			adminPassword = os.Getenv("ADMIN_PASSWORD") // Keep the password out of shell history
		}
		if adminUsername == "" || adminPassword == "" {
			return errors.New("--username and --password (or ADMIN_PASSWORD) are required")
		}
		cfg := config.LoadConfig()
		gdb, err := db.Open(cfg.DSN(), false)
		if err != nil {
			return err
		}
		// Sessions are not touched, so no Redis client is needed
		svc := auth.NewService(gdb, nil, cfg.JWTSecret, cfg.SessionTTL)
		user, err := svc.CreateUser(context.Background(), adminUsername, adminEmail, adminPassword, domain.RoleAdmin)
		if err != nil {
			return fmt.Errorf("create admin %q: %w", adminUsername, err)
		}
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("Admin created")
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "", "Username of the new admin")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Email of the new admin")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Password of the new admin (default $ADMIN_PASSWORD)")
	rootCmd.AddCommand(migrateCmd, createAdminCmd)
}

// Main entry point for maintenance commands
func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
