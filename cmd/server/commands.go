package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and seed authorization policies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.migrate(); err != nil {
			return err
		}
		_, err = newEnforcer(cfg, log)
		return err
	},
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var (
	adminEmail    string
	adminPassword string
)

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminEmail == "" || adminPassword == "" {
			return errors.New("--email and --password are required")
		}
		a, err := openApp(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.migrate(); err != nil {
			return err
		}
		user, err := a.accounts.CreateAdmin(cmd.Context(), adminEmail, adminPassword)
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", user.Email, user.ID)
		return nil
	},
}

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and drain the notification outbox",
}

var outboxRunOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Attempt every due outbox entry once and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.dispatcher.ProcessPending(cmd.Context())
	},
}

var outboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the most recent outbox entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()
		entries, err := a.outbox.ListRecent(cmd.Context(), 50)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, e := range entries {
			fmt.Fprintf(out, "%s  %-20s %-9s %d/%d  %s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.ActionType, e.Status, e.Attempts, e.MaxAttempts, e.ErrorMessage)
		}
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "admin email address")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "initial password (at least 8 characters)")
	adminCmd.AddCommand(adminCreateCmd)

	outboxCmd.AddCommand(outboxRunOnceCmd)
	outboxCmd.AddCommand(outboxListCmd)
}
