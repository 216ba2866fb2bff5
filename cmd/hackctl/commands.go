package main

import (
	"errors"
	"fmt"
	"hackathon_portal/internal/app/service"
	"hackathon_portal/internal/domain/model"
	"hackathon_portal/internal/domain/repository"
	"hackathon_portal/internal/platform/config"
	"hackathon_portal/internal/platform/database"

	"github.com/spf13/cobra"
)

func connect() {
	config.Load()
	database.Connect()
}

func newCreateAdminCmd() *cobra.Command {
	var req service.CreateAdminRequest
	var role string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			connect()
			defer database.Close()

			req.Role = model.AdminRole(role)
			admins := service.NewAdminService(repository.NewPgAdminRepository(database.DB))
			admin, err := admins.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", admin.Role, admin.Email, admin.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "login email")
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&role, "role", string(model.RoleSuperAdmin), "SUPER_ADMIN, ADMIN, ORGANIZER or JUDGE")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			connect()
			defer database.Close()
			return database.MigrateUp(database.DB.DB)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return errors.New("--steps must be positive")
			}
			connect()
			defer database.Close()
			if err := database.MigrateDown(database.DB.DB, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}
