package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sephira/internal/auth"
	"sephira/internal/backend"
)

// newAdminCmd manages admin accounts from the command line. Roles can only
// be granted here; the site never grants them.
func newAdminCmd(configPath *string) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	withService := func(fn func(cmd *cobra.Command, svc *auth.Service, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDB(*configPath)
			if err != nil {
				return err
			}
			defer db.Close()
			svc := auth.NewService(auth.NewRepository(db), nil, auth.Options{
				BaseURL:           cfg.PublicBaseURL,
				MinPasswordLength: cfg.Auth.MinPasswordLength,
			})
			return fn(cmd, svc, args)
		}
	}

	admin.AddCommand(
		&cobra.Command{
			Use:   "grant <email>",
			Short: "Grant the admin role to a registered user",
			Args:  cobra.ExactArgs(1),
			RunE: withService(func(cmd *cobra.Command, svc *auth.Service, args []string) error {
				if err := svc.GrantRole(cmd.Context(), args[0], backend.RoleAdmin); err != nil {
					return roleError(args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Granted admin to %s\n", args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "revoke <email>",
			Short: "Revoke the admin role",
			Args:  cobra.ExactArgs(1),
			RunE: withService(func(cmd *cobra.Command, svc *auth.Service, args []string) error {
				if err := svc.RevokeRole(cmd.Context(), args[0], backend.RoleAdmin); err != nil {
					return roleError(args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Revoked admin from %s\n", args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "create <email> <password>",
			Short: "Create a confirmed admin account",
			Args:  cobra.ExactArgs(2),
			RunE: withService(func(cmd *cobra.Command, svc *auth.Service, args []string) error {
				user, err := svc.CreateConfirmedUser(cmd.Context(), args[0], args[1])
				if err != nil {
					return fmt.Errorf("create user: %w", err)
				}
				if err := svc.GrantRole(cmd.Context(), user.Email, backend.RoleAdmin); err != nil {
					return roleError(user.Email, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", user.Email, user.ID)
				return nil
			}),
		},
	)
	return admin
}

func roleError(email string, err error) error {
	if errors.Is(err, backend.ErrNotFound) {
		return fmt.Errorf("no user registered as %s", email)
	}
	return err
}
