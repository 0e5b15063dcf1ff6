package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-blog-auth"
	"github.com/goliatone/go-blog-auth/repository"
)

// add-role is the operator path for bootstrapping the first admin, so it
// talks to the store directly instead of going through the policy engine.
func newAddRoleCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add-role <email> <role>",
		Short: "Grant a role to a user",
		Long:  "Grant a role to a user. Roles: " + strings.Join(auth.RoleStrings(auth.GetAllRoles()), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, ok := auth.ParseRole(args[1])
			if !ok {
				return fmt.Errorf("unknown role %q", args[1])
			}

			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			manager := auth.NewUserManagerFromConfig(repository.NewStore(db), cfg).WithLogger(logger)
			err = manager.InTx(cmd.Context(), func(ctx context.Context, tx *auth.UserManager) error {
				user, err := tx.FindByEmail(ctx, args[0])
				if err != nil {
					return err
				}
				return tx.AddRole(ctx, user, role)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", role, args[0])
			return nil
		},
	}
}
