package main

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/arabicbase/arabicbase/internal/auth"
	"github.com/arabicbase/arabicbase/internal/di/providers"
	"github.com/arabicbase/arabicbase/internal/domain"
)

func (a *app) tokenCommand() *cobra.Command {
	var pro bool

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an API token for a user",
		Long: "Issues a bearer token the remote store accepts for user-id. " +
			"With --pro the user's profile in the local database is switched to the unlimited tier.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]

			tokens, err := do.Invoke[*auth.TokenService](a.injector)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(userID)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("pro") {
				db, err := do.Invoke[*providers.DBHandle](a.injector)
				if err != nil {
					return err
				}
				p := domain.NewProfile(userID)
				p.IsPro = pro
				if err := db.SaveProfile(cmd.Context(), p); err != nil {
					return fmt.Errorf("save profile: %w", err)
				}
			}

			if a.asJSON {
				return a.printJSON(map[string]any{
					"user_id":    userID,
					"token":      token,
					"expires_in": tokens.Duration().String(),
				})
			}
			_, err = fmt.Fprintln(a.out, token)
			return err
		},
	}
	cmd.Flags().BoolVar(&pro, "pro", false, "set the user's tier (true for unlimited, false for free)")
	return cmd
}
