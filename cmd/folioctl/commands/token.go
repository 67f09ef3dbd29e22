package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tendant/folio/pkg/folio/config"
)

func newTokenCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin session token",
		Long: `Print a session token for an allow-listed admin e-mail. Send it as
"Authorization: Bearer <token>" to script content updates.`,
		Example: `  TOKEN=$(folioctl token --email owner@example.com)
  curl -H "Authorization: Bearer $TOKEN" -d @content.json http://localhost:3000/api/content`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ReadEnv()
			if err != nil {
				return err
			}
			sessions, err := cfg.BuildSessions()
			if err != nil {
				return err
			}
			if sessions == nil {
				return errors.New("auth is disabled (AUTH_DISABLED=true)")
			}

			token, err := sessions.Issue(email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin e-mail to issue the token for")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
