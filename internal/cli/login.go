package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and save the token to the config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := app.client()
			token, user, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return writeErr(cmd, err)
			}
			path, err := app.saveCredentials(token)
			if err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s). Token saved to %s\n", user.Name, user.Role, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
