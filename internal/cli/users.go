package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taskhub/task-tracker/internal/clientsync"
)

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts (admin)",
	}
	cmd.AddCommand(newUsersListCmd(app))
	cmd.AddCommand(newUsersCreateCmd(app))
	cmd.AddCommand(newUsersDeleteCmd(app))
	cmd.AddCommand(newUsersWatchCmd(app))
	return cmd
}

func newUsersListCmd(app *App) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.authed()
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := c.ListUsers(cmd.Context(), page, limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			renderUsers(cmd.OutOrStdout(), p.Items)
			fmt.Fprintln(cmd.OutOrStdout(), pageFooter(p.CurrentPage, p.TotalPages, p.TotalItems))
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size")
	return cmd
}

func newUsersCreateCmd(app *App) *cobra.Command {
	var name, email, password, role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.authed()
			if err != nil {
				return writeErr(cmd, err)
			}
			u, err := c.CreateUser(cmd.Context(), name, email, password, role)
			if err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s <%s> as %s (id %s)\n", u.Name, u.Email, u.Role, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().StringVar(&role, "role", "", "user|admin (default user)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUsersDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authed()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.DeleteUser(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %s\n", args[0])
			return nil
		},
	}
}

func newUsersWatchCmd(app *App) *cobra.Command {
	var (
		limit int
		wipe  bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show the user list and keep it updated live",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.authed()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := c.ListUsers(ctx, 1, limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			view := clientsync.NewListView(clientsync.UserID, nil)
			view.Reset(p.Items, p.TotalItems)

			sc := newScreen(cmd.OutOrStdout(), wipe, func(out io.Writer) {
				renderUsers(out, view.Items())
				fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%d shown, %d total", view.Len(), view.Total())))
			})
			view.OnChange(sc.draw)

			router := clientsync.NewRouter()
			detach := router.AttachUsers(view)
			defer detach()

			sc.draw()
			if err := follow(ctx, app, router, sc, nil); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "users fetched initially")
	cmd.Flags().BoolVar(&wipe, "clear", true, "clear the terminal before each redraw")
	return cmd
}
