package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskhub/task-tracker/internal/client"
	"github.com/taskhub/task-tracker/internal/clientsync"
	"github.com/taskhub/task-tracker/internal/core/domain"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and manage tasks",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksMineCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksStatusCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var f client.TaskFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every task (admin)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.authed()
			if err != nil {
				return writeErr(cmd, err)
			}
			page, err := c.ListTasks(cmd.Context(), f)
			if err != nil {
				return writeErr(cmd, err)
			}
			renderTaskPage(cmd.OutOrStdout(), page)
			return nil
		},
	}
	cmd.Flags().IntVar(&f.Page, "page", 0, "page number")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "page size")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "filter by priority (low|medium|high)")
	cmd.Flags().StringVar(&f.Status, "status", "", "filter by status (pending|completed)")
	return cmd
}

func newTasksMineCmd(app *App) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "List the tasks assigned to you",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.authed()
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := c.ListMyTasks(cmd.Context(), page, limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			renderTaskPage(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size")
	return cmd
}

func newTasksShowCmd(app *App) *cobra.Command {
	var (
		live bool
		wipe bool
	)

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task, optionally following it live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authed()
			if err != nil {
				return writeErr(cmd, err)
			}
			task, err := c.GetTask(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if !live {
				renderTask(cmd.OutOrStdout(), *task)
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, leave := context.WithCancel(ctx)
			defer leave()

			detail := clientsync.NewDetailView(*task, clientsync.TaskID)
			sc := newScreen(cmd.OutOrStdout(), wipe, func(out io.Writer) {
				t, _ := detail.Item()
				renderTask(out, t)
			})
			detail.OnChange(sc.draw)
			detail.OnGone(leave)

			router := clientsync.NewRouter()
			detach := router.AttachTasks(detail)
			defer detach()

			sc.draw()
			if err := follow(ctx, app, router, sc, nil); err != nil {
				return writeErr(cmd, err)
			}
			if _, ok := detail.Item(); !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s was deleted\n", args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&live, "follow", false, "keep the task on screen and update it until it is deleted")
	cmd.Flags().BoolVar(&wipe, "clear", true, "clear the terminal before each redraw")
	return cmd
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var (
		in    client.NewTask
		due   string
		watch bool
		w     taskWatch
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task (admin)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := time.Parse(time.DateOnly, strings.TrimSpace(due))
			if err != nil {
				return writeErr(cmd, fmt.Errorf("--due must be YYYY-MM-DD"))
			}
			in.DueDate = d
			if in.IdempotencyKey == "" {
				in.IdempotencyKey = uuid.NewString()
			}

			if watch {
				return w.run(cmd, app, func(ctx context.Context, c *client.Client, view *clientsync.ListView[domain.TaskView]) error {
					task, _, err := c.CreateTask(ctx, in)
					if err != nil {
						return err
					}
					view.Upsert(*task)
					return nil
				})
			}

			c, err := app.authed()
			if err != nil {
				return writeErr(cmd, err)
			}
			task, replayed, err := c.CreateTask(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			if replayed {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("already created earlier with this key"))
			}
			renderTask(cmd.OutOrStdout(), *task)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "task title")
	cmd.Flags().StringVar(&in.Description, "description", "", "task description")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&in.Priority, "priority", "", "low|medium|high (default medium)")
	cmd.Flags().StringVar(&in.AssignedTo, "assignee", "", "id of the assigned user")
	cmd.Flags().StringVar(&in.IdempotencyKey, "idempotency-key", "", "reuse to make retries safe (default random)")
	cmd.Flags().BoolVar(&watch, "watch", false, "open the live task list, create the task into it and keep watching")
	w.flags(cmd, false)
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("due")
	_ = cmd.MarkFlagRequired("assignee")
	return cmd
}

func newTasksStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id> <pending|completed>",
		Short: "Set a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := domain.TaskStatus(args[1])
			if !st.Valid() {
				return writeErr(cmd, fmt.Errorf("status must be pending or completed"))
			}
			c, err := app.authed()
			if err != nil {
				return writeErr(cmd, err)
			}
			task, err := c.UpdateTaskStatus(cmd.Context(), args[0], st)
			if err != nil {
				return writeErr(cmd, err)
			}
			renderTask(cmd.OutOrStdout(), *task)
			return nil
		},
	}
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authed()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.DeleteTask(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
			return nil
		},
	}
}
