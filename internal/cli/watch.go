package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/taskhub/task-tracker/internal/client"
	"github.com/taskhub/task-tracker/internal/clientsync"
	"github.com/taskhub/task-tracker/internal/core/domain"
)

const clearScreen = "\033[H\033[2J"

func newWatchCmd(app *App) *cobra.Command {
	var w taskWatch

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show a task list that updates live from the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return w.run(cmd, app, nil)
		},
	}
	w.flags(cmd, true)
	return cmd
}

// taskWatch is the live task list shared by `watch` and `tasks create --watch`.
type taskWatch struct {
	mine  bool
	limit int
	wipe  bool
}

func (w *taskWatch) flags(cmd *cobra.Command, withMine bool) {
	if withMine {
		cmd.Flags().BoolVar(&w.mine, "mine", false, "only tasks assigned to you")
	}
	cmd.Flags().IntVar(&w.limit, "limit", 20, "tasks fetched initially")
	cmd.Flags().BoolVar(&w.wipe, "clear", true, "clear the terminal before each redraw")
}

// run fetches the first page, then keeps it current from the event stream
// until interrupted. afterConnect, when set, runs once the stream is up and
// may merge its own results into the view.
func (w *taskWatch) run(cmd *cobra.Command, app *App, afterConnect func(context.Context, *client.Client, *clientsync.ListView[domain.TaskView]) error) error {
	c, err := app.authed()
	if err != nil {
		return writeErr(cmd, err)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		page     *client.Page[domain.TaskView]
		relevant func(domain.TaskView) bool
	)
	if w.mine {
		uid, err := tokenSubject(app.token())
		if err != nil {
			return writeErr(cmd, err)
		}
		relevant = clientsync.AssignedTo(uid)
		page, err = c.ListMyTasks(ctx, 1, w.limit)
		if err != nil {
			return writeErr(cmd, err)
		}
	} else {
		page, err = c.ListTasks(ctx, client.TaskFilter{Page: 1, Limit: w.limit})
		if err != nil {
			return writeErr(cmd, err)
		}
	}

	view := clientsync.NewListView(clientsync.TaskID, relevant)
	view.Reset(page.Items, page.TotalItems)

	sc := newScreen(cmd.OutOrStdout(), w.wipe, func(out io.Writer) {
		fmt.Fprintln(out, renderStats(clientsync.StatsOf(view)))
		fmt.Fprintln(out)
		renderTasks(out, view.Items())
	})
	view.OnChange(sc.draw)

	router := clientsync.NewRouter()
	detach := router.AttachTasks(view)
	defer detach()

	var hook func(context.Context) error
	if afterConnect != nil {
		hook = func(ctx context.Context) error { return afterConnect(ctx, c, view) }
	}
	sc.draw()
	if err := follow(ctx, app, router, sc, hook); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

// screen redraws a live view whenever its contents or the connection state
// change.
type screen struct {
	mu    sync.Mutex
	out   io.Writer
	wipe  bool
	state clientsync.State
	body  func(io.Writer)
}

func newScreen(out io.Writer, wipe bool, body func(io.Writer)) *screen {
	return &screen{out: out, wipe: wipe, state: clientsync.StateDisconnected, body: body}
}

func (s *screen) setState(st clientsync.State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.draw()
}

func (s *screen) draw() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wipe {
		fmt.Fprint(s.out, clearScreen)
	}
	fmt.Fprintln(s.out, renderState(s.state))
	s.body(s.out)
}

// follow streams change events into router until ctx ends. afterConnect runs
// once, in its own goroutine, after the first successful connection; its
// error ends the stream. A nil return means ctx was cancelled.
func follow(ctx context.Context, app *App, router *clientsync.Router, sc *screen, afterConnect func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	failed := make(chan error, 1)
	var once sync.Once
	hook := func(st clientsync.State) {
		sc.setState(st)
		if st != clientsync.StateConnected || afterConnect == nil {
			return
		}
		once.Do(func() {
			go func() {
				if err := afterConnect(ctx); err != nil {
					failed <- err
					cancel()
				}
			}()
		})
	}

	stream, err := clientsync.NewStream(app.server(), app.token(), router, app.log, clientsync.WithStateHook(hook))
	if err != nil {
		return err
	}
	err = stream.Run(ctx)
	select {
	case ferr := <-failed:
		return ferr
	default:
	}
	switch {
	case errors.Is(err, clientsync.ErrUnauthorized):
		return errors.New("the server rejected the saved token; run `taskctl login` again")
	case errors.Is(err, clientsync.ErrRetriesExhausted):
		return errors.New("lost connection to the server; the view above may be stale")
	}
	return err
}

// tokenSubject reads the user id from a JWT without checking its signature.
func tokenSubject(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse saved token: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("saved token has no subject; log in again")
	}
	return sub, nil
}
