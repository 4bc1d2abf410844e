// Package cli implements taskctl, the command-line client of the task
// tracker.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/taskhub/task-tracker/internal/client"
	"github.com/taskhub/task-tracker/pkg/logger"
)

const (
	configName    = ".taskctl"
	envPrefix     = "TASKCTL"
	defaultServer = "http://localhost:8080"
)

// App carries state shared by every subcommand.
type App struct {
	v       *viper.Viper
	cfgFile string
	log     zerolog.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{v: viper.New(), log: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:          "taskctl",
		Short:        "Command-line client for the task tracker",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Authenticate once; the token is saved to ~/.taskctl.yaml
  taskctl login --email admin@example.com --password secret

  # Scriptable commands
  taskctl tasks mine
  taskctl tasks create --title "Write report" --due 2030-01-15 --assignee <user-id>

  # Live view, updated from the server's event stream
  taskctl watch --mine
`),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.load(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.cfgFile, "config", "", "config file (default $HOME/.taskctl.yaml)")
	pf.String("server", defaultServer, "API base URL")
	pf.String("token", "", "bearer token (normally saved by login)")
	pf.String("log-level", "warn", "diagnostic log level written to stderr")
	_ = app.v.BindPFlag("server", pf.Lookup("server"))
	_ = app.v.BindPFlag("token", pf.Lookup("token"))
	_ = app.v.BindPFlag("log_level", pf.Lookup("log-level"))

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	return cmd
}

// load reads the config file and environment. A missing file is fine.
func (a *App) load(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	a.v.SetDefault("server", defaultServer)

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("locate home directory: %w", err)
		}
		a.v.AddConfigPath(home)
		a.v.SetConfigName(configName)
		a.v.SetConfigType("yaml")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	a.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		Level(logger.ParseLevel(a.v.GetString("log_level"))).
		With().Timestamp().Logger()
	return nil
}

func (a *App) server() string { return a.v.GetString("server") }
func (a *App) token() string  { return a.v.GetString("token") }

// client returns an API client carrying the configured token.
func (a *App) client() *client.Client {
	return client.New(a.server(), client.WithToken(a.token()))
}

// authed is client plus a friendly error when no token is configured.
func (a *App) authed() (*client.Client, error) {
	if a.token() == "" {
		return nil, errors.New("not logged in: run `taskctl login` or pass --token")
	}
	return a.client(), nil
}

// configPath is where login persists credentials.
func (a *App) configPath() (string, error) {
	if a.cfgFile != "" {
		return a.cfgFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configName+".yaml"), nil
}

func (a *App) saveCredentials(token string) (string, error) {
	path, err := a.configPath()
	if err != nil {
		return "", err
	}
	a.v.Set("server", a.server())
	a.v.Set("token", token)
	if err := a.v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return "", fmt.Errorf("restrict %s: %w", path, err)
	}
	return path, nil
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("error: ")+err.Error())
	return err
}
