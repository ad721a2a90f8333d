package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/auth"
	"taskflow-cli/internal/config"
	"taskflow-cli/internal/format"
	"taskflow-cli/internal/localstore"
	"taskflow-cli/internal/logging"
	"taskflow-cli/internal/route"
	"taskflow-cli/internal/tui"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// routeAnnotation ties a command group to the screen it stands in for, so the same
// access rules apply to commands and TUI screens.
const routeAnnotation = "taskflow/route"

type App struct {
	ConfigDir  string
	APIURL     string
	LogLevel   string
	LogFile    string
	LocalDB    string
	PrettyJSON bool
	Format     string

	Config  *config.Config
	Logger  *log.Logger
	Session auth.FileSession

	// redirect is the route guard's answer for the running command.
	redirect     string
	authRequired atomic.Bool
	closeLog     func() error
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "taskflow",
		Short:         "TaskFlow tasks from the terminal (TUI + scriptable CLI)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  taskflow

  # Sign in with a token issued by the web app, then work with your tasks
  taskflow login --token "$TOKEN" --email me@example.com
  taskflow tasks add "Buy milk"
  taskflow tasks toggle 1

  # No account needed: tasks kept on this device only
  taskflow local add "Water plants" --format text
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.closeLog != nil {
			return app.closeLog()
		}
		return nil
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.ConfigDir, "config-dir", "", "Config directory (default: $TASKFLOW_CONFIG_DIR or ~/.taskflow)")
	pf.StringVar(&app.APIURL, "api-url", "", "Task API base URL (overrides api_url)")
	pf.StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	pf.StringVar(&app.LogFile, "log-file", "", "Write logs to this file instead of stderr")
	pf.StringVar(&app.LocalDB, "local-db", "", "Path of the device-local task database")
	pf.BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON and EDN output")
	pf.StringVar(&app.Format, "format", envOr("TASKFLOW_FORMAT", "json"), "Output format ("+strings.Join(format.Formats, "|")+")")

	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newLocalCmd(app))
	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newSignupCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDoctorCmd(app))

	return cmd
}

// setup loads configuration and logging, then applies the route guard.
func (app *App) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(app.ConfigDir, cmd.Flags())
	if err != nil {
		return writeErr(cmd, err)
	}
	app.Config = cfg

	// The TUI owns the terminal; its logs go to log_file or nowhere.
	var fallback io.Writer = cmd.ErrOrStderr()
	if cmd.Parent() == nil {
		fallback = io.Discard
	}
	logger, closeLog, err := logging.Open(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile}, fallback)
	if err != nil {
		return writeErr(cmd, err)
	}
	app.Logger = logger
	app.closeLog = closeLog
	app.Session = auth.FileSession{Path: cfg.SessionPath()}

	path := commandRoute(cmd)
	if path == "" {
		return nil
	}
	d := route.Decide(path, app.signedIn())
	if d.Redirect == route.Login {
		return writeErr(cmd, errSignInRequired())
	}
	app.redirect = d.Redirect
	return nil
}

func commandRoute(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		if r := c.Annotations[routeAnnotation]; r != "" {
			return r
		}
	}
	return ""
}

func (app *App) tokens() auth.TokenSource {
	return auth.Chain{auth.EnvTokenSource(), app.Session}
}

func (app *App) signedIn() bool {
	tok, err := app.tokens().Token(context.Background())
	return err == nil && tok != ""
}

func (app *App) apiClient() *api.Client {
	return api.New(api.Options{
		BaseURL:        app.Config.APIURL,
		Tokens:         app.tokens(),
		Timeout:        app.Config.RequestTimeout,
		OnAuthRequired: func() { app.authRequired.Store(true) },
		Logger:         app.Logger,
	})
}

func (app *App) openLocal(ctx context.Context) (*localstore.Store, error) {
	return localstore.Open(ctx, app.Config.LocalDB, localstore.Options{Logger: app.Logger})
}

func runTUI(cmd *cobra.Command, app *App) error {
	return tui.Run(cmd.Context(), tui.Options{
		Config:  app.Config,
		Session: app.Session,
		Tokens:  app.tokens(),
		Logger:  app.Logger,
	})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

// writeErr prints err for the user and marks it as reported.
func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return reportedError{err}
}
