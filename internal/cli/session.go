package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"taskflow-cli/internal/auth"
	"taskflow-cli/internal/route"

	"github.com/spf13/cobra"
)

func newLoginCmd(app *App) *cobra.Command {
	var (
		token     string
		email     string
		expiresIn time.Duration
		verify    bool
		force     bool
	)
	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Store a session token issued by the TaskFlow web app",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{routeAnnotation: route.Login},
		Example: strings.TrimSpace(`
  taskflow login --token "$TOKEN" --email me@example.com
  echo "$TOKEN" | taskflow login --token -
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.redirect == route.Dashboard && !force {
				s, _, _ := app.Session.Load()
				return writeOut(cmd, app, map[string]any{
					"data":   map[string]any{"signedIn": true, "email": s.Email},
					"_hints": []string{"already signed in; pass --force to replace the session"},
				})
			}

			if token == "-" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return writeErr(cmd, fmt.Errorf("read token from stdin: %w", err))
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return writeErr(cmd, fmt.Errorf("missing --token"))
			}

			s := auth.Session{Token: token, Email: strings.TrimSpace(email)}
			if expiresIn > 0 {
				exp := time.Now().Add(expiresIn).UTC()
				s.ExpiresAt = &exp
			}
			if err := app.Session.Save(s); err != nil {
				return writeErr(cmd, err)
			}

			if verify {
				if _, err := app.apiClient().List(cmd.Context()); err != nil {
					if app.authRequired.Load() {
						_ = app.Session.Clear()
						return writeErr(cmd, fmt.Errorf("token rejected by %s", app.Config.APIURL))
					}
					return writeErr(cmd, err)
				}
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"signedIn": true, "email": s.Email, "expiresAt": s.ExpiresAt, "verified": verify},
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Session token (use - to read it from stdin)")
	cmd.Flags().StringVar(&email, "email", "", "Account email, shown by status")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "Forget the token after this long (e.g. 168h)")
	cmd.Flags().BoolVar(&verify, "verify", false, "Check the token against the API before keeping it")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing session")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Session.Clear(); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"signedIn": false}})
		},
	}
}

func newSignupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "signup",
		Short:       "Show where to create a TaskFlow account",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{routeAnnotation: route.Signup},
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.redirect == route.Dashboard {
				return writeOut(cmd, app, map[string]any{
					"data":   map[string]any{"signedIn": true},
					"_hints": []string{"already signed in; run `taskflow logout` to switch accounts"},
				})
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"url": signupURL(app)},
				"_hints": []string{
					"create an account in the browser, then run `taskflow login --token <token>`",
					"or keep tasks on this device with `taskflow local`",
				},
			})
		},
	}
}

func signupURL(app *App) string {
	if u := strings.TrimSpace(app.Config.SignupURL); u != "" {
		return u
	}
	return app.Config.APIURL + route.Signup
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and configuration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, stored, err := app.Session.Load()
			if err != nil {
				return writeErr(cmd, err)
			}
			signedIn := app.signedIn()
			data := map[string]any{
				"signedIn":    signedIn,
				"apiUrl":      app.Config.APIURL,
				"configDir":   app.Config.Dir,
				"localDb":     app.Config.LocalDB,
				"startScreen": route.Resolve(route.Dashboard, signedIn),
			}
			if stored {
				data["email"] = s.Email
				data["expired"] = s.Expired(time.Now())
				if s.ExpiresAt != nil {
					data["expiresAt"] = s.ExpiresAt
				}
			}
			return writeOut(cmd, app, map[string]any{"data": data})
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOut(cmd, app, map[string]any{"data": app.Config})
		},
	})
	return cmd
}
