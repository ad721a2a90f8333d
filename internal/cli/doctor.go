package cli

import (
	"context"
	"errors"
	"os"
	"time"

	"taskflow-cli/internal/apperr"
	"taskflow-cli/internal/auth"

	"github.com/spf13/cobra"
)

var errDoctorIssuesFound = errors.New("doctor found errors")

type doctorLevel string

const (
	doctorError doctorLevel = "error"
	doctorWarn  doctorLevel = "warn"
)

type doctorIssue struct {
	Level   doctorLevel `json:"level"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Path    string      `json:"path,omitempty"`
}

type doctorReport struct {
	APIURL     string        `json:"apiUrl"`
	SignedIn   bool          `json:"signedIn"`
	RemoteOK   *bool         `json:"remoteOk,omitempty"`
	LocalTasks *int          `json:"localTasks,omitempty"`
	Issues     []doctorIssue `json:"issues"`
}

func (r doctorReport) hasErrors() bool {
	for _, it := range r.Issues {
		if it.Level == doctorError {
			return true
		}
	}
	return false
}

func (r *doctorReport) add(level doctorLevel, code, msg, path string) {
	r.Issues = append(r.Issues, doctorIssue{Level: level, Code: code, Message: msg, Path: path})
}

func newDoctorCmd(app *App) *cobra.Command {
	var fail bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, session, API reachability and the local task store",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := app.doctor(cmd.Context())

			hints := []string{"taskflow status"}
			if !report.SignedIn {
				hints = append(hints, "taskflow login --token <token>")
			}
			if err := writeOut(cmd, app, map[string]any{
				"data": report,
				"meta": map[string]any{
					"issues":    len(report.Issues),
					"hasErrors": report.hasErrors(),
				},
				"_hints": hints,
			}); err != nil {
				return err
			}

			if fail && report.hasErrors() {
				return errDoctorIssuesFound
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fail, "fail", false, "Exit with non-zero status if errors are found")
	return cmd
}

func (app *App) doctor(ctx context.Context) doctorReport {
	if ctx == nil {
		ctx = context.Background()
	}
	r := doctorReport{APIURL: app.Config.APIURL, Issues: []doctorIssue{}}

	s, ok, err := app.Session.Load()
	switch {
	case err != nil:
		r.add(doctorError, "session_unreadable", err.Error(), app.Session.Path)
	case ok && s.Expired(time.Now()):
		r.add(doctorWarn, "session_expired", apperr.MsgSessionExpiry, app.Session.Path)
	case !ok && os.Getenv(auth.EnvToken) == "":
		r.add(doctorWarn, "not_signed_in", "No session stored; only local tasks are available.", "")
	}
	r.SignedIn = app.signedIn()

	if r.SignedIn {
		_, err := app.apiClient().List(ctx)
		remoteOK := err == nil
		r.RemoteOK = &remoteOK
		if err != nil {
			code := "api_" + apperr.KindOf(err).String()
			r.add(doctorError, code, apperr.UserMessageOf(err, apperr.MsgUnexpected), app.Config.APIURL)
		}
	}

	st, err := app.openLocal(ctx)
	if err != nil {
		r.add(doctorError, "local_store", err.Error(), app.Config.LocalDB)
		return r
	}
	defer func() { _ = st.Close() }()
	list, err := st.List(ctx)
	if err != nil {
		r.add(doctorError, "local_store", err.Error(), st.Path())
		return r
	}
	n := len(list)
	r.LocalTasks = &n
	return r
}
