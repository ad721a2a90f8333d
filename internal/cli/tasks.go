package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"taskflow-cli/internal/apperr"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/route"
	"taskflow-cli/internal/tasks"

	"github.com/spf13/cobra"
)

// taskGroup describes one command group backed by a task store.
type taskGroup struct {
	use   string
	short string
	route string
	open  func(ctx context.Context) (tasks.Backend, func() error, error)
}

func newTasksCmd(app *App) *cobra.Command {
	return newTaskGroupCmd(app, taskGroup{
		use:   "tasks",
		short: "Manage your account's tasks (requires sign-in)",
		route: route.Dashboard,
		open: func(ctx context.Context) (tasks.Backend, func() error, error) {
			return app.apiClient(), func() error { return nil }, nil
		},
	})
}

func newLocalCmd(app *App) *cobra.Command {
	return newTaskGroupCmd(app, taskGroup{
		use:   "local",
		short: "Manage tasks stored only on this device (no account needed)",
		route: route.Todo,
		open: func(ctx context.Context) (tasks.Backend, func() error, error) {
			s, err := app.openLocal(ctx)
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		},
	})
}

func newTaskGroupCmd(app *App, g taskGroup) *cobra.Command {
	cmd := &cobra.Command{
		Use:         g.use,
		Short:       g.short,
		Annotations: map[string]string{routeAnnotation: g.route},
	}
	cmd.AddCommand(newTaskListCmd(app, g))
	cmd.AddCommand(newTaskShowCmd(app, g))
	cmd.AddCommand(newTaskAddCmd(app, g))
	cmd.AddCommand(newTaskEditCmd(app, g))
	cmd.AddCommand(newTaskDeleteCmd(app, g))
	cmd.AddCommand(newTaskToggleCmd(app, g))
	return cmd
}

// manager opens the group's store behind a fresh Manager. The returned func closes both.
func (app *App) manager(ctx context.Context, g taskGroup) (*tasks.Manager, func(), error) {
	backend, closeBackend, err := g.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	m := tasks.NewManager(backend, tasks.Options{
		ToggleDebounce: app.Config.ToggleDebounce,
		RequestTimeout: app.Config.RequestTimeout,
		Logger:         app.Logger,
	})
	return m, func() {
		m.Close()
		if err := closeBackend(); err != nil {
			app.Logger.Warn("close task store", "err", err)
		}
	}, nil
}

// failed reports the outcome of a task operation the manager could not complete.
func (app *App) failed(cmd *cobra.Command, m *tasks.Manager, op string) error {
	if app.authRequired.Load() {
		return writeErr(cmd, errSessionExpired())
	}
	msg := m.Snapshot().Error
	if msg == "" {
		msg = apperr.MsgUnexpected
	}
	return writeErr(cmd, operationError{op: op, msg: msg})
}

func newTaskListCmd(app *App, g taskGroup) *cobra.Command {
	var completed, pending bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if completed && pending {
				return writeErr(cmd, fmt.Errorf("--completed and --pending are mutually exclusive"))
			}
			m, done, err := app.manager(cmd.Context(), g)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			if !m.Load(cmd.Context()) {
				return app.failed(cmd, m, "list")
			}
			st := m.Snapshot()
			out := make([]model.Task, 0, len(st.Tasks))
			for _, t := range st.Tasks {
				if (completed && !t.Completed) || (pending && t.Completed) {
					continue
				}
				out = append(out, t)
			}
			return writeOut(cmd, app, map[string]any{
				"data": out,
				"meta": map[string]any{
					"total":     len(st.Tasks),
					"completed": st.Completed(),
					"pending":   st.Pending(),
				},
			})
		},
	}
	cmd.Flags().BoolVar(&completed, "completed", false, "Only completed tasks")
	cmd.Flags().BoolVar(&pending, "pending", false, "Only pending tasks")
	return cmd
}

func newTaskShowCmd(app *App, g taskGroup) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			m, done, err := app.manager(cmd.Context(), g)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			if !m.Load(cmd.Context()) {
				return app.failed(cmd, m, "show")
			}
			t, ok := m.Find(id)
			if !ok {
				return writeErr(cmd, operationError{op: "show", msg: apperr.MsgNotFound})
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}
}

func newTaskAddCmd(app *App, g taskGroup) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := model.NormalizeCreate(strings.Join(args, " "), description)
			if err != nil {
				return writeErr(cmd, err)
			}
			m, done, err := app.manager(cmd.Context(), g)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			t := m.Create(cmd.Context(), in)
			if t == nil {
				return app.failed(cmd, m, "add")
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Optional description (markdown)")
	return cmd
}

func newTaskEditCmd(app *App, g taskGroup) *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Change a task's title and/or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var tp, dp *string
			if cmd.Flags().Changed("title") {
				tp = &title
			}
			if cmd.Flags().Changed("description") {
				dp = &description
			}
			up, err := model.NormalizeEdit(tp, dp)
			if err != nil {
				return writeErr(cmd, err)
			}
			if up.IsEmpty() {
				return writeErr(cmd, fmt.Errorf("nothing to change: pass --title and/or --description"))
			}

			m, done, err := app.manager(cmd.Context(), g)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			t := m.Update(cmd.Context(), id, up)
			if t == nil {
				return app.failed(cmd, m, "edit")
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description (empty clears it)")
	return cmd
}

func newTaskDeleteCmd(app *App, g taskGroup) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if !yes && !confirm(cmd, fmt.Sprintf("Delete task %d? This cannot be undone. [y/N] ", id)) {
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "deleted": false}})
			}

			m, done, err := app.manager(cmd.Context(), g)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			if !m.Delete(cmd.Context(), id) {
				return app.failed(cmd, m, "delete")
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newTaskToggleCmd(app *App, g taskGroup) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <task-id>...",
		Short: "Flip tasks between completed and pending",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, a := range args {
				id, err := parseTaskID(a)
				if err != nil {
					return writeErr(cmd, err)
				}
				ids = append(ids, id)
			}

			m, done, err := app.manager(cmd.Context(), g)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			if !m.Load(cmd.Context()) {
				return app.failed(cmd, m, "toggle")
			}
			for _, id := range ids {
				if _, ok := m.Find(id); !ok {
					return writeErr(cmd, operationError{op: "toggle", msg: apperr.MsgNotFound})
				}
			}

			// Repeating an id inside one invocation lands in the same debounce window.
			outcomes := make([]<-chan bool, 0, len(ids))
			for _, id := range ids {
				outcomes = append(outcomes, m.ToggleComplete(id))
			}
			for _, ch := range outcomes {
				if !<-ch {
					return app.failed(cmd, m, "toggle")
				}
			}

			out := make([]model.Task, 0, len(ids))
			seen := map[int64]bool{}
			for _, id := range ids {
				if seen[id] {
					continue
				}
				seen[id] = true
				if t, ok := m.Find(id); ok {
					out = append(out, t)
				}
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
}

func parseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidIDError{arg: s}
	}
	return id, nil
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
