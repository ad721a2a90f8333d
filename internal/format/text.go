package format

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// WriteText renders a {"data": ...} envelope for people: task objects become
// checklist lines, other objects become key: value lines.
func WriteText(w io.Writer, v any) error {
	x, err := generic(v)
	if err != nil {
		return err
	}
	if env, ok := x.(map[string]any); ok {
		if data, ok := env["data"]; ok {
			x = data
		}
	}

	var b strings.Builder
	switch t := x.(type) {
	case []any:
		if len(t) == 0 {
			b.WriteString("No tasks yet.\n")
		}
		for _, it := range t {
			if m, ok := it.(map[string]any); ok && isTask(m) {
				writeTaskLine(&b, m)
				continue
			}
			fmt.Fprintf(&b, "%s\n", scalar(it))
		}
	case map[string]any:
		if isTask(t) {
			writeTaskLine(&b, t)
			if d, _ := t["description"].(string); d != "" {
				fmt.Fprintf(&b, "    %s\n", strings.ReplaceAll(d, "\n", "\n    "))
			}
			break
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, scalar(t[k]))
		}
	default:
		fmt.Fprintf(&b, "%s\n", scalar(x))
	}
	_, err = io.WriteString(w, b.String())
	return err
}

func isTask(m map[string]any) bool {
	_, hasTitle := m["title"].(string)
	_, hasCompleted := m["completed"].(bool)
	return hasTitle && hasCompleted
}

func writeTaskLine(b *strings.Builder, m map[string]any) {
	box := "[ ]"
	if done, _ := m["completed"].(bool); done {
		box = "[x]"
	}
	fmt.Fprintf(b, "%s %4s  %s\n", box, scalar(m["id"]), m["title"])
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if float64(int64(t)) == t {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
