package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"taskflow-cli/internal/fakeapi"
)

const testToken = "secret-token"

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()
	return runCLIWithInput(t, nil, args)
}

func runCLIWithInput(t *testing.T, stdin io.Reader, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	cmd.SetIn(stdin)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// testEnv isolates config and points the CLI at a fresh fake API.
func testEnv(t *testing.T) *fakeapi.Server {
	t.Helper()
	t.Setenv("TASKFLOW_CONFIG_DIR", t.TempDir())
	t.Setenv("TASKFLOW_TOKEN", "")
	t.Setenv("TASKFLOW_FORMAT", "")
	t.Setenv("TASKFLOW_TOGGLE_DEBOUNCE", "10ms")

	fake := fakeapi.New(testToken)
	srv := fake.Listen()
	t.Cleanup(srv.Close)
	t.Setenv("TASKFLOW_API_URL", srv.URL)
	return fake
}

func mustEnv(t *testing.T, args ...string) map[string]any {
	t.Helper()
	stdout, stderr, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("command failed: taskflow %v\nerr: %v\nstderr:\n%s\nstdout:\n%s", args, err, string(stderr), string(stdout))
	}
	return decodeEnv(t, stdout)
}

func decodeEnv(t *testing.T, stdout []byte) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s", err, string(stdout))
	}
	if _, ok := env["data"]; !ok {
		t.Fatalf("expected JSON envelope to contain data key; got: %v", env)
	}
	return env
}

func dataMap(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	m, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object; got %#v", env["data"])
	}
	return m
}

func dataList(t *testing.T, env map[string]any) []any {
	t.Helper()
	xs, ok := env["data"].([]any)
	if !ok {
		t.Fatalf("expected data array; got %#v", env["data"])
	}
	return xs
}

func login(t *testing.T) {
	t.Helper()
	mustEnv(t, "login", "--token", testToken, "--email", "me@example.com")
}
