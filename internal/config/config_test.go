package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("api url: %q", cfg.APIURL)
	}
	if cfg.ToggleDebounce != 300*time.Millisecond {
		t.Fatalf("toggle debounce: %v", cfg.ToggleDebounce)
	}
	if cfg.LocalDB != filepath.Join(dir, "local.sqlite") {
		t.Fatalf("local db: %q", cfg.LocalDB)
	}
	if cfg.SessionPath() != filepath.Join(dir, "session.json") {
		t.Fatalf("session path: %q", cfg.SessionPath())
	}
}

func TestLoad_FileThenEnvThenFlags(t *testing.T) {
	dir := t.TempDir()
	yaml := "api_url: https://file.example/\ntoggle_debounce: 50ms\nlog_level: debug\n"
	if err := os.WriteFile(Path(dir), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(dir, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "https://file.example" {
		t.Fatalf("expected trailing slash trimmed from file value, got %q", cfg.APIURL)
	}
	if cfg.ToggleDebounce != 50*time.Millisecond || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected file values: %+v", cfg)
	}

	t.Setenv("TASKFLOW_API_URL", "https://env.example")
	cfg, err = Load(dir, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "https://env.example" {
		t.Fatalf("env should override file, got %q", cfg.APIURL)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("api-url", "", "")
	if err := fs.Parse([]string{"--api-url", "https://flag.example"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err = Load(dir, fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "https://flag.example" {
		t.Fatalf("flag should override env, got %q", cfg.APIURL)
	}
}

func TestDir_EnvOverride(t *testing.T) {
	want := t.TempDir()
	t.Setenv("TASKFLOW_CONFIG_DIR", want)
	got, err := Dir("")
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
