// Package config resolves taskflow settings from ~/.taskflow/config.yaml, TASKFLOW_*
// environment variables and command-line flags (highest precedence last).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "TASKFLOW"
	envConfigDir   = "TASKFLOW_CONFIG_DIR"
	configFileName = "config.yaml"

	DefaultAPIURL         = "http://localhost:8000"
	DefaultToggleDebounce = 300 * time.Millisecond
	DefaultRequestTimeout = 15 * time.Second
)

type Config struct {
	// Dir is the resolved config directory; it also holds the session and local db.
	Dir string `mapstructure:"-" json:"dir" yaml:"dir"`

	APIURL         string        `mapstructure:"api_url" json:"apiUrl" yaml:"api_url"`
	SignupURL      string        `mapstructure:"signup_url" json:"signupUrl,omitempty" yaml:"signup_url,omitempty"`
	ToggleDebounce time.Duration `mapstructure:"toggle_debounce" json:"toggleDebounce" yaml:"toggle_debounce"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"requestTimeout" yaml:"request_timeout"`
	LocalDB        string        `mapstructure:"local_db" json:"localDb" yaml:"local_db"`
	LogLevel       string        `mapstructure:"log_level" json:"logLevel" yaml:"log_level"`
	LogFile        string        `mapstructure:"log_file" json:"logFile,omitempty" yaml:"log_file,omitempty"`
}

// flagKeys maps persistent flag names onto config keys.
var flagKeys = map[string]string{
	"api-url":   "api_url",
	"log-level": "log_level",
	"log-file":  "log_file",
	"local-db":  "local_db",
}

// Dir returns the config directory: explicit override, then TASKFLOW_CONFIG_DIR,
// then ~/.taskflow.
func Dir(override string) (string, error) {
	if v := strings.TrimSpace(override); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(os.Getenv(envConfigDir)); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskflow"), nil
}

func Path(dir string) string {
	return filepath.Join(dir, configFileName)
}

// Load reads configuration. flags may be nil; only flags the user actually set
// override file and env values.
func Load(dirOverride string, flags *pflag.FlagSet) (*Config, error) {
	dir, err := Dir(dirOverride)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("signup_url", "")
	v.SetDefault("toggle_debounce", DefaultToggleDebounce)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("local_db", filepath.Join(dir, "local.sqlite"))
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	path := Path(dir)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			v.Set(key, f.Value.String())
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Dir = dir
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.ToggleDebounce <= 0 {
		cfg.ToggleDebounce = DefaultToggleDebounce
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	return &cfg, nil
}

// SessionPath is where the auth collaborator keeps the bearer token.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, "session.json")
}
