// Package auth is the client side of the external identity provider: it stores the
// bearer token handed out by the provider and supplies it to the API client.
// Sign-in itself happens at the provider.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const EnvToken = "TASKFLOW_TOKEN"

// TokenSource yields the current bearer token. An empty token with a nil error means
// "not signed in".
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken always returns the same token (tests, scripts).
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

type Session struct {
	Token     string     `json:"token"`
	Email     string     `json:"email,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// FileSession persists a Session as JSON at Path.
type FileSession struct {
	Path string
	Now  func() time.Time
}

func (f FileSession) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// Load returns the stored session; ok is false when nothing is stored.
func (f FileSession) Load() (Session, bool, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, false, err
	}
	if strings.TrimSpace(s.Token) == "" {
		return Session{}, false, nil
	}
	return s, true, nil
}

func (f FileSession) Save(s Session) error {
	s.Token = strings.TrimSpace(s.Token)
	if s.Token == "" {
		return errors.New("missing token")
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = f.now().UTC()
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".session-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, f.Path)
}

func (f FileSession) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Token implements TokenSource. Expired sessions yield no token.
func (f FileSession) Token(context.Context) (string, error) {
	s, ok, err := f.Load()
	if err != nil || !ok {
		return "", err
	}
	if s.Expired(f.now()) {
		return "", nil
	}
	return s.Token, nil
}

// SignedIn reports whether a usable (unexpired) token is stored.
func (f FileSession) SignedIn() bool {
	tok, err := f.Token(context.Background())
	return err == nil && tok != ""
}

// Chain returns the first non-empty token from sources.
type Chain []TokenSource

func (c Chain) Token(ctx context.Context) (string, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		tok, err := src.Token(ctx)
		if err != nil {
			return "", err
		}
		if tok = strings.TrimSpace(tok); tok != "" {
			return tok, nil
		}
	}
	return "", nil
}

// EnvTokenSource reads TASKFLOW_TOKEN.
func EnvTokenSource() TokenSource {
	return TokenFunc(func(context.Context) (string, error) {
		return strings.TrimSpace(os.Getenv(EnvToken)), nil
	})
}
