package cli

import (
	"errors"
	"fmt"

	"taskflow-cli/internal/apperr"
)

// reportedError has already been printed by writeErr.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// Reported reports whether err was already shown to the user.
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

type invalidIDError struct{ arg string }

func (e invalidIDError) Error() string {
	return fmt.Sprintf("invalid task id: %q", e.arg)
}

// operationError carries the message a failed task operation left behind.
type operationError struct {
	op  string
	msg string
}

func (e operationError) Error() string { return e.msg }

func errSignInRequired() error {
	return fmt.Errorf("%s Run `taskflow login --token <token>` first.", apperr.MsgSignIn)
}

func errSessionExpired() error {
	return fmt.Errorf("%s Run `taskflow login --token <token>`.", apperr.MsgSessionExpiry)
}
