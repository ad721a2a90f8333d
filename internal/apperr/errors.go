// Package apperr is the error taxonomy surfaced to views: every failure carries a
// kind, the raw status (0 when no response), a technical message for logs and a
// stable user-facing message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Unknown Kind = iota
	NotAuthenticated
	SessionExpired
	NetworkUnreachable
	InvalidInput
	Forbidden
	NotFound
	RateLimited
	ServerError
)

func (k Kind) String() string {
	switch k {
	case NotAuthenticated:
		return "not_authenticated"
	case SessionExpired:
		return "session_expired"
	case NetworkUnreachable:
		return "network_unreachable"
	case InvalidInput:
		return "invalid_input"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case RateLimited:
		return "rate_limited"
	case ServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

const (
	MsgSignIn        = "Please sign in to continue."
	MsgSessionExpiry = "Your session has expired. Please sign in again."
	MsgNetwork       = "Unable to connect. Please check your internet connection and try again."
	MsgBadRequest    = "Invalid request. Please check your input."
	MsgForbidden     = "You don't have permission to perform this action."
	MsgNotFound      = "The requested item was not found. It may have been deleted."
	MsgInvalidData   = "Invalid data provided. Please check your input."
	MsgRateLimited   = "Too many requests. Please wait a moment and try again."
	MsgServer        = "Something went wrong on our end. Please try again later."
	MsgUnexpected    = "An unexpected error occurred. Please try again."
)

type Error struct {
	Kind        Kind
	Status      int
	Message     string
	UserMessage string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, apperr.New(apperr.NotFound, ...))
// and the Err* sentinels below work through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Status == 0 && t.Message == ""
}

var (
	ErrNotAuthenticated = &Error{Kind: NotAuthenticated}
	ErrSessionExpired   = &Error{Kind: SessionExpired}
	ErrNotFound         = &Error{Kind: NotFound}
)

func New(kind Kind, message, userMessage string) *Error {
	return &Error{Kind: kind, Message: message, UserMessage: userMessage}
}

func NotAuthenticatedError() *Error {
	return &Error{Kind: NotAuthenticated, Status: http.StatusUnauthorized, Message: "Not authenticated", UserMessage: MsgSignIn}
}

func SessionExpiredError() *Error {
	return &Error{Kind: SessionExpired, Status: http.StatusUnauthorized, Message: "Session expired", UserMessage: MsgSessionExpiry}
}

func NetworkError(err error) *Error {
	return &Error{Kind: NetworkUnreachable, Message: "Network error", UserMessage: MsgNetwork, Err: err}
}

func NotFoundError(message string) *Error {
	return &Error{Kind: NotFound, Status: http.StatusNotFound, Message: message, UserMessage: MsgNotFound}
}

// FromStatus builds the error for a non-2xx response. detail is the server-provided
// explanation (may be empty); it doubles as the user message for input errors.
func FromStatus(status int, detail string) *Error {
	msg := detail
	if msg == "" {
		msg = fmt.Sprintf("Request failed with status %d", status)
	}
	return &Error{
		Kind:        KindForStatus(status),
		Status:      status,
		Message:     msg,
		UserMessage: UserMessage(status, detail),
	}
}

func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return InvalidInput
	case status == http.StatusUnauthorized:
		return SessionExpired
	case status == http.StatusForbidden:
		return Forbidden
	case status == http.StatusNotFound:
		return NotFound
	case status == http.StatusTooManyRequests:
		return RateLimited
	case status >= 500 && status <= 599:
		return ServerError
	default:
		return Unknown
	}
}

func UserMessage(status int, detail string) string {
	switch {
	case status == http.StatusBadRequest:
		return orDefault(detail, MsgBadRequest)
	case status == http.StatusUnauthorized:
		return MsgSessionExpiry
	case status == http.StatusForbidden:
		return MsgForbidden
	case status == http.StatusNotFound:
		return MsgNotFound
	case status == http.StatusUnprocessableEntity:
		return orDefault(detail, MsgInvalidData)
	case status == http.StatusTooManyRequests:
		return MsgRateLimited
	case status >= 500 && status <= 599:
		return MsgServer
	default:
		return orDefault(detail, MsgUnexpected)
	}
}

// IsAuth reports whether err means the user has to sign in again. Views show no
// banner for these; the auth collaborator has already redirected.
func IsAuth(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == NotAuthenticated || e.Kind == SessionExpired
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// UserMessageOf returns the user-facing message carried by err, or fallback when err
// is not part of the taxonomy.
func UserMessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.UserMessage != "" {
		return e.UserMessage
	}
	return fallback
}

func orDefault(s, d string) string {
	if s != "" {
		return s
	}
	return d
}
