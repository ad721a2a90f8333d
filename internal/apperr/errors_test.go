package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestFromStatus_MessageTable(t *testing.T) {
	cases := []struct {
		status int
		detail string
		kind   Kind
		want   string
	}{
		{400, "", InvalidInput, MsgBadRequest},
		{400, "title too long", InvalidInput, "title too long"},
		{401, "whatever", SessionExpired, MsgSessionExpiry},
		{403, "", Forbidden, MsgForbidden},
		{404, "Task not found", NotFound, MsgNotFound},
		{422, "", InvalidInput, MsgInvalidData},
		{422, "title: too short", InvalidInput, "title: too short"},
		{429, "", RateLimited, MsgRateLimited},
		{500, "boom", ServerError, MsgServer},
		{502, "", ServerError, MsgServer},
		{503, "", ServerError, MsgServer},
		{504, "", ServerError, MsgServer},
		{418, "", Unknown, MsgUnexpected},
		{418, "teapot", Unknown, "teapot"},
	}
	for _, tc := range cases {
		e := FromStatus(tc.status, tc.detail)
		if e.Kind != tc.kind {
			t.Errorf("status %d: kind=%v want %v", tc.status, e.Kind, tc.kind)
		}
		if e.UserMessage != tc.want {
			t.Errorf("status %d detail %q: user message %q want %q", tc.status, tc.detail, e.UserMessage, tc.want)
		}
		if e.Status != tc.status {
			t.Errorf("status %d: got status %d", tc.status, e.Status)
		}
	}
}

func TestFromStatus_TechnicalMessageFallback(t *testing.T) {
	e := FromStatus(500, "")
	if e.Message != "Request failed with status 500" {
		t.Fatalf("unexpected technical message %q", e.Message)
	}
}

func TestIsAuth_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("list tasks: %w", SessionExpiredError())
	if !IsAuth(err) {
		t.Fatalf("expected wrapped session-expired error to be auth-class")
	}
	if IsAuth(FromStatus(403, "")) {
		t.Fatalf("forbidden is not auth-class")
	}
	if IsAuth(errors.New("plain")) {
		t.Fatalf("plain error is not auth-class")
	}
}

func TestErrorsIs_MatchesByKind(t *testing.T) {
	err := fmt.Errorf("delete: %w", NotFoundError("task 3 not found"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is to match ErrNotFound")
	}
	if errors.Is(err, ErrSessionExpired) {
		t.Fatalf("unexpected match against ErrSessionExpired")
	}
}

func TestUserMessageOf_Fallback(t *testing.T) {
	if got := UserMessageOf(errors.New("x"), "fallback"); got != "fallback" {
		t.Fatalf("got %q", got)
	}
	if got := UserMessageOf(NetworkError(errors.New("dial")), "fallback"); got != MsgNetwork {
		t.Fatalf("got %q", got)
	}
}
