package route

import "testing"

func TestDecide(t *testing.T) {
	cases := []struct {
		path       string
		hasSession bool
		redirect   string
	}{
		{Landing, false, ""},
		{Landing, true, ""},
		{Todo, false, ""},
		{Todo, true, ""},
		{Dashboard, false, Login},
		{Dashboard + "/tasks", false, Login},
		{Dashboard, true, ""},
		{Login, false, ""},
		{Login, true, Dashboard},
		{Signup, true, Dashboard},
		{Signup, false, ""},
	}
	for _, tc := range cases {
		got := Decide(tc.path, tc.hasSession)
		if got.Redirect != tc.redirect {
			t.Errorf("Decide(%q, %v) = %q, want %q", tc.path, tc.hasSession, got.Redirect, tc.redirect)
		}
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve(Dashboard, false); got != Login {
		t.Fatalf("got %q", got)
	}
	if got := Resolve(Login, true); got != Dashboard {
		t.Fatalf("got %q", got)
	}
}

func TestIsPublic(t *testing.T) {
	if !IsPublic(Todo) || !IsPublic(Landing) || IsPublic(Dashboard) {
		t.Fatalf("unexpected public classification")
	}
}
