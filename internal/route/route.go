// Package route decides which screens a visitor may reach with or without a session.
package route

import "strings"

const (
	Landing   = "/"
	Login     = "/login"
	Signup    = "/signup"
	Todo      = "/todo"
	Dashboard = "/dashboard"
)

type Decision struct {
	// Redirect is empty when the visitor may proceed.
	Redirect string
}

func (d Decision) Allowed() bool { return d.Redirect == "" }

func IsPublic(path string) bool {
	return path == Landing ||
		strings.HasPrefix(path, Login) ||
		strings.HasPrefix(path, Signup) ||
		strings.HasPrefix(path, Todo)
}

func IsProtected(path string) bool {
	return strings.HasPrefix(path, Dashboard)
}

// Decide applies the access rules: protected screens need a session, and signed-in
// visitors are sent from the sign-in/sign-up screens to the dashboard.
func Decide(path string, hasSession bool) Decision {
	if !hasSession && IsProtected(path) {
		return Decision{Redirect: Login}
	}
	if hasSession && (path == Login || path == Signup) {
		return Decision{Redirect: Dashboard}
	}
	return Decision{}
}

// Resolve follows redirects until an allowed path is reached.
func Resolve(path string, hasSession bool) string {
	for i := 0; i < 4; i++ {
		d := Decide(path, hasSession)
		if d.Allowed() {
			return path
		}
		path = d.Redirect
	}
	return path
}
