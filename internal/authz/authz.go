// Package authz decides which views need a signed-in user.
package authz

import "github.com/yoockh/aicruiter/internal/models"

type View string

const (
	ViewLanding         View = "landing"
	ViewAuth            View = "auth"
	ViewDashboard       View = "dashboard"
	ViewCreateInterview View = "create-interview"
	ViewInterviewRoom   View = "interview-room"
)

const SignInPath = "/auth"

func ParseView(s string) (View, bool) {
	switch v := View(s); v {
	case ViewLanding, ViewAuth, ViewDashboard, ViewCreateInterview, ViewInterviewRoom:
		return v, true
	}
	return "", false
}

// Guarded reports whether v is only shown to signed-in users. Candidates join the
// interview room from a shared link without an account.
func Guarded(v View) bool {
	return v == ViewDashboard || v == ViewCreateInterview
}

func Authorized(id *models.Identity, v View) bool {
	if !Guarded(v) {
		return true
	}
	return id != nil && id.Email != ""
}

// RedirectFor is where an unauthorized visitor of v is sent, "" when v is public.
func RedirectFor(v View) string {
	if Guarded(v) {
		return SignInPath
	}
	return ""
}
