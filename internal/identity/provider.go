// Package identity owns who the local user is. A Provider authenticates
// against a remote endpoint (or simulates one when unconfigured); the
// Manager holds the resulting identity for the rest of the application.
package identity

import (
	"context"
	"fmt"

	"github.com/zxweb/zx/internal/roster"
)

// Provider authenticates the local user. Implementations must not mutate
// any application state; they only produce a profile.
type Provider interface {
	// SignInWithToken exchanges an OAuth id token for a profile.
	SignInWithToken(ctx context.Context, idToken string) (roster.User, error)
	// RequestCode asks for a one-time code to be sent to the phone number.
	RequestCode(ctx context.Context, phone string) error
	// VerifyCode exchanges the phone number and received code for a profile.
	VerifyCode(ctx context.Context, phone, code string) (roster.User, error)
}

// Change is published on the bus whenever the signed-in identity changes.
// Fresh distinguishes an interactive sign-in, which seeds a brand new
// profile, from an identity restored out of the snapshot at startup.
type Change struct {
	User  roster.User
	Fresh bool
}

// AuthError is any authentication failure. The UI treats it as a signal to
// return to the pre-login state; it never crashes the session.
type AuthError struct {
	Op      string
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("auth %s: %s (status %d)", e.Op, e.Message, e.Status)
	}
	return fmt.Sprintf("auth %s: %s", e.Op, e.Message)
}
