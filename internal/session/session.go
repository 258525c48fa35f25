// Package session holds the authenticated identity and its bearer token for
// the upstream C-CAP API, persisted across dashboard reloads. The persisted
// record is a versioned envelope so future shape changes can be migrated
// instead of silently failing to parse.
package session

import (
	"context"
	"errors"
)

// EnvelopeVersion is the current persisted envelope schema version.
const EnvelopeVersion = 1

// Errors returned by Store implementations.
var (
	// ErrNotFound is returned when no session exists for the key. A
	// malformed or unreadable persisted record is reported the same way:
	// it is treated as "no session", never propagated as a parse error.
	ErrNotFound = errors.New("session not found")

	// ErrIncomplete is returned by Save when the envelope violates the
	// session invariant: identity and token must be set together.
	ErrIncomplete = errors.New("session envelope requires both identity and token")
)

// Role is the role of an authenticated identity.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// StudentProfile is the subset of a student's profile the session needs for
// routing decisions. The full profile stays upstream.
type StudentProfile struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	CurrentBucket  string `json:"current_bucket,omitempty"`
	OnboardingStep int    `json:"onboarding_step"`
}

// Identity is the authenticated user's profile record as returned by the
// upstream identity endpoint.
type Identity struct {
	ID             string          `json:"id"`
	Email          string          `json:"email"`
	Username       string          `json:"username"`
	FullName       string          `json:"full_name"`
	Role           Role            `json:"role"`
	StudentProfile *StudentProfile `json:"student_profile,omitempty"`
}

// OnboardingComplete reports whether the identity may access regular
// student views. Admins always pass; a student passes once the profile's
// onboarding step reaches zero.
func (id *Identity) OnboardingComplete() bool {
	if id.Role != RoleStudent {
		return true
	}
	if id.StudentProfile == nil {
		return false
	}
	return id.StudentProfile.OnboardingStep == 0
}

// Envelope is the persisted session record. Invariant: Token is non-empty
// if and only if Identity is non-nil.
type Envelope struct {
	Version  int       `json:"version"`
	Identity *Identity `json:"identity"`
	Token    string    `json:"token"`
}

// validate enforces the envelope invariant before persisting.
func (e *Envelope) validate() error {
	if e.Identity == nil || e.Token == "" {
		return ErrIncomplete
	}
	return nil
}

// Store persists session envelopes keyed by session ID. Implementations
// provide single-key atomicity and nothing more: no retries, no
// transactions across keys.
type Store interface {
	// Load returns the envelope for the key, or ErrNotFound when absent
	// or unreadable.
	Load(ctx context.Context, key string) (*Envelope, error)

	// Save persists the envelope, overwriting any prior value.
	Save(ctx context.Context, key string, env *Envelope) error

	// Clear removes the envelope. Clearing an absent key is not an
	// error.
	Clear(ctx context.Context, key string) error
}
