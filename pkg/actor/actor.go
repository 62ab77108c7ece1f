// Package actor identifies the user performing a mutation. The lot
// service performs no authorization itself; it stamps created_by and
// updated_by with the acting user id supplied by the gateway.
package actor

import (
	"context"
	"fmt"
)

// Actor represents the entity performing an action in the system.
type Actor struct {
	// ID is the opaque identifier of the acting user
	ID string `json:"id"`

	// Email is the actor's email address (display only)
	Email string `json:"email,omitempty"`

	// Name is the actor's display name (display only)
	Name string `json:"name,omitempty"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.ID, a.Email)
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// UserID returns the acting user id from the context, or the system id
// when none is present.
func UserID(ctx context.Context) string {
	a := FromContext(ctx)
	if a == nil {
		return SystemActor().ID
	}
	return a.ID
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// SystemActor returns an Actor representing the system itself.
// Use this for background jobs and system-initiated operations.
func SystemActor() *Actor {
	return &Actor{
		ID:    "00000000-0000-0000-0000-000000000000",
		Email: "system@stocklot.local",
		Name:  "System",
	}
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	if a == nil {
		return true
	}
	return a.ID == SystemActor().ID
}
