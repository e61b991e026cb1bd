package flows

import "context"

type LogoutSessionStore interface {
	Delete(ctx context.Context, identity string) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	SessionStore LogoutSessionStore
}

// RunLogout removes the identity's session record. A missing record is not
// an error.
func RunLogout(ctx context.Context, identity string, deps LogoutDeps) error {
	return deps.SessionStore.Delete(ctx, identity)
}
