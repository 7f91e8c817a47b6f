package shared

import "context"

// Identity describes the authenticated caller for a single request. It is
// resolved once at the edge from the gateway headers and carried in the
// request context; core services never read ambient state.
type Identity struct {
	UserID int64
	Role   string
}

type identityContextKey struct{}

// ContextWithIdentity stores the caller identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the caller identity from context. The second
// return value is false for unauthenticated requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
