package identity

import "context"

// Resolver returns the current user id. An empty id with a nil error means
// no identity is available.
type Resolver interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context) (string, error)

// CurrentUserID calls f.
func (f ResolverFunc) CurrentUserID(ctx context.Context) (string, error) {
	return f(ctx)
}

// Static always resolves to the same id. Static("") is the anonymous resolver.
type Static string

// CurrentUserID always returns s.
func (s Static) CurrentUserID(context.Context) (string, error) {
	return string(s), nil
}

type userIDKey struct{}

// WithUserID stores id in ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// FromContext returns the id stored by WithUserID, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// ContextResolver resolves the id placed in the context by Middleware.
var ContextResolver Resolver = ResolverFunc(func(ctx context.Context) (string, error) {
	return FromContext(ctx), nil
})
