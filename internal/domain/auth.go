package domain

import "context"

type Principal struct {
	Subject   string
	TenantID  TenantID
	RawClaims map[string]any
}

// Authenticated reports whether the token that produced the principal named a subject.
func (p Principal) Authenticated() bool {
	return p.Subject != ""
}

type principalContextKey struct{}

func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	principal, ok := ctx.Value(principalContextKey{}).(Principal)
	return principal, ok
}
