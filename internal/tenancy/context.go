// Package tenancy holds the per-request tenant cell. A cell is created when a
// request enters the server, filled once the token is read and cleared when
// the request leaves, including when the handler panics.
package tenancy

import (
	"context"
	"sync"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
)

type Context struct {
	mu sync.RWMutex
	id domain.TenantID
}

func New() *Context {
	return &Context{}
}

// Set replaces any previous value.
func (c *Context) Set(id domain.TenantID) {
	c.mu.Lock()
	c.id = id
	c.mu.Unlock()
}

func (c *Context) Get() (domain.TenantID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id, c.id != ""
}

// Clear is idempotent.
func (c *Context) Clear() {
	c.mu.Lock()
	c.id = ""
	c.mu.Unlock()
}

type contextKey struct{}

func WithContext(ctx context.Context, cell *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, cell)
}

func FromContext(ctx context.Context) *Context {
	if ctx == nil {
		return nil
	}
	cell, _ := ctx.Value(contextKey{}).(*Context)
	return cell
}

// Scope attaches a fresh cell to ctx and returns a release func that clears it.
func Scope(ctx context.Context) (context.Context, func()) {
	cell := New()
	return WithContext(ctx, cell), cell.Clear
}

// TenantFrom returns the tenant bound to the request carried by ctx, if any.
func TenantFrom(ctx context.Context) (domain.TenantID, bool) {
	cell := FromContext(ctx)
	if cell == nil {
		return "", false
	}
	return cell.Get()
}

// Current resolves the schema for the caller. Outside a request it falls back
// to the default tenant; inside a request with an empty cell it fails.
func Current(ctx context.Context, fallback domain.TenantID) (domain.TenantID, error) {
	cell := FromContext(ctx)
	if cell == nil {
		if fallback.IsZero() {
			return domain.DefaultTenant, nil
		}
		return fallback, nil
	}
	id, ok := cell.Get()
	if !ok {
		return "", domain.ErrTenantNotResolved
	}
	return id, nil
}

// RequireTenant fails with ErrTenantNotResolved when no tenant was bound.
func RequireTenant(ctx context.Context) (domain.TenantID, error) {
	id, ok := TenantFrom(ctx)
	if !ok {
		return "", domain.ErrTenantNotResolved
	}
	return id, nil
}
