package claims

import (
	"fmt"
	"strings"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
)

const (
	DefaultTenantClaim      = "organization"
	DefaultPermissionsClaim = "autorisation"
	DefaultGroupsClaim      = "group_permissions"
)

// Extractor maps raw token claims onto the tenant, permission and group model.
// Claims with an unexpected shape read as empty.
type Extractor struct {
	tenantClaim      string
	permissionsClaim string
	groupsClaim      string
}

type Option func(*Extractor)

func WithTenantClaim(name string) Option {
	return func(e *Extractor) {
		if name = strings.TrimSpace(name); name != "" {
			e.tenantClaim = name
		}
	}
}

func WithPermissionsClaim(name string) Option {
	return func(e *Extractor) {
		if name = strings.TrimSpace(name); name != "" {
			e.permissionsClaim = name
		}
	}
}

func WithGroupsClaim(name string) Option {
	return func(e *Extractor) {
		if name = strings.TrimSpace(name); name != "" {
			e.groupsClaim = name
		}
	}
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		tenantClaim:      DefaultTenantClaim,
		permissionsClaim: DefaultPermissionsClaim,
		groupsClaim:      DefaultGroupsClaim,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tenant reads the organization claim and normalizes it into a tenant id.
func (e *Extractor) Tenant(claims map[string]any) (domain.TenantID, error) {
	raw, ok := claims[e.tenantClaim]
	if !ok || raw == nil {
		return "", &domain.InvalidTenantError{Reason: fmt.Sprintf("claim %q is missing", e.tenantClaim)}
	}
	value, ok := raw.(string)
	if !ok {
		return "", &domain.InvalidTenantError{Reason: fmt.Sprintf("claim %q is not a string", e.tenantClaim)}
	}
	return domain.NormalizeTenantID(value)
}

func (e *Extractor) Permissions(claims map[string]any) domain.PermissionSet {
	return toPermissionSet(claims[e.permissionsClaim])
}

// Groups reads the group name to permissions map. Each value may be a list or a
// single string; groups that end up empty are dropped.
func (e *Extractor) Groups(claims map[string]any) domain.GroupDefinitions {
	var raw map[string]any
	switch v := claims[e.groupsClaim].(type) {
	case map[string]any:
		raw = v
	case map[string][]string:
		raw = make(map[string]any, len(v))
		for name, perms := range v {
			raw[name] = perms
		}
	default:
		return domain.GroupDefinitions{}
	}
	groups := make(domain.GroupDefinitions, len(raw))
	for name, value := range raw {
		group := domain.NormalizePermission(name)
		if group == "" {
			continue
		}
		perms := toPermissionSet(value)
		if len(perms) == 0 {
			continue
		}
		if existing, ok := groups[group]; ok {
			for p := range perms {
				existing[p] = struct{}{}
			}
			continue
		}
		groups[group] = perms
	}
	return groups
}

func (e *Extractor) Principal(claims map[string]any) domain.Principal {
	principal := domain.Principal{RawClaims: claims}
	if subject, _ := claims["sub"].(string); strings.TrimSpace(subject) != "" {
		principal.Subject = strings.TrimSpace(subject)
	}
	if tenant, err := e.Tenant(claims); err == nil {
		principal.TenantID = tenant
	}
	return principal
}

func toPermissionSet(raw any) domain.PermissionSet {
	set := domain.PermissionSet{}
	switch v := raw.(type) {
	case string:
		set.Add(v)
	case []any:
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				set.Add(s)
			}
		}
	case []string:
		for _, entry := range v {
			set.Add(entry)
		}
	}
	return set
}
