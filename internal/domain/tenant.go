package domain

import "strings"

// DefaultTenant is the schema used when no request is in flight (bootstrap, catalog checks).
const DefaultTenant TenantID = "public"

// maxTenantLength mirrors the Postgres identifier limit (NAMEDATALEN - 1).
const maxTenantLength = 63

// TenantID identifies an organization and names its storage schema.
type TenantID string

func (t TenantID) String() string {
	return string(t)
}

func (t TenantID) IsZero() bool {
	return t == ""
}

func NormalizeTenantID(raw string) (TenantID, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", &InvalidTenantError{Reason: "organization claim is empty"}
	}
	if len(value) > maxTenantLength {
		return "", &InvalidTenantError{Reason: "organization name exceeds 63 bytes"}
	}
	for _, r := range value {
		if r < 0x20 || r == 0x7f {
			return "", &InvalidTenantError{Reason: "organization name contains control characters"}
		}
	}
	return TenantID(value), nil
}
