package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidTenant          = errors.New("invalid tenant")
	ErrTenantNotResolved      = errors.New("tenant not resolved")
	ErrSchemaNotFound         = errors.New("schema not found")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrPermissionDenied       = errors.New("permission denied")

	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrDBUnavailable   = errors.New("db unavailable")
)

type InvalidTenantError struct {
	Reason string
}

func (e *InvalidTenantError) Error() string {
	if e == nil || e.Reason == "" {
		return ErrInvalidTenant.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidTenant, e.Reason)
}

func (e *InvalidTenantError) Unwrap() error {
	return ErrInvalidTenant
}

type SchemaNotFoundError struct {
	Schema string
}

func (e *SchemaNotFoundError) Error() string {
	if e == nil {
		return ErrSchemaNotFound.Error()
	}
	return fmt.Sprintf("%s: %q", ErrSchemaNotFound, e.Schema)
}

func (e *SchemaNotFoundError) Unwrap() error {
	return ErrSchemaNotFound
}

// PermissionDeniedError carries the unmet requirement only; the caller's own permissions never go here.
type PermissionDeniedError struct {
	Groups   []string
	Operator Operator
}

func NewPermissionDenied(req Requirement) *PermissionDeniedError {
	return &PermissionDeniedError{Groups: req.NormalizedGroups(), Operator: req.Operator}
}

func (e *PermissionDeniedError) Error() string {
	if e == nil {
		return ErrPermissionDenied.Error()
	}
	return fmt.Sprintf("%s: groups [%s] with operator %s", ErrPermissionDenied, strings.Join(e.Groups, ", "), e.Operator)
}

func (e *PermissionDeniedError) Unwrap() error {
	return ErrPermissionDenied
}

func IsPermissionDenied(err error) (*PermissionDeniedError, bool) {
	var denied *PermissionDeniedError
	if errors.As(err, &denied) {
		return denied, true
	}
	return nil, false
}
