package domain

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

type Operator string

const (
	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
)

func ParseOperator(raw string) (Operator, error) {
	switch Operator(strings.ToUpper(strings.TrimSpace(raw))) {
	case OperatorAnd:
		return OperatorAnd, nil
	case OperatorOr:
		return OperatorOr, nil
	default:
		return "", fmt.Errorf("%w: unknown operator %q", ErrInvalidArgument, raw)
	}
}

// NormalizePermission trims and case-folds a permission or group name.
func NormalizePermission(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

type PermissionSet map[string]struct{}

func NewPermissionSet(values ...string) PermissionSet {
	set := make(PermissionSet, len(values))
	for _, value := range values {
		set.Add(value)
	}
	return set
}

func (s PermissionSet) Add(value string) {
	normalized := NormalizePermission(value)
	if normalized == "" {
		return
	}
	s[normalized] = struct{}{}
}

func (s PermissionSet) Has(value string) bool {
	_, ok := s[value]
	return ok
}

// ContainsAll reports whether s is a superset of other.
func (s PermissionSet) ContainsAll(other PermissionSet) bool {
	for value := range other {
		if !s.Has(value) {
			return false
		}
	}
	return true
}

// Intersects reports whether s and other share at least one permission.
func (s PermissionSet) Intersects(other PermissionSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for value := range small {
		if large.Has(value) {
			return true
		}
	}
	return false
}

func (s PermissionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for value := range s {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

// GroupDefinitions maps a normalized group name to the permissions that satisfy it.
type GroupDefinitions map[string]PermissionSet

// Requirement is the declared guard on an operation: OR across Groups, Operator within each group.
type Requirement struct {
	Groups   []string
	Operator Operator
}

func Require(op Operator, groups ...string) Requirement {
	return Requirement{Groups: groups, Operator: op}
}

// NormalizedGroups returns the non-empty group names, trimmed and case-folded, without duplicates.
func (r Requirement) NormalizedGroups() []string {
	seen := make(map[string]struct{}, len(r.Groups))
	out := make([]string, 0, len(r.Groups))
	for _, group := range r.Groups {
		normalized := NormalizePermission(group)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func (r Requirement) String() string {
	return fmt.Sprintf("groups=[%s] operator=%s", strings.Join(r.NormalizedGroups(), ","), r.Operator)
}

type AuthorizationDecision struct {
	Allowed bool
	// Group is the first satisfied group when Allowed is true.
	Group       string
	Requirement Requirement
}

type DecisionInput struct {
	Permissions PermissionSet
	Groups      GroupDefinitions
	Requirement Requirement
}

type Decider interface {
	Decide(ctx context.Context, input DecisionInput) (AuthorizationDecision, error)
}
