package rbac

import (
	"context"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
)

// Evaluate applies the two-level rule: any group of the requirement may grant
// access; within a group the operator decides whether the caller needs every
// permission of the group or just one. Groups the token does not define, or
// defines as empty, never grant access.
func Evaluate(perms domain.PermissionSet, groups domain.GroupDefinitions, req domain.Requirement) domain.AuthorizationDecision {
	names := req.NormalizedGroups()
	decision := domain.AuthorizationDecision{Requirement: req}
	if len(names) == 0 {
		decision.Allowed = true
		return decision
	}
	for _, name := range names {
		if satisfies(perms, groups[name], req.Operator) {
			decision.Allowed = true
			decision.Group = name
			return decision
		}
	}
	return decision
}

func satisfies(perms domain.PermissionSet, group domain.PermissionSet, op domain.Operator) bool {
	if len(group) == 0 {
		return false
	}
	switch op {
	case domain.OperatorAnd:
		return perms.ContainsAll(group)
	case domain.OperatorOr:
		return perms.Intersects(group)
	default:
		return false
	}
}

type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) Decide(_ context.Context, input domain.DecisionInput) (domain.AuthorizationDecision, error) {
	return Evaluate(input.Permissions, input.Groups, input.Requirement), nil
}
