package policyopa

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.cosmos.authz.decision"

//go:embed authz.rego
var defaultModule string

type Engine struct {
	query rego.PreparedEvalQuery
}

type Option func(*options)

type options struct {
	moduleName string
	module     string
	query      string
}

// WithModule replaces the embedded policy. The module must expose the same
// decision document.
func WithModule(name, source string) Option {
	return func(o *options) {
		o.moduleName = name
		o.module = source
	}
}

func NewEngine(ctx context.Context, opts ...Option) (*Engine, error) {
	o := options{moduleName: "authz.rego", module: defaultModule, query: defaultQuery}
	for _, opt := range opts {
		opt(&o)
	}

	compiler := ast.NewCompiler()
	r := rego.New(
		rego.Query(o.query),
		rego.Compiler(compiler),
		rego.StrictBuiltinErrors(true),
		rego.Module(o.moduleName, o.module),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare authz policy: %w", err)
	}
	if err := assertNoForbiddenBuiltins(compiler); err != nil {
		return nil, err
	}
	return &Engine{query: prepared}, nil
}

func (e *Engine) Decide(ctx context.Context, input domain.DecisionInput) (domain.AuthorizationDecision, error) {
	decision := domain.AuthorizationDecision{Requirement: input.Requirement}
	if e == nil {
		return decision, errors.New("policy engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(toInput(input)))
	if err != nil {
		return decision, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return decision, errors.New("empty policy result")
	}
	doc, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return decision, fmt.Errorf("unexpected policy result %T", results[0].Expressions[0].Value)
	}
	allowed, ok := doc["allow"].(bool)
	if !ok {
		return decision, errors.New("policy result missing allow")
	}
	decision.Allowed = allowed
	if granted, ok := doc["granted"].([]any); ok && allowed && len(granted) > 0 {
		decision.Group, _ = granted[0].(string)
	}
	return decision, nil
}

func toInput(input domain.DecisionInput) map[string]any {
	groups := make(map[string]any, len(input.Groups))
	for name, perms := range input.Groups {
		groups[name] = perms.Sorted()
	}
	permissions := input.Permissions.Sorted()
	return map[string]any{
		"permissions": permissions,
		"groups":      groups,
		"requirement": map[string]any{
			"groups":   input.Requirement.NormalizedGroups(),
			"operator": string(input.Requirement.Operator),
		},
	}
}
