package harness

import "github.com/leolilley/kiwi-kernel/pkg/harness/expression"

// Hook is a registered checkpoint intervention: when its When expression
// evaluates truthy against the checkpoint context, the harness short-circuits
// to Directive with Inputs (template-substituted against the same context).
type Hook struct {
	When      string
	Directive string
	Inputs    map[string]interface{}

	compiled expression.Node
}

// CompileHooks pre-parses every hook's When expression once, so repeated
// checkpoint evaluation never re-tokenizes. Returns ExpressionError for the
// first invalid expression, per the "invalid expression raises at
// registration time" contract.
func CompileHooks(hooks []Hook) ([]Hook, error) {
	compiled := make([]Hook, len(hooks))
	for i, h := range hooks {
		node, err := expression.Parse(h.When)
		if err != nil {
			return nil, err
		}
		h.compiled = node
		compiled[i] = h
	}
	return compiled, nil
}

// matchHook evaluates each hook's compiled expression in order against ctx
// and returns the first truthy match, implementing first-match semantics —
// never multiple hooks fire from a single checkpoint.
func matchHook(hooks []Hook, ctx expression.Context) *Hook {
	for i := range hooks {
		h := &hooks[i]
		if expression.Evaluate(h.compiled, ctx) {
			return h
		}
	}
	return nil
}
