package expression

import "fmt"

// Context is the mapping expressions are evaluated against: checkpoint
// event, directive info, accumulated cost, and configured limits.
type Context map[string]interface{}

// EvaluateExpression parses and evaluates src against ctx in one step.
// This is the entry point hooks call at checkpoint time; Parse is exposed
// separately so a harness can pre-compile a hook's "when" clause once at
// registration and call Evaluate repeatedly without re-tokenizing.
func EvaluateExpression(src string, ctx Context) (bool, error) {
	node, err := Parse(src)
	if err != nil {
		return false, err
	}
	return Evaluate(node, ctx), nil
}

// Evaluate runs a pre-parsed expression and coerces the result to a
// boolean via standard truthiness, per "Result coercion at top level: any
// truthy value implies match". Runtime errors (there are very few, since
// the grammar has no partial-application failure modes beyond malformed
// input the parser already rejected) make Evaluate return false rather
// than panicking, so a misbehaving hook never crashes the harness.
func Evaluate(node Node, ctx Context) bool {
	val, err := eval(node, ctx)
	if err != nil {
		return false
	}
	return truthy(val)
}

func eval(node Node, ctx Context) (interface{}, error) {
	switch n := node.(type) {
	case Literal:
		return n.Value, nil
	case Path:
		return resolvePath(n.Segments, ctx), nil
	case Unary:
		val, err := eval(n.X, ctx)
		if err != nil {
			return nil, err
		}
		if n.Op == "not" {
			return !truthy(val), nil
		}
		return nil, fmt.Errorf("expression: unknown unary operator %q", n.Op)
	case Binary:
		return evalBinary(n, ctx)
	default:
		return nil, fmt.Errorf("expression: unknown node type %T", node)
	}
}

func evalBinary(n Binary, ctx Context) (interface{}, error) {
	if n.Op == "and" {
		l, err := eval(n.L, ctx)
		if err != nil {
			return nil, err
		}
		if !truthy(l) {
			return false, nil
		}
		r, err := eval(n.R, ctx)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	}
	if n.Op == "or" {
		l, err := eval(n.L, ctx)
		if err != nil {
			return nil, err
		}
		if truthy(l) {
			return true, nil
		}
		r, err := eval(n.R, ctx)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	}

	l, err := eval(n.L, ctx)
	if err != nil {
		return nil, err
	}
	r, err := eval(n.R, ctx)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "==":
		return looseEqual(l, r), nil
	case "!=":
		return !looseEqual(l, r), nil
	case "<", "<=", ">", ">=":
		return compareNumeric(n.Op, l, r), nil
	case "+", "-", "*", "/":
		return arithmetic(n.Op, l, r), nil
	case "in":
		return membership(l, r), nil
	case "not_in":
		return !membership(l, r), nil
	default:
		return nil, fmt.Errorf("expression: unknown binary operator %q", n.Op)
	}
}

// resolvePath walks ctx by segments; a missing segment at any depth
// yields nil rather than an error.
func resolvePath(segments []string, ctx Context) interface{} {
	var cur interface{} = map[string]interface{}(ctx)
	for _, seg := range segments {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return cur
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case int:
		return val != 0
	case string:
		return val != ""
	case []interface{}:
		return len(val) > 0
	case map[string]interface{}:
		return len(val) > 0
	default:
		return true
	}
}

func looseEqual(a, b interface{}) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b) && sameKind(a, b)
}

func sameKind(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprintf("%T", a) == fmt.Sprintf("%T", b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// compareNumeric treats a non-numeric operand (including nil) as
// incomparable, matching the reference semantics where "value < 10"
// is false when value is null.
func compareNumeric(op string, l, r interface{}) bool {
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if !lok || !rok {
		return false
	}
	switch op {
	case "<":
		return lf < rf
	case "<=":
		return lf <= rf
	case ">":
		return lf > rf
	case ">=":
		return lf >= rf
	default:
		return false
	}
}

// arithmetic treats a missing/non-numeric operand as 0, and division by
// zero yields 0 rather than raising.
func arithmetic(op string, l, r interface{}) float64 {
	lf, _ := toFloat(l)
	rf, _ := toFloat(r)
	switch op {
	case "+":
		return lf + rf
	case "-":
		return lf - rf
	case "*":
		return lf * rf
	case "/":
		if rf == 0 {
			return 0
		}
		return lf / rf
	default:
		return 0
	}
}

func membership(needle, haystack interface{}) bool {
	list, ok := haystack.([]interface{})
	if !ok {
		return false
	}
	for _, item := range list {
		if looseEqual(needle, item) {
			return true
		}
	}
	return false
}
