package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeSimpleComparison(t *testing.T) {
	tokens, err := Tokenize(`event.code == "permission_denied"`)
	require.NoError(t, err)
	require.Len(t, tokens, 6) // includes trailing EOF
	assert.Equal(t, Token{TokIdent, "event"}, tokens[0])
	assert.Equal(t, Token{TokDot, "."}, tokens[1])
	assert.Equal(t, Token{TokIdent, "code"}, tokens[2])
	assert.Equal(t, Token{TokOpComp, "=="}, tokens[3])
	assert.Equal(t, Token{TokString, `"permission_denied"`}, tokens[4])
}

func TestTokenizeArithmetic(t *testing.T) {
	tokens, err := Tokenize("cost.turns > limits.turns * 0.9")
	require.NoError(t, err)
	assert.Contains(t, tokens, Token{TokOpArith, "*"})
	assert.Contains(t, tokens, Token{TokNumber, "0.9"})
}

func TestTokenizeLogical(t *testing.T) {
	tokens, err := Tokenize("a and b or not c")
	require.NoError(t, err)
	assert.Contains(t, tokens, Token{TokOpLogic, "and"})
	assert.Contains(t, tokens, Token{TokOpLogic, "or"})
	assert.Contains(t, tokens, Token{TokOpLogic, "not"})
}

func TestTokenizeMembership(t *testing.T) {
	tokens, err := Tokenize(`"fs.write" in permissions.required`)
	require.NoError(t, err)
	found := false
	for _, tok := range tokens {
		if tok.Value == "in" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestParseSimpleComparison(t *testing.T) {
	node, err := Parse("a == 1")
	require.NoError(t, err)
	bin := node.(Binary)
	assert.Equal(t, "==", bin.Op)
	assert.Equal(t, Path{Segments: []string{"a"}}, bin.L)
	assert.Equal(t, Literal{Value: float64(1)}, bin.R)
}

func TestParsePath(t *testing.T) {
	node, err := Parse("event.detail.missing")
	require.NoError(t, err)
	assert.Equal(t, Path{Segments: []string{"event", "detail", "missing"}}, node)
}

func TestParseParentheses(t *testing.T) {
	node, err := Parse("(a or b) and c")
	require.NoError(t, err)
	assert.Equal(t, "and", node.(Binary).Op)
}

func TestParseNot(t *testing.T) {
	node, err := Parse("not active")
	require.NoError(t, err)
	assert.Equal(t, "not", node.(Unary).Op)
}

func ctx(m map[string]interface{}) Context { return Context(m) }

func TestResolvePathSimple(t *testing.T) {
	c := ctx(map[string]interface{}{"event": map[string]interface{}{"code": "error"}})
	assert.Equal(t, "error", resolvePath([]string{"event", "code"}, c))
}

func TestResolvePathNested(t *testing.T) {
	c := ctx(map[string]interface{}{"event": map[string]interface{}{"detail": map[string]interface{}{"missing": "fs.write"}}})
	assert.Equal(t, "fs.write", resolvePath([]string{"event", "detail", "missing"}, c))
}

func TestResolvePathMissingReturnsNil(t *testing.T) {
	c := ctx(map[string]interface{}{"event": map[string]interface{}{"code": "error"}})
	assert.Nil(t, resolvePath([]string{"event", "nonexistent"}, c))
}

func TestResolvePathTopLevel(t *testing.T) {
	c := ctx(map[string]interface{}{"name": "test"})
	assert.Equal(t, "test", resolvePath([]string{"name"}, c))
}

func TestEvaluateStringEquality(t *testing.T) {
	c := ctx(map[string]interface{}{"event": map[string]interface{}{"code": "permission_denied"}})
	r, err := EvaluateExpression(`event.code == "permission_denied"`, c)
	require.NoError(t, err)
	assert.True(t, r)
	r, err = EvaluateExpression(`event.code == "other"`, c)
	require.NoError(t, err)
	assert.False(t, r)
}

func TestEvaluateNumericComparison(t *testing.T) {
	c := ctx(map[string]interface{}{"cost": map[string]interface{}{"turns": float64(5)}, "limits": map[string]interface{}{"turns": float64(10)}})
	r, _ := EvaluateExpression("cost.turns > limits.turns", c)
	assert.False(t, r)
	r, _ = EvaluateExpression("cost.turns < limits.turns", c)
	assert.True(t, r)
	r, _ = EvaluateExpression("cost.turns <= 5", c)
	assert.True(t, r)
}

func TestEvaluateArithmetic(t *testing.T) {
	c := map[string]interface{}{"cost": map[string]interface{}{"turns": float64(9)}, "limits": map[string]interface{}{"turns": float64(10)}}
	r, _ := EvaluateExpression("cost.turns > limits.turns * 0.9", ctx(c))
	assert.False(t, r)
	c["cost"].(map[string]interface{})["turns"] = float64(10)
	r, _ = EvaluateExpression("cost.turns > limits.turns * 0.9", ctx(c))
	assert.True(t, r)
}

func TestEvaluateLogicalAnd(t *testing.T) {
	c := ctx(map[string]interface{}{"event": map[string]interface{}{"name": "error", "code": "timeout"}})
	r, _ := EvaluateExpression(`event.name == "error" and event.code == "timeout"`, c)
	assert.True(t, r)
	r, _ = EvaluateExpression(`event.name == "error" and event.code == "other"`, c)
	assert.False(t, r)
}

func TestEvaluateLogicalOr(t *testing.T) {
	c := ctx(map[string]interface{}{"event": map[string]interface{}{"code": "timeout"}})
	r, _ := EvaluateExpression(`event.code == "timeout" or event.code == "rate_limit"`, c)
	assert.True(t, r)
	r, _ = EvaluateExpression(`event.code == "network" or event.code == "rate_limit"`, c)
	assert.False(t, r)
}

func TestEvaluateLogicalNot(t *testing.T) {
	c := map[string]interface{}{"active": false}
	r, _ := EvaluateExpression("not active", ctx(c))
	assert.True(t, r)
	c["active"] = true
	r, _ = EvaluateExpression("not active", ctx(c))
	assert.False(t, r)
}

func TestEvaluateMembershipIn(t *testing.T) {
	c := ctx(map[string]interface{}{"permissions": map[string]interface{}{"required": []interface{}{"fs.read", "fs.write"}}})
	r, _ := EvaluateExpression(`"fs.write" in permissions.required`, c)
	assert.True(t, r)
	r, _ = EvaluateExpression(`"fs.delete" in permissions.required`, c)
	assert.False(t, r)
}

func TestEvaluateMembershipNotIn(t *testing.T) {
	c := ctx(map[string]interface{}{"permissions": map[string]interface{}{"granted": []interface{}{"fs.read"}}})
	r, _ := EvaluateExpression(`"fs.write" not in permissions.granted`, c)
	assert.True(t, r)
	r, _ = EvaluateExpression(`"fs.read" not in permissions.granted`, c)
	assert.False(t, r)
}

func TestEvaluateComplexExpression(t *testing.T) {
	c := ctx(map[string]interface{}{
		"event": map[string]interface{}{"name": "error", "code": "permission_denied"},
		"cost":  map[string]interface{}{"turns": float64(5)},
		"limits": map[string]interface{}{"turns": float64(10)},
	})
	expr := `event.name == "error" and (event.code == "permission_denied" or event.code == "quota_exceeded")`
	r, err := EvaluateExpression(expr, c)
	require.NoError(t, err)
	assert.True(t, r)
}

func TestEvaluateBooleanLiterals(t *testing.T) {
	r, _ := EvaluateExpression("true", ctx(map[string]interface{}{}))
	assert.True(t, r)
	r, _ = EvaluateExpression("false", ctx(map[string]interface{}{}))
	assert.False(t, r)
}

func TestEvaluateNullLiteral(t *testing.T) {
	c := ctx(map[string]interface{}{"value": nil})
	r, _ := EvaluateExpression("value == null", c)
	assert.True(t, r)
}

func TestEvaluateMissingPathIsNull(t *testing.T) {
	r, _ := EvaluateExpression("missing == null", ctx(map[string]interface{}{}))
	assert.True(t, r)
}

func TestSubstituteSimple(t *testing.T) {
	c := ctx(map[string]interface{}{"directive": map[string]interface{}{"name": "deploy_staging"}})
	result := SubstituteTemplates("${directive.name}", c)
	assert.Equal(t, "deploy_staging", result)
}

func TestSubstituteInDict(t *testing.T) {
	c := ctx(map[string]interface{}{
		"directive": map[string]interface{}{"name": "deploy"},
		"event":     map[string]interface{}{"detail": map[string]interface{}{"missing": "fs.write"}},
	})
	obj := map[string]interface{}{
		"original_directive": "${directive.name}",
		"missing_cap":         "${event.detail.missing}",
	}
	result := SubstituteTemplates(obj, c).(map[string]interface{})
	assert.Equal(t, "deploy", result["original_directive"])
	assert.Equal(t, "fs.write", result["missing_cap"])
}

func TestSubstituteMissingLeavesTemplate(t *testing.T) {
	result := SubstituteTemplates("${missing.path}", ctx(map[string]interface{}{}))
	assert.Equal(t, "${missing.path}", result)
}

func TestSubstituteInList(t *testing.T) {
	c := ctx(map[string]interface{}{"name": "test"})
	obj := []interface{}{"${name}", "static"}
	result := SubstituteTemplates(obj, c).([]interface{})
	assert.Equal(t, []interface{}{"test", "static"}, result)
}

func TestSubstituteNested(t *testing.T) {
	c := ctx(map[string]interface{}{"a": "x", "b": "y"})
	obj := map[string]interface{}{
		"outer": map[string]interface{}{"inner": "${a}"},
		"list":  []interface{}{"${b}"},
	}
	result := SubstituteTemplates(obj, c).(map[string]interface{})
	assert.Equal(t, "x", result["outer"].(map[string]interface{})["inner"])
	assert.Equal(t, "y", result["list"].([]interface{})[0])
}

func TestSubstituteNonStringPassthrough(t *testing.T) {
	c := ctx(map[string]interface{}{})
	assert.Equal(t, 123, SubstituteTemplates(123, c))
	assert.Equal(t, true, SubstituteTemplates(true, c))
	assert.Nil(t, SubstituteTemplates(nil, c))
}

func TestEmptyExpressionRaises(t *testing.T) {
	_, err := EvaluateExpression("", ctx(map[string]interface{}{}))
	require.Error(t, err)
	var eerr *ExpressionError
	require.ErrorAs(t, err, &eerr)
}

func TestDivisionByZero(t *testing.T) {
	c := ctx(map[string]interface{}{"a": float64(10), "b": float64(0)})
	r, err := EvaluateExpression("a / b", c)
	require.NoError(t, err)
	assert.False(t, r)
}

func TestComparisonWithNone(t *testing.T) {
	c := ctx(map[string]interface{}{"value": nil})
	r, _ := EvaluateExpression("value < 10", c)
	assert.False(t, r)
	r, _ = EvaluateExpression("value > 10", c)
	assert.False(t, r)
}

func TestArithmeticWithNone(t *testing.T) {
	c := ctx(map[string]interface{}{"a": nil, "b": float64(5)})
	r, err := EvaluateExpression("a + b", c)
	require.NoError(t, err)
	assert.True(t, r)
}
