// Package validator implements the chain validator (spec component C):
// parent-accepts-child parameter checks and the terminal-primitive
// invariant, both performed pre-execution against an already-resolved
// chain.
package validator

import (
	"fmt"

	"github.com/leolilley/kiwi-kernel/pkg/manifest"
	"github.com/leolilley/kiwi-kernel/pkg/resolver"
)

// recognizedPrimitives enumerates the primitive identifiers the executor
// knows how to dispatch; a chain may only terminate on one of these.
var recognizedPrimitives = map[string]bool{
	"http_client": true,
	"subprocess":  true,
}

// Severity distinguishes a hard failure from a downgraded warning.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is a single validation complaint, tied to the link that raised it.
type Finding struct {
	Severity Severity
	ToolID   string
	Message  string
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.ToolID, f.Message)
}

// Result is the outcome of validating a chain.
type Result struct {
	Valid    bool
	Errors   []Finding
	Warnings []Finding
}

// Mode controls whether errors fail the run or are merely recorded as
// warnings.
type Mode string

const (
	// ModeStrict is the default on execute: any error invalidates the result.
	ModeStrict Mode = "strict"
	// ModeNonStrict downgrades every would-be error to a warning.
	ModeNonStrict Mode = "non_strict"
)

// Validate runs both pre-execution checks against chain and returns a
// Result. In ModeNonStrict, Result.Valid is always true and all findings
// land in Warnings; in ModeStrict, any finding in Errors makes Valid false.
func Validate(chain resolver.Chain, mode Mode) Result {
	var raised []Finding
	raised = append(raised, checkParentAcceptsChild(chain)...)
	raised = append(raised, checkTerminalPrimitive(chain)...)

	res := Result{Valid: true}
	for _, f := range raised {
		if mode == ModeNonStrict {
			f.Severity = SeverityWarning
		}
		switch f.Severity {
		case SeverityError:
			res.Errors = append(res.Errors, f)
			res.Valid = false
		default:
			res.Warnings = append(res.Warnings, f)
		}
	}
	return res
}

// checkParentAcceptsChild walks adjacent (child, parent) pairs. Every
// parameter the child declares must be one the parent can consume: either
// declared directly in the parent's parameter list, or referenceable via
// placeholder substitution in the parent's merged config (i.e. the parent
// embeds "{name}" somewhere in its config tree). A child may narrow a
// shared parameter's type but may not introduce one the parent has no path
// to consume.
func checkParentAcceptsChild(chain resolver.Chain) []Finding {
	var findings []Finding
	for i := 0; i < len(chain)-1; i++ {
		child := chain[i]
		parent := chain[i+1]

		parentParams := make(map[string]manifest.Parameter, len(parent.Manifest.Parameters))
		for _, p := range parent.Manifest.Parameters {
			parentParams[p.Name] = p
		}
		parentPlaceholders := collectPlaceholders(parent.Manifest.Config)

		for _, cp := range child.Manifest.Parameters {
			pp, declared := parentParams[cp.Name]
			_, viaPlaceholder := parentPlaceholders[cp.Name]
			if !declared && !viaPlaceholder {
				findings = append(findings, Finding{
					Severity: SeverityError,
					ToolID:   child.ToolID(),
					Message:  fmt.Sprintf("parameter %q is not accepted by parent %q", cp.Name, parent.ToolID()),
				})
				continue
			}
			if declared && !typeNarrows(cp.Type, pp.Type) {
				findings = append(findings, Finding{
					Severity: SeverityError,
					ToolID:   child.ToolID(),
					Message:  fmt.Sprintf("parameter %q type %q is not a narrowing of parent %q's type %q", cp.Name, cp.Type, parent.ToolID(), pp.Type),
				})
			}
		}
	}
	return findings
}

// typeNarrows reports whether childType is equal to, or a recognized
// narrowing of, parentType. An empty/"any" parent type accepts anything.
func typeNarrows(childType, parentType string) bool {
	if parentType == "" || parentType == "any" {
		return true
	}
	if childType == parentType {
		return true
	}
	narrowings := map[string][]string{
		"number": {"integer", "float"},
		"string": {"string"},
	}
	for _, n := range narrowings[parentType] {
		if n == childType {
			return true
		}
	}
	return false
}

// checkTerminalPrimitive enforces that the chain's last element is a
// primitive with a recognized identifier the executor knows how to
// dispatch.
func checkTerminalPrimitive(chain resolver.Chain) []Finding {
	if len(chain) == 0 {
		return []Finding{{Severity: SeverityError, Message: "chain is empty"}}
	}
	term := chain[len(chain)-1]
	if !term.Manifest.IsPrimitive() {
		return []Finding{{
			Severity: SeverityError,
			ToolID:   term.ToolID(),
			Message:  "terminal link is not tool_type=primitive",
		}}
	}
	if !recognizedPrimitives[term.ToolID()] {
		return []Finding{{
			Severity: SeverityError,
			ToolID:   term.ToolID(),
			Message:  fmt.Sprintf("unrecognized primitive identifier %q", term.ToolID()),
		}}
	}
	return nil
}
