// Package manifest defines ToolManifest, the declarative record a tool file
// on disk compiles down to, plus extraction, signature-format handling, and
// optional JSON-Schema validation of declared parameters.
package manifest

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// PrimitiveTool marks a manifest's tool_type as the terminal reserved label.
const PrimitiveTool = "primitive"

// Parameter is a single declared input on a ToolManifest.
type Parameter struct {
	Name     string      `json:"name" yaml:"name"`
	Type     string      `json:"type" yaml:"type"`
	Required bool        `json:"required" yaml:"required"`
	Default  interface{} `json:"default,omitempty" yaml:"default,omitempty"`
}

// SignatureFormat describes how a validation stamp is written to a tool's
// source file: the comment prefix/suffix and whether it belongs after a
// leading shebang line or at the very top of the file.
type SignatureFormat struct {
	Prefix       string `json:"prefix" yaml:"prefix"`
	Suffix       string `json:"suffix,omitempty" yaml:"suffix,omitempty"`
	AfterShebang bool   `json:"after_shebang" yaml:"after_shebang"`
}

// ToolManifest is the declarative record a tool's source file resolves to.
type ToolManifest struct {
	ToolID          string                 `json:"tool_id" yaml:"tool_id"`
	ToolType        string                 `json:"tool_type" yaml:"tool_type"`
	Version         string                 `json:"version" yaml:"version"`
	ExecutorID      string                 `json:"executor_id,omitempty" yaml:"executor_id,omitempty"`
	Config          map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
	Parameters      []Parameter            `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequiredScope   string                 `json:"required_scope,omitempty" yaml:"required_scope,omitempty"`
	SignatureFormat *SignatureFormat       `json:"signature_format,omitempty" yaml:"signature_format,omitempty"`
}

// IsPrimitive reports whether this manifest terminates a chain.
func (m *ToolManifest) IsPrimitive() bool {
	return m.ToolType == PrimitiveTool
}

// Validate enforces the ToolManifest invariants from the data model:
// executor_id present iff tool_type != primitive; version is semver.
func (m *ToolManifest) Validate() error {
	if m.ToolID == "" {
		return fmt.Errorf("manifest: tool_id is required")
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("manifest: %s: version %q is not semver: %w", m.ToolID, m.Version, err)
	}
	isPrimitive := m.IsPrimitive()
	hasExecutor := m.ExecutorID != ""
	if isPrimitive && hasExecutor {
		return fmt.Errorf("manifest: %s: primitive tools may not declare executor_id", m.ToolID)
	}
	if !isPrimitive && !hasExecutor {
		return fmt.Errorf("manifest: %s: non-primitive tools must declare executor_id", m.ToolID)
	}
	return nil
}

// ParameterNames returns the declared parameter names, in declaration order.
func (m *ToolManifest) ParameterNames() []string {
	names := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		names[i] = p.Name
	}
	return names
}
