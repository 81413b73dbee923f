// Package resolver implements the chain resolver (spec component B):
// walking executor_id pointers from a named tool to a terminal primitive,
// producing an ordered Chain of ResolvedLink.
package resolver

import (
	"fmt"

	"github.com/leolilley/kiwi-kernel/pkg/manifest"
)

// Source identifies which search tier produced a ResolvedLink.
type Source string

const (
	SourceLocal    Source = "local"
	SourceUser     Source = "user"
	SourceRegistry Source = "registry"
)

// tierPriority fixes the deterministic search order named in the spec:
// project -> user -> registry.
var tierPriority = map[Source]int{
	SourceLocal:    0,
	SourceUser:     1,
	SourceRegistry: 2,
}

// FileHash pairs a relative file path with its SHA-256 hex digest.
type FileHash struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// ResolvedLink is the concrete form the resolver emits per chain node.
type ResolvedLink struct {
	Manifest    *manifest.ToolManifest `json:"manifest"`
	ContentHash string                 `json:"content_hash"`
	Files       []FileHash             `json:"files"`
	FilePath    string                 `json:"file_path"`
	Source      Source                 `json:"source"`
}

// ToolID is a convenience accessor mirroring the manifest's tool_id, used
// throughout chain/lockfile comparisons.
func (l ResolvedLink) ToolID() string { return l.Manifest.ToolID }

// Version mirrors the manifest's declared version.
func (l ResolvedLink) Version() string { return l.Manifest.Version }

// Chain is an ordered sequence of ResolvedLink from the called tool
// (index 0) to the terminal primitive (index N-1).
type Chain []ResolvedLink

// Terminal returns the chain's last link, or a zero-value link if the
// chain is empty (callers must check with len() first; this exists only
// as a small reader convenience for non-empty chains).
func (c Chain) Terminal() ResolvedLink {
	return c[len(c)-1]
}

// ResolutionErrorKind classifies a ResolutionError.
type ResolutionErrorKind string

const (
	ResErrNotFound       ResolutionErrorKind = "not_found"
	ResErrCycle          ResolutionErrorKind = "cycle"
	ResErrInvalidManifest ResolutionErrorKind = "invalid_manifest"
)

// ResolutionError reports why chain resolution failed.
type ResolutionError struct {
	Kind   ResolutionErrorKind
	ToolID string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolver: %s (%s): %v", e.ToolID, e.Kind, e.Err)
	}
	return fmt.Sprintf("resolver: %s (%s)", e.ToolID, e.Kind)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
