// Package lockfile implements the lockfile store (spec component D): a
// frozen record of a resolved chain, used to make chain resolution
// reproducible and to detect drift before execution.
package lockfile

import (
	"fmt"
	"time"

	"github.com/leolilley/kiwi-kernel/pkg/resolver"
)

// FormatVersion is bumped whenever the on-disk lockfile shape changes.
const FormatVersion = 1

// Scope is the lockfile's storage scope, mirroring the resolver's local
// and user tiers. There is no registry scope; a chain is stored under one
// of these whichever tiers its links were resolved from.
type Scope string

const (
	ScopeProject Scope = "project"
	ScopeUser    Scope = "user"
)

// LockedLink is the frozen form of a resolver.ResolvedLink: everything
// needed to detect drift, without re-resolving.
type LockedLink struct {
	ToolID      string              `json:"tool_id"`
	Version     string              `json:"version"`
	ContentHash string              `json:"content_hash"`
	Files       []resolver.FileHash `json:"files"`
	Source      resolver.Source     `json:"source"`
}

// Lockfile is the frozen chain record persisted to disk.
type Lockfile struct {
	FormatVersion int          `json:"format_version"`
	ToolID        string       `json:"tool_id"`
	Version       string       `json:"version"`
	Category      string       `json:"category"`
	Scope         Scope        `json:"scope"`
	CreatedAt     time.Time    `json:"created_at"`
	Chain         []LockedLink `json:"chain"`
}

// Freeze builds a Lockfile record from a freshly resolved chain. createdAt
// is passed in rather than computed, since callers (not this package)
// own the wall-clock boundary.
func Freeze(chain resolver.Chain, category string, scope Scope, createdAt time.Time) (*Lockfile, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("lockfile: cannot freeze an empty chain")
	}
	root := chain[0]

	locked := make([]LockedLink, len(chain))
	for i, link := range chain {
		locked[i] = LockedLink{
			ToolID:      link.ToolID(),
			Version:     link.Version(),
			ContentHash: link.ContentHash,
			Files:       link.Files,
			Source:      link.Source,
		}
	}

	return &Lockfile{
		FormatVersion: FormatVersion,
		ToolID:        root.ToolID(),
		Version:       root.Version(),
		Category:      category,
		Scope:         scope,
		CreatedAt:     createdAt,
		Chain:         locked,
	}, nil
}

// DriftErrorKind classifies why enforcement rejected a chain.
type DriftErrorKind string

const (
	DriftToolID      DriftErrorKind = "tool_id_mismatch"
	DriftVersion     DriftErrorKind = "version_mismatch"
	DriftFileHash    DriftErrorKind = "file_hash_mismatch"
	DriftLength      DriftErrorKind = "chain_length_mismatch"
	DriftNoLockfile  DriftErrorKind = "no_lockfile"
)

// DriftError reports a lockfile enforcement failure.
type DriftError struct {
	Kind          DriftErrorKind
	OffendingLink string
	Detail        string
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("lockfile: drift at %s (%s): %s", e.OffendingLink, e.Kind, e.Detail)
}

// Enforce compares chain element-wise against lock: tool_ids, versions,
// and every file hash must match exactly. A nil lockfile is only valid
// when the caller has already confirmed non-strict mode; Enforce itself
// always treats a nil lockfile as DriftNoLockfile, matching strict-mode
// policy ("absence of a lockfile is itself an error in strict mode").
func Enforce(chain resolver.Chain, lock *Lockfile) error {
	if lock == nil {
		return &DriftError{Kind: DriftNoLockfile, Detail: "no lockfile present for this tool_id/version"}
	}
	if len(chain) != len(lock.Chain) {
		return &DriftError{
			Kind:   DriftLength,
			Detail: fmt.Sprintf("resolved chain has %d links, lockfile has %d", len(chain), len(lock.Chain)),
		}
	}

	for i, link := range chain {
		locked := lock.Chain[i]
		if link.ToolID() != locked.ToolID {
			return &DriftError{Kind: DriftToolID, OffendingLink: link.ToolID(), Detail: fmt.Sprintf("expected %q, got %q", locked.ToolID, link.ToolID())}
		}
		if link.Version() != locked.Version {
			return &DriftError{Kind: DriftVersion, OffendingLink: link.ToolID(), Detail: fmt.Sprintf("expected %q, got %q", locked.Version, link.Version())}
		}
		if link.ContentHash != locked.ContentHash {
			return &DriftError{Kind: DriftFileHash, OffendingLink: link.ToolID(), Detail: "content_hash mismatch"}
		}
		if err := enforceFileHashes(link, locked); err != nil {
			return err
		}
	}
	return nil
}

func enforceFileHashes(link resolver.ResolvedLink, locked LockedLink) error {
	want := make(map[string]string, len(locked.Files))
	for _, f := range locked.Files {
		want[f.Path] = f.SHA256
	}
	got := make(map[string]string, len(link.Files))
	for _, f := range link.Files {
		got[f.Path] = f.SHA256
	}
	if len(want) != len(got) {
		return &DriftError{Kind: DriftFileHash, OffendingLink: link.ToolID(), Detail: "file set size differs"}
	}
	for path, hash := range want {
		gotHash, ok := got[path]
		if !ok {
			return &DriftError{Kind: DriftFileHash, OffendingLink: link.ToolID(), Detail: fmt.Sprintf("missing file %q", path)}
		}
		if gotHash != hash {
			return &DriftError{Kind: DriftFileHash, OffendingLink: link.ToolID(), Detail: fmt.Sprintf("hash mismatch for %q", path)}
		}
	}
	return nil
}
