package resolver

import (
	"context"
)

// Resolver walks executor_id pointers across the local/user/registry
// tiers, in that fixed priority order, to build a Chain from a tool_id
// to its terminal primitive.
type Resolver struct {
	tiers []Tier
}

// New builds a Resolver over tiers, in search-priority order. Passing no
// tiers is valid (every Resolve call will report not_found) but unusual;
// typical construction is New(NewFSTier(projectDir, SourceLocal),
// NewFSTier(userDir, SourceUser), NewRegistryTier(backend)).
func New(tiers ...Tier) *Resolver {
	return &Resolver{tiers: tiers}
}

// Resolve walks from toolID to a terminal primitive, returning the chain
// in call order (index 0 is toolID itself). It never recurses: it follows
// the spec's Design Notes, which call for an explicit loop with an
// explicit visited set so a pathological chain fails with ResErrCycle
// instead of overflowing the call stack.
func (r *Resolver) Resolve(ctx context.Context, toolID string) (Chain, error) {
	var chain Chain
	visited := make(map[string]bool)
	current := toolID

	for {
		if visited[current] {
			return nil, &ResolutionError{Kind: ResErrCycle, ToolID: current}
		}
		visited[current] = true

		e, src, err := r.lookup(ctx, current)
		if err != nil {
			return nil, err
		}

		if err := e.Manifest.Validate(); err != nil {
			return nil, &ResolutionError{Kind: ResErrInvalidManifest, ToolID: current, Err: err}
		}

		contentHash, err := computeContentHash(e.Files)
		if err != nil {
			return nil, &ResolutionError{Kind: ResErrInvalidManifest, ToolID: current, Err: err}
		}

		chain = append(chain, ResolvedLink{
			Manifest:    e.Manifest,
			ContentHash: contentHash,
			Files:       e.Files,
			FilePath:    e.FilePath,
			Source:      src,
		})

		if e.Manifest.IsPrimitive() || e.Manifest.ExecutorID == "" {
			return chain, nil
		}
		current = e.Manifest.ExecutorID
	}
}

// lookup tries each tier in fixed priority order, returning the first hit.
func (r *Resolver) lookup(ctx context.Context, toolID string) (*entry, Source, error) {
	for _, t := range r.tiers {
		e, err := t.Lookup(ctx, toolID)
		if err == nil {
			return e, t.Source(), nil
		}
		if err == errNotInTier {
			continue
		}
		return nil, "", &ResolutionError{Kind: ResErrInvalidManifest, ToolID: toolID, Err: err}
	}
	return nil, "", &ResolutionError{Kind: ResErrNotFound, ToolID: toolID}
}
