package lockfile

import "context"

// Store persists and retrieves Lockfile records, keyed by (category,
// scope, tool_id, version). Two implementations are provided: FSStore
// (the default, used for both project and user scopes) and PostgresStore
// (an optional shared backend for teams that centralize lockfiles rather
// than committing them per-project).
type Store interface {
	Save(ctx context.Context, lock *Lockfile) error
	Load(ctx context.Context, category string, scope Scope, toolID, version string) (*Lockfile, error)
}
