package capability

import (
	"fmt"
	"sort"
)

// Permission is a declarative statement like {tag: "execute", resource:
// "tool", action: "id=http_client"}; ToCapabilities maps a set of these
// to dotted capability strings.
type Permission struct {
	Tag      string
	Resource string
	Action   string
}

// staticTable covers permissions with a fixed, non-formulaic mapping.
// Anything not listed here falls through to the fallback rules in
// ToCapabilities.
var staticTable = map[Permission]string{
	{Tag: "execute", Resource: "kiwi-mcp"}: "kiwi-mcp.execute",
}

// resourceAlias normalizes a resource name to the abbreviation the
// resulting capability string uses, e.g. "filesystem" permissions map to
// "fs.*" capabilities rather than "filesystem.*".
var resourceAlias = map[string]string{
	"filesystem": "fs",
}

func resolveResource(resource string) string {
	if alias, ok := resourceAlias[resource]; ok {
		return alias
	}
	return resource
}

// ToCapabilities maps a set of permission statements to their capability
// strings via staticTable plus fallback rules:
//
//	read/resource            -> resource.read
//	write/resource           -> resource.write
//	execute/resource/action  -> resource.action
//	execute/tool/id=X        -> tool.X
//
// The result is deduplicated and sorted, making the mapping deterministic
// regardless of input order.
func ToCapabilities(perms []Permission) []string {
	seen := make(map[string]bool)
	for _, p := range perms {
		p.Resource = resolveResource(p.Resource)
		if cap, ok := staticTable[Permission{Tag: p.Tag, Resource: p.Resource}]; ok {
			seen[cap] = true
			continue
		}
		seen[capFor(p)] = true
	}

	caps := make([]string, 0, len(seen))
	for c := range seen {
		caps = append(caps, c)
	}
	sort.Strings(caps)
	return caps
}

func capFor(p Permission) string {
	switch {
	case p.Tag == "execute" && p.Resource == "tool" && len(p.Action) > len("id=") && p.Action[:3] == "id=":
		return "tool." + p.Action[3:]
	case p.Tag == "read":
		return p.Resource + ".read"
	case p.Tag == "write":
		return p.Resource + ".write"
	case p.Tag == "execute" && p.Action != "":
		return p.Resource + "." + p.Action
	default:
		return fmt.Sprintf("%s.%s", p.Resource, p.Tag)
	}
}
