package execengine

import (
	"time"

	"github.com/leolilley/kiwi-kernel/pkg/credentials"
	"github.com/leolilley/kiwi-kernel/pkg/resolver"
)

// InjectAuth finds the first link in chain (root to terminal) declaring a
// required_scope, fetches a token for it from provider, and adds it to
// config as a bearer credential under config.auth.bearer_token. A chain
// with no required_scope anywhere is left untouched.
func InjectAuth(chain resolver.Chain, config map[string]interface{}, provider *credentials.Provider, now time.Time) (map[string]interface{}, error) {
	for _, link := range chain {
		if link.Manifest.RequiredScope == "" {
			continue
		}

		service := serviceFor(link)
		token, err := provider.GetToken(service, link.Manifest.RequiredScope, now)
		if err != nil {
			return nil, &ExecutionError{Kind: ErrAuthRequired, Service: service, Scope: link.Manifest.RequiredScope, Err: err}
		}

		out := cloneMap(config)
		auth := asMap(out["auth"])
		auth = cloneMap(auth)
		auth["bearer_token"] = token
		out["auth"] = auth
		return out, nil
	}
	return config, nil
}

// serviceFor derives the credential-store service name from a link: the
// tool_id up to its first underscore segment boundary is typically the
// vendor name (e.g. "anthropic_messages" -> "anthropic"); tools that want
// a different service name should configure config.auth.service
// explicitly, which InjectAuth's caller can read before calling in.
func serviceFor(link resolver.ResolvedLink) string {
	id := link.ToolID()
	for i := 0; i < len(id); i++ {
		if id[i] == '_' {
			return id[:i]
		}
	}
	return id
}
