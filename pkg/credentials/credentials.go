// Package credentials implements a kernel-only token store used for auth
// injection by the primitive executor (spec component 4.E step 3). It is
// modeled on a keychain-backed store with an in-memory metadata cache:
// access tokens never cross into tool or agent code, only the merged
// config the executor builds for dispatch.
package credentials

import (
	"fmt"
	"sync"
	"time"
)

// AuthenticationRequiredError is raised when no valid token is available
// for a service/scope pair.
type AuthenticationRequiredError struct {
	Service string
	Scope   string
}

func (e *AuthenticationRequiredError) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("credentials: no authenticated token for service %q with scope %q", e.Service, e.Scope)
	}
	return fmt.Sprintf("credentials: no authenticated token for service %q", e.Service)
}

// RefreshError wraps a failed refresh-token exchange. Provider.GetToken
// does not return it: a failed refresh surfaces as
// AuthenticationRequiredError.
type RefreshError struct {
	Service string
	Err     error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("credentials: refreshing token for %q: %v", e.Service, e.Err)
}
func (e *RefreshError) Unwrap() error { return e.Err }

// Token is the metadata and secret material for one service's credential.
// AccessToken is held only in memory (Provider.SetToken persists it to the
// backing keychain-equivalent, never to this struct's JSON form).
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       []string
}

// HasScope reports whether t authorizes scope; an empty scope is always
// satisfied.
func (t Token) HasScope(scope string) bool {
	if scope == "" {
		return true
	}
	for _, s := range t.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Backend is the pluggable secret-storage adapter, modeled on the OS
// keychain abstraction the reference implementation wraps (macOS
// Keychain, Windows Credential Manager, Linux Secret Service): Store
// persists by (service, key) name, Load retrieves, Delete removes.
type Backend interface {
	Store(service, key, value string) error
	Load(service, key string) (string, bool, error)
	Delete(service, key string) error
}

// Refresher exchanges a refresh token for a new access token. Services
// without a refresh flow can leave this nil; Provider then requires
// re-authentication on expiry.
type Refresher func(service, refreshToken string) (Token, error)

// Provider is the kernel-only auth store the primitive executor consults
// during auth injection.
type Provider struct {
	serviceName string
	backend     Backend
	refresher   Refresher

	mu    sync.Mutex
	cache map[string]Token
}

func NewProvider(serviceName string, backend Backend, refresher Refresher) *Provider {
	return &Provider{
		serviceName: serviceName,
		backend:     backend,
		cache:       make(map[string]Token),
		refresher:   refresher,
	}
}

// SetToken stores a token for service, updating both the backend and the
// in-memory cache.
func (p *Provider) SetToken(service string, tok Token) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.backend.Store(p.serviceName, service+"_access_token", tok.AccessToken); err != nil {
		return fmt.Errorf("credentials: storing access token: %w", err)
	}
	if tok.RefreshToken != "" {
		if err := p.backend.Store(p.serviceName, service+"_refresh_token", tok.RefreshToken); err != nil {
			return fmt.Errorf("credentials: storing refresh token: %w", err)
		}
	}
	p.cache[service] = tok
	return nil
}

// GetToken returns a valid access token for service, refreshing if
// expired and a Refresher is configured. If scope is non-empty, the
// token must carry it.
func (p *Provider) GetToken(service, scope string, now time.Time) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.cache[service]; ok {
		if cached.ExpiresAt.After(now) {
			if !cached.HasScope(scope) {
				return "", &AuthenticationRequiredError{Service: service, Scope: scope}
			}
			return cached.AccessToken, nil
		}
		if cached.RefreshToken != "" && p.refresher != nil {
			refreshed, err := p.refresher(service, cached.RefreshToken)
			if err != nil {
				return "", &AuthenticationRequiredError{Service: service, Scope: scope}
			}
			p.cache[service] = refreshed
			if !refreshed.HasScope(scope) {
				return "", &AuthenticationRequiredError{Service: service, Scope: scope}
			}
			return refreshed.AccessToken, nil
		}
		return "", &AuthenticationRequiredError{Service: service, Scope: scope}
	}

	token, ok, err := p.backend.Load(p.serviceName, service+"_access_token")
	if err != nil {
		return "", fmt.Errorf("credentials: loading token for %q: %w", service, err)
	}
	if !ok || token == "" {
		return "", &AuthenticationRequiredError{Service: service, Scope: scope}
	}
	return token, nil
}

// ClearToken removes any stored credential for service.
func (p *Provider) ClearToken(service string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, service)
	_ = p.backend.Delete(p.serviceName, service+"_access_token")
	_ = p.backend.Delete(p.serviceName, service+"_refresh_token")
	return nil
}

// IsAuthenticated reports whether service currently has a live token,
// without triggering a refresh.
func (p *Provider) IsAuthenticated(service string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cached, ok := p.cache[service]
	return ok && cached.ExpiresAt.After(now)
}
