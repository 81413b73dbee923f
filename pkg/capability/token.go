// Package capability implements capability tokens (spec component F.1):
// Ed25519-signed, attenuating credentials that scope what a directive or
// sub-spawn is permitted to do.
package capability

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Token is a capability token, signed or unsigned. Field order mirrors
// the spec's data model; JSON tags are load-bearing because the canonical
// signing payload is the sorted JSON of every field here except Signature.
type Token struct {
	TokenID     string    `json:"token_id"`
	Caps        []string  `json:"caps"`
	Aud         string    `json:"aud"`
	Exp         time.Time `json:"exp"`
	ParentID    string    `json:"parent_id,omitempty"`
	DirectiveID string    `json:"directive_id"`
	ThreadID    string    `json:"thread_id"`
	Signature   string    `json:"signature,omitempty"`
}

// Mint produces a new, unsigned root token. exp is computed as
// now+expHours in UTC.
func Mint(caps []string, directiveID, threadID string, aud string, expHours float64, now time.Time) Token {
	sorted := append([]string(nil), caps...)
	sort.Strings(sorted)
	return Token{
		TokenID:     uuid.NewString(),
		Caps:        sorted,
		Aud:         aud,
		Exp:         now.UTC().Add(time.Duration(expHours * float64(time.Hour))),
		DirectiveID: directiveID,
		ThreadID:    threadID,
	}
}

// Attenuate derives a child token from parent: the child's capability set
// is the intersection of parent.Caps and childDeclaredCaps (sorted).
// Expiry and audience are inherited from parent; ParentID points at
// parent's TokenID.
func Attenuate(parent Token, childDeclaredCaps []string) Token {
	declared := make(map[string]bool, len(childDeclaredCaps))
	for _, c := range childDeclaredCaps {
		declared[c] = true
	}

	var intersection []string
	for _, c := range parent.Caps {
		if declared[c] {
			intersection = append(intersection, c)
		}
	}
	sort.Strings(intersection)

	return Token{
		TokenID:     uuid.NewString(),
		Caps:        intersection,
		Aud:         parent.Aud,
		Exp:         parent.Exp,
		ParentID:    parent.TokenID,
		DirectiveID: parent.DirectiveID,
		ThreadID:    parent.ThreadID,
	}
}

// HasCap reports whether t's capability set grants cap exactly.
func (t Token) HasCap(cap string) bool {
	for _, c := range t.Caps {
		if c == cap {
			return true
		}
	}
	return false
}

// Expired reports whether t.Exp is strictly before now; a token is still
// valid at the instant of its expiry.
func (t Token) Expired(now time.Time) bool {
	return now.UTC().After(t.Exp.UTC())
}
