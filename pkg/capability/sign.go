package capability

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/leolilley/kiwi-kernel/pkg/canonical"
)

// signingPayload returns the canonical JSON (sorted keys) of every field
// in t except Signature — the exact bytes Sign/Verify operate over.
func signingPayload(t Token) ([]byte, error) {
	unsigned := t
	unsigned.Signature = ""
	payload, err := canonical.JSON(struct {
		TokenID     string    `json:"token_id"`
		Caps        []string  `json:"caps"`
		Aud         string    `json:"aud"`
		Exp         time.Time `json:"exp"`
		ParentID    string    `json:"parent_id,omitempty"`
		DirectiveID string    `json:"directive_id"`
		ThreadID    string    `json:"thread_id"`
	}{unsigned.TokenID, unsigned.Caps, unsigned.Aud, unsigned.Exp, unsigned.ParentID, unsigned.DirectiveID, unsigned.ThreadID})
	if err != nil {
		return nil, fmt.Errorf("capability: building signing payload: %w", err)
	}
	return payload, nil
}

// Sign produces a signed copy of t using an Ed25519 private key, with the
// signature field populated as URL-safe base64.
func Sign(t Token, priv ed25519.PrivateKey) (Token, error) {
	payload, err := signingPayload(t)
	if err != nil {
		return Token{}, err
	}
	sig := ed25519.Sign(priv, payload)
	t.Signature = base64.RawURLEncoding.EncodeToString(sig)
	return t, nil
}

// Verify checks t's signature against pub and that t has not expired. It
// never returns an error on a failed verification: per the spec, absence
// (ok == false) is the only failure signal, so callers can't distinguish
// "expired" from "bad signature" from "malformed" by inspecting an error.
func Verify(t Token, pub ed25519.PublicKey, now time.Time) (ok bool) {
	if t.Signature == "" {
		return false
	}
	if t.Expired(now) {
		return false
	}
	sig, err := base64.RawURLEncoding.DecodeString(t.Signature)
	if err != nil {
		return false
	}
	payload, err := signingPayload(t)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, payload, sig)
}
