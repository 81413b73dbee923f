// Package canonical produces RFC 8785 JSON Canonicalization Scheme output
// for deterministic hashing and signing, using the gowebpki/jcs library.
//
// The teacher repo requires this dependency but never imports it (it
// hand-rolls an equivalent in core/pkg/canonicalize/jcs.go); this module
// wires it up directly rather than reimplementing RFC 8785.
package canonical

import (
	"encoding/json"

	"github.com/gowebpki/jcs"

	"github.com/leolilley/kiwi-kernel/pkg/hashstore"
)

// JSON marshals v to standard JSON and then transforms it into its RFC 8785
// canonical form: sorted object keys, no insignificant whitespace, fixed
// number formatting.
func JSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(raw)
}

// Hash returns the SHA-256 hex digest of the canonical JSON form of v. Used
// both for tool content hashing of structured manifests and for signing
// payloads (capability tokens, decision records).
func Hash(v interface{}) (string, error) {
	b, err := JSON(v)
	if err != nil {
		return "", err
	}
	return hashstore.Hash(b), nil
}

// MustJSON panics on marshal/transform failure. Reserved for call sites
// where the input type is a fixed internal struct and marshal failure would
// indicate a programming error, not bad user input.
func MustJSON(v interface{}) []byte {
	b, err := JSON(v)
	if err != nil {
		panic(err)
	}
	return b
}
