// Package hashstore implements the content-addressed store: reducing tool
// artifacts to a stable 64-hex-character SHA-256 identity and verifying
// on-disk content against a pinned hash.
package hashstore

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"os"

	"golang.org/x/text/unicode/norm"
)

// ErrorKind classifies an IntegrityError.
type ErrorKind string

const (
	ErrKindIO       ErrorKind = "io"
	ErrKindMismatch ErrorKind = "mismatch"
)

// IntegrityError is returned when content cannot be read or fails to match
// an expected hash.
type IntegrityError struct {
	Kind     ErrorKind
	Path     string
	Expected string
	Actual   string
	Err      error
}

func (e *IntegrityError) Error() string {
	switch e.Kind {
	case ErrKindMismatch:
		return fmt.Sprintf("hashstore: content mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
	default:
		return fmt.Sprintf("hashstore: unreadable %s: %v", e.Path, e.Err)
	}
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// ContentKind distinguishes the extractor-specific canonicalization applied
// before hashing. The store itself only hashes; NormalizeContent is the
// caller-facing canonicalization step named in the original spec as
// "extractor-specific."
type ContentKind string

const (
	KindTool      ContentKind = "tool"
	KindDirective ContentKind = "directive"
	KindKnowledge ContentKind = "knowledge"
)

// Hash computes the SHA-256 hex digest of content. Pure function: same
// bytes in, same 64-hex-char string out, every time.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashString is a convenience wrapper over Hash for string content.
func HashString(content string) string {
	return Hash([]byte(content))
}

// Verify reads path, hashes its bytes, and compares against expectedHash in
// constant time. Returns an *IntegrityError on any failure; nil on match.
func Verify(path, expectedHash string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &IntegrityError{Kind: ErrKindIO, Path: path, Err: err}
	}
	actual := Hash(data)
	if subtle.ConstantTimeCompare([]byte(actual), []byte(expectedHash)) != 1 {
		return &IntegrityError{Kind: ErrKindMismatch, Path: path, Expected: expectedHash, Actual: actual}
	}
	return nil
}

// NormalizeContent applies the canonicalization a given content kind
// requires before hashing, resolving open question #2 of the spec: the
// canonical content used to compute a tool's content_hash is
// extractor-specific. Every kind is first NFC-normalized so visually
// identical but byte-different encodings hash identically across platforms.
func NormalizeContent(kind ContentKind, raw []byte) []byte {
	normalized := norm.NFC.Bytes(raw)
	switch kind {
	case KindKnowledge:
		return stripYAMLFrontmatter(stripSignatureLine(normalized))
	default:
		return stripSignatureLine(normalized)
	}
}
