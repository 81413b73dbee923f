package hashstore

import (
	"bytes"
	"regexp"
)

// validatedSignatureRE matches both signature comment forms named in the
// spec's "Tool manifest" section:
//
//	# lilux:validated:{timestamp}:{hash}
//	<!-- lilux:validated:{timestamp}:{hash} -->
var validatedSignatureRE = regexp.MustCompile(`(?m)^\s*(#\s*lilux:validated:\S+|<!--\s*lilux:validated:\S+\s*-->)\s*\n?`)

// stripSignatureLine removes a previously-inserted validation signature so
// that re-hashing content after signing reproduces the pre-sign hash. A
// leading shebang line is always preserved, matching
// manifest.SignatureFormat.Stamp's insertion rule of appending after any shebang rather than at byte zero.
func stripSignatureLine(content []byte) []byte {
	return validatedSignatureRE.ReplaceAll(content, nil)
}

// frontmatterRE matches a leading YAML frontmatter block delimited by
// `---` lines, as used by knowledge entries.
var frontmatterRE = regexp.MustCompile(`(?s)^---\n.*?\n---\n`)

// stripYAMLFrontmatter removes a leading YAML frontmatter block from
// knowledge-kind content before hashing, per the spec's extractor-specific
// canonicalization rule for the "knowledge" content kind.
func stripYAMLFrontmatter(content []byte) []byte {
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return content
	}
	return frontmatterRE.ReplaceAll(content, nil)
}
