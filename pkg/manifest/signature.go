package manifest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// signatureFormatTable maps file extensions to the comment syntax used for
// the validated-signature stamp, per design note "Signature format
// pluggability": a lookup table keyed by extension yielding
// {prefix, after_shebang}.
var signatureFormatTable = map[string]SignatureFormat{
	".py":   {Prefix: "#", AfterShebang: true},
	".sh":   {Prefix: "#", AfterShebang: true},
	".bash": {Prefix: "#", AfterShebang: true},
	".rb":   {Prefix: "#", AfterShebang: true},
	".md":   {Prefix: "<!--", Suffix: "-->", AfterShebang: false},
	".xml":  {Prefix: "<!--", Suffix: "-->", AfterShebang: false},
	".yaml": {Prefix: "#", AfterShebang: false},
	".yml":  {Prefix: "#", AfterShebang: false},
	".js":   {Prefix: "//", AfterShebang: true},
	".ts":   {Prefix: "//", AfterShebang: true},
	".go":   {Prefix: "//", AfterShebang: false},
}

// defaultSignatureFormat is used when a file extension has no registered
// format, matching the Python reference implementation's fallback to
// '#'-style comments with a warning.
var defaultSignatureFormat = SignatureFormat{Prefix: "#", AfterShebang: true}

// SignatureFormatFor returns the registered comment syntax for path's
// extension, or defaultSignatureFormat if none is registered.
func SignatureFormatFor(path string) SignatureFormat {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := signatureFormatTable[ext]; ok {
		return f
	}
	return defaultSignatureFormat
}

// StampLine renders the validation comment line for a given timestamp and
// content hash: "# lilux:validated:{timestamp}:{hash}" for prefix-only
// formats, "<!-- lilux:validated:{timestamp}:{hash} -->" for
// prefix/suffix formats.
func (f SignatureFormat) StampLine(timestamp, hash string) string {
	body := fmt.Sprintf("lilux:validated:%s:%s", timestamp, hash)
	if f.Suffix != "" {
		return fmt.Sprintf("%s %s %s", f.Prefix, body, f.Suffix)
	}
	return fmt.Sprintf("%s %s", f.Prefix, body)
}

// Stamp inserts f's validation line into content at the canonical position:
// after a leading shebang line when AfterShebang is set and one is present,
// otherwise at the top of the file.
func (f SignatureFormat) Stamp(content []byte, timestamp, hash string) []byte {
	line := []byte(f.StampLine(timestamp, hash) + "\n")

	if f.AfterShebang && bytes.HasPrefix(content, []byte("#!")) {
		if idx := bytes.IndexByte(content, '\n'); idx >= 0 {
			out := make([]byte, 0, len(content)+len(line))
			out = append(out, content[:idx+1]...)
			out = append(out, line...)
			out = append(out, content[idx+1:]...)
			return out
		}
	}

	out := make([]byte, 0, len(content)+len(line))
	out = append(out, line...)
	out = append(out, content...)
	return out
}

var stampLineRE = regexp.MustCompile(`(?m)^\s*(#\s*lilux:validated:\S+|<!--\s*lilux:validated:\S+\s*-->)\s*\n?`)

// Unstamp removes any previously inserted validation line, independent of
// which SignatureFormat produced it.
func Unstamp(content []byte) []byte {
	return stampLineRE.ReplaceAll(content, nil)
}
