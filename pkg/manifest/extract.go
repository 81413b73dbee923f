package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Extract parses a ToolManifest out of raw tool source content. Two forms
// are recognized, per the spec's "Tool manifest" external interface:
//
//   - YAML/XML frontmatter: a leading block delimited by `---` lines,
//     parsed as YAML.
//   - First comment region: for source files without frontmatter, the
//     leading run of comment lines (after an optional shebang) with comment
//     markers stripped, parsed as YAML.
func Extract(raw []byte) (*ToolManifest, error) {
	body := raw
	if body = skipShebang(body); hasYAMLFrontmatter(body) {
		return extractFrontmatter(body)
	}
	return extractCommentRegion(raw)
}

func skipShebang(raw []byte) []byte {
	if bytes.HasPrefix(raw, []byte("#!")) {
		if idx := bytes.IndexByte(raw, '\n'); idx >= 0 {
			return raw[idx+1:]
		}
		return nil
	}
	return raw
}

func hasYAMLFrontmatter(body []byte) bool {
	trimmed := bytes.TrimLeft(body, "\r\n\t ")
	return bytes.HasPrefix(trimmed, []byte("---"))
}

func extractFrontmatter(body []byte) (*ToolManifest, error) {
	trimmed := bytes.TrimLeft(body, "\r\n\t ")
	rest := trimmed[len("---"):]
	rest = bytes.TrimLeft(rest, "\r\n")
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, fmt.Errorf("manifest: unterminated frontmatter block")
	}
	block := rest[:end]
	var m ToolManifest
	if err := yaml.Unmarshal(block, &m); err != nil {
		return nil, fmt.Errorf("manifest: invalid frontmatter YAML: %w", err)
	}
	return &m, nil
}

// commentPrefixes are stripped, in order, from the leading comment region
// of a source file that declares its manifest as a comment block rather
// than frontmatter.
var commentPrefixes = []string{"# ", "#", "// ", "//", "<!--", "-->"}

func extractCommentRegion(raw []byte) (*ToolManifest, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	var block strings.Builder
	started := false
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if started {
				break
			}
			continue
		}
		if strings.HasPrefix(trimmed, "#!") {
			continue
		}
		stripped, isComment := stripCommentPrefix(trimmed)
		if !isComment {
			if started {
				break
			}
			return nil, fmt.Errorf("manifest: no comment-region or frontmatter manifest found")
		}
		started = true
		block.WriteString(stripped)
		block.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("manifest: scanning source: %w", err)
	}
	if !started {
		return nil, fmt.Errorf("manifest: no comment-region or frontmatter manifest found")
	}
	var m ToolManifest
	if err := yaml.Unmarshal([]byte(block.String()), &m); err != nil {
		return nil, fmt.Errorf("manifest: invalid comment-region YAML: %w", err)
	}
	return &m, nil
}

func stripCommentPrefix(line string) (string, bool) {
	for _, p := range commentPrefixes {
		if strings.HasPrefix(line, p) {
			return strings.TrimSpace(strings.TrimPrefix(line, p)), true
		}
	}
	return line, false
}
