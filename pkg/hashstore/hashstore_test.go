package hashstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashIsPureAndDeterministic(t *testing.T) {
	a := Hash([]byte("tool content"))
	b := Hash([]byte("tool content"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHashDiffersOnDifferentContent(t *testing.T) {
	assert.NotEqual(t, HashString("a"), HashString("b"))
}

func TestVerifyMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tool.py")
	require.NoError(t, os.WriteFile(path, []byte("print('hi')"), 0o644))

	err := Verify(path, HashString("print('hi')"))
	assert.NoError(t, err)
}

func TestVerifyMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tool.py")
	require.NoError(t, os.WriteFile(path, []byte("print('hi')"), 0o644))

	err := Verify(path, HashString("print('bye')"))
	require.Error(t, err)
	var ierr *IntegrityError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, ErrKindMismatch, ierr.Kind)
}

func TestVerifyUnreadable(t *testing.T) {
	err := Verify("/nonexistent/path/tool.py", "deadbeef")
	require.Error(t, err)
	var ierr *IntegrityError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, ErrKindIO, ierr.Kind)
}

func TestNormalizeContentStripsSignatureLine(t *testing.T) {
	raw := []byte("#!/usr/bin/env python\nprint('hi')\n# lilux:validated:2024-01-01T00:00:00Z:abc123\n")
	got := NormalizeContent(KindTool, raw)
	assert.NotContains(t, string(got), "lilux:validated")
	assert.Contains(t, string(got), "#!/usr/bin/env python")
}

func TestNormalizeContentIsIdempotent(t *testing.T) {
	raw := []byte("print('hi')\n")
	once := NormalizeContent(KindTool, raw)
	twice := NormalizeContent(KindTool, once)
	assert.Equal(t, once, twice)
}

func TestNormalizeContentStripsKnowledgeFrontmatter(t *testing.T) {
	raw := []byte("---\ntitle: foo\n---\n# Body\n")
	got := NormalizeContent(KindKnowledge, raw)
	assert.Equal(t, "# Body\n", string(got))
}

func TestNormalizeContentMarkdownSignature(t *testing.T) {
	raw := []byte("# Body\n<!-- lilux:validated:2024-01-01T00:00:00Z:abc123 -->\n")
	got := NormalizeContent(KindDirective, raw)
	assert.Equal(t, "# Body\n", string(got))
}
