package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leolilley/kiwi-kernel/pkg/hashstore"
	"github.com/leolilley/kiwi-kernel/pkg/manifest"
)

// entry is the tier-agnostic result of a single-tool lookup, before the
// resolver wraps it into a ResolvedLink with a Source tag.
type entry struct {
	Manifest *manifest.ToolManifest
	FilePath string
	Files    []FileHash
}

// Tier resolves a single tool_id to its manifest and file set, or reports
// that it has no such tool. Implementations never walk executor_id chains
// themselves; that is the resolver's job.
type Tier interface {
	Lookup(ctx context.Context, toolID string) (*entry, error)
	Source() Source
}

var errNotInTier = fmt.Errorf("resolver: tool not present in this tier")

// FSTier resolves tools from a local directory, used for both the
// "project" (local) and "user" search tiers. A tool is stored either as a
// single file "<root>/<tool_id>.<ext>" or as a directory
// "<root>/<tool_id>/" containing one or more files, one of which (tool.*
// or manifest.*) carries the frontmatter/comment-region manifest.
type FSTier struct {
	root   string
	source Source
}

func NewFSTier(root string, source Source) *FSTier {
	return &FSTier{root: root, source: source}
}

func (t *FSTier) Source() Source { return t.source }

func (t *FSTier) Lookup(_ context.Context, toolID string) (*entry, error) {
	dirPath := filepath.Join(t.root, toolID)
	if info, err := os.Stat(dirPath); err == nil && info.IsDir() {
		return t.loadDir(dirPath, toolID)
	}

	matches, err := filepath.Glob(filepath.Join(t.root, toolID+".*"))
	if err != nil {
		return nil, fmt.Errorf("resolver: globbing %s: %w", toolID, err)
	}
	if len(matches) == 0 {
		return nil, errNotInTier
	}
	sort.Strings(matches)
	return t.loadFile(matches[0], toolID)
}

func (t *FSTier) loadFile(path, toolID string) (*entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resolver: reading %s: %w", path, err)
	}
	m, err := manifest.Extract(raw)
	if err != nil {
		return nil, fmt.Errorf("resolver: extracting manifest from %s: %w", path, err)
	}
	if m.ToolID == "" {
		m.ToolID = toolID
	}
	rel := filepath.Base(path)
	return &entry{
		Manifest: m,
		FilePath: path,
		Files:    []FileHash{{Path: rel, SHA256: sha256Hex(raw)}},
	}, nil
}

// manifestFileNames are tried, in order, to find the file carrying the
// manifest when a tool is a directory rather than a single file.
var manifestFileNames = []string{"tool", "manifest", "index"}

func (t *FSTier) loadDir(dirPath, toolID string) (*entry, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("resolver: reading dir %s: %w", dirPath, err)
	}

	var fileNames []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fileNames = append(fileNames, e.Name())
	}
	sort.Strings(fileNames)
	if len(fileNames) == 0 {
		return nil, fmt.Errorf("resolver: tool directory %s is empty", dirPath)
	}

	manifestFile := pickManifestFile(fileNames)
	raw, err := os.ReadFile(filepath.Join(dirPath, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("resolver: reading %s: %w", manifestFile, err)
	}
	m, err := manifest.Extract(raw)
	if err != nil {
		return nil, fmt.Errorf("resolver: extracting manifest from %s: %w", manifestFile, err)
	}
	if m.ToolID == "" {
		m.ToolID = toolID
	}

	files := make([]FileHash, 0, len(fileNames))
	for _, name := range fileNames {
		content, err := os.ReadFile(filepath.Join(dirPath, name))
		if err != nil {
			return nil, fmt.Errorf("resolver: reading %s: %w", name, err)
		}
		files = append(files, FileHash{Path: name, SHA256: sha256Hex(content)})
	}

	return &entry{
		Manifest: m,
		FilePath: filepath.Join(dirPath, manifestFile),
		Files:    files,
	}, nil
}

func pickManifestFile(names []string) string {
	for _, candidate := range manifestFileNames {
		for _, n := range names {
			base := strings.TrimSuffix(n, filepath.Ext(n))
			if base == candidate {
				return n
			}
		}
	}
	return names[0]
}

// sha256Hex hashes content after hashstore.NormalizeContent, so a
// signature stamp or a different Unicode normal form does not change it.
func sha256Hex(content []byte) string {
	return hashstore.Hash(hashstore.NormalizeContent(hashstore.KindTool, content))
}

// RegistryBackend fetches a tool's raw file set from a remote store. S3
// and GCS implementations are provided in registry_s3.go / registry_gcs.go;
// both are selected by NewRegistryBackendFromEnv following the same
// "ARTIFACT_STORAGE_TYPE"-style switch the teacher's artifact store
// factory uses.
type RegistryBackend interface {
	// Fetch returns the set of files stored under toolID (path -> content),
	// or errNotInTier if no such tool exists in the backend.
	Fetch(ctx context.Context, toolID string) (map[string][]byte, error)
}

// RegistryTier resolves tools from a RegistryBackend, caching fetched
// manifests in-process for the lifetime of the Resolver.
type RegistryTier struct {
	backend RegistryBackend
	cache   map[string]*entry
}

func NewRegistryTier(backend RegistryBackend) *RegistryTier {
	return &RegistryTier{backend: backend, cache: make(map[string]*entry)}
}

func (t *RegistryTier) Source() Source { return SourceRegistry }

func (t *RegistryTier) Lookup(ctx context.Context, toolID string) (*entry, error) {
	if cached, ok := t.cache[toolID]; ok {
		return cached, nil
	}

	files, err := t.backend.Fetch(ctx, toolID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errNotInTier
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	manifestFile := pickManifestFile(names)
	m, err := manifest.Extract(files[manifestFile])
	if err != nil {
		return nil, fmt.Errorf("resolver: extracting manifest from registry %s/%s: %w", toolID, manifestFile, err)
	}
	if m.ToolID == "" {
		m.ToolID = toolID
	}

	fileHashes := make([]FileHash, 0, len(names))
	for _, name := range names {
		fileHashes = append(fileHashes, FileHash{Path: name, SHA256: sha256Hex(files[name])})
	}

	e := &entry{
		Manifest: m,
		FilePath: fmt.Sprintf("registry://%s/%s", toolID, manifestFile),
		Files:    fileHashes,
	}
	t.cache[toolID] = e
	return e, nil
}
