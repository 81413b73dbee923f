package resolver

import (
	"fmt"
	"sort"

	"github.com/leolilley/kiwi-kernel/pkg/hashstore"
)

// computeContentHash derives a single content_hash over a tool's file set,
// the same "sorted path:hash lines, then hash the list" construction the
// teacher's pack registry uses for directory content hashes. Determinism
// requires files be in a stable order regardless of what order the tier
// enumerated them in.
func computeContentHash(files []FileHash) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("resolver: no files to hash")
	}

	sorted := make([]FileHash, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var buf []byte
	for _, f := range sorted {
		buf = append(buf, []byte(f.Path+":"+f.SHA256+"\n")...)
	}
	return hashstore.Hash(buf), nil
}
