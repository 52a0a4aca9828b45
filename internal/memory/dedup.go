package memory

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"

	"github.com/nickcecere/vecmem/internal/index"
)

// ResolveSource returns the source file an entry belongs to. The direct
// field wins; entries written by older installations carry the path only in
// their JSON metadata blob. It returns "" when neither encoding has one.
func ResolveSource(md index.Metadata) string {
	if md.SourceFile != "" {
		return md.SourceFile
	}
	if md.MetadataJSON == "" || !gjson.Valid(md.MetadataJSON) {
		return ""
	}
	return gjson.Get(md.MetadataJSON, "source_file").String()
}

// IsLegacy reports whether the entry's source is only in the JSON blob.
func IsLegacy(md index.Metadata) bool {
	return md.SourceFile == "" && ResolveSource(md) != ""
}

// matchSources returns a predicate selecting entries whose resolved source
// equals one of paths exactly.
func matchSources(paths []string) func(index.Metadata) bool {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(md index.Metadata) bool {
		src := ResolveSource(md)
		if src == "" {
			return false
		}
		_, ok := set[src]
		return ok
	}
}

// PurgeSources deletes every entry belonging to one of paths, in either
// metadata encoding. Paths are compared exactly, so callers pass canonical
// absolute paths. Purging paths with no entries deletes nothing.
func (s *Store) PurgeSources(ctx context.Context, paths []string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	h, err := s.resources.Ensure(ctx)
	if err != nil {
		return 0, err
	}
	return purge(ctx, h.Index, paths)
}

func purge(ctx context.Context, idx index.Index, paths []string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	n, err := idx.DeleteMatching(ctx, matchSources(paths))
	if err != nil {
		return 0, fmt.Errorf("%w: purge: %w", ErrIndexOperation, err)
	}
	if n > 0 {
		log.Debug("Purged previous chunks", "files", len(paths), "entries", n)
	}
	return n, nil
}
