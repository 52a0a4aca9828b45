package memory

import (
	"fmt"
	"strings"
)

// NothingFound is the recall text for a query without matches.
const NothingFound = "Nothing found in memory matching your query."

// FormatSave renders a save result as the text returned to tool callers.
func FormatSave(r *SaveResult) string {
	var b strings.Builder

	switch {
	case r.SavedCount() == 0 && len(r.Errors) == 0:
		b.WriteString("No files to save.")
	case r.SavedCount() == 0:
		fmt.Fprintf(&b, "Failed to save %d file(s) to memory:", len(r.Errors))
	default:
		fmt.Fprintf(&b, "Successfully saved %d file(s) to memory (%d chunks, %d superseded). Content is now available for recall.",
			r.SavedCount(), r.Chunks, r.Purged)
		if len(r.Errors) > 0 {
			fmt.Fprintf(&b, "\n\n%d file(s) could not be saved:", len(r.Errors))
		}
	}

	for _, fe := range r.Errors {
		fmt.Fprintf(&b, "\n- %s: %v", fe.Path, fe.Err)
	}
	return b.String()
}

// FormatRecall renders recall results as markdown sections separated by rules.
func FormatRecall(results []RecallResult) string {
	if len(results) == 0 {
		return NothingFound
	}

	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("**Result %d**\nSource: %s\n\nContent:\n%s\n", r.Rank, r.SourceFile, r.Content)
	}
	return strings.Join(parts, "\n---\n")
}

// FormatSources renders a source listing, one file per line.
func FormatSources(sources []SourceSummary) string {
	if len(sources) == 0 {
		return "Memory is empty."
	}

	var b strings.Builder
	total := 0
	for _, s := range sources {
		total += s.Chunks
	}
	fmt.Fprintf(&b, "%d file(s), %d chunk(s) in memory:\n", len(sources), total)
	for _, s := range sources {
		fmt.Fprintf(&b, "- %s (%d chunks)", s.SourceFile, s.Chunks)
		if s.Legacy > 0 {
			fmt.Fprintf(&b, " [%d legacy]", s.Legacy)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatDelete renders the outcome of a destructive operation.
func FormatDelete(r *DeleteResult) string {
	if !r.Confirmed {
		return fmt.Sprintf("Not confirmed: nothing was deleted. Pass confirm=%q to proceed.", r.Required)
	}
	if r.Target != "" {
		return fmt.Sprintf("Deleted %d chunk(s) for %s.", r.Deleted, r.Target)
	}
	return fmt.Sprintf("Deleted %d chunk(s).", r.Deleted)
}

// FormatStats renders memory statistics.
func FormatStats(s *Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Index: %s (%s", s.Namespace, s.Backend)
	if s.Location != "" && s.Backend != "memory" {
		fmt.Fprintf(&b, " at %s", s.Location)
	}
	b.WriteString(")\n")
	fmt.Fprintf(&b, "Embedder: %s/%s (%d dimensions)\n", s.Provider, s.Model, s.Dimensions)
	fmt.Fprintf(&b, "Files: %d\n", s.Sources)
	fmt.Fprintf(&b, "Chunks: %d", s.Entries)
	if s.LegacyEntries > 0 {
		fmt.Fprintf(&b, " (%d in legacy metadata encoding)", s.LegacyEntries)
	}
	return b.String()
}
