// Package chunk decides how documents are cut into chunks and performs the cut.
package chunk

import "github.com/nickcecere/vecmem/internal/fs"

// Chunk sizes and overlaps per content type, in runes.
const (
	PDFChunkSize      = 1500
	PDFOverlap        = 200
	MarkdownChunkSize = 1000
	MarkdownOverlap   = 150
	TextChunkSize     = 800
	TextOverlap       = 100
)

// OptimalChunkParams maps a content type to its chunk size and overlap.
// Page-oriented PDFs get the widest window, markdown a medium one that keeps
// sections together, and plain or unrecognised text the smallest.
func OptimalChunkParams(ct fs.ContentType) (size, overlap int) {
	switch ct {
	case fs.TypePDF:
		return PDFChunkSize, PDFOverlap
	case fs.TypeMarkdown:
		return MarkdownChunkSize, MarkdownOverlap
	default:
		return TextChunkSize, TextOverlap
	}
}

// SeparatorsFor returns the split hierarchy used for a content type.
func SeparatorsFor(ct fs.ContentType) []string {
	if ct == fs.TypeMarkdown {
		return markdownSeparators
	}
	return defaultSeparators
}

// ForContentType returns a splitter configured with the policy for ct.
func ForContentType(ct fs.ContentType) *Splitter {
	size, overlap := OptimalChunkParams(ct)
	return NewSplitter(size, overlap, SeparatorsFor(ct))
}
