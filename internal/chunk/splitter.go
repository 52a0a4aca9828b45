package chunk

import (
	"strings"
	"unicode/utf8"
)

var (
	defaultSeparators  = []string{"\n\n", "\n", " ", ""}
	markdownSeparators = []string{"\n# ", "\n## ", "\n### ", "\n#### ", "```\n", "\n\n", "\n", " ", ""}
)

// Chunk is a contiguous slice of a document's text.
type Chunk struct {
	Content  string
	Sequence int // 0-based position within the document
	Page     int // 1-based page for paged documents, 0 otherwise
}

// Splitter cuts text recursively: it splits on the first separator present,
// recurses into pieces that are still too long with the remaining separators,
// then merges neighbouring pieces back up to the chunk size with overlap.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// NewSplitter creates a splitter. Sizes are in runes. An overlap that is not
// smaller than the size is clamped to half the size.
func NewSplitter(size, overlap int, separators []string) *Splitter {
	if size <= 0 {
		size = TextChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	if len(separators) == 0 {
		separators = defaultSeparators
	}
	return &Splitter{size: size, overlap: overlap, separators: separators}
}

// Size returns the chunk size in runes.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the overlap in runes.
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the chunk texts for text. Whitespace-only chunks are dropped.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

// SplitPages splits each page and numbers the chunks continuously across
// pages. A single-element input is treated as an unpaged document.
func (s *Splitter) SplitPages(pages []string) []Chunk {
	paged := len(pages) > 1
	var out []Chunk
	for i, page := range pages {
		for _, text := range s.Split(page) {
			c := Chunk{Content: text, Sequence: len(out)}
			if paged {
				c.Page = i + 1
			}
			out = append(out, c)
		}
	}
	return out
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var chunks []string
	var pending []string
	for _, piece := range splitKeepingSeparator(text, sep) {
		if runeLen(piece) < s.size {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			if t := strings.TrimSpace(piece); t != "" {
				chunks = append(chunks, t)
			}
			continue
		}
		chunks = append(chunks, s.split(piece, rest)...)
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending)...)
	}
	return chunks
}

// merge packs pieces into chunks of at most size runes, carrying trailing
// pieces of up to overlap runes into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)
	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.size && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				chunks = append(chunks, doc)
			}
			for total > s.overlap || (total+n > s.size && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		chunks = append(chunks, doc)
	}
	return chunks
}

// splitKeepingSeparator splits text on sep and reattaches the separator to
// the start of each following piece, so joining the pieces restores text.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
