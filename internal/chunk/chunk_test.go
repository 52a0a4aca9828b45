package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickcecere/vecmem/internal/fs"
)

func TestOptimalChunkParams(t *testing.T) {
	tests := []struct {
		ct      fs.ContentType
		size    int
		overlap int
	}{
		{fs.TypePDF, 1500, 200},
		{fs.TypeMarkdown, 1000, 150},
		{fs.TypeText, 800, 100},
		{fs.ContentType("spreadsheet"), 800, 100},
		{fs.ContentType(""), 800, 100},
	}

	for _, tt := range tests {
		t.Run(string(tt.ct), func(t *testing.T) {
			size, overlap := OptimalChunkParams(tt.ct)
			assert.Equal(t, tt.size, size)
			assert.Equal(t, tt.overlap, overlap)
			assert.Greater(t, size, overlap)
			assert.Greater(t, overlap, 0)

			// Deterministic
			size2, overlap2 := OptimalChunkParams(tt.ct)
			assert.Equal(t, size, size2)
			assert.Equal(t, overlap, overlap2)
		})
	}
}

func TestOptimalChunkParamsOrdering(t *testing.T) {
	pdfSize, pdfOverlap := OptimalChunkParams(fs.TypePDF)
	mdSize, mdOverlap := OptimalChunkParams(fs.TypeMarkdown)
	txtSize, txtOverlap := OptimalChunkParams(fs.TypeText)

	assert.Greater(t, pdfSize, mdSize)
	assert.Greater(t, mdSize, txtSize)
	assert.Greater(t, pdfOverlap, mdOverlap)
	assert.Greater(t, mdOverlap, txtOverlap)
}

func TestUnknownExtensionUsesTextPolicy(t *testing.T) {
	size, overlap := OptimalChunkParams(fs.DetectContentType("/tmp/data.unknownext"))
	assert.Equal(t, TextChunkSize, size)
	assert.Equal(t, TextOverlap, overlap)
}

func TestForContentType(t *testing.T) {
	s := ForContentType(fs.TypeMarkdown)
	assert.Equal(t, MarkdownChunkSize, s.Size())
	assert.Equal(t, MarkdownOverlap, s.Overlap())
}

func TestNewSplitterClampsOverlap(t *testing.T) {
	s := NewSplitter(100, 150, nil)
	assert.Equal(t, 50, s.Overlap())

	s = NewSplitter(0, -1, nil)
	assert.Equal(t, TextChunkSize, s.Size())
	assert.Equal(t, 0, s.Overlap())
}

func TestSplitEmpty(t *testing.T) {
	s := NewSplitter(100, 10, nil)
	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("  \n\n\t "))
}

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	s := NewSplitter(100, 10, nil)
	chunks := s.Split("  Hello, World!\n")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Hello, World!", chunks[0])
}

func TestSplitRespectsSize(t *testing.T) {
	var paras []string
	for i := 0; i < 40; i++ {
		paras = append(paras, strings.Repeat("word ", 15))
	}
	text := strings.Join(paras, "\n\n")

	s := NewSplitter(200, 40, nil)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 200)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestSplitOverlap(t *testing.T) {
	var words []string
	for i := 0; i < 200; i++ {
		words = append(words, "w"+strings.Repeat("x", i%5))
	}
	text := strings.Join(words, " ")

	s := NewSplitter(60, 20, nil)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 2)

	// Each chunk after the first starts with text carried from the previous one
	for i := 1; i < len(chunks); i++ {
		firstWord := strings.Fields(chunks[i])[0]
		assert.Contains(t, chunks[i-1], firstWord)
	}
}

func TestSplitLongWordFallsBackToCharacters(t *testing.T) {
	s := NewSplitter(10, 2, nil)
	chunks := s.Split(strings.Repeat("é", 35))
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 10)
	}
	assert.Equal(t, "éééééééééé", chunks[0])
}

func TestSplitMarkdownKeepsSections(t *testing.T) {
	section := func(title string) string {
		return "## " + title + "\n\n" + strings.Repeat("Body text for "+title+". ", 4)
	}
	text := "# Title\n\n" + section("Alpha") + "\n" + section("Beta") + "\n" + section("Gamma")

	s := NewSplitter(150, 0, SeparatorsFor(fs.TypeMarkdown))
	chunks := s.Split(text)
	require.GreaterOrEqual(t, len(chunks), 3)

	var sawBeta bool
	for _, c := range chunks {
		if strings.HasPrefix(c, "## Beta") {
			sawBeta = true
		}
	}
	assert.True(t, sawBeta, "a chunk should begin at the Beta heading")
}

func TestSplitPages(t *testing.T) {
	s := NewSplitter(50, 0, nil)

	chunks := s.SplitPages([]string{
		strings.Repeat("first page words ", 6),
		"",
		"third page",
	})
	require.Greater(t, len(chunks), 2)

	for i, c := range chunks {
		assert.Equal(t, i, c.Sequence)
	}
	assert.Equal(t, 1, chunks[0].Page)
	last := chunks[len(chunks)-1]
	assert.Equal(t, 3, last.Page)
	assert.Equal(t, "third page", last.Content)
}

func TestSplitPagesUnpaged(t *testing.T) {
	s := NewSplitter(50, 0, nil)
	chunks := s.SplitPages([]string{"only text"})
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Page)
	assert.Equal(t, 0, chunks[0].Sequence)
}

func TestSplitKeepingSeparator(t *testing.T) {
	text := "a\n\nb\n\nc"
	pieces := splitKeepingSeparator(text, "\n\n")
	assert.Equal(t, []string{"a", "\n\nb", "\n\nc"}, pieces)
	assert.Equal(t, text, strings.Join(pieces, ""))

	assert.Equal(t, []string{"h", "é"}, splitKeepingSeparator("hé", ""))
}
