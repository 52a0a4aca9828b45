package fs

import (
	"path/filepath"
	"sort"
	"strings"
)

// ContentType classifies a document for loading and chunking.
type ContentType string

// Supported content types. Anything unrecognised is treated as text.
const (
	TypePDF      ContentType = "pdf"
	TypeMarkdown ContentType = "markdown"
	TypeText     ContentType = "text"
)

var extToType = map[string]ContentType{
	".pdf": TypePDF,

	".md":       TypeMarkdown,
	".markdown": TypeMarkdown,
	".mdown":    TypeMarkdown,
	".mkd":      TypeMarkdown,
	".mdx":      TypeMarkdown,

	".txt":  TypeText,
	".text": TypeText,
	".rst":  TypeText,
	".adoc": TypeText,
	".org":  TypeText,
	".csv":  TypeText,
	".log":  TypeText,
}

// DetectContentType determines the content type of a file from its extension.
// It never fails: unknown extensions map to TypeText.
func DetectContentType(path string) ContentType {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := extToType[ext]; ok {
		return ct
	}
	return TypeText
}

// IsKnownDocument reports whether the extension is one of the explicitly
// supported document extensions.
func IsKnownDocument(path string) bool {
	_, ok := extToType[strings.ToLower(filepath.Ext(path))]
	return ok
}

// SupportedExtensions returns the extensions with an explicit content type, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extToType))
	for ext := range extToType {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
