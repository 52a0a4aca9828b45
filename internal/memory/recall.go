package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// DefaultRecallK is used when Recall is asked for zero or fewer results.
const DefaultRecallK = 3

// UnknownSource labels entries whose metadata names no source file.
const UnknownSource = "unknown"

// RecallResult is one recalled chunk.
type RecallResult struct {
	Rank       int     `json:"rank"`
	SourceFile string  `json:"source_file"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	Sequence   int     `json:"sequence"`
	Page       int     `json:"page,omitempty"`
}

// Recall returns the k chunks most similar to query, best first. An empty
// memory yields no results and no error.
func (s *Store) Recall(ctx context.Context, query string, k int) ([]RecallResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultRecallK
	}

	h, err := s.resources.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	vec, err := h.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	hits, err := h.Index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", ErrIndexOperation, err)
	}

	results := make([]RecallResult, 0, len(hits))
	for i, hit := range hits {
		src := ResolveSource(hit.Metadata())
		if src == "" {
			src = UnknownSource
		}
		results = append(results, RecallResult{
			Rank:       i + 1,
			SourceFile: src,
			Content:    hit.Content,
			Score:      hit.Score,
			Sequence:   hit.Sequence,
			Page:       hit.Page,
		})
	}

	log.Debug("Recalled from memory", "query", query, "k", k, "results", len(results))
	return results, nil
}
