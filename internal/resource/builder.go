package resource

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/nickcecere/vecmem/internal/config"
	"github.com/nickcecere/vecmem/internal/embeddings"
	"github.com/nickcecere/vecmem/internal/index"
)

// NewBuilder returns the production builder: create the embedder from cfg,
// probe it for its real dimensions, then open the configured index.
func NewBuilder(cfg *config.Config) Builder {
	return func(ctx context.Context) (*Handles, error) {
		svc, err := embeddings.NewService(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding service: %w", err)
		}

		dims, err := embeddings.Probe(ctx, svc)
		if err != nil {
			return nil, fmt.Errorf("embedding probe failed (%s/%s): %w", svc.Provider(), svc.ModelName(), err)
		}

		idx, err := index.Open(cfg.Index.URL, cfg.Index.Name, dims)
		if err != nil {
			return nil, fmt.Errorf("failed to open index: %w", err)
		}

		log.Info("Memory ready",
			"index", cfg.Index.Name,
			"backend", idx.Info().Backend,
			"model", svc.ModelName(),
			"dimensions", dims,
		)

		return &Handles{
			Embedder: embeddings.NewCachedService(svc, cfg.Embeddings.CacheSize),
			Index:    idx,
		}, nil
	}
}
