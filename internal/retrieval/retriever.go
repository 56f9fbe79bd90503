// Package retrieval selects the grounding snippets for a chat turn.
//
// It over-fetches nearest neighbors from the document index, then applies
// maximal marginal relevance (MMR) so the final snippets balance query
// similarity against diversity: ten near-duplicate chunks about
// eligibility should not crowd out the one chunk about repayment.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nelfi/navigator/internal/corpus"
)

// Defaults applied when Config fields are zero.
const (
	DefaultTopK   = 5
	DefaultFetchK = 10
	DefaultLambda = 0.7
)

// Searcher is the slice of the corpus store the retriever depends on.
type Searcher interface {
	SearchNearest(ctx context.Context, query string, fetchK int) ([]corpus.Candidate, error)
}

// Snippet is one selected grounding passage.
type Snippet struct {
	Text   string
	Source string
	Page   int
	Score  float64 // cosine similarity to the query
}

// Config tunes the retrieve-and-rerank pipeline.
type Config struct {
	TopK   int     // snippets returned per query
	FetchK int     // nearest neighbors fetched before re-ranking
	Lambda float64 // MMR relevance/diversity tradeoff, 1 = pure relevance
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.FetchK < c.TopK {
		c.FetchK = max(DefaultFetchK, c.TopK)
	}
	if c.Lambda <= 0 || c.Lambda > 1 {
		c.Lambda = DefaultLambda
	}
	return c
}

// Retriever wraps a document store with MMR re-ranking.
//
// Retriever is safe for concurrent use by multiple goroutines.
type Retriever struct {
	store  Searcher
	cfg    Config
	logger *slog.Logger
}

// New creates a Retriever. Zero Config fields fall back to defaults.
func New(store Searcher, cfg Config, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{store: store, cfg: cfg.withDefaults(), logger: logger}
}

// Search returns up to TopK snippets for the query, most relevant first
// after MMR selection. No matches is an empty slice, not an error.
func (r *Retriever) Search(ctx context.Context, query string) ([]Snippet, error) {
	candidates, err := r.store.SearchNearest(ctx, query, r.cfg.FetchK)
	if err != nil {
		return nil, fmt.Errorf("fetching candidates: %w", err)
	}
	if len(candidates) == 0 {
		r.logger.Debug("no candidates for query", "query_length", len(query))
		return []Snippet{}, nil
	}

	selected := selectMMR(candidates, r.cfg.TopK, r.cfg.Lambda)

	snippets := make([]Snippet, 0, len(selected))
	for _, c := range selected {
		snippets = append(snippets, Snippet{
			Text:   c.Content,
			Source: c.Source,
			Page:   c.Page,
			Score:  c.Similarity,
		})
	}

	r.logger.Debug("retrieval completed",
		"candidates", len(candidates),
		"selected", len(snippets),
		"top_score", snippets[0].Score)
	return snippets, nil
}
