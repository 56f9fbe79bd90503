package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// BuildResult summarizes one index build.
type BuildResult struct {
	Documents int
	Chunks    int
	Sampled   bool // true when the built-in sample corpus was used
	Duration  time.Duration
}

// Builder performs wholesale index rebuilds: load, split, embed, upsert.
type Builder struct {
	store    *Store
	splitter Splitter
	logger   *slog.Logger
}

// NewBuilder creates a Builder over store with the given splitter.
func NewBuilder(store *Store, splitter Splitter, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{store: store, splitter: splitter, logger: logger}
}

// Build replaces the whole index with the contents of dir.
//
// When dir yields no usable documents the built-in sample corpus is
// indexed instead, so retrieval keeps working on a fresh install.
// Rebuilds are wholesale and all-or-nothing: a failure partway through
// leaves the previous index untouched.
func (b *Builder) Build(ctx context.Context, dir string) (*BuildResult, error) {
	start := time.Now()

	docs := LoadDir(dir, b.logger)
	sampled := false
	if len(docs) == 0 {
		b.logger.Warn("no documents loaded, indexing built-in sample corpus", "dir", dir)
		docs = SampleDocuments()
		sampled = true
	}

	var chunks []Chunk
	for _, doc := range docs {
		for i, fragment := range b.splitter.Split(doc.Content) {
			chunks = append(chunks, Chunk{
				ID:      chunkID(doc.Source, i),
				Content: fragment,
				Source:  doc.Source,
				Page:    doc.Page,
			})
		}
	}

	if err := b.store.Rebuild(ctx, chunks); err != nil {
		return nil, fmt.Errorf("rebuilding index: %w", err)
	}

	result := &BuildResult{
		Documents: len(docs),
		Chunks:    len(chunks),
		Sampled:   sampled,
		Duration:  time.Since(start),
	}
	b.logger.Info("index built",
		"documents", result.Documents,
		"chunks", result.Chunks,
		"sampled", result.Sampled,
		"duration", result.Duration)
	return result, nil
}
