// Package app wires configuration, storage, the model runtime, and the
// dialogue engine into one container with a single fail-fast Setup.
package app

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nelfi/navigator/internal/chatlog"
	"github.com/nelfi/navigator/internal/config"
	"github.com/nelfi/navigator/internal/corpus"
	"github.com/nelfi/navigator/internal/dialogue"
	"github.com/nelfi/navigator/internal/retrieval"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Chatlog *chatlog.Store
	Engine  *dialogue.Engine

	builder     *corpus.Builder
	corpusStore *corpus.Store

	// retriever is swapped wholesale on reindex so in-flight searches
	// keep the instance they started with.
	retriever atomic.Pointer[retrieval.Retriever]

	cancel context.CancelFunc
}

// Search proxies to the current retriever, which may be replaced by
// Reindex at any time. App satisfies the dialogue engine's Searcher.
func (a *App) Search(ctx context.Context, query string) ([]retrieval.Snippet, error) {
	return a.retriever.Load().Search(ctx, query)
}

// Reindex rebuilds the document index from the configured directory and
// swaps in a fresh retriever. In-flight requests are not blocked.
func (a *App) Reindex(ctx context.Context) (*corpus.BuildResult, error) {
	result, err := a.builder.Build(ctx, a.Config.DocumentDir)
	if err != nil {
		return nil, err
	}
	a.swapRetriever()
	return result, nil
}

// DocumentCount reports how many chunks the index currently holds.
func (a *App) DocumentCount(ctx context.Context) (int64, error) {
	return a.corpusStore.Count(ctx)
}

// Close releases all resources.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.cancel != nil {
		a.cancel()
	}
	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database pool closed")
	}
	return nil
}
