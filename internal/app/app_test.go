package app

import (
	"testing"

	"github.com/nelfi/navigator/internal/config"
	"github.com/nelfi/navigator/internal/corpus"
	"github.com/nelfi/navigator/internal/log"
)

func TestSwapRetriever_ReplacesInstance(t *testing.T) {
	a := &App{
		Config: &config.Config{
			RetrievalTopK:   5,
			RetrievalFetchK: 10,
			MMRLambda:       0.7,
		},
		Logger:      log.NewNop(),
		corpusStore: corpus.NewStore(nil, nil, log.NewNop()),
	}

	a.swapRetriever()
	first := a.retriever.Load()
	if first == nil {
		t.Fatal("retriever not installed")
	}

	a.swapRetriever()
	if a.retriever.Load() == first {
		t.Error("reindex should install a fresh retriever instance")
	}
}

func TestClose_SafeWithPartialInit(t *testing.T) {
	a := &App{Logger: log.NewNop()}
	if err := a.Close(); err != nil {
		t.Errorf("Close() on partial app failed: %v", err)
	}
}
