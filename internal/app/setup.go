package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nelfi/navigator/db"
	"github.com/nelfi/navigator/internal/chatlog"
	"github.com/nelfi/navigator/internal/config"
	"github.com/nelfi/navigator/internal/corpus"
	"github.com/nelfi/navigator/internal/dialogue"
	"github.com/nelfi/navigator/internal/log"
	"github.com/nelfi/navigator/internal/retrieval"
)

// defaultModelRPM caps Gemini calls per minute across all turns.
const defaultModelRPM = 60

// Setup validates the configuration and initializes every component in
// dependency order, failing fast on the first problem. Call Close to
// release the returned App.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	a.Embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if a.Embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	corpusLogger := log.Named(logger, "corpus")
	corpusStore := corpus.NewStore(corpus.NewQuerier(pool), a.Embedder, corpusLogger)
	splitter := corpus.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	a.builder = corpus.NewBuilder(corpusStore, splitter, corpusLogger)
	a.corpusStore = corpusStore
	a.swapRetriever()

	a.Chatlog = chatlog.New(chatlog.NewQuerier(pool), log.Named(logger, "chatlog"))

	dialogueLogger := log.Named(logger, "dialogue")
	oracle, err := dialogue.NewModelOracle(g, cfg.FullModelName(), cfg.Temperature, dialogueLogger)
	if err != nil {
		return nil, fmt.Errorf("creating oracle: %w", err)
	}

	engine, err := dialogue.NewEngine(dialogue.Config{
		Oracle:        oracle,
		Retriever:     a,
		History:       a.Chatlog,
		Logger:        dialogueLogger,
		MaxRetrievals: cfg.MaxRetrievals,
		HistoryLimit:  cfg.MaxHistoryMessages,
		Limiter:       dialogue.NewLimiter(defaultModelRPM),
	})
	if err != nil {
		return nil, fmt.Errorf("creating dialogue engine: %w", err)
	}
	a.Engine = engine

	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	logger.Info("application initialized",
		"model", cfg.FullModelName(),
		"embedder", cfg.FullEmbedderName())
	return a, nil
}

// swapRetriever installs a fresh retriever over the current corpus store.
func (a *App) swapRetriever() {
	a.retriever.Store(retrieval.New(a.corpusStore, retrieval.Config{
		TopK:   a.Config.RetrievalTopK,
		FetchK: a.Config.RetrievalFetchK,
		Lambda: a.Config.MMRLambda,
	}, log.Named(a.Logger, "retrieval")))
}

// provideDBPool runs migrations, then opens and pings the pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes the Genkit runtime with the Google AI plugin.
// The plugin reads GEMINI_API_KEY from the environment.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with googleai provider")
	}
	return g, nil
}
