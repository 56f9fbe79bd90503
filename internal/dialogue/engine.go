package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"

	"github.com/nelfi/navigator/internal/chatlog"
	"github.com/nelfi/navigator/internal/retrieval"
)

const (
	// DefaultMaxRetrievals caps retrieval rounds per turn. After the cap
	// the model is forced to answer with whatever it has.
	DefaultMaxRetrievals = 2

	// defaultHistoryLimit bounds how many past messages seed the context.
	defaultHistoryLimit = 100

	// turnTimeout bounds one full turn including retries and retrievals.
	turnTimeout = 30 * time.Second

	// citationPreviewLen truncates cited passages for the API payload.
	citationPreviewLen = 200
)

// fallbackMessage is returned when the model produces no usable text.
const fallbackMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

// Config assembles an Engine.
type Config struct {
	Oracle    Oracle
	Retriever Searcher
	History   Conversations
	Logger    *slog.Logger

	MaxRetrievals int           // retrieval rounds per turn, 0 means DefaultMaxRetrievals
	HistoryLimit  int32         // past messages loaded per turn, 0 means defaultHistoryLimit
	Retry         RetryConfig   // zero value means DefaultRetryConfig
	Limiter       *rate.Limiter // optional model call limiter
}

func (c *Config) validate() error {
	if c.Oracle == nil {
		return errors.New("oracle is required")
	}
	if c.Retriever == nil {
		return errors.New("retriever is required")
	}
	if c.History == nil {
		return errors.New("history store is required")
	}
	return nil
}

// Engine runs the per-turn dialogue loop.
//
// Engine is safe for concurrent use by multiple goroutines.
type Engine struct {
	oracle    Oracle
	retriever Searcher
	history   Conversations
	logger    *slog.Logger

	maxRetrievals int
	historyLimit  int32
	retry         RetryConfig
	limiter       *rate.Limiter
}

// NewEngine validates cfg and builds the engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxRetrievals <= 0 {
		cfg.MaxRetrievals = DefaultMaxRetrievals
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Engine{
		oracle:        cfg.Oracle,
		retriever:     cfg.Retriever,
		history:       cfg.History,
		logger:        cfg.Logger,
		maxRetrievals: cfg.MaxRetrievals,
		historyLimit:  cfg.HistoryLimit,
		retry:         cfg.Retry,
		limiter:       cfg.Limiter,
	}, nil
}

// Respond produces the assistant's reply to input from the user identified
// by phone. Prior conversation is loaded from the chat log; the caller is
// responsible for persisting both sides of the new exchange.
func (e *Engine) Respond(ctx context.Context, phone, input string) (*Turn, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.New("message is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	past, err := e.history.History(ctx, phone, e.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	msgs := historyToMessages(past)
	msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(input)))

	var citations []chatlog.Citation
	seen := make(map[string]bool)
	retrieved := false

	for round := 0; ; round++ {
		allowRetrieval := round < e.maxRetrievals

		decision, err := e.decideWithRetry(ctx, msgs, allowRetrieval)
		if err != nil {
			return nil, err
		}

		if decision.Kind == DecideRetrieve && allowRetrieval {
			snippets, err := e.retriever.Search(ctx, decision.Query)
			if err != nil {
				// The turn continues on an empty result so the model can
				// still answer, with the grounding gap logged.
				e.logger.Error("retrieval failed, continuing without context",
					"error", err)
				snippets = nil
			}
			if len(snippets) > 0 {
				retrieved = true
			}

			e.logger.Debug("retrieval round",
				"round", round+1,
				"query_length", len(decision.Query),
				"snippets", len(snippets))

			for _, sn := range snippets {
				key := fmt.Sprintf("%s#%d", sn.Source, sn.Page)
				if seen[key] {
					continue
				}
				seen[key] = true
				citations = append(citations, chatlog.Citation{
					Source:         sn.Source,
					Page:           sn.Page,
					ContentPreview: preview(sn.Text),
				})
			}

			msgs = append(msgs, decision.Message, toolResponseMessage(decision.Ref, snippets))
			continue
		}

		answer := CleanResponse(decision.Answer)
		if answer == "" {
			e.logger.Warn("model returned empty answer", "rounds", round)
			answer = fallbackMessage
		}

		return &Turn{
			Response:  answer,
			Citations: citations,
			Retrieved: retrieved,
		}, nil
	}
}

// historyToMessages maps stored chat rows onto model conversation roles.
func historyToMessages(past []chatlog.Message) []*ai.Message {
	msgs := make([]*ai.Message, 0, len(past)+1)
	for _, m := range past {
		switch m.Sender {
		case chatlog.SenderUser:
			msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(m.Text)))
		case chatlog.SenderAI:
			msgs = append(msgs, ai.NewModelMessage(ai.NewTextPart(m.Text)))
		}
	}
	return msgs
}

// toolResponseMessage packages retrieved snippets as the tool's reply,
// carrying the request ref so the model can correlate it.
func toolResponseMessage(ref string, snippets []retrieval.Snippet) *ai.Message {
	part := ai.NewToolResponsePart(&ai.ToolResponse{
		Name:   RetrieveToolName,
		Ref:    ref,
		Output: formatSnippets(snippets),
	})
	return &ai.Message{
		Role:    ai.RoleTool,
		Content: []*ai.Part{part},
	}
}

// formatSnippets renders snippets as the plain-text tool output the
// model reads back.
func formatSnippets(snippets []retrieval.Snippet) string {
	if len(snippets) == 0 {
		return "No relevant documents found in the NELFUND knowledge base."
	}

	var b strings.Builder
	for i, sn := range snippets {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source: %s, page %d]\n%s", sn.Source, sn.Page, sn.Text)
	}
	return b.String()
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= citationPreviewLen {
		return text
	}
	return string(runes[:citationPreviewLen])
}
