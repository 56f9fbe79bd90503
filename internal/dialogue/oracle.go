package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"
)

// RetrieveToolName is the tool the model calls to request grounding.
const RetrieveToolName = "retrieve_nelfund_info"

const retrieveToolDescription = "Search the official NELFUND knowledge base for information about " +
	"eligibility, applications, repayment, and program policies. " +
	"Returns relevant document excerpts with their sources."

// retrieveInput is the tool input schema exposed to the model.
type retrieveInput struct {
	Query string `json:"query" jsonschema:"description=Search query describing the information needed"`
}

// ModelOracle asks a Genkit model to decide each turn.
//
// The retrieval tool is registered with a handler that never runs:
// generation requests return tool requests to the caller instead of
// executing them, so the engine stays in charge of the retrieval loop.
type ModelOracle struct {
	g           *genkit.Genkit
	modelName   string
	temperature float32
	tool        ai.Tool
	logger      *slog.Logger
}

// NewModelOracle registers the retrieval tool and returns the oracle.
// modelName must be a full provider-qualified name, e.g.
// "googleai/gemini-2.5-flash". A temperature of 0 leaves the model's
// default sampling in place.
func NewModelOracle(g *genkit.Genkit, modelName string, temperature float32, logger *slog.Logger) (*ModelOracle, error) {
	if g == nil {
		return nil, errors.New("genkit instance is required")
	}
	if modelName == "" {
		return nil, errors.New("model name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	tool := genkit.DefineTool(
		g,
		RetrieveToolName,
		retrieveToolDescription,
		func(_ *ai.ToolContext, _ retrieveInput) (string, error) {
			// Tool requests are returned to the dialogue engine, which
			// performs the search itself. Reaching this handler means the
			// generate call was issued without WithReturnToolRequests.
			return "", errors.New("retrieve_nelfund_info must be resolved by the dialogue engine")
		},
	)

	return &ModelOracle{
		g:           g,
		modelName:   modelName,
		temperature: temperature,
		tool:        tool,
		logger:      logger,
	}, nil
}

// Decide runs one generation over the conversation. With allowRetrieval
// set, the model may request a search; otherwise the tool is withheld and
// the model must answer from what it already has.
func (o *ModelOracle) Decide(ctx context.Context, msgs []*ai.Message, allowRetrieval bool) (*Decision, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(o.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithMessages(msgs...),
	}
	if o.temperature > 0 {
		opts = append(opts, ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: &o.temperature,
		}))
	}
	if allowRetrieval {
		opts = append(opts,
			ai.WithTools(o.tool),
			ai.WithReturnToolRequests(true),
		)
	}

	resp, err := genkit.Generate(ctx, o.g, opts...)
	if err != nil {
		return nil, fmt.Errorf("generating turn decision: %w", err)
	}

	if allowRetrieval {
		if reqs := resp.ToolRequests(); len(reqs) > 0 {
			req := reqs[0]
			if len(reqs) > 1 {
				o.logger.Warn("model issued parallel tool requests, honoring the first",
					"requests", len(reqs))
			}
			query := queryFromToolInput(req.Input)
			if query == "" {
				o.logger.Warn("tool request without query, treating as answer",
					"tool", req.Name)
			} else {
				return &Decision{
					Kind:    DecideRetrieve,
					Query:   query,
					Ref:     req.Ref,
					Message: pruneToolRequests(resp.Message, req),
				}, nil
			}
		}
	}

	return &Decision{
		Kind:    DecideAnswer,
		Answer:  strings.TrimSpace(resp.Text()),
		Message: resp.Message,
	}, nil
}

// pruneToolRequests copies msg keeping its non-tool content and only the
// tool request being honored. One search runs per round, and a threaded
// message must not carry requests that will never receive a response:
// the follow-up generate call rejects unmatched function calls.
func pruneToolRequests(msg *ai.Message, keep *ai.ToolRequest) *ai.Message {
	if msg == nil {
		return nil
	}
	out := &ai.Message{Role: msg.Role, Metadata: msg.Metadata}
	for _, part := range msg.Content {
		if part.ToolRequest != nil && part.ToolRequest != keep {
			continue
		}
		out.Content = append(out.Content, part)
	}
	return out
}

// queryFromToolInput tolerates both structured and bare-string tool inputs.
// Genkit decodes JSON tool arguments into map[string]any.
func queryFromToolInput(input any) string {
	switch v := input.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if q, ok := v["query"].(string); ok {
			return strings.TrimSpace(q)
		}
	}
	return ""
}
