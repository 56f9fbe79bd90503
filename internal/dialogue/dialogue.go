// Package dialogue implements the per-turn conversation policy.
//
// Each turn the model acts as an oracle that either answers directly or
// requests a retrieval. The engine owns the loop: it executes requested
// retrievals, threads the snippets back as tool responses, collects
// citations, and forces a final answer once the per-turn retrieval cap
// is reached. Keeping the loop outside the model SDK makes the policy
// deterministic and testable with a stubbed oracle.
package dialogue

import (
	"context"

	"github.com/firebase/genkit/go/ai"

	"github.com/nelfi/navigator/internal/chatlog"
	"github.com/nelfi/navigator/internal/retrieval"
)

// DecisionKind discriminates oracle decisions.
type DecisionKind int

const (
	// DecideAnswer means the oracle produced the final answer text.
	DecideAnswer DecisionKind = iota

	// DecideRetrieve means the oracle wants grounding snippets first.
	DecideRetrieve
)

// Decision is one oracle verdict: answer the user, or retrieve first.
type Decision struct {
	Kind   DecisionKind
	Answer string // final answer text, set for DecideAnswer
	Query  string // retrieval query, set for DecideRetrieve
	Ref    string // tool-call ref, threaded back in the tool response

	// Message is the raw assistant message that carried the decision.
	// The engine appends it to the conversation before the tool response
	// so the model sees its own request on the next round.
	Message *ai.Message
}

// Oracle decides what to do with the conversation so far.
// allowRetrieval=false forces an answer; implementations must not return
// DecideRetrieve in that case.
type Oracle interface {
	Decide(ctx context.Context, msgs []*ai.Message, allowRetrieval bool) (*Decision, error)
}

// Searcher is the slice of the retriever the engine depends on.
type Searcher interface {
	Search(ctx context.Context, query string) ([]retrieval.Snippet, error)
}

// Conversations is the slice of the chat log the engine depends on.
type Conversations interface {
	History(ctx context.Context, phone string, limit int32) ([]chatlog.Message, error)
}

// Turn is the result of one completed exchange.
type Turn struct {
	Response  string
	Citations []chatlog.Citation
	Retrieved bool // true when at least one snippet grounded the answer
}
