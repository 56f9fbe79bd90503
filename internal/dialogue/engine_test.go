package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"

	"github.com/nelfi/navigator/internal/chatlog"
	"github.com/nelfi/navigator/internal/log"
	"github.com/nelfi/navigator/internal/retrieval"
)

// scriptedOracle returns pre-planned decisions in order and records what
// it was allowed to do on each call.
type scriptedOracle struct {
	decisions []*Decision
	errs      []error
	calls     int
	allowed   []bool
	lastMsgs  []*ai.Message
}

func (o *scriptedOracle) Decide(_ context.Context, msgs []*ai.Message, allowRetrieval bool) (*Decision, error) {
	i := o.calls
	o.calls++
	o.allowed = append(o.allowed, allowRetrieval)
	o.lastMsgs = msgs

	if i < len(o.errs) && o.errs[i] != nil {
		return nil, o.errs[i]
	}
	if i < len(o.decisions) {
		return o.decisions[i], nil
	}
	return &Decision{Kind: DecideAnswer, Answer: "default answer"}, nil
}

type stubRetriever struct {
	snippets []retrieval.Snippet
	err      error
	queries  []string
}

func (r *stubRetriever) Search(_ context.Context, query string) ([]retrieval.Snippet, error) {
	r.queries = append(r.queries, query)
	if r.err != nil {
		return nil, r.err
	}
	return r.snippets, nil
}

type stubHistory struct {
	messages []chatlog.Message
	err      error
}

func (h *stubHistory) History(_ context.Context, _ string, _ int32) ([]chatlog.Message, error) {
	return h.messages, h.err
}

func retrieveDecision(query string) *Decision {
	return &Decision{
		Kind:    DecideRetrieve,
		Query:   query,
		Ref:     "ref-1",
		Message: ai.NewModelMessage(ai.NewTextPart("")),
	}
}

func newTestEngine(t *testing.T, oracle Oracle, retriever Searcher, history Conversations) *Engine {
	t.Helper()
	e, err := NewEngine(Config{
		Oracle:    oracle,
		Retriever: retriever,
		History:   history,
		Logger:    log.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}
	return e
}

func TestRespond_DirectAnswer(t *testing.T) {
	oracle := &scriptedOracle{decisions: []*Decision{
		{Kind: DecideAnswer, Answer: "Hello! How can I help you today?"},
	}}
	retriever := &stubRetriever{}
	e := newTestEngine(t, oracle, retriever, &stubHistory{})

	turn, err := e.Respond(context.Background(), "2348031234567", "hi")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}

	if turn.Response != "Hello! How can I help you today?" {
		t.Errorf("response = %q", turn.Response)
	}
	if turn.Retrieved {
		t.Error("greeting turn should not count as retrieved")
	}
	if len(turn.Citations) != 0 {
		t.Errorf("citations = %d, want 0", len(turn.Citations))
	}
	if len(retriever.queries) != 0 {
		t.Errorf("retriever called %d times, want 0", len(retriever.queries))
	}
}

func TestRespond_RetrieveThenAnswer(t *testing.T) {
	oracle := &scriptedOracle{decisions: []*Decision{
		retrieveDecision("loan eligibility criteria"),
		{Kind: DecideAnswer, Answer: "You must attend a public institution."},
	}}
	retriever := &stubRetriever{snippets: []retrieval.Snippet{
		{Text: "Applicants must attend public institutions.", Source: "eligibility_guidelines.pdf", Page: 1, Score: 0.9},
	}}
	e := newTestEngine(t, oracle, retriever, &stubHistory{})

	turn, err := e.Respond(context.Background(), "2348031234567", "am I eligible?")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}

	if !turn.Retrieved {
		t.Error("turn should be marked retrieved")
	}
	if len(turn.Citations) != 1 {
		t.Fatalf("citations = %d, want 1", len(turn.Citations))
	}
	if turn.Citations[0].Source != "eligibility_guidelines.pdf" || turn.Citations[0].Page != 1 {
		t.Errorf("citation = %+v", turn.Citations[0])
	}
	if retriever.queries[0] != "loan eligibility criteria" {
		t.Errorf("query = %q", retriever.queries[0])
	}

	// The second oracle call must see the assistant's tool request and
	// the tool response carrying the snippet text.
	last := oracle.lastMsgs[len(oracle.lastMsgs)-1]
	if last.Role != ai.RoleTool {
		t.Fatalf("last message role = %q, want tool", last.Role)
	}
	tr := last.Content[0].ToolResponse
	if tr == nil || tr.Name != RetrieveToolName || tr.Ref != "ref-1" {
		t.Errorf("tool response = %+v", tr)
	}
	if out, _ := tr.Output.(string); !strings.Contains(out, "public institutions") {
		t.Errorf("tool output = %v", tr.Output)
	}
}

func TestRespond_RetrievalCapForcesAnswer(t *testing.T) {
	// An oracle that always wants to retrieve terminates anyway: after two
	// retrieval rounds the engine disallows the tool and treats whatever
	// comes back as the answer.
	oracle := &scriptedOracle{decisions: []*Decision{
		retrieveDecision("first query"),
		retrieveDecision("second query"),
		retrieveDecision("third query past the cap"),
	}}
	retriever := &stubRetriever{snippets: []retrieval.Snippet{
		{Text: "chunk", Source: "doc.pdf", Page: 1},
	}}
	e := newTestEngine(t, oracle, retriever, &stubHistory{})

	turn, err := e.Respond(context.Background(), "2348031234567", "tell me everything")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}

	if len(retriever.queries) != 2 {
		t.Errorf("retrievals = %d, want 2", len(retriever.queries))
	}
	if got := oracle.allowed; len(got) != 3 || !got[0] || !got[1] || got[2] {
		t.Errorf("allowRetrieval per call = %v, want [true true false]", got)
	}
	// A forced-answer round with no answer text falls back.
	if turn.Response != fallbackMessage {
		t.Errorf("response = %q, want fallback", turn.Response)
	}
}

func TestRespond_TwoRetrievalsThenAnswer(t *testing.T) {
	oracle := &scriptedOracle{decisions: []*Decision{
		retrieveDecision("q1"),
		retrieveDecision("q2"),
		{Kind: DecideAnswer, Answer: "final"},
	}}
	e := newTestEngine(t, oracle, &stubRetriever{}, &stubHistory{})

	turn, err := e.Respond(context.Background(), "2348031234567", "question")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if turn.Response != "final." {
		t.Errorf("response = %q, want %q", turn.Response, "final.")
	}
}

func TestRespond_CitationsDeduplicated(t *testing.T) {
	oracle := &scriptedOracle{decisions: []*Decision{
		retrieveDecision("q1"),
		retrieveDecision("q2"),
		{Kind: DecideAnswer, Answer: "answer"},
	}}
	retriever := &stubRetriever{snippets: []retrieval.Snippet{
		{Text: "chunk a", Source: "guide.pdf", Page: 3},
		{Text: "chunk b", Source: "guide.pdf", Page: 3},
		{Text: "chunk c", Source: "guide.pdf", Page: 4},
	}}
	e := newTestEngine(t, oracle, retriever, &stubHistory{})

	turn, err := e.Respond(context.Background(), "2348031234567", "question")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}

	// Same source+page cited once even across two retrieval rounds.
	if len(turn.Citations) != 2 {
		t.Fatalf("citations = %d, want 2", len(turn.Citations))
	}
	if turn.Citations[0].Page != 3 || turn.Citations[1].Page != 4 {
		t.Errorf("citations = %+v", turn.Citations)
	}
}

func TestRespond_RetrievalFailureContinuesTurn(t *testing.T) {
	oracle := &scriptedOracle{decisions: []*Decision{
		retrieveDecision("q"),
		{Kind: DecideAnswer, Answer: "Sorry, I could not look that up."},
	}}
	retriever := &stubRetriever{err: errors.New("vector store down")}
	e := newTestEngine(t, oracle, retriever, &stubHistory{})

	turn, err := e.Respond(context.Background(), "2348031234567", "eligibility?")
	if err != nil {
		t.Fatalf("Respond() should survive retrieval failure, got: %v", err)
	}
	if turn.Retrieved {
		t.Error("failed retrieval must not mark the turn retrieved")
	}
	if len(turn.Citations) != 0 {
		t.Errorf("citations = %d, want 0", len(turn.Citations))
	}
}

func TestRespond_EmptyAnswerFallsBack(t *testing.T) {
	oracle := &scriptedOracle{decisions: []*Decision{
		{Kind: DecideAnswer, Answer: "   "},
	}}
	e := newTestEngine(t, oracle, &stubRetriever{}, &stubHistory{})

	turn, err := e.Respond(context.Background(), "2348031234567", "hello")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if turn.Response != fallbackMessage {
		t.Errorf("response = %q, want fallback", turn.Response)
	}
}

func TestRespond_EmptyInputRejected(t *testing.T) {
	e := newTestEngine(t, &scriptedOracle{}, &stubRetriever{}, &stubHistory{})

	if _, err := e.Respond(context.Background(), "2348031234567", "  "); err == nil {
		t.Fatal("expected error for empty message")
	}
}

func TestRespond_HistoryThreadedIntoContext(t *testing.T) {
	oracle := &scriptedOracle{decisions: []*Decision{
		{Kind: DecideAnswer, Answer: "answer"},
	}}
	history := &stubHistory{messages: []chatlog.Message{
		{Text: "hi", Sender: chatlog.SenderUser},
		{Text: "Hello!", Sender: chatlog.SenderAI},
	}}
	e := newTestEngine(t, oracle, &stubRetriever{}, history)

	if _, err := e.Respond(context.Background(), "2348031234567", "next question"); err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}

	if len(oracle.lastMsgs) != 3 {
		t.Fatalf("context messages = %d, want 3", len(oracle.lastMsgs))
	}
	if oracle.lastMsgs[0].Role != ai.RoleUser || oracle.lastMsgs[1].Role != ai.RoleModel {
		t.Errorf("history roles = %q, %q", oracle.lastMsgs[0].Role, oracle.lastMsgs[1].Role)
	}
}

func TestRespond_HistoryErrorFailsTurn(t *testing.T) {
	e := newTestEngine(t, &scriptedOracle{}, &stubRetriever{},
		&stubHistory{err: errors.New("db down")})

	if _, err := e.Respond(context.Background(), "2348031234567", "hi"); err == nil {
		t.Fatal("expected error when history cannot be loaded")
	}
}

func TestNewEngine_Validation(t *testing.T) {
	base := func() Config {
		return Config{
			Oracle:    &scriptedOracle{},
			Retriever: &stubRetriever{},
			History:   &stubHistory{},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing oracle", mutate: func(c *Config) { c.Oracle = nil }},
		{name: "missing retriever", mutate: func(c *Config) { c.Retriever = nil }},
		{name: "missing history", mutate: func(c *Config) { c.History = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if _, err := NewEngine(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if _, err := NewEngine(base()); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestFormatSnippets(t *testing.T) {
	out := formatSnippets([]retrieval.Snippet{
		{Text: "first passage", Source: "a.pdf", Page: 1},
		{Text: "second passage", Source: "b.pdf", Page: 2},
	})
	if !strings.Contains(out, "[Source: a.pdf, page 1]") || !strings.Contains(out, "second passage") {
		t.Errorf("formatSnippets() = %q", out)
	}

	empty := formatSnippets(nil)
	if !strings.Contains(empty, "No relevant documents") {
		t.Errorf("empty snippets output = %q", empty)
	}
}

func TestPreview_TruncatesLongPassages(t *testing.T) {
	long := strings.Repeat("x", 500)
	if got := preview(long); len([]rune(got)) != citationPreviewLen {
		t.Errorf("preview length = %d, want %d", len([]rune(got)), citationPreviewLen)
	}
	if got := preview("short"); got != "short" {
		t.Errorf("preview(short) = %q", got)
	}
}
