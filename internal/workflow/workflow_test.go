// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/research-agent/internal/history"
	"github.com/pdiddy/research-agent/internal/llm"
	"github.com/pdiddy/research-agent/internal/tools"
	"github.com/pdiddy/research-agent/pkg/types"
)

// mockProvider serves scripted replies per adapter, routed by the system
// prompt of each request.
type mockProvider struct {
	decisions []llm.Reply
	plans     []llm.Reply
	agents    []llm.Reply
	judges    []llm.Reply

	// calls records the adapter kinds invoked, in order.
	calls []string

	err error
}

func kindOf(req llm.Request) string {
	switch {
	case strings.Contains(req.System, "decide whether you need to perform research"):
		return "decision"
	case strings.Contains(req.System, "step-by-step plan"):
		return "planning"
	case strings.Contains(req.System, "reviewing the most recent assistant answer"):
		return "judge"
	default:
		return "agent"
	}
}

func (p *mockProvider) Complete(_ context.Context, req llm.Request) (llm.Reply, error) {
	kind := kindOf(req)
	p.calls = append(p.calls, kind)
	if p.err != nil {
		return llm.Reply{}, p.err
	}

	var queue *[]llm.Reply
	switch kind {
	case "decision":
		queue = &p.decisions
	case "planning":
		queue = &p.plans
	case "judge":
		queue = &p.judges
	default:
		queue = &p.agents
	}
	if len(*queue) == 0 {
		return llm.Reply{}, fmt.Errorf("no scripted %s reply left", kind)
	}
	r := (*queue)[0]
	*queue = (*queue)[1:]
	return r, nil
}

func (p *mockProvider) count(kind string) int {
	n := 0
	for _, c := range p.calls {
		if c == kind {
			n++
		}
	}
	return n
}

// echoTool satisfies tool calls without any I/O.
type echoTool struct{}

func (echoTool) Name() tools.Name            { return tools.SearchPapers }
func (echoTool) Description() string         { return "echo search stub" }
func (echoTool) InputSchema() map[string]any { return map[string]any{"type": "object"} }
func (echoTool) Execute(_ context.Context, args map[string]any) (tools.Payload, error) {
	return tools.Payload{Text: fmt.Sprintf("echo: %v", args["query"])}, nil
}

func text(s string) llm.Reply { return llm.Reply{Text: s} }

func toolCallReply(id, query string) llm.Reply {
	return llm.Reply{ToolCalls: []history.ToolCall{
		{ID: id, Name: string(tools.SearchPapers), Args: map[string]any{"query": query}},
	}}
}

const (
	researchDecision = `{"requires_research": true, "answer": null}`
	simplePlan       = `{"plan": [{"step": 1, "tool": "search-papers", "arguments": {"query": "q"}, "description": "search"}]}`
	goodJudgment     = `{"is_good_answer": true, "feedback": null}`
	badJudgment      = `{"is_good_answer": false, "feedback": "cite your sources"}`
)

func newTestWorkflow(t *testing.T, p llm.Provider) (*Workflow, *recordingObserver) {
	t.Helper()
	d, err := tools.NewDispatcher(echoTool{})
	if err != nil {
		t.Fatalf("NewDispatcher() error: %v", err)
	}
	w, err := New(p, d, types.WorkflowConfig{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	obs := &recordingObserver{}
	w.Observer = obs.observe
	return w, obs
}

// recordingObserver rebuilds the full history from observer callbacks.
type recordingObserver struct {
	stages  []Stage
	history history.History
}

func (o *recordingObserver) observe(stage Stage, turns []history.Turn) {
	o.stages = append(o.stages, stage)
	o.history = o.history.Append(turns...)
}

// --- direct answer path ---

func TestRunDirectAnswer(t *testing.T) {
	p := &mockProvider{
		decisions: []llm.Reply{text(`{"requires_research": false, "answer": "Paris is the capital of France."}`)},
	}
	w, obs := newTestWorkflow(t, p)

	answer, err := w.Run(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if answer != "Paris is the capital of France." {
		t.Errorf("answer = %q", answer)
	}
	// Only the decision adapter runs; no planning, agent, or judge calls.
	if len(p.calls) != 1 || p.calls[0] != "decision" {
		t.Errorf("adapter calls = %v", p.calls)
	}
	if len(obs.history) != 2 {
		t.Errorf("history length = %d, want 2 (query + answer)", len(obs.history))
	}
}

// --- research path with one accepted cycle ---

func TestRunResearchCycle(t *testing.T) {
	p := &mockProvider{
		decisions: []llm.Reply{text(researchDecision)},
		plans:     []llm.Reply{text(simplePlan)},
		agents: []llm.Reply{
			toolCallReply("c1", "q"),
			text("Final answer with citations."),
		},
		judges: []llm.Reply{text(goodJudgment)},
	}
	w, obs := newTestWorkflow(t, p)

	answer, err := w.Run(context.Background(), "What do we know about q?")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if answer != "Final answer with citations." {
		t.Errorf("answer = %q", answer)
	}

	wantCalls := []string{"decision", "planning", "agent", "agent", "judge"}
	if fmt.Sprint(p.calls) != fmt.Sprint(wantCalls) {
		t.Errorf("adapter calls = %v, want %v", p.calls, wantCalls)
	}

	// The observed history must satisfy the correlation invariant.
	if err := obs.history.Validate(); err != nil {
		t.Errorf("history invalid: %v", err)
	}

	// The tool-result turn answers the invocation id the agent issued.
	var found bool
	for _, turn := range obs.history {
		if turn.Role == history.RoleTool {
			found = true
			if turn.ToolCallID != "c1" {
				t.Errorf("tool result answers %q, want c1", turn.ToolCallID)
			}
			if !strings.Contains(turn.Content, "echo: q") {
				t.Errorf("tool result content = %q", turn.Content)
			}
		}
	}
	if !found {
		t.Error("history holds no tool-result turn")
	}
}

// --- rejection then acceptance ---

func TestRunJudgeRejectionTriggersReplanning(t *testing.T) {
	p := &mockProvider{
		decisions: []llm.Reply{text(researchDecision)},
		plans:     []llm.Reply{text(simplePlan), text(simplePlan)},
		agents: []llm.Reply{
			text("First candidate answer."),
			text("Improved answer with citations."),
		},
		judges: []llm.Reply{text(badJudgment), text(goodJudgment)},
	}
	w, obs := newTestWorkflow(t, p)

	answer, err := w.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if answer != "Improved answer with citations." {
		t.Errorf("answer = %q", answer)
	}
	if got := p.count("planning"); got != 2 {
		t.Errorf("planning calls = %d, want 2", got)
	}
	if got := p.count("judge"); got != 2 {
		t.Errorf("judge calls = %d, want 2", got)
	}

	// The judge's feedback lands in history so the second planning call
	// can react to it.
	var sawFeedback bool
	for _, turn := range obs.history {
		if turn.Role == history.RoleAssistant && turn.Content == "cite your sources" {
			sawFeedback = true
		}
	}
	if !sawFeedback {
		t.Error("judge feedback missing from history")
	}
}

// --- forced acceptance at the retry cap ---

func TestRunFeedbackCapForcesTermination(t *testing.T) {
	p := &mockProvider{
		decisions: []llm.Reply{text(researchDecision)},
		plans:     []llm.Reply{text(simplePlan), text(simplePlan), text(simplePlan)},
		agents: []llm.Reply{
			text("Attempt one."),
			text("Attempt two."),
			text("Attempt three."),
		},
		// Only two rejections are scripted. The third evaluation must
		// never happen: the cap accepts the answer first.
		judges: []llm.Reply{text(badJudgment), text(badJudgment)},
	}
	w, _ := newTestWorkflow(t, p)

	answer, err := w.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if answer != "Attempt three." {
		t.Errorf("answer = %q", answer)
	}
	if got := p.count("judge"); got != 2 {
		t.Errorf("judge calls = %d, want 2 (cap skips the third)", got)
	}
	if got := p.count("planning"); got != 3 {
		t.Errorf("planning calls = %d, want 3", got)
	}
}

// --- graceful degradation ---

func TestRunDecisionSchemaFailureFallsBackToResearch(t *testing.T) {
	p := &mockProvider{
		decisions: []llm.Reply{text("not json")},
		plans:     []llm.Reply{text(simplePlan)},
		agents:    []llm.Reply{text("Researched answer.")},
		judges:    []llm.Reply{text(goodJudgment)},
	}
	w, _ := newTestWorkflow(t, p)

	answer, err := w.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if answer != "Researched answer." {
		t.Errorf("answer = %q", answer)
	}
	if got := p.count("planning"); got != 1 {
		t.Errorf("planning calls = %d, want 1", got)
	}
}

func TestRunEmptyDirectAnswerFallsBackToResearch(t *testing.T) {
	p := &mockProvider{
		decisions: []llm.Reply{text(`{"requires_research": false, "answer": ""}`)},
		plans:     []llm.Reply{text(simplePlan)},
		agents:    []llm.Reply{text("Researched answer.")},
		judges:    []llm.Reply{text(goodJudgment)},
	}
	w, _ := newTestWorkflow(t, p)

	answer, err := w.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if answer != "Researched answer." {
		t.Errorf("answer = %q", answer)
	}
}

func TestRunPlanningSchemaFailureStillReachesAgent(t *testing.T) {
	p := &mockProvider{
		decisions: []llm.Reply{text(researchDecision)},
		plans:     []llm.Reply{text("I refuse to emit JSON.")},
		agents:    []llm.Reply{text("Best-judgment answer.")},
		judges:    []llm.Reply{text(goodJudgment)},
	}
	w, obs := newTestWorkflow(t, p)

	answer, err := w.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if answer != "Best-judgment answer." {
		t.Errorf("answer = %q", answer)
	}

	var sawDegradation bool
	for _, turn := range obs.history {
		if strings.Contains(turn.Content, "Error during planning") {
			sawDegradation = true
		}
	}
	if !sawDegradation {
		t.Error("planning degradation turn missing from history")
	}
}

func TestRunJudgeSchemaFailureAcceptsAnswer(t *testing.T) {
	p := &mockProvider{
		decisions: []llm.Reply{text(researchDecision)},
		plans:     []llm.Reply{text(simplePlan)},
		agents:    []llm.Reply{text("Candidate answer.")},
		judges:    []llm.Reply{text("looks good I guess")},
	}
	w, obs := newTestWorkflow(t, p)

	answer, err := w.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	// The trailing system turn must not displace the answer.
	if answer != "Candidate answer." {
		t.Errorf("answer = %q", answer)
	}

	last, ok := obs.history.Last()
	if !ok || last.Role != history.RoleSystem {
		t.Errorf("last turn = %+v, want the judge-failure system note", last)
	}
}

func TestRunProviderFaultAborts(t *testing.T) {
	p := &mockProvider{err: fmt.Errorf("connection refused")}
	w, _ := newTestWorkflow(t, p)

	_, err := w.Run(context.Background(), "query")
	if err == nil {
		t.Fatal("Run() succeeded despite a provider fault")
	}
	if !strings.Contains(err.Error(), "decision stage") {
		t.Errorf("error = %q, want failing stage named", err)
	}
}

// --- recorder wiring ---

type memRecorder struct {
	began    []string
	queries  []string
	stages   []string
	seqs     []int
	finished string
	answer   string
}

func (r *memRecorder) BeginRun(_ context.Context, runID, query string) error {
	r.began = append(r.began, runID)
	r.queries = append(r.queries, query)
	return nil
}

func (r *memRecorder) RecordTurns(_ context.Context, _ string, stage string, seq int, turns []history.Turn) error {
	for range turns {
		r.stages = append(r.stages, stage)
	}
	r.seqs = append(r.seqs, seq)
	return nil
}

func (r *memRecorder) FinishRun(_ context.Context, runID, answer string) error {
	r.finished = runID
	r.answer = answer
	return nil
}

func TestRunRecordsProgress(t *testing.T) {
	p := &mockProvider{
		decisions: []llm.Reply{text(`{"requires_research": false, "answer": "direct"}`)},
	}
	w, _ := newTestWorkflow(t, p)
	rec := &memRecorder{}
	w.Recorder = rec

	answer, err := w.Run(context.Background(), "simple question")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(rec.began) != 1 || rec.queries[0] != "simple question" {
		t.Errorf("BeginRun calls = %v / %v", rec.began, rec.queries)
	}
	if rec.finished != rec.began[0] {
		t.Errorf("FinishRun id = %q, want %q", rec.finished, rec.began[0])
	}
	if rec.answer != answer {
		t.Errorf("recorded answer = %q, want %q", rec.answer, answer)
	}
	// Sequence numbers are cumulative turn offsets.
	if len(rec.seqs) != 2 || rec.seqs[0] != 0 || rec.seqs[1] != 1 {
		t.Errorf("seqs = %v, want [0 1]", rec.seqs)
	}
}

// --- describeTools ---

func TestDescribeTools(t *testing.T) {
	d, err := tools.NewDispatcher(echoTool{})
	if err != nil {
		t.Fatalf("NewDispatcher() error: %v", err)
	}
	got := describeTools(d)
	if !strings.Contains(got, "search-papers: echo search stub") {
		t.Errorf("describeTools() = %q", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("roster has a trailing newline")
	}
}
