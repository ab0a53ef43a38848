// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow is the orchestration state machine: the directed graph
// of stages that routes a query through decision, planning, agent, tool
// execution, and self-judging, bounded by a feedback retry cap.
//
// Stages never mutate history directly. Each one returns the turns it
// wants appended together with the next stage; the loop performs the
// append, notifies the observer, and records progress, so a stage either
// contributes its turns completely or the run aborts before any partial
// append.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/pdiddy/research-agent/internal/history"
	"github.com/pdiddy/research-agent/internal/llm"
	"github.com/pdiddy/research-agent/internal/summary"
	"github.com/pdiddy/research-agent/internal/tools"
	"github.com/pdiddy/research-agent/pkg/types"
)

// Stage identifies one node of the workflow graph.
type Stage string

const (
	StageDecision      Stage = "decision"
	StagePlanning      Stage = "planning"
	StageAgent         Stage = "agent"
	StageToolExecution Stage = "tool_execution"
	StageJudge         Stage = "judge"
	StageTerminal      Stage = "terminal"
)

// defaultMaxFeedback is the retry cap: the number of judge evaluations
// before the run force-terminates with whatever answer it has. Enforced
// independently of adapter output so a judge that never reports success
// cannot keep the run alive.
const defaultMaxFeedback = 2

// ErrNoAnswer reports a run that reached a terminal state without
// producing any assistant turn.
var ErrNoAnswer = errors.New("run produced no answer")

// Observer receives the turns each state-machine step produced, in order.
// Purely observational; it cannot feed back into the run.
type Observer func(stage Stage, turns []history.Turn)

// Recorder persists run progress. runstore.Store implements it; a nil
// Recorder disables persistence. Recorder failures are warnings, never
// run failures.
type Recorder interface {
	BeginRun(ctx context.Context, runID, query string) error
	RecordTurns(ctx context.Context, runID, stage string, seq int, turns []history.Turn) error
	FinishRun(ctx context.Context, runID, answer string) error
}

// State is the workflow state for one query. It is owned exclusively by
// the run loop and never shared across concurrent runs.
type State struct {
	RequiresResearch bool
	FeedbackCount    int
	IsGoodAnswer     bool
	History          history.History
}

// Workflow wires the adapters, dispatcher, and summarizer into the stage
// graph. One Workflow value serves many runs; all per-run state lives in
// State.
type Workflow struct {
	// Observer and Recorder are optional and may be set before Run.
	Observer Observer
	Recorder Recorder

	decision    *llm.DecisionAdapter
	planner     *llm.PlanAdapter
	judge       *llm.JudgeAdapter
	provider    llm.Provider
	dispatcher  *tools.Dispatcher
	agentSystem string
	toolSpecs   []llm.ToolSpec
	maxFeedback int
}

// New builds a workflow over the given provider and dispatcher. The agent
// and planning prompts are rendered once, from the dispatcher's tool
// roster.
func New(provider llm.Provider, dispatcher *tools.Dispatcher, cfg types.WorkflowConfig) (*Workflow, error) {
	roster := describeTools(dispatcher)
	agentSystem, err := llm.AgentPrompt(roster)
	if err != nil {
		return nil, err
	}

	var specs []llm.ToolSpec
	for _, t := range dispatcher.Tools() {
		specs = append(specs, llm.ToolSpec{
			Name:        string(t.Name()),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}

	maxFeedback := cfg.MaxFeedback
	if maxFeedback <= 0 {
		maxFeedback = defaultMaxFeedback
	}

	return &Workflow{
		decision:    &llm.DecisionAdapter{Provider: provider},
		planner:     &llm.PlanAdapter{Provider: provider, ToolsDescription: roster},
		judge:       &llm.JudgeAdapter{Provider: provider},
		provider:    provider,
		dispatcher:  dispatcher,
		agentSystem: agentSystem,
		toolSpecs:   specs,
		maxFeedback: maxFeedback,
	}, nil
}

// describeTools renders the tool roster for the planning and agent prompts.
func describeTools(d *tools.Dispatcher) string {
	var b strings.Builder
	for _, t := range d.Tools() {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name(), t.Description())
	}
	return strings.TrimRight(b.String(), "\n")
}

// Run executes one query to a terminal state and returns the final
// assistant turn's text. The only hard failure is a provider fault;
// adapter schema errors and tool failures degrade into history turns and
// the run continues.
func (w *Workflow) Run(ctx context.Context, query string) (string, error) {
	runID := uuid.NewString()
	st := State{}

	if w.Recorder != nil {
		if err := w.Recorder.BeginRun(ctx, runID, query); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not record run: %v\n", err)
		}
	}

	seq := 0
	emit := func(stage Stage, turns []history.Turn) {
		if len(turns) == 0 {
			return
		}
		st.History = st.History.Append(turns...)
		if w.Observer != nil {
			w.Observer(stage, turns)
		}
		if w.Recorder != nil {
			if err := w.Recorder.RecordTurns(ctx, runID, string(stage), seq, turns); err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not record turns: %v\n", err)
			}
		}
		seq += len(turns)
	}

	emit(StageDecision, []history.Turn{history.User(query)})

	stage := StageDecision
	for stage != StageTerminal {
		var (
			next  Stage
			turns []history.Turn
			err   error
		)
		switch stage {
		case StageDecision:
			next, turns, err = w.decide(ctx, &st)
		case StagePlanning:
			next, turns, err = w.plan(ctx, &st)
		case StageAgent:
			next, turns, err = w.agent(ctx, &st)
		case StageToolExecution:
			next, turns, err = w.executeTools(ctx, &st)
		case StageJudge:
			next, turns, err = w.judgeAnswer(ctx, &st)
		default:
			return "", fmt.Errorf("unknown stage %q", stage)
		}
		if err != nil {
			return "", fmt.Errorf("%s stage: %w", stage, err)
		}
		emit(stage, turns)
		stage = next
	}

	final, ok := st.History.LastAssistant()
	if !ok {
		return "", ErrNoAnswer
	}
	if w.Recorder != nil {
		if err := w.Recorder.FinishRun(ctx, runID, final.Content); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not record answer: %v\n", err)
		}
	}
	return final.Content, nil
}

// decide is the entry stage: classify the query as research or direct
// answer. A schema failure degrades to "research required" so the run
// still proceeds with full machinery rather than halting.
func (w *Workflow) decide(ctx context.Context, st *State) (Stage, []history.Turn, error) {
	d, err := w.decision.Decide(ctx, st.History)
	var schemaErr *llm.SchemaError
	if errors.As(err, &schemaErr) {
		st.RequiresResearch = true
		turn := history.Assistant(fmt.Sprintf("Decision failed (%v); proceeding with full research.", schemaErr))
		return StagePlanning, []history.Turn{turn}, nil
	}
	if err != nil {
		return "", nil, err
	}

	st.RequiresResearch = d.RequiresResearch
	if d.RequiresResearch {
		return StagePlanning, nil, nil
	}
	if strings.TrimSpace(d.Answer) == "" {
		// A direct-answer classification with no answer is unusable;
		// fall back to research.
		st.RequiresResearch = true
		turn := history.Assistant("Decision produced no direct answer; proceeding with full research.")
		return StagePlanning, []history.Turn{turn}, nil
	}
	return StageTerminal, []history.Turn{history.Assistant(d.Answer)}, nil
}

// plan appends the new plan as an assistant turn. Planning failure is
// replaced by an explanatory turn and the run still proceeds to the
// agent, which treats a missing plan as "use best judgment".
func (w *Workflow) plan(ctx context.Context, st *State) (Stage, []history.Turn, error) {
	p, err := w.planner.Plan(ctx, st.History)
	var schemaErr *llm.SchemaError
	if errors.As(err, &schemaErr) {
		turn := history.Assistant(fmt.Sprintf("Error during planning: failed to generate a structured plan (%v).", schemaErr))
		return StageAgent, []history.Turn{turn}, nil
	}
	if err != nil {
		return "", nil, err
	}

	content, err := p.Render()
	if err != nil {
		return "", nil, err
	}
	return StageAgent, []history.Turn{history.Assistant(content)}, nil
}

// agent asks the model, with tools bound, for the next action: either
// tool invocations or a candidate final answer.
func (w *Workflow) agent(ctx context.Context, st *State) (Stage, []history.Turn, error) {
	reply, err := w.provider.Complete(ctx, llm.Request{
		System: w.agentSystem,
		Turns:  st.History,
		Tools:  w.toolSpecs,
	})
	if err != nil {
		return "", nil, err
	}

	// Every invocation needs a correlation id for its tool-result turn.
	for i := range reply.ToolCalls {
		if reply.ToolCalls[i].ID == "" {
			reply.ToolCalls[i].ID = uuid.NewString()
		}
	}

	turn := history.AssistantCalls(reply.Text, reply.ToolCalls)
	if len(reply.ToolCalls) > 0 {
		return StageToolExecution, []history.Turn{turn}, nil
	}
	return StageJudge, []history.Turn{turn}, nil
}

// executeTools resolves every pending invocation of the triggering
// assistant turn, in declaration order, and appends one summarized
// tool-result turn per invocation.
func (w *Workflow) executeTools(ctx context.Context, st *State) (Stage, []history.Turn, error) {
	last, ok := st.History.LastAssistant()
	if !ok || len(last.ToolCalls) == 0 {
		// Defect in routing rather than a tool failure; degrade like any
		// other stage-boundary fault.
		turn := history.Assistant("Error: no tool calls found in the last assistant turn.")
		return StageAgent, []history.Turn{turn}, nil
	}

	outcomes := w.dispatcher.ExecuteAll(ctx, last.ToolCalls)
	turns := make([]history.Turn, 0, len(outcomes))
	for i, out := range outcomes {
		call := last.ToolCalls[i]
		turns = append(turns, history.ToolResult(call.ID, call.Name, summary.Summarize(out)))
	}
	return StageAgent, turns, nil
}

// judgeAnswer evaluates the candidate final answer. The retry cap
// short-circuits before the adapter is invoked: at the cap the answer is
// accepted as-is, a deliberate forced-acceptance policy that guarantees
// termination. Judge feedback is appended so the next planning call sees
// why the answer was rejected.
func (w *Workflow) judgeAnswer(ctx context.Context, st *State) (Stage, []history.Turn, error) {
	if st.FeedbackCount >= w.maxFeedback {
		st.IsGoodAnswer = true
		return StageTerminal, nil, nil
	}

	j, err := w.judge.Judge(ctx, st.History)
	var schemaErr *llm.SchemaError
	if errors.As(err, &schemaErr) {
		// An unusable judgment must not strand the run; accept the
		// answer and leave a trace of why no evaluation happened.
		st.IsGoodAnswer = true
		turn := history.System(fmt.Sprintf("Judge evaluation failed (%v); accepting the current answer.", schemaErr))
		return StageTerminal, []history.Turn{turn}, nil
	}
	if err != nil {
		return "", nil, err
	}

	st.FeedbackCount++
	st.IsGoodAnswer = j.IsGoodAnswer
	if j.IsGoodAnswer {
		return StageTerminal, nil, nil
	}

	var turns []history.Turn
	if j.Feedback != "" {
		turns = append(turns, history.Assistant(j.Feedback))
	}
	return StagePlanning, turns, nil
}
