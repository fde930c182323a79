package intelligence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/yashdiniz/focusa-remind/pkg/core"
	"github.com/yashdiniz/focusa-remind/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("remind")

const (
	// DefaultMaxSteps caps a run when no limit is configured.
	DefaultMaxSteps = 5

	// DefaultTopK is the number of candidates retrieved per turn.
	DefaultTopK = 10
)

// Agent consolidates conversational turns into memory mutations.
//
// A run moves Idle → Retrieving → Deciding → (Mutating → Deciding)* and
// always ends in a terminal state within MaxSteps steps. Each dispatched
// intent, each empty undecided decision and each policy error consumes a
// step. Mutation failures are recorded and the run continues; only a store
// outage aborts it.
type Agent struct {
	store     Store
	policy    Policy
	filter    ContentFilter
	extractor *FactExtractor
	logger    *slog.Logger

	maxSteps    int
	tokenBudget int
	topK        int
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithMaxSteps sets the step cap. Non-positive values keep the default.
func WithMaxSteps(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.maxSteps = n
		}
	}
}

// WithTokenBudget sets the cumulative token budget. Zero means unlimited.
func WithTokenBudget(tokens int) AgentOption {
	return func(a *Agent) {
		a.tokenBudget = tokens
	}
}

// WithTopK sets how many candidates are retrieved for the policy.
func WithTopK(k int) AgentOption {
	return func(a *Agent) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithAgentConfig applies the limits from cfg.
func WithAgentConfig(cfg core.AgentConfig) AgentOption {
	return func(a *Agent) {
		WithMaxSteps(cfg.MaxSteps)(a)
		WithTokenBudget(cfg.TokenBudget)(a)
		WithTopK(cfg.TopK)(a)
	}
}

// WithFilter replaces the default RuleFilter. Passing nil disables filtering.
func WithFilter(f ContentFilter) AgentOption {
	return func(a *Agent) {
		a.filter = f
	}
}

// WithExtractor runs e before retrieval. A turn with nothing worth
// extracting terminates with summary "acked".
func WithExtractor(e *FactExtractor) AgentOption {
	return func(a *Agent) {
		a.extractor = e
	}
}

// WithLogger sets the structured logger. Without it a run logs to the
// logger carried by its context.
func WithLogger(logger *slog.Logger) AgentOption {
	return func(a *Agent) {
		a.logger = logger
	}
}

// NewAgent creates an agent that mutates store as policy decides.
func NewAgent(store Store, policy Policy, opts ...AgentOption) *Agent {
	a := &Agent{
		store:    store,
		policy:   policy,
		filter:   NewRuleFilter(),
		maxSteps: DefaultMaxSteps,
		topK:     DefaultTopK,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// run is the mutable state of one consolidation.
type run struct {
	*Agent
	turn          Turn
	result        *Result
	facts         []string
	policySummary string
	logger        *slog.Logger
}

// Run consolidates turn. The returned error is non-nil only for invalid
// input or a fatal store failure; in the latter case the partial result is
// returned alongside it with State TerminatedAborted.
func (a *Agent) Run(ctx context.Context, turn Turn) (*Result, error) {
	if turn.UserID == "" {
		return nil, core.NewMemoryError("Consolidate", fmt.Errorf("%w: user id is required", core.ErrInvalidInput))
	}

	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "remind.consolidate", trace.WithAttributes(
		attribute.String("remind.run_id", runID),
		attribute.String("remind.user_id", turn.UserID),
	))
	defer span.End()

	logger := a.logger
	if logger == nil {
		logger = logging.From(ctx)
	}
	r := &run{
		Agent:  a,
		turn:   turn,
		result: &Result{RunID: runID, State: StateIdle, Outcomes: []Outcome{}},
		logger: logger.With("run_id", runID, "user_id", turn.UserID),
	}

	err := r.execute(ctx)
	r.result.Summary = r.summary()

	span.SetAttributes(
		attribute.String("remind.state", string(r.result.State)),
		attribute.Int("remind.steps", r.result.Steps),
		attribute.Int("remind.tokens", r.result.Usage.Total()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "consolidation aborted")
		r.logger.Error("consolidation aborted", "state", r.result.State, "step", r.result.Steps, "error", err)
		return r.result, err
	}

	r.logger.Info("consolidation finished", "state", r.result.State, "step", r.result.Steps, "summary", r.result.Summary)
	return r.result, nil
}

func (r *run) execute(ctx context.Context) error {
	if r.filter != nil && EntirelySensitive(r.filter, r.turn.Content) {
		r.note("sensitive content skipped")
		r.policySummary = "no action"
		r.transition(TerminatedSummary)
		return nil
	}

	if r.extractor != nil {
		facts, noInfo, usage, err := r.extractor.Extract(ctx, r.turn)
		r.result.Usage.Add(usage)
		switch {
		case err != nil:
			r.logger.Warn("fact extraction failed, deciding on the raw turn", "error", err)
			r.note("extraction failed")
		case noInfo:
			r.policySummary = "acked"
			r.transition(TerminatedSummary)
			return nil
		default:
			r.facts = facts
		}
		if r.overBudget() {
			r.transition(TerminatedBudgetExceeded)
			return nil
		}
	}

	r.transition(StateRetrieving)
	hits, err := r.store.Search(ctx, r.turn.Content,
		core.WithUserIDForSearch(r.turn.UserID), core.WithLimit(r.topK))
	if err != nil {
		if core.IsFatal(err) {
			r.transition(TerminatedAborted)
			return err
		}
		r.logger.Warn("retrieval failed, continuing without candidates", "error", err)
		r.note("retrieval failed")
		hits = nil
	}

	var (
		pending []Intent
		done    bool
	)
	for r.result.Steps < r.maxSteps {
		if len(pending) == 0 {
			if done {
				break
			}
			r.transition(StateDeciding)
			decision, err := r.decide(ctx, hits)
			if decision != nil {
				r.result.Usage.Add(decision.Usage)
			}
			if r.overBudget() {
				r.transition(TerminatedBudgetExceeded)
				return nil
			}
			if err != nil && core.IsFatal(err) {
				r.transition(TerminatedAborted)
				return err
			}
			if err != nil {
				r.result.Steps++
				r.logger.Warn("policy failed", "step", r.result.Steps, "error", err)
				r.note(fmt.Sprintf("policy error at step %d", r.result.Steps))
				continue
			}
			if decision.Summary != "" {
				r.policySummary = decision.Summary
			}
			pending = r.admit(decision.Intents)
			done = decision.Done
			if len(pending) == 0 {
				if done {
					break
				}
				r.result.Steps++
				continue
			}
		}

		r.transition(StateMutating)
		intent := pending[0]
		pending = pending[1:]
		r.result.Steps++
		outcome := r.dispatch(ctx, intent)
		r.result.Outcomes = append(r.result.Outcomes, outcome)
		if outcome.Err != nil && core.IsFatal(outcome.Err) {
			r.transition(TerminatedAborted)
			return outcome.Err
		}
	}

	if len(pending) > 0 {
		r.note(fmt.Sprintf("%d dropped at step limit", len(pending)))
	} else if !done && r.result.Steps >= r.maxSteps {
		r.note("step limit reached")
	}
	r.transition(TerminatedSummary)
	return nil
}

func (r *run) decide(ctx context.Context, hits []*core.SearchHit) (*Decision, error) {
	ctx, span := tracer.Start(ctx, "remind.consolidate.decide",
		trace.WithAttributes(attribute.Int("remind.step", r.result.Steps+1)))
	defer span.End()

	decision, err := r.policy.Decide(ctx, DecisionInput{
		Turn:       r.turn,
		Facts:      r.facts,
		Candidates: hits,
		Outcomes:   r.result.Outcomes,
		StepsLeft:  r.maxSteps - r.result.Steps,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "policy failed")
		return decision, err
	}
	if decision == nil {
		return nil, errors.New("policy returned no decision")
	}
	return decision, nil
}

// admit drops intents the filter rejects. Deletes are never filtered.
func (r *run) admit(intents []Intent) []Intent {
	if r.filter == nil {
		return intents
	}
	admitted := make([]Intent, 0, len(intents))
	for _, in := range intents {
		if in.Action == ActionAdd || in.Action == ActionUpdate {
			if v := r.filter.Check(in.Content); v != Allow {
				r.logger.Info("intent filtered", "action", in.Action, "reason", v.String())
				r.note(fmt.Sprintf("%s %s skipped", v, in.Action))
				continue
			}
		}
		admitted = append(admitted, in)
	}
	return admitted
}

func (r *run) dispatch(ctx context.Context, in Intent) Outcome {
	ctx, span := tracer.Start(ctx, "remind.consolidate.mutate", trace.WithAttributes(
		attribute.Int("remind.step", r.result.Steps),
		attribute.String("remind.action", string(in.Action)),
	))
	defer span.End()

	outcome := Outcome{Step: r.result.Steps, Intent: in}
	switch in.Action {
	case ActionAdd:
		outcome.Record, outcome.Err = r.store.Add(ctx, in.Content, in.Category,
			core.WithUserID(r.turn.UserID))
	case ActionUpdate:
		outcome.Record, outcome.Err = r.store.Update(ctx, in.MemoryID, in.Content, in.EdgeType, in.Category,
			core.WithUserIDForUpdate(r.turn.UserID))
	case ActionDelete:
		var res *core.DeleteResult
		res, outcome.Err = r.store.Delete(ctx, in.IDs, core.WithUserIDForDelete(r.turn.UserID))
		if res != nil {
			outcome.DeletedIDs = res.DeletedIDs
		}
	default:
		outcome.Err = core.NewMemoryError("Consolidate", fmt.Errorf("%w: unknown action %q", core.ErrInvalidInput, in.Action))
	}

	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		if !core.IsBenign(outcome.Err) {
			span.SetStatus(codes.Error, "mutation failed")
		}
		r.logger.Warn("mutation failed", "step", outcome.Step, "action", in.Action, "memory_id", in.MemoryID, "error", outcome.Err)
	} else {
		r.logger.Debug("mutation applied", "step", outcome.Step, "action", in.Action)
	}
	return outcome
}

func (r *run) transition(s State) {
	r.logger.Debug("state transition", "from", r.result.State, "state", s)
	r.result.State = s
}

func (r *run) note(n string) {
	r.result.Notes = append(r.result.Notes, n)
}

func (r *run) overBudget() bool {
	return r.tokenBudget > 0 && r.result.Usage.Total() > r.tokenBudget
}
